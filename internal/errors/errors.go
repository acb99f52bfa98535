package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
)

type ErrorCode string

const (
	CodeInternal         ErrorCode = "INTERNAL_ERROR"
	CodeValidation       ErrorCode = "VALIDATION_ERROR"
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeBadRequest       ErrorCode = "BAD_REQUEST"
	CodeMethodNotAllowed ErrorCode = "METHOD_NOT_ALLOWED"
	CodeUpstream         ErrorCode = "UPSTREAM_ERROR"
)

// AppError is rendered to clients as {"error": Title, "message": Message}.
// Title is a short category; Cause is only ever logged.
type AppError struct {
	Code       ErrorCode `json:"-"`
	Title      string    `json:"error"`
	Message    string    `json:"message"`
	RequestID  string    `json:"request_id,omitempty"`
	StatusCode int       `json:"-"`
	Cause      error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s (caused by: %v)", e.Code, e.Title, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Title, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithTitle returns a copy of e with a different client-facing category.
func (e *AppError) WithTitle(title string) *AppError {
	cp := *e
	cp.Title = title
	return &cp
}

func New(code ErrorCode, title, message string) *AppError {
	return &AppError{
		Code:       code,
		Title:      title,
		Message:    message,
		StatusCode: getStatusCode(code),
	}
}

func Wrap(err error, code ErrorCode, title, message string) *AppError {
	appErr := New(code, title, message)
	appErr.Cause = err
	return appErr
}

func Internal(message string) *AppError {
	return New(CodeInternal, "Internal Server Error", message)
}

func InternalWrap(err error, message string) *AppError {
	return Wrap(err, CodeInternal, "Internal Server Error", message)
}

// Validation reports a user-correctable query problem. The title names the
// offending parameter, e.g. "Invalid start_year".
func Validation(title, message string) *AppError {
	return New(CodeValidation, title, message)
}

func BadRequest(message string) *AppError {
	return New(CodeBadRequest, "Bad Request", message)
}

func NotFound(message string) *AppError {
	return New(CodeNotFound, "Not Found", message)
}

func MethodNotAllowed(message string) *AppError {
	return New(CodeMethodNotAllowed, "Method Not Allowed", message)
}

// Upstream wraps a failed call to the statistical data provider. The cause
// stays server-side; clients get a generic message.
func Upstream(err error, message string) *AppError {
	return Wrap(err, CodeUpstream, "Upstream Error", message)
}

func IsCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr) && appErr.Code == code
}

func getStatusCode(code ErrorCode) int {
	switch code {
	case CodeValidation, CodeBadRequest:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}

func WriteError(w http.ResponseWriter, logger *slog.Logger, err error, requestID string) {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		appErr = InternalWrap(err, "An internal server error occurred")
	}

	resp := *appErr
	resp.RequestID = requestID

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)

	if encodeErr := json.NewEncoder(w).Encode(&resp); encodeErr != nil {
		logger.Error("failed to encode error response",
			"encode_error", encodeErr,
			"original_error", err,
			"request_id", requestID,
		)
		return
	}

	logLevel := slog.LevelError
	if resp.StatusCode < 500 {
		logLevel = slog.LevelWarn
	}

	logger.Log(context.TODO(), logLevel, "request failed",
		"error_code", resp.Code,
		"error", resp.Title,
		"error_message", resp.Message,
		"status_code", resp.StatusCode,
		"request_id", requestID,
		"cause", resp.Cause,
	)
}

// WriteJSON writes data as the bare response body.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

func WriteSuccess(w http.ResponseWriter, data any) error {
	return WriteJSON(w, http.StatusOK, data)
}

func WriteSuccessWithHeaders(w http.ResponseWriter, data any, headers map[string]string) error {
	for key, value := range headers {
		w.Header().Set(key, value)
	}
	return WriteSuccess(w, data)
}
