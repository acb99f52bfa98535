package handlers

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"
	"time"

	"co2gdp-api/internal/errors"
	"co2gdp-api/internal/models"
	"co2gdp-api/internal/observability"
)

const (
	ServiceName = "CO2-GDP Visualization API"
	Version     = "1.0.0"

	genericFailureMessage = "An error occurred while retrieving data from the statistical data provider"
)

// DataService is the subset of services.IndicatorFetcher the handlers use.
type DataService interface {
	CurrentYear() int
	ListCountries(ctx context.Context) ([]models.Country, error)
	GetForAPI(ctx context.Context, countries []string, start, end int) (*models.CombinedPayload, error)
	GetIndicatorForAPI(ctx context.Context, indicator models.IndicatorDescriptor, countries []string, start, end int) (*models.IndicatorPayload, error)
}

type APIHandlers struct {
	data    DataService
	metrics *observability.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

func NewAPIHandlers(data DataService, metrics *observability.Metrics, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		data:    data,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, models.HealthResponse{
		Status:    "healthy",
		Service:   ServiceName,
		Version:   Version,
		Timestamp: h.timestamp(),
	})
}

func (h *APIHandlers) HandleCountries(w http.ResponseWriter, r *http.Request) {
	countries, err := h.data.ListCountries(r.Context())
	if err != nil {
		h.writeFailure(w, r, "Failed to fetch countries", err)
		return
	}

	errors.WriteSuccess(w, models.CountriesResponse{
		Countries: countries,
		Count:     len(countries),
		Timestamp: h.timestamp(),
	})
}

func (h *APIHandlers) HandleData(w http.ResponseWriter, r *http.Request) {
	q, err := parseDataQuery(r, h.data.CurrentYear())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logger.Info("fetching combined data",
		"countries", q.Countries,
		"start_year", q.StartYear,
		"end_year", q.EndYear,
		"request_id", observability.GetRequestID(r.Context()),
	)

	payload, err := h.data.GetForAPI(r.Context(), q.Countries, q.StartYear, q.EndYear)
	if err != nil {
		h.writeFailure(w, r, "Failed to fetch data", err)
		return
	}

	errors.WriteSuccess(w, payload)
}

func (h *APIHandlers) HandleCO2(w http.ResponseWriter, r *http.Request) {
	h.handleIndicator(w, r, models.CO2Indicator, "Failed to fetch CO2 data")
}

func (h *APIHandlers) HandleGDP(w http.ResponseWriter, r *http.Request) {
	h.handleIndicator(w, r, models.GDPIndicator, "Failed to fetch GDP data")
}

func (h *APIHandlers) handleIndicator(w http.ResponseWriter, r *http.Request, indicator models.IndicatorDescriptor, failureTitle string) {
	q, err := parseDataQuery(r, h.data.CurrentYear())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logger.Info("fetching indicator data",
		"indicator", indicator.Code,
		"countries", q.Countries,
		"start_year", q.StartYear,
		"end_year", q.EndYear,
		"request_id", observability.GetRequestID(r.Context()),
	)

	payload, err := h.data.GetIndicatorForAPI(r.Context(), indicator, q.Countries, q.StartYear, q.EndYear)
	if err != nil {
		h.writeFailure(w, r, failureTitle, err)
		return
	}

	errors.WriteSuccess(w, payload)
}

func (h *APIHandlers) HandleIndicators(w http.ResponseWriter, r *http.Request) {
	indicators := models.Indicators()

	errors.WriteSuccessWithHeaders(w, models.IndicatorsResponse{
		Indicators: indicators,
		Count:      len(indicators),
		Timestamp:  h.timestamp(),
	}, map[string]string{
		"Cache-Control": "public, max-age=300",
	})
}

func (h *APIHandlers) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", observability.TextContentType)
	if err := h.metrics.WriteText(w); err != nil {
		h.logger.Error("write metrics", "error", err)
	}
}

func (h *APIHandlers) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, r, errors.NotFound("The requested resource was not found"))
}

func (h *APIHandlers) HandleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", "GET, HEAD")
	h.writeError(w, r, errors.MethodNotAllowed("The method "+r.Method+" is not allowed for this resource"))
}

// writeFailure reports a failed data fetch under the endpoint's own title.
// Client errors pass through unchanged.
func (h *APIHandlers) writeFailure(w http.ResponseWriter, r *http.Request, title string, err error) {
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		appErr = errors.InternalWrap(err, genericFailureMessage)
	}
	if appErr.StatusCode >= http.StatusInternalServerError {
		appErr = appErr.WithTitle(title)
		appErr.Message = genericFailureMessage
	}
	h.writeError(w, r, appErr)
}

func (h *APIHandlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	respondError(w, r, h.logger, err)
}

func respondError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	errors.WriteError(w, logger, err, observability.GetRequestID(r.Context()))
}

func (h *APIHandlers) timestamp() string {
	return h.now().Format(time.RFC3339)
}
