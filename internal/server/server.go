package server

import (
	"log/slog"
	"net/http"

	"co2gdp-api/internal/handlers"
	"co2gdp-api/internal/observability"
)

type Server struct {
	mux         *http.ServeMux
	logger      *slog.Logger
	apiHandlers *handlers.APIHandlers
	sseHandlers *handlers.SSEHandlers
}

type TemplateHandlers struct {
	Dashboard http.HandlerFunc
}

func NewServer(data handlers.DataService, metrics *observability.Metrics, logger *slog.Logger, templateHandlers *TemplateHandlers) *Server {
	s := &Server{
		mux:         http.NewServeMux(),
		logger:      logger,
		apiHandlers: handlers.NewAPIHandlers(data, metrics, logger),
		sseHandlers: handlers.NewSSEHandlers(data, logger),
	}
	s.setupRoutes(templateHandlers)
	return s
}

func (s *Server) setupRoutes(templateHandlers *TemplateHandlers) {
	// Health
	s.get("/{$}", s.apiHandlers.HandleHealth)

	// REST API endpoints
	s.get("/api/countries", s.apiHandlers.HandleCountries)
	s.get("/api/data", s.apiHandlers.HandleData)
	s.get("/api/data/co2", s.apiHandlers.HandleCO2)
	s.get("/api/data/gdp", s.apiHandlers.HandleGDP)
	s.get("/api/indicators", s.apiHandlers.HandleIndicators)
	s.get("/metrics", s.apiHandlers.HandleMetrics)

	// Dashboard and datastar SSE endpoints
	if templateHandlers != nil && templateHandlers.Dashboard != nil {
		s.get("/dashboard", templateHandlers.Dashboard)
	}
	s.get("/sse/data", s.sseHandlers.HandleData)
	s.get("/sse/countries", s.sseHandlers.HandleCountries)

	s.mux.HandleFunc("/", s.apiHandlers.HandleNotFound)
}

// get registers h for GET (and so HEAD) on path. Any other method on the same
// path is answered with a JSON 405 instead of the mux's plain-text one.
func (s *Server) get(path string, h http.HandlerFunc) {
	s.mux.HandleFunc("GET "+path, h)
	s.mux.HandleFunc(path, s.apiHandlers.HandleMethodNotAllowed)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
