package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"co2gdp-api/internal/config"
	"co2gdp-api/internal/handlers"
	"co2gdp-api/internal/middleware"
	"co2gdp-api/internal/observability"
	"co2gdp-api/internal/server"
	"co2gdp-api/internal/services"
	"co2gdp-api/internal/ui/templates"
	"co2gdp-api/internal/worldbank"
)

const (
	renderTimeout = 10 * time.Second
	cacheMaxAge   = "public, max-age=300"
)

func dashboardHandler(fetcher *services.IndicatorFetcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
		defer cancel()

		page := templates.Dashboard(templates.DashboardProps{
			Title:       handlers.ServiceName,
			Version:     handlers.Version,
			StartYear:   services.DefaultStartYear,
			CurrentYear: fetcher.CurrentYear(),
		})

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", cacheMaxAge)
		if err := page.Render(ctx, w); err != nil {
			http.Error(w, "render error", http.StatusInternalServerError)
		}
	}
}

// newProvider returns the World Bank client, wrapped in a TTL cache when one
// is configured.
func newProvider(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) (services.Provider, *services.CachedProvider) {
	client := worldbank.New(cfg.Upstream,
		worldbank.WithMetrics(metrics),
		worldbank.WithLogger(logger),
	)
	if cfg.Upstream.CacheTTL <= 0 {
		return client, nil
	}
	cache := services.NewCachedProvider(client, cfg.Upstream.CacheTTL, logger)
	return cache, cache
}

func newHandler(cfg *config.Config, fetcher *services.IndicatorFetcher, metrics *observability.Metrics, logger *slog.Logger) http.Handler {
	srv := server.NewServer(fetcher, metrics, logger, &server.TemplateHandlers{
		Dashboard: dashboardHandler(fetcher),
	})

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.TrustedProxy(cfg.Security),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.Metrics(metrics),
	)

	return middlewareChain(srv)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger.Logger)

	logger.Info("starting application",
		"service", handlers.ServiceName,
		"version", handlers.Version,
		"upstream", cfg.Upstream.BaseURL,
		"cache_ttl", cfg.Upstream.CacheTTL,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics()
	provider, cache := newProvider(cfg, metrics, logger.Logger)
	if cache != nil {
		go cache.Run(ctx)
	}

	fetcher := services.NewIndicatorFetcher(provider, logger.Logger)

	if path := os.Getenv(config.ConfigFileEnv); path != "" {
		go func() {
			err := config.Watch(ctx, path, func(next *config.Config) {
				logger.SetLevel(next.Logger.Level)
				logger.Info("configuration reloaded", "path", path, "log_level", next.Logger.Level)
			})
			if err != nil && ctx.Err() == nil {
				logger.Error("config watcher stopped", "error", err)
			}
		}()
	}

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      newHandler(cfg, fetcher, metrics, logger.Logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger.Logger, cfg.Server)

	gracefulServer.RegisterShutdownHook(func(ctx context.Context) error {
		logger.Info("stopping background workers")
		cancel()
		return nil
	})

	logger.Info("starting graceful server")
	if err := gracefulServer.ListenAndServe(ctx); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
