package httpserver

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/yndnr/memkv-go/internal/telemetry/logger"
	"github.com/yndnr/memkv-go/internal/telemetry/metric"
)

// ReadyFunc reports whether the service can take traffic.
type ReadyFunc func(ctx context.Context) error

// RouterConfig holds the dependencies of the operational routes.
type RouterConfig struct {
	// Metrics is the registry served on /metrics. Nil uses the global one.
	Metrics *metric.Registry

	// Ready backs /ready. Nil always reports ready.
	Ready ReadyFunc

	Logger *slog.Logger
}

// NewRouter builds the HTTP handler with all routes and middleware.
func NewRouter(cfg *RouterConfig) http.Handler {
	if cfg == nil {
		cfg = &RouterConfig{}
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	log = logger.WithContextIDs(log)
	registry := cfg.Metrics
	if registry == nil {
		registry = metric.Global()
	}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", registry.Handler())
	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("GET /ready", handleReady(cfg.Ready, log))

	return Chain(mux,
		RequestID(),
		Recover(log),
		AccessLog(log),
	)
}
