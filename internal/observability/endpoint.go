package observability

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Endpoint serves the Prometheus exposition format over HTTP.
type Endpoint struct {
	server *http.Server
	logger *slog.Logger
}

// NewEndpoint builds the telemetry HTTP server for the given listen address.
func NewEndpoint(listen string, registry *prometheus.Registry, logger *slog.Logger) *Endpoint {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &Endpoint{
		server: &http.Server{
			Addr:              listen,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Start begins serving in a background goroutine.
func (e *Endpoint) Start() {
	go func() {
		e.logger.Info("telemetry endpoint listening", "addr", e.server.Addr)
		if err := e.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			e.logger.Error("telemetry endpoint failed", "error", err)
		}
	}()
}

// Shutdown stops the server, waiting up to the context deadline for in-flight
// scrapes.
func (e *Endpoint) Shutdown(ctx context.Context) error {
	return e.server.Shutdown(ctx)
}
