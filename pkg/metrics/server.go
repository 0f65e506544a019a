package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// HealthChecker is the subset of pkg/health.Checker the metrics server
// needs to expose liveness and readiness endpoints alongside /metrics.
type HealthChecker interface {
	LiveHandler() http.HandlerFunc
	ReadyHandler() http.HandlerFunc
}

// StartServer starts the scrape/health HTTP server for the shard process.
// checker may be nil, in which case only /metrics is served.
func StartServer(port int, checker HealthChecker) (shutdown func(context.Context) error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	if checker != nil {
		mux.HandleFunc("/health/live", checker.LiveHandler())
		mux.HandleFunc("/health/ready", checker.ReadyHandler())
	}
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, `<html><body><h1>Shard Metrics</h1><p><a href="/metrics">/metrics</a></p></body></html>`)
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("metrics server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server error", "error", err)
		}
	}()

	return server.Shutdown
}
