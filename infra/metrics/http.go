package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kilianp07/substation/infra/logger"
)

// MetricsHandler returns a mux serving /metrics from the default gatherer.
func MetricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// StartPromServer starts an HTTP server exposing Prometheus metrics on the
// given address. The server runs until the provided context is canceled.
func StartPromServer(ctx context.Context, addr string) error {
	log := logger.New("prom-server")
	srv := &http.Server{Addr: addr, Handler: MetricsHandler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("prom server shutdown: %v", err)
		}
		cancel()
	}()
	log.Infof("serving metrics on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
