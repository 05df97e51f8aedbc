package substation

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/kilianp07/substation/infra/logger"
)

// Serve runs h on addr until ctx is canceled.
func Serve(ctx context.Context, addr string, h http.Handler, readTimeout time.Duration) error {
	log := logger.New("api-server")
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: readTimeout, ReadTimeout: readTimeout}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("api server shutdown: %v", err)
		}
	}()
	log.Infof("serving API on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
