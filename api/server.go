package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/koepon-app/koepon-backend/pkg/config"
	"github.com/koepon-app/koepon-backend/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

// Server wraps the HTTP server so cmd/api can run it and shut it down cleanly.
type Server struct {
	httpServer *http.Server
	logg       *logger.Logger
}

func NewServer(cfg *config.Config, handler http.Handler, logg *logger.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              ":" + cfg.App.Port,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logg: logg,
	}
}

// Run serves until the context is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logg.Info(ctx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
