package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/securecloudx/securecloudx/internal/logging"
	"github.com/securecloudx/securecloudx/internal/server/services"
)

const shutdownTimeout = 5 * time.Second

// Server hosts the JSON API over net/http with graceful shutdown.
type Server struct {
	logger     logging.Logger
	httpServer *http.Server
}

func NewServer(addr string, users *services.UserService, custody *services.CustodyService, logger logging.Logger, secret []byte) *Server {
	h := newHandler(users, custody, logger, secret)
	return &Server{
		logger:     logger,
		httpServer: &http.Server{Addr: addr, Handler: h.routes()},
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()

	s.logger.Info(ctx, "http server listening", "addr", s.httpServer.Addr)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info(shutdownCtx, "shutting down http server")
		return s.httpServer.Shutdown(shutdownCtx)
	}
}
