package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/jt828/users-api/pkg/health"
	"github.com/jt828/users-api/pkg/observability"
)

type Options struct {
	ShutdownTimeout time.Duration
	LogFlushTimeout time.Duration
}

type Server struct {
	httpServer *http.Server
	obs        observability.Observability
	checker    health.Checker
	opts       Options
}

func New(handler http.Handler, obs observability.Observability, checker health.Checker, opts Options) *Server {
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	if opts.LogFlushTimeout <= 0 {
		opts.LogFlushTimeout = 5 * time.Second
	}
	return &Server{
		httpServer: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		obs:     obs,
		checker: checker,
		opts:    opts,
	}
}

// Run serves on lis until ctx is cancelled, then stops accepting connections,
// lets in-flight requests finish within ShutdownTimeout and makes a final log
// flush within LogFlushTimeout. It returns the serve error, if any.
func (s *Server) Run(ctx context.Context, lis net.Listener) error {
	log := s.obs.Logger()

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := s.httpServer.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	log.Info("server running on port "+portOf(lis), observability.String("addr", lis.Addr().String()))

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case serveErr = <-errCh:
		log.Error("server error", observability.Err(serveErr))
	}

	s.checker.Drain()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", observability.Err(err))
	}
	cancel()
	log.Info("server stopped")

	flushCtx, cancel := context.WithTimeout(context.Background(), s.opts.LogFlushTimeout)
	defer cancel()
	if err := s.obs.Close(flushCtx); err != nil {
		log.Warn("final log flush incomplete", observability.Err(err))
	}

	return serveErr
}

func portOf(lis net.Listener) string {
	if addr, ok := lis.Addr().(*net.TCPAddr); ok {
		return strconv.Itoa(addr.Port)
	}
	return lis.Addr().String()
}
