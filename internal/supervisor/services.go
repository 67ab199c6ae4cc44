package supervisor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/randytsao24/moim/internal/logging"
)

// HTTPServer is the lifecycle half of *http.Server
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPServerService runs an HTTP server as a supervised service and
// shuts it down gracefully when its context ends
type HTTPServerService struct {
	server          HTTPServer
	shutdownTimeout time.Duration
}

func NewHTTPServerService(server HTTPServer, shutdownTimeout time.Duration) *HTTPServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPServerService{
		server:          server,
		shutdownTimeout: shutdownTimeout,
	}
}

// Serve implements suture.Service
func (h *HTTPServerService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil

	case <-ctx.Done():
		// the serve context is already canceled
		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
		defer cancel()

		if err := h.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		<-errCh
		logging.Info().Msg("http server stopped")
		return ctx.Err()
	}
}

func (h *HTTPServerService) String() string {
	return "http-server"
}

// SweepFunc removes expired entries until ctx ends
type SweepFunc func(ctx context.Context, interval time.Duration) error

// CacheSweeper runs a cache janitor as a supervised service
type CacheSweeper struct {
	name     string
	interval time.Duration
	sweep    SweepFunc
}

// NewCacheSweeper wraps sweep, which is called with interval
func NewCacheSweeper(name string, interval time.Duration, sweep SweepFunc) *CacheSweeper {
	return &CacheSweeper{
		name:     name,
		interval: interval,
		sweep:    sweep,
	}
}

// Serve implements suture.Service
func (s *CacheSweeper) Serve(ctx context.Context) error {
	logging.Debug().Str("cache", s.name).Dur("interval", s.interval).Msg("cache sweeper started")
	return s.sweep(ctx, s.interval)
}

func (s *CacheSweeper) String() string {
	return s.name + "-sweeper"
}
