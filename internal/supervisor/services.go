package supervisor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"onu-map/internal/domain"
)

type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPServerService runs an HTTP server under supervision
type HTTPServerService struct {
	server          HTTPServer
	shutdownTimeout time.Duration
}

func NewHTTPServerService(server HTTPServer, shutdownTimeout time.Duration) *HTTPServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPServerService{server: server, shutdownTimeout: shutdownTimeout}
}

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
		// the parent context is already cancelled
		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
		defer cancel()

		if err := h.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}

func (h *HTTPServerService) String() string {
	return "http-server"
}

// RefreshFunc rebuilds the device list and returns its size
type RefreshFunc func(ctx context.Context) (int, error)

// RefresherService runs a refresh right away and then on every tick. A
// failed refresh is logged and retried on the next tick.
type RefresherService struct {
	refresh  RefreshFunc
	interval time.Duration
	logger   domain.Logger
}

func NewRefresherService(refresh RefreshFunc, interval time.Duration, logger domain.Logger) *RefresherService {
	return &RefresherService{refresh: refresh, interval: interval, logger: logger}
}

func (r *RefresherService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		r.runOnce(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (r *RefresherService) runOnce(ctx context.Context) {
	start := time.Now()
	n, err := r.refresh(ctx)
	if err != nil {
		log := r.logger.WithError(err).WithField("kind", domain.KindOf(err))
		if domain.IsKind(err, domain.KindQuotaExceeded) {
			log.Warnf("Refresh skipped, quota frees in %d min", domain.WaitMinutesOf(err))
			return
		}
		log.Error("Refresh failed")
		return
	}

	r.logger.WithFields(map[string]any{
		"devices":  n,
		"duration": time.Since(start).String(),
	}).Debug("Device list refreshed")
}

func (r *RefresherService) String() string {
	return "refresher"
}

// FuncService adapts a blocking function to a supervised service
type FuncService struct {
	name string
	run  func(ctx context.Context) error
}

func NewFuncService(name string, run func(ctx context.Context) error) *FuncService {
	return &FuncService{name: name, run: run}
}

func (f *FuncService) Serve(ctx context.Context) error {
	return f.run(ctx)
}

func (f *FuncService) String() string {
	return f.name
}
