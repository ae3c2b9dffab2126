package shutdown

import (
	"context"
	"net/http"
	"sync"

	"go.uber.org/zap"
)

// InFlightTracker tracks payment requests in progress so shutdown waits for
// gateway calls to be recorded in the ledger before the pool closes
type InFlightTracker struct {
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closing bool
	logger  *zap.Logger
	name    string
}

// NewInFlightTracker creates a new in-flight work tracker
func NewInFlightTracker(name string, logger *zap.Logger) *InFlightTracker {
	return &InFlightTracker{logger: logger, name: name}
}

// Add registers one unit of work. It returns false once shutdown started.
func (ift *InFlightTracker) Add() bool {
	ift.mu.RLock()
	defer ift.mu.RUnlock()
	if ift.closing {
		return false
	}
	ift.wg.Add(1)
	return true
}

// Done marks one unit of work as finished
func (ift *InFlightTracker) Done() {
	ift.wg.Done()
}

// IsShuttingDown reports whether new work is being rejected
func (ift *InFlightTracker) IsShuttingDown() bool {
	ift.mu.RLock()
	defer ift.mu.RUnlock()
	return ift.closing
}

// Ready is the readiness check: ready until shutdown starts
func (ift *InFlightTracker) Ready() bool {
	return !ift.IsShuttingDown()
}

// Middleware rejects requests with 503 once shutdown started and tracks the rest
func (ift *InFlightTracker) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !ift.Add() {
			http.Error(w, "service is shutting down", http.StatusServiceUnavailable)
			return
		}
		defer ift.Done()
		next.ServeHTTP(w, r)
	})
}

// Shutdown rejects new work and waits for in-flight work or ctx
func (ift *InFlightTracker) Shutdown(ctx context.Context) error {
	ift.mu.Lock()
	ift.closing = true
	ift.mu.Unlock()

	ift.logger.Info("Waiting for in-flight work to complete", zap.String("tracker", ift.name))

	done := make(chan struct{})
	go func() {
		ift.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		ift.logger.Warn("Shutdown timeout - some work may be incomplete", zap.String("tracker", ift.name))
		return ctx.Err()
	}
}
