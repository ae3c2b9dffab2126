package shutdown

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestManager_ShutdownOrder(t *testing.T) {
	manager := NewManager(zap.NewNop(), time.Second)

	var order []string
	manager.RegisterNoErr("database", func() { order = append(order, "database") })
	manager.Register("gateway", func(context.Context) error {
		order = append(order, "gateway")
		return errors.New("flush failed")
	})
	manager.RegisterNoErr("http", func() { order = append(order, "http") })

	failures := manager.Shutdown()

	assert.Equal(t, []string{"http", "gateway", "database"}, order)
	require.Len(t, failures, 1)
	assert.EqualError(t, failures["gateway"], "flush failed")
}

func TestInFlightTracker_Middleware(t *testing.T) {
	tracker := NewInFlightTracker("api", zap.NewNop())
	release := make(chan struct{})
	started := make(chan struct{})

	handler := tracker.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/slow" {
			close(started)
			<-release
		}
		w.WriteHeader(http.StatusOK)
	}))

	slowDone := make(chan int)
	go func() {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/slow", nil))
		slowDone <- rec.Code
	}()
	<-started

	shutdownDone := make(chan error)
	go func() { shutdownDone <- tracker.Shutdown(context.Background()) }()

	require.Eventually(t, tracker.IsShuttingDown, time.Second, 5*time.Millisecond)
	assert.False(t, tracker.Ready())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/fast", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	close(release)
	assert.Equal(t, http.StatusOK, <-slowDone)
	assert.NoError(t, <-shutdownDone)
}

func TestInFlightTracker_ShutdownTimeout(t *testing.T) {
	tracker := NewInFlightTracker("api", zap.NewNop())
	require.True(t, tracker.Add())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, tracker.Shutdown(ctx), context.DeadlineExceeded)
	tracker.Done()
}
