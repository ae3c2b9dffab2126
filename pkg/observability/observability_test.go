package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func TestHealthChecker_Check(t *testing.T) {
	tests := []struct {
		name   string
		db     Pinger
		status string
		check  string
	}{
		{name: "healthy database", db: fakePinger{}, status: "healthy", check: "healthy"},
		{name: "unreachable database", db: fakePinger{err: errors.New("connection refused")}, status: "unhealthy", check: "unhealthy: connection refused"},
		{name: "no database", db: nil, status: "healthy", check: "not configured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := NewHealthChecker(tt.db).Check(context.Background())
			assert.Equal(t, tt.status, status.Status)
			assert.Equal(t, tt.check, status.Checks["database"])
		})
	}
}

func TestMetricsMux(t *testing.T) {
	ready := true
	mux := NewMetricsMux(NewHealthChecker(fakePinger{err: errors.New("down")}), func() bool { return ready })

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	ready = false
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestInstrumentHandler_PassesStatus(t *testing.T) {
	handler := InstrumentHandler("/v1/payments/{op}", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/payments/purchase", nil))
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
}

func TestShutdownMetricsServer(t *testing.T) {
	server := StartMetricsServer("0", nil, nil, zap.NewNop())

	assert.NoError(t, ShutdownMetricsServer(context.Background(), server))
	assert.ErrorIs(t, server.ListenAndServe(), http.ErrServerClosed)
}
