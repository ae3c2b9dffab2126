package stripe

import (
	"sync"
	"testing"
	"time"

	"github.com/kevin07696/gateway-reconciler/pkg/timeutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBreaker(maxFailures uint32) (*CircuitBreaker, *timeutil.FixedClock) {
	clock := timeutil.NewFixedClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures:         maxFailures,
		Timeout:             10 * time.Second,
		MaxRequestsHalfOpen: 1,
	}, clock)
	return cb, clock
}

func trip(t *testing.T, cb *CircuitBreaker, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, cb.Allow())
		cb.Record(true)
	}
}

func TestCircuitBreaker_DefaultConfig(t *testing.T) {
	config := DefaultCircuitBreakerConfig()

	assert.Equal(t, uint32(5), config.MaxFailures)
	assert.Equal(t, 30*time.Second, config.Timeout)
	assert.Equal(t, uint32(1), config.MaxRequestsHalfOpen)
}

func TestCircuitBreaker_OpensAfterConsecutiveOutages(t *testing.T) {
	cb, _ := newTestBreaker(3)

	trip(t, cb, 2)
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, uint32(2), cb.consecutiveFailures())

	trip(t, cb, 1)
	assert.Equal(t, StateOpen, cb.State())
	assert.ErrorIs(t, cb.Allow(), ErrCircuitOpen)
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb, _ := newTestBreaker(3)

	trip(t, cb, 2)
	require.NoError(t, cb.Allow())
	cb.Record(false)
	trip(t, cb, 2)

	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpen(t *testing.T) {
	t.Run("trial success closes", func(t *testing.T) {
		cb, clock := newTestBreaker(1)
		trip(t, cb, 1)

		clock.Advance(10 * time.Second)
		assert.ErrorIs(t, cb.Allow(), ErrCircuitOpen, "timeout boundary is still open")

		clock.Advance(time.Millisecond)
		require.NoError(t, cb.Allow())
		assert.Equal(t, StateHalfOpen, cb.State())
		assert.ErrorIs(t, cb.Allow(), ErrTooManyRequests)

		cb.Record(false)
		assert.Equal(t, StateClosed, cb.State())
	})

	t.Run("trial failure reopens", func(t *testing.T) {
		cb, clock := newTestBreaker(1)
		trip(t, cb, 1)

		clock.Advance(11 * time.Second)
		require.NoError(t, cb.Allow())
		cb.Record(true)

		assert.Equal(t, StateOpen, cb.State())
		assert.ErrorIs(t, cb.Allow(), ErrCircuitOpen)
	})
}

func TestCircuitBreaker_OnStateChange(t *testing.T) {
	var transitions []string
	clock := timeutil.NewFixedClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures:         1,
		Timeout:             time.Second,
		MaxRequestsHalfOpen: 1,
		OnStateChange: func(from, to CircuitState) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	}, clock)

	trip(t, cb, 1)
	clock.Advance(2 * time.Second)
	require.NoError(t, cb.Allow())
	cb.Record(false)

	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, transitions)
}

func TestCircuitBreaker_StateString(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", CircuitState(99).String())
}

func TestCircuitBreaker_ConcurrentCalls(t *testing.T) {
	cb, _ := newTestBreaker(1000)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if cb.Allow() == nil {
				cb.Record(i%2 == 0)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, StateClosed, cb.State())
}
