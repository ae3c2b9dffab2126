package resilience

import (
	"context"
	"time"
)

// TimeoutConfig defines the timeout hierarchy, outermost first:
//
//	HTTP handler (90s)
//	  Service operation (80s)
//	    Single reconciliation refresh (65s)
//	      Billing host call (10s)
//
// Gateway calls are bounded by the HTTP client's connect and read timeouts.
type TimeoutConfig struct {
	HTTPHandler time.Duration
	Service     time.Duration
	Refresh     time.Duration
	BillingHost time.Duration
}

// DefaultTimeoutConfig returns production timeout values
func DefaultTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		HTTPHandler: 90 * time.Second,
		Service:     80 * time.Second,
		Refresh:     65 * time.Second,
		BillingHost: 10 * time.Second,
	}
}

// TestTimeoutConfig returns shorter timeouts for testing
func TestTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		HTTPHandler: 5 * time.Second,
		Service:     4 * time.Second,
		Refresh:     3 * time.Second,
		BillingHost: 1 * time.Second,
	}
}

// HandlerContext creates a context with timeout for HTTP handlers
func (tc *TimeoutConfig) HandlerContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.HTTPHandler)
}

// ServiceContext creates a context with timeout for service layer operations
func (tc *TimeoutConfig) ServiceContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.Service)
}

// RefreshContext bounds the gateway round trips made to refresh one record
func (tc *TimeoutConfig) RefreshContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.Refresh)
}

// BillingHostContext creates a context for a billing host call
func (tc *TimeoutConfig) BillingHostContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.BillingHost)
}
