package resilience

import (
	"context"
	"testing"
	"time"
)

func TestTimeoutHierarchy(t *testing.T) {
	for name, config := range map[string]*TimeoutConfig{
		"default": DefaultTimeoutConfig(),
		"test":    TestTimeoutConfig(),
	} {
		t.Run(name, func(t *testing.T) {
			if config.HTTPHandler <= config.Service {
				t.Errorf("HTTPHandler (%v) must be > Service (%v)", config.HTTPHandler, config.Service)
			}
			if config.Service <= config.Refresh {
				t.Errorf("Service (%v) must be > Refresh (%v)", config.Service, config.Refresh)
			}
			if config.Refresh <= config.BillingHost {
				t.Errorf("Refresh (%v) must be > BillingHost (%v)", config.Refresh, config.BillingHost)
			}
		})
	}
}

func TestRefreshContext(t *testing.T) {
	config := DefaultTimeoutConfig()

	ctx, cancel := config.RefreshContext(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	if !ok {
		t.Fatal("RefreshContext should have deadline")
	}

	expectedDeadline := time.Now().Add(config.Refresh)
	if diff := deadline.Sub(expectedDeadline).Abs(); diff > 100*time.Millisecond {
		t.Errorf("Deadline diff too large: %v", diff)
	}
}

func TestContextRespectsParentDeadline(t *testing.T) {
	config := DefaultTimeoutConfig()

	parent, parentCancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer parentCancel()

	ctx, cancel := config.ServiceContext(parent)
	defer cancel()

	deadline, _ := ctx.Deadline()
	parentDeadline, _ := parent.Deadline()
	if !deadline.Equal(parentDeadline) {
		t.Errorf("child deadline %v should match parent %v", deadline, parentDeadline)
	}
}
