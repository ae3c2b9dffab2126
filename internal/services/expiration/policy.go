package expiration

import (
	"strings"
	"time"

	"github.com/kevin07696/gateway-reconciler/internal/domain"
	"github.com/kevin07696/gateway-reconciler/internal/domain/ports"
	"github.com/kevin07696/gateway-reconciler/pkg/timeutil"
)

// Class names the timeout that applies to a pending record
type Class string

const (
	ClassThreeDS              Class = "3ds"
	ClassHPPWithoutCompletion Class = "hpp_without_completion"
	ClassInstrument           Class = "instrument"
	ClassDefault              Class = "default"
)

// Policy decides whether a pending payment has waited too long
type Policy struct {
	settings Settings
	clock    timeutil.Clock
	logger   ports.Logger
}

// NewPolicy creates an expiration policy
func NewPolicy(settings Settings, clock timeutil.Clock, logger ports.Logger) *Policy {
	if settings.PerInstrument == nil {
		settings.PerInstrument = map[string]time.Duration{}
	}
	return &Policy{settings: settings, clock: clock, logger: logger}
}

// IsExpired returns the latest record of the payment when it is pending past
// its deadline, otherwise nil. history must be in insertion order.
func (p *Policy) IsExpired(history []*domain.TransactionRecord) *domain.TransactionRecord {
	if len(history) == 0 {
		return nil
	}
	for _, rec := range history {
		if !rec.Type.IsAnchor() {
			return nil
		}
	}

	latest := history[len(history)-1]
	if latest.CreatedAt.IsZero() {
		return nil
	}
	if latest.Status() != domain.StatusPending {
		return nil
	}

	timeout, class := p.Timeout(latest)
	deadline := latest.CreatedAt.Add(timeout)
	now := p.clock.Now().In(deadline.Location())
	if !now.After(deadline) {
		return nil
	}

	p.logger.Info("Pending payment expired",
		ports.String("gateway_id", latest.GatewayObjectID()),
		ports.Time("created_at", latest.CreatedAt),
		ports.String("class", string(class)),
		ports.Duration("timeout", timeout),
	)
	return latest
}

// Timeout selects the pending duration for rec. A 3DS challenge wins over a
// hosted page without completion, which wins over the instrument type.
func (p *Policy) Timeout(rec *domain.TransactionRecord) (time.Duration, Class) {
	data := rec.AdditionalData

	if status, _ := data.String(domain.KeyStatus); status == domain.IntentStatusRequiresAction {
		return p.settings.ThreeDS, ClassThreeDS
	}

	if data.Bool(domain.KeyFromHPP) && !data.Bool(domain.KeyFromHPPCompletion) {
		return p.settings.HPPWithoutCompletion, ClassHPPWithoutCompletion
	}

	if instrumentType, ok := data.String(domain.KeyLastChargePaymentMethodType); ok {
		if d, configured := p.settings.PerInstrument[strings.ToLower(instrumentType)]; configured {
			return d, ClassInstrument
		}
	}

	return p.settings.Default, ClassDefault
}
