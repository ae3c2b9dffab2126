// Package reconciliation refreshes locally pending transactions against the
// gateway and cancels the ones that waited too long.
package reconciliation

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/kevin07696/gateway-reconciler/internal/domain"
	"github.com/kevin07696/gateway-reconciler/internal/domain/ports"
	servicesports "github.com/kevin07696/gateway-reconciler/internal/services/ports"
	"github.com/kevin07696/gateway-reconciler/pkg/observability"
	"github.com/kevin07696/gateway-reconciler/pkg/resilience"
)

// ExpiredMessage is stamped on records cancelled for waiting too long
const ExpiredMessage = "Payment Expired - Cancelled by Janitor"

// ExpirationPolicy picks the expired record of a payment history, if any
type ExpirationPolicy interface {
	IsExpired(history []*domain.TransactionRecord) *domain.TransactionRecord
}

// Config holds the engine switches
type Config struct {
	// Cancel intents whose 3DS challenge failed instead of leaving them pending
	CancelOn3DSAuthError bool
}

// Engine implements ports.TransactionInfoReader
type Engine struct {
	ledger   ports.TransactionLedger
	gateway  ports.GatewayAdapter
	policy   ExpirationPolicy
	config   Config
	timeouts *resilience.TimeoutConfig
	logger   ports.Logger
}

var _ servicesports.TransactionInfoReader = (*Engine)(nil)

// NewEngine creates a reconciliation engine
func NewEngine(
	ledger ports.TransactionLedger,
	gateway ports.GatewayAdapter,
	policy ExpirationPolicy,
	config Config,
	timeouts *resilience.TimeoutConfig,
	logger ports.Logger,
) *Engine {
	if timeouts == nil {
		timeouts = resilience.DefaultTimeoutConfig()
	}
	return &Engine{
		ledger:   ledger,
		gateway:  gateway,
		policy:   policy,
		config:   config,
		timeouts: timeouts,
		logger:   logger,
	}
}

// GetTransactionInfo returns the payment history after expiring or refreshing
// its pending records. Refresh failures leave the record as it was.
func (e *Engine) GetTransactionInfo(ctx context.Context, accountID, paymentID, tenantID uuid.UUID) ([]*domain.TransactionInfo, error) {
	ctx, cancel := e.timeouts.ServiceContext(ctx)
	defer cancel()

	history, err := e.ledger.ListByPayment(ctx, paymentID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	if len(history) == 0 {
		return []*domain.TransactionInfo{}, nil
	}

	if expired := e.policy.IsExpired(history); expired != nil {
		if err := e.expire(ctx, expired); err != nil {
			return nil, err
		}
		return e.reload(ctx, paymentID, tenantID)
	}

	refreshed := false
	for _, rec := range history {
		if rec.Status() != domain.StatusPending {
			continue
		}
		if e.refresh(ctx, rec) {
			refreshed = true
		}
	}

	if !refreshed {
		return toInfos(history), nil
	}
	return e.reload(ctx, paymentID, tenantID)
}

func (e *Engine) expire(ctx context.Context, rec *domain.TransactionRecord) error {
	canceled := domain.StatusCanceled
	patch := domain.RecordPatch{
		StatusOverride: &canceled,
		Data:           domain.AdditionalData{domain.KeyMessage: ExpiredMessage},
	}
	if _, err := e.ledger.UpdateAdditionalData(ctx, rec.TransactionID, rec.TenantID, patch); err != nil {
		return fmt.Errorf("expire transaction %s: %w", rec.TransactionID, err)
	}

	observability.RecordPendingExpiration()
	e.logger.Warn("Cancelled expired pending payment",
		ports.String("transaction_id", rec.TransactionID.String()),
		ports.String("payment_id", rec.PaymentID.String()),
		ports.String("gateway_id", rec.GatewayObjectID()),
		ports.Time("created_at", rec.CreatedAt),
	)
	return nil
}

// refresh re-reads one pending record from the gateway and persists what
// came back. It reports whether the ledger was written.
func (e *Engine) refresh(ctx context.Context, rec *domain.TransactionRecord) bool {
	gatewayID := rec.GatewayObjectID()
	fields := []ports.Field{
		ports.String("transaction_id", rec.TransactionID.String()),
		ports.String("gateway_id", gatewayID),
	}
	if gatewayID == "" {
		// Transport failures are recorded before any gateway object exists
		e.logger.Debug("Pending record has no gateway object to refresh", fields...)
		observability.RecordReconciliationRefresh("skipped")
		return false
	}

	refreshCtx, cancel := e.timeouts.RefreshContext(ctx)
	defer cancel()

	intent, err := e.fetch(refreshCtx, gatewayID)
	if err != nil {
		e.logger.Warn("Failed to refresh pending payment, data might be stale",
			append(fields, ports.Err(err))...)
		observability.RecordReconciliationRefresh("gateway_error")
		return false
	}

	patch := domain.RecordPatch{Data: intent.RefreshPatch()}
	if _, err := e.ledger.UpdateAdditionalData(ctx, rec.TransactionID, rec.TenantID, patch); err != nil {
		e.logger.Error("Failed to persist refreshed payment",
			append(fields, ports.Err(err))...)
		observability.RecordReconciliationRefresh("storage_error")
		return false
	}

	observability.RecordReconciliationRefresh("refreshed")
	e.logger.Info("Refreshed pending payment",
		append(fields, ports.String("status", intent.Status))...)
	return true
}

// fetch retrieves the live intent, confirming or cancelling it when its
// state calls for it
func (e *Engine) fetch(ctx context.Context, gatewayID string) (*domain.PaymentIntent, error) {
	intent, err := e.gateway.RetrieveObject(ctx, gatewayID)
	if err != nil {
		return nil, err
	}

	switch {
	case intent.Status == domain.IntentStatusRequiresConfirmation:
		e.logger.Info("Confirming payment intent", ports.String("gateway_id", gatewayID))
		return e.gateway.ConfirmObject(ctx, gatewayID)
	case e.config.CancelOn3DSAuthError && intent.IsAuthenticationFailure():
		e.logger.Info("Cancelling payment intent after failed 3DS authentication", ports.String("gateway_id", gatewayID))
		return e.gateway.CancelCharge(ctx, gatewayID, "")
	}
	return intent, nil
}

func (e *Engine) reload(ctx context.Context, paymentID, tenantID uuid.UUID) ([]*domain.TransactionInfo, error) {
	history, err := e.ledger.ListByPayment(ctx, paymentID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("reload transactions: %w", err)
	}
	return toInfos(history), nil
}

func toInfos(history []*domain.TransactionRecord) []*domain.TransactionInfo {
	infos := make([]*domain.TransactionInfo, 0, len(history))
	for _, rec := range history {
		infos = append(infos, domain.NewTransactionInfo(rec))
	}
	return infos
}
