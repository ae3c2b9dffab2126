package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/kevin07696/gateway-reconciler/internal/domain"
	"github.com/shopspring/decimal"
)

// PaymentRequest identifies one billing transaction to execute
type PaymentRequest struct {
	AccountID       uuid.UUID
	PaymentID       uuid.UUID
	TransactionID   uuid.UUID
	PaymentMethodID uuid.UUID
	TenantID        uuid.UUID
	Amount          *decimal.Decimal // nil for VOID
	Currency        string
	Properties      domain.AdditionalData
}

// TransactionExecutor runs billing transactions against the gateway and
// records their outcome
type TransactionExecutor interface {
	// Authorize holds funds, or completes a hosted-page authorization
	Authorize(ctx context.Context, req *PaymentRequest) (*domain.TransactionInfo, error)

	// Capture completes a previous authorization
	Capture(ctx context.Context, req *PaymentRequest) (*domain.TransactionInfo, error)

	// Purchase authorizes and captures in one call. A transaction that is
	// already recorded is returned without calling the gateway.
	Purchase(ctx context.Context, req *PaymentRequest) (*domain.TransactionInfo, error)

	// Void cancels a previous authorization
	Void(ctx context.Context, req *PaymentRequest) (*domain.TransactionInfo, error)

	// Refund returns part or all of a captured amount
	Refund(ctx context.Context, req *PaymentRequest) (*domain.TransactionInfo, error)

	// Credit is not supported and always fails
	Credit(ctx context.Context, req *PaymentRequest) (*domain.TransactionInfo, error)
}

// TransactionInfoReader returns payment history refreshed against the gateway
type TransactionInfoReader interface {
	GetTransactionInfo(ctx context.Context, accountID, paymentID, tenantID uuid.UUID) ([]*domain.TransactionInfo, error)
}
