package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/gateway-reconciler/internal/domain"
	"github.com/shopspring/decimal"
)

// AddRecordParams describes one gateway interaction to append to the ledger
type AddRecordParams struct {
	AccountID      uuid.UUID
	PaymentID      uuid.UUID
	TransactionID  uuid.UUID
	TenantID       uuid.UUID
	Type           domain.TransactionType
	Amount         *decimal.Decimal
	Currency       *string
	GatewayID      string
	StatusOverride *domain.PaymentStatus
	AdditionalData domain.AdditionalData
	CreatedAt      time.Time
}

// TransactionLedger owns the transaction-outcome records. It is the single
// source of local truth; records are appended and merged, never deleted.
type TransactionLedger interface {
	// AddRecord inserts a new row and returns it as stored
	AddRecord(ctx context.Context, params AddRecordParams) (*domain.TransactionRecord, error)

	// UpdateAdditionalData merges patch into the latest record of the
	// transaction (latest by insertion order) under a row lock. It returns the
	// pre-merge snapshot, or nil when the transaction has no record yet.
	UpdateAdditionalData(ctx context.Context, transactionID, tenantID uuid.UUID, patch domain.RecordPatch) (*domain.TransactionRecord, error)

	// GetLatestAuthorizationOrPurchase returns the anchor for follow-up
	// operations, or nil when the payment has none
	GetLatestAuthorizationOrPurchase(ctx context.Context, paymentID, tenantID uuid.UUID) (*domain.TransactionRecord, error)

	// ListByPayment returns every record of the payment in insertion order
	ListByPayment(ctx context.Context, paymentID, tenantID uuid.UUID) ([]*domain.TransactionRecord, error)
}
