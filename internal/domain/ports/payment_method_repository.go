package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/kevin07696/gateway-reconciler/internal/domain"
)

// PaymentMethodMirror owns the local copy of the instruments an account holds
// at the gateway
type PaymentMethodMirror interface {
	// AddPaymentMethod inserts an active record
	AddPaymentMethod(ctx context.Context, pm *domain.PaymentMethodRecord) (*domain.PaymentMethodRecord, error)

	// UpdatePaymentMethod replaces the gateway attributes of an active record
	UpdatePaymentMethod(ctx context.Context, paymentMethodID, tenantID uuid.UUID, gatewayID string, data domain.AdditionalData) error

	// GetPaymentMethod returns the active record, or domain.ErrPaymentMethodNotFound
	GetPaymentMethod(ctx context.Context, paymentMethodID, tenantID uuid.UUID) (*domain.PaymentMethodRecord, error)

	// ListPaymentMethods returns the account's active records in insertion order
	ListPaymentMethods(ctx context.Context, accountID, tenantID uuid.UUID) ([]*domain.PaymentMethodRecord, error)

	// MarkDeleted logically deletes the active record
	MarkDeleted(ctx context.Context, paymentMethodID, tenantID uuid.UUID) error
}

// HppRequestStore owns hosted checkout session records
type HppRequestStore interface {
	AddHppRequest(ctx context.Context, req *domain.HppRequestRecord) (*domain.HppRequestRecord, error)

	// GetHppRequest returns the latest record for the session, or domain.ErrHppRequestNotFound
	GetHppRequest(ctx context.Context, sessionID string, tenantID uuid.UUID) (*domain.HppRequestRecord, error)
}
