package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/kevin07696/gateway-reconciler/internal/domain"
)

// AddPaymentMethodRequest mirrors a gateway instrument under a billing
// payment-method id. Either ExternalID or SessionID must be set.
type AddPaymentMethodRequest struct {
	AccountID       uuid.UUID
	PaymentMethodID uuid.UUID
	TenantID        uuid.UUID
	ExternalID      string
	Kind            domain.InstrumentKind
	SessionID       string
}

// FormDescriptorRequest builds a hosted checkout session for an account
type FormDescriptorRequest struct {
	AccountID     uuid.UUID
	TenantID      uuid.UUID
	PaymentID     *uuid.UUID
	TransactionID *uuid.UUID
	// Overrides: line_item_name, line_item_amount, line_item_currency,
	// line_item_quantity, success_url, cancel_url
	Properties map[string]string
}

// FormDescriptor is what the caller needs to redirect to the hosted page
type FormDescriptor struct {
	AccountID  uuid.UUID             `json:"account_id"`
	SessionID  string                `json:"session_id"`
	URL        string                `json:"url,omitempty"`
	Properties domain.AdditionalData `json:"properties"`
}

// PaymentMethodService manages the local mirror of gateway instruments
type PaymentMethodService interface {
	AddPaymentMethod(ctx context.Context, req *AddPaymentMethodRequest) (*domain.PaymentMethodRecord, error)

	// DeletePaymentMethod detaches the instrument at the gateway, then marks the mirror record deleted
	DeletePaymentMethod(ctx context.Context, accountID, paymentMethodID, tenantID uuid.UUID) error

	// GetPaymentMethods reads the mirror, or syncs it against the gateway first when refresh is set
	GetPaymentMethods(ctx context.Context, accountID, tenantID uuid.UUID, refresh bool) ([]domain.PaymentMethodInfo, error)

	GetPaymentMethodDetail(ctx context.Context, accountID, paymentMethodID, tenantID uuid.UUID) (*domain.PaymentMethodDetail, error)

	// Sync converges the mirror toward the gateway listing
	Sync(ctx context.Context, accountID, tenantID uuid.UUID) ([]domain.PaymentMethodInfo, error)

	BuildFormDescriptor(ctx context.Context, req *FormDescriptorRequest) (*FormDescriptor, error)

	// ProcessNotification handles gateway webhooks; not supported
	ProcessNotification(ctx context.Context, payload []byte, tenantID uuid.UUID) error
}
