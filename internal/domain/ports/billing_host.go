package ports

import (
	"context"

	"github.com/google/uuid"
)

// CustomerIDCustomField is the account custom field holding the gateway customer id
const CustomerIDCustomField = "STRIPE_CUSTOMER_ID"

// Account is the billing-side account as seen by this service
type Account struct {
	ID          uuid.UUID
	ExternalKey string
	Name        string
	Email       string
	Currency    string
}

// BillingHost is the billing platform consumed as a black box: account
// lookup, per-account custom fields and the payment-method registry.
type BillingHost interface {
	GetAccount(ctx context.Context, accountID, tenantID uuid.UUID) (*Account, error)

	// GetCustomField returns the field value, or "" when the account has none
	GetCustomField(ctx context.Context, accountID, tenantID uuid.UUID, name string) (string, error)
	AddCustomField(ctx context.Context, accountID, tenantID uuid.UUID, name, value string) error

	// RegisterPaymentMethod creates a billing-side payment method backed by the
	// gateway instrument and returns its id
	RegisterPaymentMethod(ctx context.Context, accountID, tenantID uuid.UUID, externalID string, isDefault bool) (uuid.UUID, error)
	DeactivatePaymentMethod(ctx context.Context, accountID, tenantID, paymentMethodID uuid.UUID) error
}
