package ports

import (
	"context"

	"github.com/kevin07696/gateway-reconciler/internal/domain"
)

// CaptureMethod controls whether the gateway captures on confirmation
type CaptureMethod string

const (
	CaptureMethodManual    CaptureMethod = "manual"
	CaptureMethodAutomatic CaptureMethod = "automatic"
)

// ChargeRequest creates and confirms a payment intent
type ChargeRequest struct {
	AmountMinor         int64
	Currency            string
	CaptureMethod       CaptureMethod
	CustomerID          string
	InstrumentID        string
	InstrumentKind      domain.InstrumentKind // payment_method goes in payment_method, anything else in source
	PaymentMethodTypes  []string
	Description         string
	StatementDescriptor string
	Metadata            map[string]string
	IdempotencyKey      string
}

// LineItem is one line of a hosted checkout session
type LineItem struct {
	Name        string
	AmountMinor string
	Currency    string
	Quantity    string
}

// CheckoutSessionRequest creates a hosted checkout session
type CheckoutSessionRequest struct {
	CustomerID         string
	PaymentMethodTypes []string
	LineItems          []LineItem
	CaptureMethod      CaptureMethod
	SuccessURL         string
	CancelURL          string
	Metadata           map[string]string
}

// GatewayAdapter performs calls against the remote payment gateway.
//
// Money-moving calls return *domain.TransportError for network failures and
// *domain.GatewayError for structured gateway errors; domain.NewGatewayResult
// classifies them.
type GatewayAdapter interface {
	CreateAndConfirmCharge(ctx context.Context, req *ChargeRequest) (*domain.PaymentIntent, error)
	CaptureCharge(ctx context.Context, intentID string, amountToCaptureMinor int64, idempotencyKey string) (*domain.PaymentIntent, error)
	CancelCharge(ctx context.Context, intentID string, idempotencyKey string) (*domain.PaymentIntent, error)
	RefundCharge(ctx context.Context, chargeID string, amountMinor int64, idempotencyKey string) (*domain.Refund, error)
	RetrieveCharge(ctx context.Context, chargeID string) (*domain.Charge, error)
	RetrieveObject(ctx context.Context, intentID string) (*domain.PaymentIntent, error)
	ConfirmObject(ctx context.Context, intentID string) (*domain.PaymentIntent, error)

	// ListInstruments lists structured payment methods of one type for a customer
	ListInstruments(ctx context.Context, customerID, instrumentType string) ([]domain.Instrument, error)
	// RetrieveCustomer returns the customer with its legacy payment sources
	RetrieveCustomer(ctx context.Context, customerID string) (*domain.Customer, error)
	RetrieveInstrument(ctx context.Context, kind domain.InstrumentKind, customerID, instrumentID string) (*domain.Instrument, error)
	DetachInstrument(ctx context.Context, instrumentID string) error

	CreateCheckoutSession(ctx context.Context, req *CheckoutSessionRequest) (*domain.CheckoutSession, error)
}
