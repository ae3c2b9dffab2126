// Package fixtures builds gateway objects and ledger records for tests
package fixtures

import (
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/gateway-reconciler/internal/domain"
	"github.com/shopspring/decimal"
)

// IntentOption customizes a payment intent fixture
type IntentOption func(*domain.PaymentIntent)

// Intent builds a payment intent with a succeeded card charge for amount minor units
func Intent(id string, amount int64, opts ...IntentOption) *domain.PaymentIntent {
	pi := &domain.PaymentIntent{
		ID:                 id,
		Object:             "payment_intent",
		Status:             domain.IntentStatusSucceeded,
		Amount:             amount,
		AmountReceived:     amount,
		Currency:           "usd",
		CustomerID:         "cus_123",
		PaymentMethodID:    "pm_1",
		CaptureMethod:      "automatic",
		ConfirmationMethod: "manual",
		Created:            1700000000,
		LastCharge: &domain.Charge{
			ID:                "ch_" + id,
			Object:            "charge",
			Status:            domain.ChargeStatusSucceeded,
			Amount:            amount,
			Currency:          "usd",
			AuthorizationCode: "A1B2C3",
			PaymentIntentID:   id,
			PaymentMethodID:   "pm_1",
			PaymentMethodType: "card",
			Paid:              true,
			Created:           1700000000,
		},
	}
	for _, opt := range opts {
		opt(pi)
	}
	return pi
}

// RequiresCapture makes the intent an uncaptured authorization
func RequiresCapture() IntentOption {
	return func(pi *domain.PaymentIntent) {
		pi.Status = domain.IntentStatusRequiresCapture
		pi.CaptureMethod = "manual"
		pi.AmountCapturable = pi.Amount
		pi.AmountReceived = 0
	}
}

// RequiresAction makes the intent wait on a 3DS challenge with no charge yet
func RequiresAction() IntentOption {
	return func(pi *domain.PaymentIntent) {
		pi.Status = domain.IntentStatusRequiresAction
		pi.RequiresAction = true
		pi.NextActionType = "use_stripe_sdk"
		pi.AmountReceived = 0
		pi.LastCharge = nil
	}
}

// WithStatus overrides the top-level status
func WithStatus(status string) IntentOption {
	return func(pi *domain.PaymentIntent) {
		pi.Status = status
	}
}

// WithChargeStatus overrides the last charge status
func WithChargeStatus(status string) IntentOption {
	return func(pi *domain.PaymentIntent) {
		if pi.LastCharge != nil {
			pi.LastCharge.Status = status
		}
	}
}

// Declined gives the intent a failed charge
func Declined(code, message string) IntentOption {
	return func(pi *domain.PaymentIntent) {
		pi.Status = domain.IntentStatusRequiresPaymentMethod
		pi.AmountReceived = 0
		pi.LastPaymentErrorCode = code
		if pi.LastCharge != nil {
			pi.LastCharge.Status = domain.ChargeStatusFailed
			pi.LastCharge.Paid = false
			pi.LastCharge.FailureCode = code
			pi.LastCharge.FailureMessage = message
			pi.LastCharge.AuthorizationCode = ""
		}
	}
}

// AuthenticationFailed is a 3DS challenge the customer did not pass
func AuthenticationFailed() IntentOption {
	return func(pi *domain.PaymentIntent) {
		pi.Status = domain.IntentStatusRequiresPaymentMethod
		pi.LastPaymentErrorCode = domain.ErrorCodeAuthenticationFailure
		pi.LastCharge = nil
	}
}

// Canceled marks the intent canceled
func Canceled() IntentOption {
	return func(pi *domain.PaymentIntent) {
		pi.Status = domain.IntentStatusCanceled
		pi.CancellationReason = "requested_by_customer"
	}
}

// CardInstrument builds a structured card payment method
func CardInstrument(id, customerID, last4 string) domain.Instrument {
	return domain.Instrument{
		Kind:       domain.InstrumentKindPaymentMethod,
		ID:         id,
		CustomerID: customerID,
		Type:       "card",
		Created:    1700000000,
		Card: &domain.CardDetails{
			Brand:       "visa",
			Country:     "US",
			ExpMonth:    12,
			ExpYear:     2030,
			Fingerprint: "fp_" + id,
			Funding:     "credit",
			Last4:       last4,
		},
	}
}

// SourceInstrument builds a legacy card source
func SourceInstrument(id, customerID string) domain.Instrument {
	in := CardInstrument(id, customerID, "0341")
	in.Kind = domain.InstrumentKindSource
	return in
}

// RecordOption customizes a ledger record fixture
type RecordOption func(*domain.TransactionRecord)

// Record builds a ledger record from a gateway intent
func Record(paymentID uuid.UUID, txType domain.TransactionType, pi *domain.PaymentIntent, createdAt time.Time, opts ...RecordOption) *domain.TransactionRecord {
	amount := decimal.NewFromInt(pi.Amount).Shift(-2)
	currency := "USD"
	rec := &domain.TransactionRecord{
		AccountID:      uuid.New(),
		PaymentID:      paymentID,
		TransactionID:  uuid.New(),
		TenantID:       TenantID,
		GatewayID:      pi.ID,
		Type:           txType,
		Amount:         &amount,
		Currency:       &currency,
		AdditionalData: pi.AdditionalData(),
		CreatedAt:      createdAt,
	}
	for _, opt := range opts {
		opt(rec)
	}
	return rec
}

// WithData merges extra keys into the record's bag
func WithData(data domain.AdditionalData) RecordOption {
	return func(rec *domain.TransactionRecord) {
		rec.AdditionalData = rec.AdditionalData.Merge(data)
	}
}

// WithAccount sets the account id
func WithAccount(accountID uuid.UUID) RecordOption {
	return func(rec *domain.TransactionRecord) {
		rec.AccountID = accountID
	}
}

// TenantID is the tenant used across fixtures
var TenantID = uuid.MustParse("6f1c2b9e-3a1d-4c55-9a0e-2f7d1b3c4a5e")

// Now is a fixed instant for records that do not care about age
var Now = time.Date(2025, 11, 20, 10, 0, 0, 0, time.UTC)
