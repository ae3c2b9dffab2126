package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType represents the billing-side transaction kind
type TransactionType string

const (
	TransactionTypeAuthorize TransactionType = "AUTHORIZE" // Auth only, manual capture
	TransactionTypeCapture   TransactionType = "CAPTURE"   // Capture authorized funds
	TransactionTypePurchase  TransactionType = "PURCHASE"  // Auth + automatic capture
	TransactionTypeVoid      TransactionType = "VOID"      // Cancel before capture
	TransactionTypeRefund    TransactionType = "REFUND"    // Return captured funds
	TransactionTypeCredit    TransactionType = "CREDIT"    // Unreferenced credit (unsupported)
)

// IsAnchor reports whether records of this type can anchor follow-up operations
func (t TransactionType) IsAnchor() bool {
	return t == TransactionTypeAuthorize || t == TransactionTypePurchase
}

// Valid reports whether t is a known transaction type
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeAuthorize, TransactionTypeCapture, TransactionTypePurchase,
		TransactionTypeVoid, TransactionTypeRefund, TransactionTypeCredit:
		return true
	}
	return false
}

// gatewayErrorCodeMaxLength bounds the error code exposed to callers
const gatewayErrorCodeMaxLength = 32

// TransactionRecord is one ledger row per gateway interaction attempt
type TransactionRecord struct {
	RecordID       int64            `json:"record_id"`
	AccountID      uuid.UUID        `json:"account_id"`
	PaymentID      uuid.UUID        `json:"payment_id"`
	TransactionID  uuid.UUID        `json:"transaction_id"`
	TenantID       uuid.UUID        `json:"tenant_id"`
	GatewayID      string           `json:"gateway_id,omitempty"`
	Type           TransactionType  `json:"transaction_type"`
	Amount         *decimal.Decimal `json:"amount,omitempty"`
	Currency       *string          `json:"currency,omitempty"`
	StatusOverride *PaymentStatus   `json:"status_override,omitempty"`
	AdditionalData AdditionalData   `json:"additional_data,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

// Status returns the canonical status of the record
func (r *TransactionRecord) Status() PaymentStatus {
	return MapStatus(r.StatusOverride, r.AdditionalData)
}

// FirstReferenceID is the gateway charge backing this transaction
func (r *TransactionRecord) FirstReferenceID() string {
	return r.AdditionalData.StringOr(KeyLastChargeID, "")
}

// SecondReferenceID is the processor authorization code
func (r *TransactionRecord) SecondReferenceID() string {
	return r.AdditionalData.StringOr(KeyLastChargeAuthorizationCode, "")
}

// GatewayError is the human-readable failure reported by the gateway
func (r *TransactionRecord) GatewayError() string {
	return r.AdditionalData.StringOr(KeyLastChargeFailureMessage, "")
}

// GatewayErrorCode is the gateway failure code, truncated for callers
func (r *TransactionRecord) GatewayErrorCode() string {
	code := r.AdditionalData.StringOr(KeyLastChargeFailureCode, "")
	if len(code) > gatewayErrorCodeMaxLength {
		return code[:gatewayErrorCodeMaxLength]
	}
	return code
}

// GatewayObjectID is the top-level gateway object (payment intent) id
func (r *TransactionRecord) GatewayObjectID() string {
	if r.GatewayID != "" {
		return r.GatewayID
	}
	return r.AdditionalData.StringOr(KeyID, "")
}

// RecordPatch is merged into the latest record of a transaction
type RecordPatch struct {
	StatusOverride *PaymentStatus
	Data           AdditionalData
}

// Apply returns the record state after the patch is merged
func (p RecordPatch) Apply(rec *TransactionRecord) *TransactionRecord {
	updated := *rec
	updated.AdditionalData = rec.AdditionalData.Merge(p.Data)
	if p.StatusOverride != nil {
		override := *p.StatusOverride
		updated.StatusOverride = &override
		// Mirrored into the bag for readers of the raw payload; MapStatus only reads the field.
		updated.AdditionalData[KeyStatusOverride] = string(override)
	}
	return &updated
}

// IsEmpty reports whether the patch would leave a record unchanged
func (p RecordPatch) IsEmpty() bool {
	return p.StatusOverride == nil && len(p.Data.Compact()) == 0
}

// TransactionInfo is the caller-facing view of a ledger record
type TransactionInfo struct {
	*TransactionRecord
	Status            PaymentStatus `json:"status"`
	FirstReferenceID  string        `json:"first_payment_reference_id,omitempty"`
	SecondReferenceID string        `json:"second_payment_reference_id,omitempty"`
	GatewayError      string        `json:"gateway_error,omitempty"`
	GatewayErrorCode  string        `json:"gateway_error_code,omitempty"`
}

// NewTransactionInfo builds the caller-facing view of rec
func NewTransactionInfo(rec *TransactionRecord) *TransactionInfo {
	return &TransactionInfo{
		TransactionRecord: rec,
		Status:            rec.Status(),
		FirstReferenceID:  rec.FirstReferenceID(),
		SecondReferenceID: rec.SecondReferenceID(),
		GatewayError:      rec.GatewayError(),
		GatewayErrorCode:  rec.GatewayErrorCode(),
	}
}
