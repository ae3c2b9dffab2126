package domain

import (
	"time"

	"github.com/google/uuid"
)

// InstrumentKind discriminates the gateway object shapes a stored instrument
// can come from
type InstrumentKind string

const (
	InstrumentKindPaymentMethod InstrumentKind = "payment_method" // structured payment method
	InstrumentKindSource        InstrumentKind = "source"         // legacy payment source
	InstrumentKindBankAccount   InstrumentKind = "bank_account"   // legacy customer bank account
)

// ParseInstrumentKind validates an object discriminator. An empty value is a
// structured payment method.
func ParseInstrumentKind(s string) (InstrumentKind, bool) {
	switch InstrumentKind(s) {
	case "", InstrumentKindPaymentMethod:
		return InstrumentKindPaymentMethod, true
	case InstrumentKindSource:
		return InstrumentKindSource, true
	case InstrumentKindBankAccount:
		return InstrumentKindBankAccount, true
	}
	return "", false
}

// PaymentMethodRecord mirrors one gateway-side payment instrument
type PaymentMethodRecord struct {
	RecordID        int64          `json:"record_id"`
	AccountID       uuid.UUID      `json:"account_id"`
	PaymentMethodID uuid.UUID      `json:"payment_method_id"`
	TenantID        uuid.UUID      `json:"tenant_id"`
	GatewayID       string         `json:"gateway_id"`
	IsDeleted       bool           `json:"is_deleted"`
	AdditionalData  AdditionalData `json:"additional_data,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// Kind returns the object discriminator stored with the instrument
func (pm *PaymentMethodRecord) Kind() InstrumentKind {
	kind, ok := ParseInstrumentKind(pm.AdditionalData.StringOr(KeyObject, ""))
	if !ok {
		return InstrumentKindPaymentMethod
	}
	return kind
}

// PaymentMethodInfo is the summary returned by listings
type PaymentMethodInfo struct {
	AccountID       uuid.UUID `json:"account_id"`
	PaymentMethodID uuid.UUID `json:"payment_method_id"`
	IsDefault       bool      `json:"is_default"`
	ExternalID      string    `json:"external_payment_method_id"`
}

// Info summarizes the record for listings. Mirrored instruments are never
// the default on the billing side.
func (pm *PaymentMethodRecord) Info() PaymentMethodInfo {
	return PaymentMethodInfo{
		AccountID:       pm.AccountID,
		PaymentMethodID: pm.PaymentMethodID,
		IsDefault:       false,
		ExternalID:      pm.GatewayID,
	}
}

// PaymentMethodDetail is the detailed view of one mirrored instrument
type PaymentMethodDetail struct {
	PaymentMethodID uuid.UUID      `json:"payment_method_id"`
	ExternalID      string         `json:"external_payment_method_id,omitempty"`
	Properties      AdditionalData `json:"properties,omitempty"`
}

// HppRequestRecord mirrors one hosted checkout session
type HppRequestRecord struct {
	RecordID       int64          `json:"record_id"`
	AccountID      uuid.UUID      `json:"account_id"`
	PaymentID      *uuid.UUID     `json:"payment_id,omitempty"`
	TransactionID  *uuid.UUID     `json:"transaction_id,omitempty"`
	TenantID       uuid.UUID      `json:"tenant_id"`
	SessionID      string         `json:"session_id"`
	AdditionalData AdditionalData `json:"additional_data,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}
