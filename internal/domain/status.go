package domain

// PaymentStatus is the canonical status exposed to callers, independent of
// gateway vocabulary.
type PaymentStatus string

const (
	StatusProcessed PaymentStatus = "PROCESSED"
	StatusPending   PaymentStatus = "PENDING"
	StatusError     PaymentStatus = "ERROR"
	StatusCanceled  PaymentStatus = "CANCELED"
	StatusUndefined PaymentStatus = "UNDEFINED"
)

// ParsePaymentStatus validates a canonical status string
func ParsePaymentStatus(s string) (PaymentStatus, bool) {
	switch PaymentStatus(s) {
	case StatusProcessed, StatusPending, StatusError, StatusCanceled, StatusUndefined:
		return PaymentStatus(s), true
	}
	return "", false
}

// Gateway object statuses that drive the mapping and the reconciliation loop
const (
	IntentStatusRequiresAction        = "requires_action"
	IntentStatusRequiresConfirmation  = "requires_confirmation"
	IntentStatusRequiresCapture       = "requires_capture"
	IntentStatusRequiresPaymentMethod = "requires_payment_method"
	IntentStatusCanceled              = "canceled"
	IntentStatusSucceeded             = "succeeded"

	ChargeStatusSucceeded = "succeeded"
	ChargeStatusPending   = "pending"
	ChargeStatusFailed    = "failed"

	// last_payment_error code set when a 3DS challenge was not passed
	ErrorCodeAuthenticationFailure = "payment_intent_authentication_failure"
)

// MapStatus maps a record's override and additional data onto the canonical
// status. An explicit override always wins. The last charge status is
// authoritative once it exists; the top-level object status is only consulted
// before any charge was attempted.
func MapStatus(override *PaymentStatus, data AdditionalData) PaymentStatus {
	if override != nil {
		return *override
	}

	lastChargeStatus, hasCharge := data.String(KeyLastChargeStatus)
	if hasCharge {
		switch lastChargeStatus {
		case ChargeStatusSucceeded:
			return StatusProcessed
		case ChargeStatusPending:
			return StatusPending
		case ChargeStatusFailed:
			return StatusError
		default:
			return StatusUndefined
		}
	}

	status, _ := data.String(KeyStatus)
	switch status {
	case IntentStatusRequiresAction:
		return StatusPending
	case IntentStatusCanceled:
		return StatusError
	default:
		return StatusUndefined
	}
}
