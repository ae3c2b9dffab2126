package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a machine-readable error code
type ErrorCode string

const (
	// Caller supplied an invalid request (missing anchor, missing instrument reference)
	ErrorCodeUserError ErrorCode = "USER_ERROR"

	// Lookups
	ErrorCodeNotFound ErrorCode = "NOT_FOUND"

	// Payment Gateway Errors (GATEWAY_*)
	ErrorCodeGatewayDeclined    ErrorCode = "GATEWAY_DECLINED"
	ErrorCodeGatewayUnavailable ErrorCode = "GATEWAY_UNAVAILABLE"

	// Persistence
	ErrorCodeStorageError ErrorCode = "STORAGE_ERROR"

	// The gateway accepted the call but the ledger write failed afterwards
	ErrorCodeUnrecordedPayment ErrorCode = "UNRECORDED_PAYMENT"

	ErrorCodeNotImplemented ErrorCode = "NOT_IMPLEMENTED"
	ErrorCodeInternalError  ErrorCode = "INTERNAL"
)

// DomainError represents a structured domain error with error code and context
type DomainError struct {
	Err     error
	Details map[string]interface{}
	Code    ErrorCode
	Message string
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// WithDetail adds a detail field to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(code ErrorCode, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// WrapError wraps an existing error with a domain error code
func WrapError(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Err:     err,
	}
}

// IsDomainError checks if an error is a DomainError with the given code
func IsDomainError(err error, code ErrorCode) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error, returns empty string if not a DomainError
func GetErrorCode(err error) ErrorCode {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// IsNotFoundError checks if an error represents a "not found" condition
func IsNotFoundError(err error) bool {
	return GetErrorCode(err) == ErrorCodeNotFound ||
		errors.Is(err, ErrPaymentMethodNotFound) ||
		errors.Is(err, ErrHppRequestNotFound)
}

// IsGatewayError checks if an error is a payment gateway error
func IsGatewayError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeGatewayDeclined || code == ErrorCodeGatewayUnavailable
}

// NewUnrecordedPaymentError reports a gateway call that went through while the
// ledger write that should have followed it failed. The raw gateway result is
// attached so an operator can reconcile by hand.
func NewUnrecordedPaymentError(gatewayResult interface{}, err error) *DomainError {
	return WrapError(ErrorCodeUnrecordedPayment,
		fmt.Sprintf("Payment went through, but we encountered a database error. Payment details: %+v", gatewayResult),
		err,
	).WithDetail("gateway_result", gatewayResult)
}

var (
	ErrNoAnchor              = NewDomainError(ErrorCodeUserError, "no prior authorization to act on")
	ErrMissingInstrumentRef  = NewDomainError(ErrorCodeUserError, "an external payment method id or a sessionId must be passed")
	ErrPaymentMethodNotFound = NewDomainError(ErrorCodeNotFound, "payment method not found")
	ErrHppRequestNotFound    = NewDomainError(ErrorCodeNotFound, "hosted page request not found")
	ErrMissingCustomerID     = NewDomainError(ErrorCodeInternalError, "Missing STRIPE_CUSTOMER_ID custom field")
	ErrNotImplemented        = NewDomainError(ErrorCodeNotImplemented, "not implemented")
)
