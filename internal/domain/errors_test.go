package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"sentinel", ErrNoAnchor, ErrorCodeUserError},
		{"wrapped sentinel", fmt.Errorf("capture: %w", ErrMissingCustomerID), ErrorCodeInternalError},
		{"domain error", WrapError(ErrorCodeStorageError, "insert failed", errors.New("conn reset")), ErrorCodeStorageError},
		{"plain error", errors.New("boom"), ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetErrorCode(tt.err))
		})
	}
}

func TestIsNotFoundError(t *testing.T) {
	assert.True(t, IsNotFoundError(ErrPaymentMethodNotFound))
	assert.True(t, IsNotFoundError(fmt.Errorf("lookup: %w", ErrHppRequestNotFound)))
	assert.True(t, IsNotFoundError(NewDomainError(ErrorCodeNotFound, "account")))
	assert.False(t, IsNotFoundError(ErrNoAnchor))
}

func TestIsGatewayError(t *testing.T) {
	assert.True(t, IsGatewayError(NewDomainError(ErrorCodeGatewayDeclined, "declined")))
	assert.True(t, IsGatewayError(NewDomainError(ErrorCodeGatewayUnavailable, "down")))
	assert.False(t, IsGatewayError(ErrNotImplemented))
}

func TestNewUnrecordedPaymentError(t *testing.T) {
	cause := errors.New("connection refused")
	intent := &PaymentIntent{ID: "pi_1"}

	err := NewUnrecordedPaymentError(intent, cause)

	assert.Equal(t, ErrorCodeUnrecordedPayment, err.Code)
	assert.Contains(t, err.Message, "Payment went through, but we encountered a database error")
	assert.Contains(t, err.Message, "pi_1")
	assert.Same(t, intent, err.Details["gateway_result"])
	assert.ErrorIs(t, err, cause)
}

func TestDomainError_Error(t *testing.T) {
	assert.Equal(t, "USER_ERROR: no prior authorization to act on", ErrNoAnchor.Error())
	assert.Equal(t, "INTERNAL: wrap: boom", WrapError(ErrorCodeInternalError, "wrap", errors.New("boom")).Error())
}
