package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kevin07696/gateway-reconciler/internal/domain"
	"github.com/kevin07696/gateway-reconciler/internal/testutil/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrNoAnchor, http.StatusBadRequest},
		{domain.ErrPaymentMethodNotFound, http.StatusNotFound},
		{domain.NewDomainError(domain.ErrorCodeGatewayDeclined, "declined"), http.StatusPaymentRequired},
		{domain.NewDomainError(domain.ErrorCodeGatewayUnavailable, "down"), http.StatusBadGateway},
		{domain.NewDomainError(domain.ErrorCodeStorageError, "db"), http.StatusInternalServerError},
		{domain.NewUnrecordedPaymentError("pi_1", errors.New("db")), http.StatusInternalServerError},
		{domain.ErrMissingCustomerID, http.StatusInternalServerError},
		{domain.ErrNotImplemented, http.StatusNotImplemented},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

func TestRespondError_HidesUncodedCause(t *testing.T) {
	rec := httptest.NewRecorder()
	logger := mocks.NewMockLogger()

	RespondError(rec, logger, errors.New("pq: password authentication failed"))

	var body ErrorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, domain.ErrorCodeInternalError, body.Code)
	assert.Equal(t, "internal server error", body.Message)
	assert.Len(t, logger.Errors(), 1)
}

func TestRespondError_CarriesDetails(t *testing.T) {
	rec := httptest.NewRecorder()

	RespondError(rec, mocks.NewMockLogger(), domain.NewDomainError(domain.ErrorCodeGatewayDeclined, "Your card was declined.").
		WithDetail(domain.KeyGatewayErrorCode, "card_declined"))

	var body ErrorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Equal(t, "Your card was declined.", body.Message)
	assert.Equal(t, "card_declined", body.Details[domain.KeyGatewayErrorCode])
}

func TestTenantID(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := TenantID(r)
	assert.Equal(t, domain.ErrorCodeUserError, domain.GetErrorCode(err))

	r.Header.Set(TenantHeader, "not-a-uuid")
	_, err = TenantID(r)
	assert.Equal(t, domain.ErrorCodeUserError, domain.GetErrorCode(err))

	r.Header.Set(TenantHeader, "6f1c2b9e-3a1d-4c55-9a0e-2f7d1b3c4a5e")
	id, err := TenantID(r)
	require.NoError(t, err)
	assert.Equal(t, "6f1c2b9e-3a1d-4c55-9a0e-2f7d1b3c4a5e", id.String())
}

func TestDecode(t *testing.T) {
	type body struct {
		Name     string `json:"name" validate:"required"`
		Currency string `json:"currency" validate:"omitempty,len=3"`
	}

	tests := []struct {
		name    string
		payload string
		wantErr string
	}{
		{"valid", `{"name":"a","currency":"USD"}`, ""},
		{"empty body", ``, "request body is required"},
		{"malformed", `{"name":`, "malformed request body"},
		{"missing required", `{"currency":"USD"}`, "Name failed required"},
		{"bad currency", `{"name":"a","currency":"DOLLARS"}`, "Currency failed len"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.payload))
			var b body
			err := Decode(r, &b)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, domain.ErrorCodeUserError, domain.GetErrorCode(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
