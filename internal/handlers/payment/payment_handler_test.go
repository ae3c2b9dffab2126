package payment

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/kevin07696/gateway-reconciler/internal/domain"
	"github.com/kevin07696/gateway-reconciler/internal/handlers"
	servicesports "github.com/kevin07696/gateway-reconciler/internal/services/ports"
	"github.com/kevin07696/gateway-reconciler/internal/testutil/fixtures"
	"github.com/kevin07696/gateway-reconciler/internal/testutil/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type harness struct {
	mux      *http.ServeMux
	executor *mocks.MockTransactionExecutor
	reader   *mocks.MockTransactionInfoReader
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		mux:      http.NewServeMux(),
		executor: &mocks.MockTransactionExecutor{},
		reader:   &mocks.MockTransactionInfoReader{},
	}
	t.Cleanup(func() {
		h.executor.AssertExpectations(t)
		h.reader.AssertExpectations(t)
	})
	NewHandler(h.executor, h.reader, mocks.NewMockLogger()).RegisterRoutes(h.mux)
	return h
}

func (h *harness) do(method, path, body string, tenant bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if tenant {
		req.Header.Set(handlers.TenantHeader, fixtures.TenantID.String())
	}
	rec := httptest.NewRecorder()
	h.mux.ServeHTTP(rec, req)
	return rec
}

func transactionBody(extra string) string {
	return `{"account_id":"` + uuid.NewString() + `","payment_id":"` + uuid.NewString() +
		`","transaction_id":"` + uuid.NewString() + `"` + extra + `}`
}

func TestExecute_Purchase(t *testing.T) {
	h := newHarness(t)
	pmID := uuid.New()
	rec := fixtures.Record(uuid.New(), domain.TransactionTypePurchase, fixtures.Intent("pi_1", 1000), fixtures.Now)
	h.executor.On("Purchase", mock.Anything, mock.MatchedBy(func(r *servicesports.PaymentRequest) bool {
		return r.TenantID == fixtures.TenantID &&
			r.PaymentMethodID == pmID &&
			r.Amount.String() == "10.5" &&
			r.Currency == "USD" &&
			r.Properties.Bool("skip_gw") == false
	})).Return(domain.NewTransactionInfo(rec), nil).Once()

	resp := h.do(http.MethodPost, "/v1/payments/purchase",
		transactionBody(`,"payment_method_id":"`+pmID.String()+`","amount":"10.50","currency":"USD"`), true)

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var got map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "PROCESSED", got["status"])
	assert.Equal(t, "ch_pi_1", got["first_payment_reference_id"])
}

func TestExecute_Validation(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		body   string
		tenant bool
		want   int
	}{
		{"missing tenant", "/v1/payments/void", transactionBody(""), false, http.StatusBadRequest},
		{"unknown operation", "/v1/payments/chargeback", transactionBody(""), true, http.StatusNotFound},
		{"missing ids", "/v1/payments/void", `{}`, true, http.StatusBadRequest},
		{"authorize without payment method", "/v1/payments/authorize", transactionBody(`,"amount":"1"`), true, http.StatusBadRequest},
		{"capture without amount", "/v1/payments/capture", transactionBody(""), true, http.StatusBadRequest},
		{"negative amount", "/v1/payments/refund", transactionBody(`,"amount":"-1"`), true, http.StatusBadRequest},
		{"bad currency", "/v1/payments/refund", transactionBody(`,"amount":"1","currency":"dollars"`), true, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)

			resp := h.do(http.MethodPost, tt.path, tt.body, tt.tenant)

			assert.Equal(t, tt.want, resp.Code, resp.Body.String())
		})
	}
}

func TestExecute_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"no anchor", domain.ErrNoAnchor, http.StatusBadRequest},
		{"declined", domain.NewDomainError(domain.ErrorCodeGatewayDeclined, "declined"), http.StatusPaymentRequired},
		{"unavailable", domain.NewDomainError(domain.ErrorCodeGatewayUnavailable, "down"), http.StatusBadGateway},
		{"unrecorded", domain.NewUnrecordedPaymentError("pi_1", assert.AnError), http.StatusInternalServerError},
		{"credit", domain.ErrNotImplemented, http.StatusNotImplemented},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.executor.On("Void", mock.Anything, mock.Anything).Return(nil, tt.err).Once()

			resp := h.do(http.MethodPost, "/v1/payments/void", transactionBody(""), true)

			assert.Equal(t, tt.want, resp.Code)
			var body handlers.ErrorBody
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, domain.GetErrorCode(tt.err), body.Code)
		})
	}
}

func TestGetTransactionInfo(t *testing.T) {
	h := newHarness(t)
	accountID, paymentID := uuid.New(), uuid.New()
	rec := fixtures.Record(paymentID, domain.TransactionTypeAuthorize, fixtures.Intent("pi_1", 1000, fixtures.RequiresAction()), fixtures.Now)
	h.reader.On("GetTransactionInfo", mock.Anything, accountID, paymentID, fixtures.TenantID).
		Return([]*domain.TransactionInfo{domain.NewTransactionInfo(rec)}, nil).Once()

	resp := h.do(http.MethodGet, "/v1/accounts/"+accountID.String()+"/payments/"+paymentID.String(), "", true)

	require.Equal(t, http.StatusOK, resp.Code)
	var got []map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, "PENDING", got[0]["status"])
}

func TestGetTransactionInfo_BadPath(t *testing.T) {
	h := newHarness(t)

	resp := h.do(http.MethodGet, "/v1/accounts/nope/payments/"+uuid.NewString(), "", true)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
