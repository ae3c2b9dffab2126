package payment_method

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/gateway-reconciler/internal/domain"
	"github.com/kevin07696/gateway-reconciler/internal/domain/ports"
	servicesports "github.com/kevin07696/gateway-reconciler/internal/services/ports"
	"github.com/kevin07696/gateway-reconciler/internal/testutil/fixtures"
	"github.com/kevin07696/gateway-reconciler/internal/testutil/memstore"
	"github.com/kevin07696/gateway-reconciler/internal/testutil/mocks"
	"github.com/kevin07696/gateway-reconciler/pkg/resilience"
	"github.com/kevin07696/gateway-reconciler/pkg/timeutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2025, 11, 20, 10, 0, 0, 0, time.UTC)

type harness struct {
	service   *Service
	mirror    *memstore.Mirror
	hpp       *memstore.HppStore
	gateway   *mocks.MockGateway
	host      *mocks.MockBillingHost
	accountID uuid.UUID
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	clock := timeutil.NewFixedClock(start)
	h := &harness{
		mirror:    memstore.NewMirror(clock.Now),
		hpp:       memstore.NewHppStore(clock.Now),
		gateway:   &mocks.MockGateway{},
		host:      &mocks.MockBillingHost{},
		accountID: uuid.New(),
	}
	t.Cleanup(func() {
		h.gateway.AssertExpectations(t)
		h.host.AssertExpectations(t)
	})
	h.service = NewService(h.mirror, h.hpp, h.gateway, h.host, clock, resilience.TestTimeoutConfig(), mocks.NewMockLogger())
	return h
}

func (h *harness) withCustomer(customerID string) {
	h.host.On("GetCustomField", mock.Anything, h.accountID, fixtures.TenantID, ports.CustomerIDCustomField).Return(customerID, nil)
}

func (h *harness) seed(t *testing.T, in domain.Instrument) *domain.PaymentMethodRecord {
	t.Helper()
	data, err := in.AdditionalData()
	require.NoError(t, err)
	rec, err := h.mirror.AddPaymentMethod(context.Background(), &domain.PaymentMethodRecord{
		AccountID:       h.accountID,
		PaymentMethodID: uuid.New(),
		TenantID:        fixtures.TenantID,
		GatewayID:       in.ID,
		AdditionalData:  data,
	})
	require.NoError(t, err)
	return rec
}

func externalIDs(infos []domain.PaymentMethodInfo) []string {
	out := make([]string, len(infos))
	for i, info := range infos {
		out[i] = info.ExternalID
	}
	return out
}

func TestSync_ConvergesToGateway(t *testing.T) {
	h := newHarness(t)
	h.withCustomer("cus_123")
	kept := h.seed(t, fixtures.CardInstrument("pm_keep", "cus_123", "4242"))
	gone := h.seed(t, fixtures.CardInstrument("pm_gone", "cus_123", "1111"))

	h.gateway.On("ListInstruments", mock.Anything, "cus_123", "card").Return([]domain.Instrument{
		fixtures.CardInstrument("pm_keep", "cus_123", "0005"),
		fixtures.CardInstrument("pm_new", "cus_123", "4444"),
	}, nil)
	h.gateway.On("ListInstruments", mock.Anything, "cus_123", "sepa_debit").Return([]domain.Instrument{}, nil)
	h.gateway.On("RetrieveCustomer", mock.Anything, "cus_123").Return(&domain.Customer{
		ID: "cus_123",
		Sources: []domain.Instrument{
			fixtures.SourceInstrument("pm_new", "cus_123"),
			fixtures.SourceInstrument("src_1", "cus_123"),
		},
	}, nil)

	newID, srcID := uuid.New(), uuid.New()
	h.host.On("RegisterPaymentMethod", mock.Anything, h.accountID, fixtures.TenantID, "pm_new", false).Return(newID, nil).Once()
	h.host.On("RegisterPaymentMethod", mock.Anything, h.accountID, fixtures.TenantID, "src_1", false).Return(srcID, nil).Once()
	h.host.On("DeactivatePaymentMethod", mock.Anything, h.accountID, fixtures.TenantID, gone.PaymentMethodID).Return(nil).Once()

	infos, err := h.service.Sync(context.Background(), h.accountID, fixtures.TenantID)

	require.NoError(t, err)
	assert.Equal(t, []string{"pm_keep", "pm_new", "src_1"}, externalIDs(infos))
	for _, info := range infos {
		assert.False(t, info.IsDefault)
	}

	updated, err := h.mirror.GetPaymentMethod(context.Background(), kept.PaymentMethodID, fixtures.TenantID)
	require.NoError(t, err)
	assert.Equal(t, "0005", updated.AdditionalData.StringOr("card_last4", ""))

	added, err := h.mirror.GetPaymentMethod(context.Background(), newID, fixtures.TenantID)
	require.NoError(t, err)
	assert.Equal(t, domain.InstrumentKindPaymentMethod, added.Kind(), "first listing wins")

	source, err := h.mirror.GetPaymentMethod(context.Background(), srcID, fixtures.TenantID)
	require.NoError(t, err)
	assert.Equal(t, domain.InstrumentKindSource, source.Kind())

	_, err = h.mirror.GetPaymentMethod(context.Background(), gone.PaymentMethodID, fixtures.TenantID)
	assert.ErrorIs(t, err, domain.ErrPaymentMethodNotFound)
}

func TestSync_SecondPassIsNoop(t *testing.T) {
	h := newHarness(t)
	h.withCustomer("cus_123")
	h.gateway.On("ListInstruments", mock.Anything, "cus_123", "card").
		Return([]domain.Instrument{fixtures.CardInstrument("pm_1", "cus_123", "4242")}, nil)
	h.gateway.On("ListInstruments", mock.Anything, "cus_123", "sepa_debit").Return(nil, nil)
	h.gateway.On("RetrieveCustomer", mock.Anything, "cus_123").Return(&domain.Customer{ID: "cus_123"}, nil)
	h.host.On("RegisterPaymentMethod", mock.Anything, h.accountID, fixtures.TenantID, "pm_1", false).Return(uuid.New(), nil).Once()

	first, err := h.service.Sync(context.Background(), h.accountID, fixtures.TenantID)
	require.NoError(t, err)
	second, err := h.service.Sync(context.Background(), h.accountID, fixtures.TenantID)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	h.host.AssertNumberOfCalls(t, "RegisterPaymentMethod", 1)
	h.host.AssertNotCalled(t, "DeactivatePaymentMethod", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSync_EmptyCustomer(t *testing.T) {
	h := newHarness(t)
	h.withCustomer("cus_empty")
	h.gateway.On("ListInstruments", mock.Anything, "cus_empty", mock.Anything).Return(nil, nil)
	h.gateway.On("RetrieveCustomer", mock.Anything, "cus_empty").Return(&domain.Customer{ID: "cus_empty"}, nil)

	infos, err := h.service.Sync(context.Background(), h.accountID, fixtures.TenantID)

	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestSync_BoundedByServiceTimeout(t *testing.T) {
	h := newHarness(t)
	h.service.timeouts = &resilience.TimeoutConfig{Service: time.Minute}
	withinService := mock.MatchedBy(func(ctx context.Context) bool {
		deadline, ok := ctx.Deadline()
		return ok && time.Until(deadline) <= time.Minute
	})
	h.host.On("GetCustomField", withinService, h.accountID, fixtures.TenantID, ports.CustomerIDCustomField).Return("cus_empty", nil)
	h.gateway.On("ListInstruments", withinService, "cus_empty", mock.Anything).Return(nil, nil)
	h.gateway.On("RetrieveCustomer", withinService, "cus_empty").Return(&domain.Customer{ID: "cus_empty"}, nil)

	_, err := h.service.Sync(context.Background(), h.accountID, fixtures.TenantID)

	require.NoError(t, err)
}

func TestSync_MissingCustomerID(t *testing.T) {
	h := newHarness(t)
	h.withCustomer("")

	_, err := h.service.Sync(context.Background(), h.accountID, fixtures.TenantID)

	assert.ErrorIs(t, err, domain.ErrMissingCustomerID)
}

func TestGetPaymentMethods_WithoutRefreshReadsMirror(t *testing.T) {
	h := newHarness(t)
	h.seed(t, fixtures.CardInstrument("pm_1", "cus_123", "4242"))

	infos, err := h.service.GetPaymentMethods(context.Background(), h.accountID, fixtures.TenantID, false)

	require.NoError(t, err)
	assert.Equal(t, []string{"pm_1"}, externalIDs(infos))
	h.gateway.AssertNotCalled(t, "ListInstruments", mock.Anything, mock.Anything, mock.Anything)
}

func TestAddPaymentMethod_ByExternalID(t *testing.T) {
	tests := []struct {
		name       string
		kind       domain.InstrumentKind
		instrument domain.Instrument
		customer   string
	}{
		{"payment method", domain.InstrumentKindPaymentMethod, fixtures.CardInstrument("pm_1", "cus_123", "4242"), ""},
		{"default kind", "", fixtures.CardInstrument("pm_1", "cus_123", "4242"), ""},
		{"source", domain.InstrumentKindSource, fixtures.SourceInstrument("src_1", "cus_123"), ""},
		{"bank account", domain.InstrumentKindBankAccount, domain.Instrument{
			Kind: domain.InstrumentKindBankAccount, ID: "ba_1", CustomerID: "cus_123",
			Bank: &domain.BankDetails{BankName: "STRIPE TEST BANK", Last4: "6789", Country: "US", Currency: "usd"},
		}, "cus_123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			wantKind := tt.instrument.Kind
			if tt.customer != "" {
				h.withCustomer(tt.customer)
			}
			h.gateway.On("RetrieveInstrument", mock.Anything, wantKind, tt.customer, tt.instrument.ID).Return(&tt.instrument, nil).Once()

			pmID := uuid.New()
			rec, err := h.service.AddPaymentMethod(context.Background(), &servicesports.AddPaymentMethodRequest{
				AccountID:       h.accountID,
				PaymentMethodID: pmID,
				TenantID:        fixtures.TenantID,
				ExternalID:      tt.instrument.ID,
				Kind:            tt.kind,
			})

			require.NoError(t, err)
			assert.Equal(t, tt.instrument.ID, rec.GatewayID)
			assert.Equal(t, wantKind, rec.Kind())

			detail, err := h.service.GetPaymentMethodDetail(context.Background(), h.accountID, pmID, fixtures.TenantID)
			require.NoError(t, err)
			assert.Equal(t, tt.instrument.ID, detail.ExternalID)
			assert.NotEmpty(t, detail.Properties)
		})
	}
}

func TestAddPaymentMethod_NoReference(t *testing.T) {
	h := newHarness(t)

	_, err := h.service.AddPaymentMethod(context.Background(), &servicesports.AddPaymentMethodRequest{
		AccountID:       h.accountID,
		PaymentMethodID: uuid.New(),
		TenantID:        fixtures.TenantID,
	})

	assert.ErrorIs(t, err, domain.ErrMissingInstrumentRef)
	assert.Equal(t, domain.ErrorCodeUserError, domain.GetErrorCode(err))
}

func (h *harness) seedSession(t *testing.T, sessionID, intentID string) {
	t.Helper()
	_, err := h.hpp.AddHppRequest(context.Background(), &domain.HppRequestRecord{
		AccountID:      h.accountID,
		TenantID:       fixtures.TenantID,
		SessionID:      sessionID,
		AdditionalData: domain.AdditionalData{domain.KeyID: sessionID, domain.KeyPaymentIntentID: intentID},
	})
	require.NoError(t, err)
}

func TestAddPaymentMethod_FromSession(t *testing.T) {
	h := newHarness(t)
	h.seedSession(t, "cs_1", "pi_hpp")
	authorized := fixtures.Intent("pi_hpp", 100, fixtures.RequiresCapture())

	h.gateway.On("RetrieveObject", mock.Anything, "pi_hpp").Return(authorized, nil).Once()
	h.gateway.On("CancelCharge", mock.Anything, "pi_hpp", "").Return(fixtures.Intent("pi_hpp", 100, fixtures.Canceled()), nil).Once()
	h.withCustomer("")
	h.host.On("AddCustomField", mock.Anything, h.accountID, fixtures.TenantID, ports.CustomerIDCustomField, "cus_123").Return(nil).Once()
	card := fixtures.CardInstrument("pm_1", "cus_123", "4242")
	h.gateway.On("RetrieveInstrument", mock.Anything, domain.InstrumentKindPaymentMethod, "", "pm_1").Return(&card, nil).Once()

	rec, err := h.service.AddPaymentMethod(context.Background(), &servicesports.AddPaymentMethodRequest{
		AccountID:       h.accountID,
		PaymentMethodID: uuid.New(),
		TenantID:        fixtures.TenantID,
		SessionID:       "cs_1",
	})

	require.NoError(t, err)
	assert.Equal(t, "pm_1", rec.GatewayID)
}

func TestAddPaymentMethod_SessionRejected(t *testing.T) {
	tests := []struct {
		name     string
		intent   *domain.PaymentIntent
		customer string
	}{
		{"intent not authorized", fixtures.Intent("pi_hpp", 100, fixtures.RequiresAction()), ""},
		{"customer mismatch", fixtures.Intent("pi_hpp", 100, fixtures.RequiresCapture()), "cus_other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.seedSession(t, "cs_1", "pi_hpp")
			h.gateway.On("RetrieveObject", mock.Anything, "pi_hpp").Return(tt.intent, nil).Once()
			if tt.customer != "" {
				h.gateway.On("CancelCharge", mock.Anything, "pi_hpp", "").Return(tt.intent, nil).Once()
				h.withCustomer(tt.customer)
			}

			_, err := h.service.AddPaymentMethod(context.Background(), &servicesports.AddPaymentMethodRequest{
				AccountID:       h.accountID,
				PaymentMethodID: uuid.New(),
				TenantID:        fixtures.TenantID,
				SessionID:       "cs_1",
			})

			assert.Equal(t, domain.ErrorCodeUserError, domain.GetErrorCode(err))
			h.host.AssertNotCalled(t, "AddCustomField", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			h.gateway.AssertNotCalled(t, "RetrieveInstrument", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestAddPaymentMethod_UnknownSession(t *testing.T) {
	h := newHarness(t)

	_, err := h.service.AddPaymentMethod(context.Background(), &servicesports.AddPaymentMethodRequest{
		AccountID:       h.accountID,
		PaymentMethodID: uuid.New(),
		TenantID:        fixtures.TenantID,
		SessionID:       "cs_missing",
	})

	assert.True(t, domain.IsNotFoundError(err))
}

func TestDeletePaymentMethod(t *testing.T) {
	h := newHarness(t)
	rec := h.seed(t, fixtures.CardInstrument("pm_1", "cus_123", "4242"))
	h.gateway.On("DetachInstrument", mock.Anything, "pm_1").Return(nil).Once()

	require.NoError(t, h.service.DeletePaymentMethod(context.Background(), h.accountID, rec.PaymentMethodID, fixtures.TenantID))

	infos, err := h.service.GetPaymentMethods(context.Background(), h.accountID, fixtures.TenantID, false)
	require.NoError(t, err)
	assert.Empty(t, infos)

	detail, err := h.service.GetPaymentMethodDetail(context.Background(), h.accountID, rec.PaymentMethodID, fixtures.TenantID)
	require.NoError(t, err)
	assert.Equal(t, rec.PaymentMethodID, detail.PaymentMethodID)
	assert.Empty(t, detail.ExternalID)
	assert.Empty(t, detail.Properties)
}

func TestDeletePaymentMethod_DetachFailureKeepsRecord(t *testing.T) {
	h := newHarness(t)
	rec := h.seed(t, fixtures.CardInstrument("pm_1", "cus_123", "4242"))
	h.gateway.On("DetachInstrument", mock.Anything, "pm_1").
		Return(&domain.GatewayError{Type: "invalid_request_error", Message: "No such PaymentMethod", StatusCode: 404}).Once()

	err := h.service.DeletePaymentMethod(context.Background(), h.accountID, rec.PaymentMethodID, fixtures.TenantID)

	require.Error(t, err)
	_, err = h.mirror.GetPaymentMethod(context.Background(), rec.PaymentMethodID, fixtures.TenantID)
	assert.NoError(t, err)
}

func TestBuildFormDescriptor(t *testing.T) {
	tests := []struct {
		name       string
		account    *ports.Account
		properties map[string]string
		want       ports.LineItem
		successURL string
	}{
		{
			name:       "defaults",
			account:    &ports.Account{},
			want:       ports.LineItem{Name: "Authorization charge", AmountMinor: "100", Currency: "USD", Quantity: "1"},
			successURL: "https://example.com/success",
		},
		{
			name:    "account currency and overrides",
			account: &ports.Account{Currency: "EUR"},
			properties: map[string]string{
				"line_item_name":   "Card check",
				"line_item_amount": "50",
				"success_url":      "https://shop.test/done",
			},
			want:       ports.LineItem{Name: "Card check", AmountMinor: "50", Currency: "EUR", Quantity: "1"},
			successURL: "https://shop.test/done",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.host.On("GetAccount", mock.Anything, h.accountID, fixtures.TenantID).Return(tt.account, nil).Once()
			h.withCustomer("cus_123")
			h.gateway.On("CreateCheckoutSession", mock.Anything, mock.MatchedBy(func(r *ports.CheckoutSessionRequest) bool {
				return len(r.LineItems) == 1 && r.LineItems[0] == tt.want &&
					r.CaptureMethod == ports.CaptureMethodManual &&
					r.SuccessURL == tt.successURL &&
					r.CancelURL == "https://example.com/cancel" &&
					r.CustomerID == "cus_123"
			})).Return(&domain.CheckoutSession{
				ID:              "cs_1",
				Object:          "checkout.session",
				URL:             "https://checkout.stripe.test/cs_1",
				PaymentIntentID: "pi_hpp",
				SuccessURL:      tt.successURL,
			}, nil).Once()

			descriptor, err := h.service.BuildFormDescriptor(context.Background(), &servicesports.FormDescriptorRequest{
				AccountID:  h.accountID,
				TenantID:   fixtures.TenantID,
				Properties: tt.properties,
			})

			require.NoError(t, err)
			assert.Equal(t, "cs_1", descriptor.SessionID)
			assert.Equal(t, "https://checkout.stripe.test/cs_1", descriptor.URL)
			assert.Equal(t, "pi_hpp", descriptor.Properties.StringOr(domain.KeyPaymentIntentID, ""))

			stored, err := h.hpp.GetHppRequest(context.Background(), "cs_1", fixtures.TenantID)
			require.NoError(t, err)
			assert.Equal(t, h.accountID, stored.AccountID)
			assert.Equal(t, "pi_hpp", stored.AdditionalData.StringOr(domain.KeyPaymentIntentID, ""))
		})
	}
}

func TestProcessNotification_NotImplemented(t *testing.T) {
	h := newHarness(t)

	err := h.service.ProcessNotification(context.Background(), []byte(`{}`), fixtures.TenantID)

	assert.Equal(t, domain.ErrorCodeNotImplemented, domain.GetErrorCode(err))
}
