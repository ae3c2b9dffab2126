package mocks

import (
	"context"

	"github.com/kevin07696/gateway-reconciler/internal/domain"
	"github.com/kevin07696/gateway-reconciler/internal/domain/ports"
	"github.com/stretchr/testify/mock"
)

// MockGateway is a testify mock of ports.GatewayAdapter
type MockGateway struct {
	mock.Mock
}

var _ ports.GatewayAdapter = (*MockGateway)(nil)

func intentResult(args mock.Arguments) (*domain.PaymentIntent, error) {
	if v := args.Get(0); v != nil {
		return v.(*domain.PaymentIntent), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockGateway) CreateAndConfirmCharge(ctx context.Context, req *ports.ChargeRequest) (*domain.PaymentIntent, error) {
	return intentResult(m.Called(ctx, req))
}

func (m *MockGateway) CaptureCharge(ctx context.Context, intentID string, amountToCaptureMinor int64, idempotencyKey string) (*domain.PaymentIntent, error) {
	return intentResult(m.Called(ctx, intentID, amountToCaptureMinor, idempotencyKey))
}

func (m *MockGateway) CancelCharge(ctx context.Context, intentID string, idempotencyKey string) (*domain.PaymentIntent, error) {
	return intentResult(m.Called(ctx, intentID, idempotencyKey))
}

func (m *MockGateway) RefundCharge(ctx context.Context, chargeID string, amountMinor int64, idempotencyKey string) (*domain.Refund, error) {
	args := m.Called(ctx, chargeID, amountMinor, idempotencyKey)
	if v := args.Get(0); v != nil {
		return v.(*domain.Refund), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockGateway) RetrieveCharge(ctx context.Context, chargeID string) (*domain.Charge, error) {
	args := m.Called(ctx, chargeID)
	if v := args.Get(0); v != nil {
		return v.(*domain.Charge), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockGateway) RetrieveObject(ctx context.Context, intentID string) (*domain.PaymentIntent, error) {
	return intentResult(m.Called(ctx, intentID))
}

func (m *MockGateway) ConfirmObject(ctx context.Context, intentID string) (*domain.PaymentIntent, error) {
	return intentResult(m.Called(ctx, intentID))
}

func (m *MockGateway) ListInstruments(ctx context.Context, customerID, instrumentType string) ([]domain.Instrument, error) {
	args := m.Called(ctx, customerID, instrumentType)
	if v := args.Get(0); v != nil {
		return v.([]domain.Instrument), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockGateway) RetrieveCustomer(ctx context.Context, customerID string) (*domain.Customer, error) {
	args := m.Called(ctx, customerID)
	if v := args.Get(0); v != nil {
		return v.(*domain.Customer), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockGateway) RetrieveInstrument(ctx context.Context, kind domain.InstrumentKind, customerID, instrumentID string) (*domain.Instrument, error) {
	args := m.Called(ctx, kind, customerID, instrumentID)
	if v := args.Get(0); v != nil {
		return v.(*domain.Instrument), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockGateway) DetachInstrument(ctx context.Context, instrumentID string) error {
	return m.Called(ctx, instrumentID).Error(0)
}

func (m *MockGateway) CreateCheckoutSession(ctx context.Context, req *ports.CheckoutSessionRequest) (*domain.CheckoutSession, error) {
	args := m.Called(ctx, req)
	if v := args.Get(0); v != nil {
		return v.(*domain.CheckoutSession), args.Error(1)
	}
	return nil, args.Error(1)
}
