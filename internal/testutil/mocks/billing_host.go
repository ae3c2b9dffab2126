package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/kevin07696/gateway-reconciler/internal/domain/ports"
	"github.com/stretchr/testify/mock"
)

// MockBillingHost is a testify mock of ports.BillingHost
type MockBillingHost struct {
	mock.Mock
}

var _ ports.BillingHost = (*MockBillingHost)(nil)

func (m *MockBillingHost) GetAccount(ctx context.Context, accountID, tenantID uuid.UUID) (*ports.Account, error) {
	args := m.Called(ctx, accountID, tenantID)
	if v := args.Get(0); v != nil {
		return v.(*ports.Account), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBillingHost) GetCustomField(ctx context.Context, accountID, tenantID uuid.UUID, name string) (string, error) {
	args := m.Called(ctx, accountID, tenantID, name)
	return args.String(0), args.Error(1)
}

func (m *MockBillingHost) AddCustomField(ctx context.Context, accountID, tenantID uuid.UUID, name, value string) error {
	return m.Called(ctx, accountID, tenantID, name, value).Error(0)
}

func (m *MockBillingHost) RegisterPaymentMethod(ctx context.Context, accountID, tenantID uuid.UUID, externalID string, isDefault bool) (uuid.UUID, error) {
	args := m.Called(ctx, accountID, tenantID, externalID, isDefault)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockBillingHost) DeactivatePaymentMethod(ctx context.Context, accountID, tenantID, paymentMethodID uuid.UUID) error {
	return m.Called(ctx, accountID, tenantID, paymentMethodID).Error(0)
}
