package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/kevin07696/gateway-reconciler/internal/domain"
	servicesports "github.com/kevin07696/gateway-reconciler/internal/services/ports"
	"github.com/stretchr/testify/mock"
)

// MockTransactionExecutor is a testify mock of ports.TransactionExecutor
type MockTransactionExecutor struct {
	mock.Mock
}

var _ servicesports.TransactionExecutor = (*MockTransactionExecutor)(nil)

func infoResult(args mock.Arguments) (*domain.TransactionInfo, error) {
	if v := args.Get(0); v != nil {
		return v.(*domain.TransactionInfo), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTransactionExecutor) Authorize(ctx context.Context, req *servicesports.PaymentRequest) (*domain.TransactionInfo, error) {
	return infoResult(m.Called(ctx, req))
}

func (m *MockTransactionExecutor) Capture(ctx context.Context, req *servicesports.PaymentRequest) (*domain.TransactionInfo, error) {
	return infoResult(m.Called(ctx, req))
}

func (m *MockTransactionExecutor) Purchase(ctx context.Context, req *servicesports.PaymentRequest) (*domain.TransactionInfo, error) {
	return infoResult(m.Called(ctx, req))
}

func (m *MockTransactionExecutor) Void(ctx context.Context, req *servicesports.PaymentRequest) (*domain.TransactionInfo, error) {
	return infoResult(m.Called(ctx, req))
}

func (m *MockTransactionExecutor) Refund(ctx context.Context, req *servicesports.PaymentRequest) (*domain.TransactionInfo, error) {
	return infoResult(m.Called(ctx, req))
}

func (m *MockTransactionExecutor) Credit(ctx context.Context, req *servicesports.PaymentRequest) (*domain.TransactionInfo, error) {
	return infoResult(m.Called(ctx, req))
}

// MockTransactionInfoReader is a testify mock of ports.TransactionInfoReader
type MockTransactionInfoReader struct {
	mock.Mock
}

func (m *MockTransactionInfoReader) GetTransactionInfo(ctx context.Context, accountID, paymentID, tenantID uuid.UUID) ([]*domain.TransactionInfo, error) {
	args := m.Called(ctx, accountID, paymentID, tenantID)
	if v := args.Get(0); v != nil {
		return v.([]*domain.TransactionInfo), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockPaymentMethodService is a testify mock of ports.PaymentMethodService
type MockPaymentMethodService struct {
	mock.Mock
}

var _ servicesports.PaymentMethodService = (*MockPaymentMethodService)(nil)

func (m *MockPaymentMethodService) AddPaymentMethod(ctx context.Context, req *servicesports.AddPaymentMethodRequest) (*domain.PaymentMethodRecord, error) {
	args := m.Called(ctx, req)
	if v := args.Get(0); v != nil {
		return v.(*domain.PaymentMethodRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPaymentMethodService) DeletePaymentMethod(ctx context.Context, accountID, paymentMethodID, tenantID uuid.UUID) error {
	return m.Called(ctx, accountID, paymentMethodID, tenantID).Error(0)
}

func (m *MockPaymentMethodService) GetPaymentMethods(ctx context.Context, accountID, tenantID uuid.UUID, refresh bool) ([]domain.PaymentMethodInfo, error) {
	args := m.Called(ctx, accountID, tenantID, refresh)
	if v := args.Get(0); v != nil {
		return v.([]domain.PaymentMethodInfo), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPaymentMethodService) GetPaymentMethodDetail(ctx context.Context, accountID, paymentMethodID, tenantID uuid.UUID) (*domain.PaymentMethodDetail, error) {
	args := m.Called(ctx, accountID, paymentMethodID, tenantID)
	if v := args.Get(0); v != nil {
		return v.(*domain.PaymentMethodDetail), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPaymentMethodService) Sync(ctx context.Context, accountID, tenantID uuid.UUID) ([]domain.PaymentMethodInfo, error) {
	args := m.Called(ctx, accountID, tenantID)
	if v := args.Get(0); v != nil {
		return v.([]domain.PaymentMethodInfo), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPaymentMethodService) BuildFormDescriptor(ctx context.Context, req *servicesports.FormDescriptorRequest) (*servicesports.FormDescriptor, error) {
	args := m.Called(ctx, req)
	if v := args.Get(0); v != nil {
		return v.(*servicesports.FormDescriptor), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPaymentMethodService) ProcessNotification(ctx context.Context, payload []byte, tenantID uuid.UUID) error {
	return m.Called(ctx, payload, tenantID).Error(0)
}
