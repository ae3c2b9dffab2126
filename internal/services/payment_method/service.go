// Package payment_method keeps the local mirror of gateway payment
// instruments in step with the gateway and the billing host.
package payment_method

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/kevin07696/gateway-reconciler/internal/domain"
	"github.com/kevin07696/gateway-reconciler/internal/domain/ports"
	servicesports "github.com/kevin07696/gateway-reconciler/internal/services/ports"
	"github.com/kevin07696/gateway-reconciler/pkg/resilience"
	"github.com/kevin07696/gateway-reconciler/pkg/timeutil"
)

// Service implements ports.PaymentMethodService
type Service struct {
	mirror   ports.PaymentMethodMirror
	hpp      ports.HppRequestStore
	gateway  ports.GatewayAdapter
	host     ports.BillingHost
	clock    timeutil.Clock
	timeouts *resilience.TimeoutConfig
	logger   ports.Logger
}

var _ servicesports.PaymentMethodService = (*Service)(nil)

// NewService creates a payment method service
func NewService(
	mirror ports.PaymentMethodMirror,
	hpp ports.HppRequestStore,
	gateway ports.GatewayAdapter,
	host ports.BillingHost,
	clock timeutil.Clock,
	timeouts *resilience.TimeoutConfig,
	logger ports.Logger,
) *Service {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	if timeouts == nil {
		timeouts = resilience.DefaultTimeoutConfig()
	}
	return &Service{
		mirror:   mirror,
		hpp:      hpp,
		gateway:  gateway,
		host:     host,
		clock:    clock,
		timeouts: timeouts,
		logger:   logger,
	}
}

// AddPaymentMethod mirrors a gateway instrument. With a session id the
// instrument comes from a completed hosted checkout: the authorization hold
// placed by the checkout is released and the gateway customer is mapped to
// the account.
func (s *Service) AddPaymentMethod(ctx context.Context, req *servicesports.AddPaymentMethodRequest) (*domain.PaymentMethodRecord, error) {
	externalID := req.ExternalID
	kind := req.Kind
	if kind == "" {
		kind = domain.InstrumentKindPaymentMethod
	}

	if req.SessionID != "" {
		var err error
		if externalID, err = s.completeSession(ctx, req); err != nil {
			return nil, err
		}
		kind = domain.InstrumentKindPaymentMethod
	}
	if externalID == "" {
		return nil, domain.ErrMissingInstrumentRef
	}

	var customerID string
	if kind == domain.InstrumentKindBankAccount {
		var err error
		if customerID, err = s.customerID(ctx, req.AccountID, req.TenantID); err != nil {
			return nil, err
		}
	}

	instrument, err := s.gateway.RetrieveInstrument(ctx, kind, customerID, externalID)
	if err != nil {
		return nil, fmt.Errorf("retrieve instrument %s: %w", externalID, err)
	}
	data, err := instrument.AdditionalData()
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeUserError, "unsupported payment method", err)
	}

	rec, err := s.mirror.AddPaymentMethod(ctx, &domain.PaymentMethodRecord{
		AccountID:       req.AccountID,
		PaymentMethodID: req.PaymentMethodID,
		TenantID:        req.TenantID,
		GatewayID:       instrument.ID,
		AdditionalData:  data,
	})
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeStorageError, "unable to add payment method", err)
	}

	s.logger.Info("Payment method added",
		ports.String("account_id", req.AccountID.String()),
		ports.String("payment_method_id", req.PaymentMethodID.String()),
		ports.String("gateway_id", instrument.ID),
		ports.String("kind", string(kind)),
	)
	return rec, nil
}

func (s *Service) completeSession(ctx context.Context, req *servicesports.AddPaymentMethodRequest) (string, error) {
	hpp, err := s.hpp.GetHppRequest(ctx, req.SessionID, req.TenantID)
	if err != nil {
		return "", err
	}
	intentID := hpp.AdditionalData.StringOr(domain.KeyPaymentIntentID, "")
	if intentID == "" {
		return "", domain.NewDomainError(domain.ErrorCodeUserError,
			fmt.Sprintf("session %s has no payment intent", req.SessionID))
	}

	intent, err := s.gateway.RetrieveObject(ctx, intentID)
	if err != nil {
		return "", fmt.Errorf("retrieve session payment intent: %w", err)
	}
	if intent.Status != domain.IntentStatusRequiresCapture {
		return "", domain.NewDomainError(domain.ErrorCodeUserError,
			fmt.Sprintf("unable to add payment method: payment intent is %s", intent.Status))
	}

	// The checkout only authorized to collect the instrument
	if _, err := s.gateway.CancelCharge(ctx, intentID, ""); err != nil {
		return "", fmt.Errorf("release checkout authorization: %w", err)
	}

	existing, err := s.host.GetCustomField(ctx, req.AccountID, req.TenantID, ports.CustomerIDCustomField)
	if err != nil {
		return "", fmt.Errorf("load gateway customer id: %w", err)
	}
	switch {
	case existing == "":
		if err := s.host.AddCustomField(ctx, req.AccountID, req.TenantID, ports.CustomerIDCustomField, intent.CustomerID); err != nil {
			return "", fmt.Errorf("map gateway customer: %w", err)
		}
	case existing != intent.CustomerID:
		return "", domain.NewDomainError(domain.ErrorCodeUserError,
			fmt.Sprintf("unable to add payment method: payment intent customer is %s but account already mapped to %s", intent.CustomerID, existing))
	}

	return intent.PaymentMethodID, nil
}

// DeletePaymentMethod detaches the instrument at the gateway, then marks the
// mirror record deleted
func (s *Service) DeletePaymentMethod(ctx context.Context, accountID, paymentMethodID, tenantID uuid.UUID) error {
	rec, err := s.mirror.GetPaymentMethod(ctx, paymentMethodID, tenantID)
	if err != nil {
		return err
	}

	if err := s.gateway.DetachInstrument(ctx, rec.GatewayID); err != nil {
		return fmt.Errorf("detach %s: %w", rec.GatewayID, err)
	}
	if err := s.mirror.MarkDeleted(ctx, paymentMethodID, tenantID); err != nil {
		return domain.WrapError(domain.ErrorCodeStorageError, "unable to delete payment method", err)
	}

	s.logger.Info("Payment method deleted",
		ports.String("account_id", accountID.String()),
		ports.String("payment_method_id", paymentMethodID.String()),
		ports.String("gateway_id", rec.GatewayID),
	)
	return nil
}

func (s *Service) GetPaymentMethods(ctx context.Context, accountID, tenantID uuid.UUID, refresh bool) ([]domain.PaymentMethodInfo, error) {
	if refresh {
		return s.Sync(ctx, accountID, tenantID)
	}
	return s.list(ctx, accountID, tenantID)
}

// GetPaymentMethodDetail returns the mirrored attributes. An unknown id
// yields a stub carrying only the id.
func (s *Service) GetPaymentMethodDetail(ctx context.Context, accountID, paymentMethodID, tenantID uuid.UUID) (*domain.PaymentMethodDetail, error) {
	rec, err := s.mirror.GetPaymentMethod(ctx, paymentMethodID, tenantID)
	if errors.Is(err, domain.ErrPaymentMethodNotFound) {
		return &domain.PaymentMethodDetail{PaymentMethodID: paymentMethodID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &domain.PaymentMethodDetail{
		PaymentMethodID: rec.PaymentMethodID,
		ExternalID:      rec.GatewayID,
		Properties:      rec.AdditionalData,
	}, nil
}

func (s *Service) ProcessNotification(ctx context.Context, payload []byte, tenantID uuid.UUID) error {
	return domain.ErrNotImplemented
}

func (s *Service) list(ctx context.Context, accountID, tenantID uuid.UUID) ([]domain.PaymentMethodInfo, error) {
	recs, err := s.mirror.ListPaymentMethods(ctx, accountID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list payment methods: %w", err)
	}
	infos := make([]domain.PaymentMethodInfo, 0, len(recs))
	for _, rec := range recs {
		infos = append(infos, rec.Info())
	}
	return infos, nil
}

func (s *Service) customerID(ctx context.Context, accountID, tenantID uuid.UUID) (string, error) {
	customerID, err := s.host.GetCustomField(ctx, accountID, tenantID, ports.CustomerIDCustomField)
	if err != nil {
		return "", fmt.Errorf("load gateway customer id: %w", err)
	}
	if customerID == "" {
		return "", domain.ErrMissingCustomerID
	}
	return customerID, nil
}
