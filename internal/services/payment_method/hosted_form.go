package payment_method

import (
	"context"
	"fmt"

	"github.com/kevin07696/gateway-reconciler/internal/domain"
	"github.com/kevin07696/gateway-reconciler/internal/domain/ports"
	servicesports "github.com/kevin07696/gateway-reconciler/internal/services/ports"
)

const (
	defaultLineItemName     = "Authorization charge"
	defaultLineItemAmount   = "100"
	defaultLineItemQuantity = "1"
	defaultCurrency         = "USD"
	defaultSuccessURL       = "https://example.com/success"
	defaultCancelURL        = "https://example.com/cancel"
)

// BuildFormDescriptor opens a hosted checkout session that authorizes a small
// amount to collect an instrument. The session is recorded so AddPaymentMethod
// can later complete it by session id.
func (s *Service) BuildFormDescriptor(ctx context.Context, req *servicesports.FormDescriptorRequest) (*servicesports.FormDescriptor, error) {
	account, err := s.host.GetAccount(ctx, req.AccountID, req.TenantID)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	currency := account.Currency
	if currency == "" {
		currency = defaultCurrency
	}

	customerID, err := s.host.GetCustomField(ctx, req.AccountID, req.TenantID, ports.CustomerIDCustomField)
	if err != nil {
		return nil, fmt.Errorf("load gateway customer id: %w", err)
	}

	field := func(name, def string) string {
		if v, ok := req.Properties[name]; ok && v != "" {
			return v
		}
		return def
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, &ports.CheckoutSessionRequest{
		CustomerID:         customerID,
		PaymentMethodTypes: []string{"card"},
		LineItems: []ports.LineItem{{
			Name:        field("line_item_name", defaultLineItemName),
			AmountMinor: field("line_item_amount", defaultLineItemAmount),
			Currency:    field("line_item_currency", currency),
			Quantity:    field("line_item_quantity", defaultLineItemQuantity),
		}},
		CaptureMethod: ports.CaptureMethodManual,
		SuccessURL:    field("success_url", defaultSuccessURL),
		CancelURL:     field("cancel_url", defaultCancelURL),
		Metadata:      map[string]string{"kbAccountId": req.AccountID.String()},
	})
	if err != nil {
		return nil, fmt.Errorf("unable to create checkout session: %w", err)
	}

	data := session.AdditionalData()
	if _, err := s.hpp.AddHppRequest(ctx, &domain.HppRequestRecord{
		AccountID:      req.AccountID,
		PaymentID:      req.PaymentID,
		TransactionID:  req.TransactionID,
		TenantID:       req.TenantID,
		SessionID:      session.ID,
		AdditionalData: data,
		CreatedAt:      s.clock.Now(),
	}); err != nil {
		return nil, domain.WrapError(domain.ErrorCodeStorageError, "unable to save checkout session", err)
	}

	s.logger.Info("Checkout session created",
		ports.String("account_id", req.AccountID.String()),
		ports.String("session_id", session.ID),
		ports.String("gateway_id", session.PaymentIntentID),
	)

	return &servicesports.FormDescriptor{
		AccountID:  req.AccountID,
		SessionID:  session.ID,
		URL:        session.URL,
		Properties: data,
	}, nil
}
