package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/kevin07696/gateway-reconciler/internal/domain"
	"github.com/kevin07696/gateway-reconciler/internal/domain/ports"
	servicesports "github.com/kevin07696/gateway-reconciler/internal/services/ports"
)

// initial creates and confirms a new payment intent for an AUTHORIZE or
// PURCHASE and records whatever came back
func (s *Service) initial(ctx context.Context, txType domain.TransactionType, req *servicesports.PaymentRequest) (*domain.TransactionInfo, error) {
	if skipGateway(req.Properties) {
		return nil, domain.ErrNotImplemented
	}
	if req.Amount == nil {
		return nil, domain.NewDomainError(domain.ErrorCodeUserError, "amount is required")
	}

	customerID, err := s.host.GetCustomField(ctx, req.AccountID, req.TenantID, ports.CustomerIDCustomField)
	if err != nil {
		return nil, fmt.Errorf("load gateway customer id: %w", err)
	}
	if customerID == "" {
		return nil, domain.ErrMissingCustomerID
	}

	pm, err := s.mirror.GetPaymentMethod(ctx, req.PaymentMethodID, req.TenantID)
	if errors.Is(err, domain.ErrPaymentMethodNotFound) {
		return nil, domain.WrapError(domain.ErrorCodeUserError, "unknown payment method", err).
			WithDetail("payment_method_id", req.PaymentMethodID.String())
	}
	if err != nil {
		return nil, err
	}

	captureMethod := ports.CaptureMethodAutomatic
	if txType == domain.TransactionTypeAuthorize {
		captureMethod = ports.CaptureMethodManual
	}

	charge := &ports.ChargeRequest{
		AmountMinor:         domain.ToMinorUnits(*req.Amount, req.Currency),
		Currency:            req.Currency,
		CaptureMethod:       captureMethod,
		CustomerID:          customerID,
		InstrumentID:        pm.GatewayID,
		InstrumentKind:      pm.Kind(),
		PaymentMethodTypes:  paymentMethodTypes,
		Description:         s.config.Description,
		StatementDescriptor: truncateDescriptor(s.config.StatementDescriptor),
		Metadata: map[string]string{
			"kbAccountId":       req.AccountID.String(),
			"kbPaymentId":       req.PaymentID.String(),
			"kbTransactionId":   req.TransactionID.String(),
			"kbPaymentMethodId": req.PaymentMethodID.String(),
		},
		IdempotencyKey: req.TransactionID.String(),
	}

	intent, err := s.gateway.CreateAndConfirmCharge(ctx, charge)
	result := domain.NewGatewayResult(intent, err)

	switch result.Kind {
	case domain.ResultOK:
		return s.record(ctx, txType, req, result.Intent)

	case domain.ResultTransport:
		// Recorded so the billing host sees the attempt. A connect failure never
		// reached the gateway and is final; an ambiguous one stays UNDEFINED
		// until an operator or a retry resolves it.
		override := result.Transport.Status()
		rec, err := s.ledger.AddRecord(ctx, s.recordParams(txType, req, "", &override, domain.AdditionalData{
			domain.KeyMessage: result.Err.Error(),
			domain.KeyCode:    string(result.Transport),
		}))
		if err != nil {
			return nil, domain.WrapError(domain.ErrorCodeStorageError, "failed to record gateway transport failure", err)
		}
		s.logger.Warn("Gateway unreachable, attempt recorded",
			ports.String("transaction_id", req.TransactionID.String()),
			ports.String("transport", string(result.Transport)),
			ports.Err(result.Err),
		)
		return domain.NewTransactionInfo(rec), nil

	case domain.ResultDeclined:
		gwErr := result.Declined
		if gwErr.PaymentIntentID != "" {
			// The intent exists at the gateway with its failed charge; record it
			// so the decline is visible like any other outcome.
			declined, ferr := s.gateway.RetrieveObject(ctx, gwErr.PaymentIntentID)
			if ferr == nil {
				return s.record(ctx, txType, req, declined)
			}
			s.logger.Warn("Failed to fetch declined payment intent",
				ports.String("gateway_id", gwErr.PaymentIntentID),
				ports.Err(ferr),
			)
		}
		return nil, gatewayFailure(gwErr)

	default:
		return nil, fmt.Errorf("create charge: %w", result.Err)
	}
}

// followUp runs a gateway operation against the payment's anchor intent and
// records the resulting intent state
func (s *Service) followUp(
	ctx context.Context,
	txType domain.TransactionType,
	req *servicesports.PaymentRequest,
	call func(anchor *domain.TransactionRecord, intentID string) (*domain.PaymentIntent, error),
) (*domain.TransactionInfo, error) {
	anchor, err := s.ledger.GetLatestAuthorizationOrPurchase(ctx, req.PaymentID, req.TenantID)
	if err != nil {
		return nil, fmt.Errorf("load anchor: %w", err)
	}
	if anchor == nil {
		return nil, domain.ErrNoAnchor
	}
	intentID := anchor.GatewayObjectID()
	if intentID == "" {
		return nil, domain.NewDomainError(domain.ErrorCodeUserError, "the authorization never reached the gateway").
			WithDetail("anchor_transaction_id", anchor.TransactionID.String())
	}
	if skipGateway(req.Properties) {
		return nil, domain.ErrNotImplemented
	}
	if req.Currency == "" && anchor.Currency != nil {
		withCurrency := *req
		withCurrency.Currency = *anchor.Currency
		req = &withCurrency
	}

	intent, err := call(anchor, intentID)
	if err != nil {
		return nil, classify(err)
	}
	return s.record(ctx, txType, req, intent)
}

// record appends the intent state to the ledger. A failure here means the
// gateway moved money we have no trace of.
func (s *Service) record(ctx context.Context, txType domain.TransactionType, req *servicesports.PaymentRequest, intent *domain.PaymentIntent) (*domain.TransactionInfo, error) {
	rec, err := s.ledger.AddRecord(ctx, s.recordParams(txType, req, intent.ID, nil, intent.AdditionalData()))
	if err != nil {
		return nil, domain.NewUnrecordedPaymentError(intent, err)
	}
	return domain.NewTransactionInfo(rec), nil
}

func (s *Service) recordParams(
	txType domain.TransactionType,
	req *servicesports.PaymentRequest,
	gatewayID string,
	override *domain.PaymentStatus,
	data domain.AdditionalData,
) ports.AddRecordParams {
	return ports.AddRecordParams{
		AccountID:      req.AccountID,
		PaymentID:      req.PaymentID,
		TransactionID:  req.TransactionID,
		TenantID:       req.TenantID,
		Type:           txType,
		Amount:         req.Amount,
		Currency:       currencyPtr(req.Currency),
		GatewayID:      gatewayID,
		StatusOverride: override,
		AdditionalData: data.Merge(req.Properties),
		CreatedAt:      s.clock.Now(),
	}
}

func classify(err error) error {
	result := domain.NewGatewayResult(nil, err)
	switch result.Kind {
	case domain.ResultTransport:
		return domain.WrapError(domain.ErrorCodeGatewayUnavailable, "payment gateway unreachable", err).
			WithDetail(domain.KeyCode, string(result.Transport))
	case domain.ResultDeclined:
		return gatewayFailure(result.Declined)
	}
	return err
}

func gatewayFailure(gwErr *domain.GatewayError) *domain.DomainError {
	code := domain.ErrorCodeGatewayDeclined
	if gwErr.StatusCode >= http.StatusInternalServerError {
		code = domain.ErrorCodeGatewayUnavailable
	}
	derr := domain.WrapError(code, gwErr.Message, gwErr)
	for k, v := range gwErr.AdditionalData() {
		derr.WithDetail(k, v)
	}
	return derr
}
