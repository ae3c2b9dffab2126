// Package payment executes billing transactions against the gateway and
// records each outcome in the ledger.
package payment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kevin07696/gateway-reconciler/internal/domain"
	"github.com/kevin07696/gateway-reconciler/internal/domain/ports"
	servicesports "github.com/kevin07696/gateway-reconciler/internal/services/ports"
	"github.com/kevin07696/gateway-reconciler/pkg/observability"
	"github.com/kevin07696/gateway-reconciler/pkg/timeutil"
)

const statementDescriptorMaxLength = 22

// Instrument types offered on every initial charge
var paymentMethodTypes = []string{"card", "ach_debit"}

// Config holds the descriptors sent with every initial charge
type Config struct {
	Description         string
	StatementDescriptor string
}

// Service implements ports.TransactionExecutor
type Service struct {
	ledger  ports.TransactionLedger
	mirror  ports.PaymentMethodMirror
	gateway ports.GatewayAdapter
	host    ports.BillingHost
	config  Config
	clock   timeutil.Clock
	logger  ports.Logger
}

var _ servicesports.TransactionExecutor = (*Service)(nil)

// NewService creates a transaction executor
func NewService(
	ledger ports.TransactionLedger,
	mirror ports.PaymentMethodMirror,
	gateway ports.GatewayAdapter,
	host ports.BillingHost,
	config Config,
	clock timeutil.Clock,
	logger ports.Logger,
) *Service {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	return &Service{
		ledger:  ledger,
		mirror:  mirror,
		gateway: gateway,
		host:    host,
		config:  config,
		clock:   clock,
		logger:  logger,
	}
}

// Authorize places a hold on the instrument. When the payment's anchor came
// from a hosted page, the customer has already authorized there: the record
// is marked completed and no gateway call is made.
func (s *Service) Authorize(ctx context.Context, req *servicesports.PaymentRequest) (*domain.TransactionInfo, error) {
	start := time.Now()

	anchor, err := s.ledger.GetLatestAuthorizationOrPurchase(ctx, req.PaymentID, req.TenantID)
	if err != nil {
		return s.finish(domain.TransactionTypeAuthorize, req, start, nil, fmt.Errorf("load anchor: %w", err))
	}

	if anchor != nil && anchor.AdditionalData.Bool(domain.KeyFromHPP) {
		patch := domain.RecordPatch{
			Data: domain.AdditionalData{domain.KeyFromHPPCompletion: true}.Merge(req.Properties),
		}
		snapshot, err := s.ledger.UpdateAdditionalData(ctx, req.TransactionID, req.TenantID, patch)
		if err != nil {
			return s.finish(domain.TransactionTypeAuthorize, req, start, nil, fmt.Errorf("mark hosted page completion: %w", err))
		}
		if snapshot == nil {
			// Nothing recorded under this transaction id, so nothing was marked
			s.logger.Warn("Hosted page authorization has no record for this transaction, returning the anchor",
				ports.String("transaction_id", req.TransactionID.String()),
				ports.String("anchor_transaction_id", anchor.TransactionID.String()),
			)
			return s.finish(domain.TransactionTypeAuthorize, req, start, domain.NewTransactionInfo(anchor), nil)
		}
		return s.finish(domain.TransactionTypeAuthorize, req, start, domain.NewTransactionInfo(patch.Apply(snapshot)), nil)
	}

	if len(req.Properties) > 0 {
		if _, err := s.ledger.UpdateAdditionalData(ctx, req.TransactionID, req.TenantID, domain.RecordPatch{Data: req.Properties}); err != nil {
			return s.finish(domain.TransactionTypeAuthorize, req, start, nil, fmt.Errorf("update transaction properties: %w", err))
		}
	}

	info, err := s.initial(ctx, domain.TransactionTypeAuthorize, req)
	return s.finish(domain.TransactionTypeAuthorize, req, start, info, err)
}

// Purchase authorizes and captures. A transaction that already has a record
// (a hosted page completion got there first, or the caller retried) only has
// the supplied properties merged in.
func (s *Service) Purchase(ctx context.Context, req *servicesports.PaymentRequest) (*domain.TransactionInfo, error) {
	start := time.Now()

	patch := domain.RecordPatch{Data: req.Properties}
	snapshot, err := s.ledger.UpdateAdditionalData(ctx, req.TransactionID, req.TenantID, patch)
	if err != nil {
		return s.finish(domain.TransactionTypePurchase, req, start, nil,
			domain.WrapError(domain.ErrorCodeStorageError, "load transaction record", err))
	}
	if snapshot != nil {
		s.logger.Info("Transaction already recorded, skipping gateway",
			ports.String("transaction_id", req.TransactionID.String()),
			ports.String("gateway_id", snapshot.GatewayObjectID()),
		)
		return s.finish(domain.TransactionTypePurchase, req, start, domain.NewTransactionInfo(patch.Apply(snapshot)), nil)
	}

	info, err := s.initial(ctx, domain.TransactionTypePurchase, req)
	return s.finish(domain.TransactionTypePurchase, req, start, info, err)
}

// Capture captures part or all of the anchor authorization
func (s *Service) Capture(ctx context.Context, req *servicesports.PaymentRequest) (*domain.TransactionInfo, error) {
	start := time.Now()
	info, err := s.followUp(ctx, domain.TransactionTypeCapture, req, func(anchor *domain.TransactionRecord, intentID string) (*domain.PaymentIntent, error) {
		minor, err := amountMinor(req, anchor)
		if err != nil {
			return nil, err
		}
		return s.gateway.CaptureCharge(ctx, intentID, minor, req.TransactionID.String())
	})
	return s.finish(domain.TransactionTypeCapture, req, start, info, err)
}

// Void cancels the anchor authorization
func (s *Service) Void(ctx context.Context, req *servicesports.PaymentRequest) (*domain.TransactionInfo, error) {
	start := time.Now()
	info, err := s.followUp(ctx, domain.TransactionTypeVoid, req, func(_ *domain.TransactionRecord, intentID string) (*domain.PaymentIntent, error) {
		return s.gateway.CancelCharge(ctx, intentID, req.TransactionID.String())
	})
	return s.finish(domain.TransactionTypeVoid, req, start, info, err)
}

// Refund refunds the anchor's charge, then re-reads the intent so the new
// record reflects the intent rather than the refund object
func (s *Service) Refund(ctx context.Context, req *servicesports.PaymentRequest) (*domain.TransactionInfo, error) {
	start := time.Now()
	info, err := s.followUp(ctx, domain.TransactionTypeRefund, req, func(anchor *domain.TransactionRecord, intentID string) (*domain.PaymentIntent, error) {
		chargeID := anchor.FirstReferenceID()
		if chargeID == "" {
			return nil, domain.NewDomainError(domain.ErrorCodeUserError, "the authorization has no charge to refund")
		}
		minor, err := amountMinor(req, anchor)
		if err != nil {
			return nil, err
		}
		refund, err := s.gateway.RefundCharge(ctx, chargeID, minor, req.TransactionID.String())
		if err != nil {
			return nil, err
		}
		s.logger.Info("Refund created",
			ports.String("refund_id", refund.ID),
			ports.String("charge_id", chargeID),
			ports.String("status", refund.Status),
		)
		intent, err := s.gateway.RetrieveObject(ctx, intentID)
		if err != nil {
			s.logger.Warn("Refund created but the payment intent could not be re-read, nothing recorded",
				ports.String("refund_id", refund.ID),
				ports.String("charge_id", chargeID),
				ports.String("gateway_id", intentID),
				ports.Err(err),
			)
			return nil, err
		}
		return intent, nil
	})
	return s.finish(domain.TransactionTypeRefund, req, start, info, err)
}

// Credit is not supported
func (s *Service) Credit(ctx context.Context, req *servicesports.PaymentRequest) (*domain.TransactionInfo, error) {
	return s.finish(domain.TransactionTypeCredit, req, time.Now(), nil, domain.ErrNotImplemented)
}

func (s *Service) finish(txType domain.TransactionType, req *servicesports.PaymentRequest, start time.Time, info *domain.TransactionInfo, err error) (*domain.TransactionInfo, error) {
	elapsed := time.Since(start)
	if err != nil {
		code := string(domain.GetErrorCode(err))
		if code == "" {
			code = string(domain.ErrorCodeInternalError)
		}
		observability.RecordPaymentOperation(string(txType), code, elapsed.Seconds())
		s.logger.Error("Payment transaction failed",
			ports.String("transaction_type", string(txType)),
			ports.String("payment_id", req.PaymentID.String()),
			ports.String("transaction_id", req.TransactionID.String()),
			ports.Err(err),
		)
		return nil, err
	}

	observability.RecordPaymentOperation(string(txType), string(info.Status), elapsed.Seconds())
	s.logger.Info("Payment transaction executed",
		ports.String("transaction_type", string(txType)),
		ports.String("payment_id", req.PaymentID.String()),
		ports.String("transaction_id", req.TransactionID.String()),
		ports.String("gateway_id", info.GatewayObjectID()),
		ports.String("status", string(info.Status)),
		ports.Duration("elapsed", elapsed),
	)
	return info, nil
}

func amountMinor(req *servicesports.PaymentRequest, anchor *domain.TransactionRecord) (int64, error) {
	if req.Amount == nil {
		return 0, domain.NewDomainError(domain.ErrorCodeUserError, "amount is required")
	}
	currency := req.Currency
	if currency == "" && anchor != nil && anchor.Currency != nil {
		currency = *anchor.Currency
	}
	return domain.ToMinorUnits(*req.Amount, currency), nil
}

func truncateDescriptor(s string) string {
	if len(s) <= statementDescriptorMaxLength {
		return s
	}
	return s[:statementDescriptorMaxLength-3] + "..."
}

func skipGateway(properties domain.AdditionalData) bool {
	return properties.Bool("skipGw") || properties.Bool("skip_gw")
}

func currencyPtr(currency string) *string {
	if currency == "" {
		return nil
	}
	c := strings.ToUpper(currency)
	return &c
}
