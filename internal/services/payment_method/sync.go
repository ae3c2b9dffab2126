package payment_method

import (
	"bytes"
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/kevin07696/gateway-reconciler/internal/domain"
	"github.com/kevin07696/gateway-reconciler/internal/domain/ports"
	"github.com/kevin07696/gateway-reconciler/pkg/observability"
)

// Structured payment method types listed on every sync, before legacy sources
var syncInstrumentTypes = []string{"card", "sepa_debit"}

type syncPass struct {
	accountID uuid.UUID
	tenantID  uuid.UUID
	existing  map[string]*domain.PaymentMethodRecord
	seen      map[string]bool

	added, updated, removed int
}

// Sync converges the mirror toward the gateway. The gateway is authoritative:
// unknown instruments are registered with the billing host and mirrored,
// known ones get their attributes refreshed, and mirror records with no live
// instrument are deactivated.
func (s *Service) Sync(ctx context.Context, accountID, tenantID uuid.UUID) ([]domain.PaymentMethodInfo, error) {
	ctx, cancel := s.timeouts.ServiceContext(ctx)
	defer cancel()

	recs, err := s.mirror.ListPaymentMethods(ctx, accountID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve existing payment methods: %w", err)
	}

	pass := &syncPass{
		accountID: accountID,
		tenantID:  tenantID,
		existing:  make(map[string]*domain.PaymentMethodRecord, len(recs)),
		seen:      make(map[string]bool),
	}
	for _, rec := range recs {
		pass.existing[rec.GatewayID] = rec
	}

	customerID, err := s.customerID(ctx, accountID, tenantID)
	if err != nil {
		return nil, err
	}

	for _, instrumentType := range syncInstrumentTypes {
		instruments, err := s.gateway.ListInstruments(ctx, customerID, instrumentType)
		if err != nil {
			return nil, fmt.Errorf("list %s payment methods: %w", instrumentType, err)
		}
		if err := s.apply(ctx, pass, instruments); err != nil {
			return nil, err
		}
	}

	customer, err := s.gateway.RetrieveCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("retrieve customer sources: %w", err)
	}
	if err := s.apply(ctx, pass, customer.Sources); err != nil {
		return nil, err
	}

	for gatewayID, rec := range pass.existing {
		s.logger.Info("Deactivating local payment method not found at gateway",
			ports.String("gateway_id", gatewayID),
			ports.String("payment_method_id", rec.PaymentMethodID.String()),
		)
		if err := s.host.DeactivatePaymentMethod(ctx, accountID, tenantID, rec.PaymentMethodID); err != nil {
			return nil, fmt.Errorf("deactivate payment method %s: %w", rec.PaymentMethodID, err)
		}
		if err := s.mirror.MarkDeleted(ctx, rec.PaymentMethodID, tenantID); err != nil {
			return nil, domain.WrapError(domain.ErrorCodeStorageError, "unable to deactivate payment method", err)
		}
		pass.removed++
	}

	observability.RecordPaymentMethodSync(pass.added, pass.updated, pass.removed)
	s.logger.Info("Payment methods synced",
		ports.String("account_id", accountID.String()),
		ports.Int("added", pass.added),
		ports.Int("updated", pass.updated),
		ports.Int("removed", pass.removed),
	)

	return s.list(ctx, accountID, tenantID)
}

func (s *Service) apply(ctx context.Context, pass *syncPass, instruments []domain.Instrument) error {
	for i := range instruments {
		instrument := &instruments[i]
		// Listings overlap: a card can come back both as a payment method and as a source
		if pass.seen[instrument.ID] {
			continue
		}
		pass.seen[instrument.ID] = true

		data, err := instrument.AdditionalData()
		if err != nil {
			return fmt.Errorf("instrument %s: %w", instrument.ID, err)
		}

		existing, ok := pass.existing[instrument.ID]
		if ok {
			delete(pass.existing, instrument.ID)
			changed, err := bagChanged(existing.AdditionalData, data)
			if err != nil {
				return err
			}
			if !changed {
				continue
			}
			s.logger.Info("Updating local payment method", ports.String("gateway_id", instrument.ID))
			if err := s.mirror.UpdatePaymentMethod(ctx, existing.PaymentMethodID, pass.tenantID, instrument.ID, data); err != nil {
				return domain.WrapError(domain.ErrorCodeStorageError, "unable to update payment method", err)
			}
			pass.updated++
			continue
		}

		s.logger.Info("Creating local payment method", ports.String("gateway_id", instrument.ID))
		paymentMethodID, err := s.host.RegisterPaymentMethod(ctx, pass.accountID, pass.tenantID, instrument.ID, false)
		if err != nil {
			return fmt.Errorf("register payment method %s: %w", instrument.ID, err)
		}
		if _, err := s.mirror.AddPaymentMethod(ctx, &domain.PaymentMethodRecord{
			AccountID:       pass.accountID,
			PaymentMethodID: paymentMethodID,
			TenantID:        pass.tenantID,
			GatewayID:       instrument.ID,
			AdditionalData:  data,
		}); err != nil {
			return domain.WrapError(domain.ErrorCodeStorageError, "unable to add payment method", err)
		}
		pass.added++
	}
	return nil
}

// bagChanged compares bags by their stored encoding
func bagChanged(stored, live domain.AdditionalData) (bool, error) {
	a, err := stored.Encode()
	if err != nil {
		return false, err
	}
	b, err := live.Encode()
	if err != nil {
		return false, err
	}
	return !bytes.Equal(a, b), nil
}
