// Package memstore holds in-memory implementations of the persistence ports
// that behave like the postgres repositories: insertion order, merge under
// lock and JSON-normalized additional data.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/gateway-reconciler/internal/domain"
	"github.com/kevin07696/gateway-reconciler/internal/domain/ports"
)

// Ledger is an in-memory ports.TransactionLedger
type Ledger struct {
	mu      sync.Mutex
	records []*domain.TransactionRecord
	nextID  int64
	now     func() time.Time

	// AddErr, when set, fails every AddRecord
	AddErr error
	// UpdateErr, when set, fails every UpdateAdditionalData
	UpdateErr error
	// Adds counts successful inserts
	Adds int
}

var _ ports.TransactionLedger = (*Ledger)(nil)

// NewLedger creates an empty ledger stamping records with now
func NewLedger(now func() time.Time) *Ledger {
	return &Ledger{now: now}
}

func (l *Ledger) AddRecord(_ context.Context, params ports.AddRecordParams) (*domain.TransactionRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.AddErr != nil {
		return nil, l.AddErr
	}

	data, err := params.AdditionalData.Normalize()
	if err != nil {
		return nil, err
	}
	createdAt := params.CreatedAt
	if createdAt.IsZero() {
		createdAt = l.now()
	}

	l.nextID++
	rec := &domain.TransactionRecord{
		RecordID:       l.nextID,
		AccountID:      params.AccountID,
		PaymentID:      params.PaymentID,
		TransactionID:  params.TransactionID,
		TenantID:       params.TenantID,
		GatewayID:      params.GatewayID,
		Type:           params.Type,
		Amount:         params.Amount,
		Currency:       params.Currency,
		StatusOverride: params.StatusOverride,
		AdditionalData: data,
		CreatedAt:      createdAt.UTC(),
	}
	l.records = append(l.records, rec)
	l.Adds++
	return clone(rec), nil
}

func (l *Ledger) UpdateAdditionalData(_ context.Context, transactionID, tenantID uuid.UUID, patch domain.RecordPatch) (*domain.TransactionRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.UpdateErr != nil {
		return nil, l.UpdateErr
	}

	for i := len(l.records) - 1; i >= 0; i-- {
		rec := l.records[i]
		if rec.TransactionID != transactionID || rec.TenantID != tenantID {
			continue
		}
		snapshot := clone(rec)
		updated := patch.Apply(rec)
		data, err := updated.AdditionalData.Normalize()
		if err != nil {
			return nil, err
		}
		updated.AdditionalData = data
		l.records[i] = updated
		return snapshot, nil
	}
	return nil, nil
}

func (l *Ledger) GetLatestAuthorizationOrPurchase(_ context.Context, paymentID, tenantID uuid.UUID) (*domain.TransactionRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := len(l.records) - 1; i >= 0; i-- {
		rec := l.records[i]
		if rec.PaymentID == paymentID && rec.TenantID == tenantID && rec.Type.IsAnchor() {
			return clone(rec), nil
		}
	}
	return nil, nil
}

func (l *Ledger) ListByPayment(_ context.Context, paymentID, tenantID uuid.UUID) ([]*domain.TransactionRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]*domain.TransactionRecord, 0)
	for _, rec := range l.records {
		if rec.PaymentID == paymentID && rec.TenantID == tenantID {
			out = append(out, clone(rec))
		}
	}
	return out, nil
}

// Seed inserts rec as-is, keeping its CreatedAt
func (l *Ledger) Seed(rec *domain.TransactionRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	c := clone(rec)
	c.RecordID = l.nextID
	l.records = append(l.records, c)
}

func clone(rec *domain.TransactionRecord) *domain.TransactionRecord {
	c := *rec
	c.AdditionalData = rec.AdditionalData.Merge(nil)
	if rec.StatusOverride != nil {
		s := *rec.StatusOverride
		c.StatusOverride = &s
	}
	return &c
}
