package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/gateway-reconciler/internal/domain"
	"github.com/kevin07696/gateway-reconciler/internal/domain/ports"
)

// Mirror is an in-memory ports.PaymentMethodMirror
type Mirror struct {
	mu      sync.Mutex
	records []*domain.PaymentMethodRecord
	nextID  int64
	now     func() time.Time
}

var _ ports.PaymentMethodMirror = (*Mirror)(nil)

// NewMirror creates an empty mirror
func NewMirror(now func() time.Time) *Mirror {
	return &Mirror{now: now}
}

func (m *Mirror) AddPaymentMethod(_ context.Context, pm *domain.PaymentMethodRecord) (*domain.PaymentMethodRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.records {
		if existing.IsDeleted || existing.TenantID != pm.TenantID {
			continue
		}
		if existing.PaymentMethodID == pm.PaymentMethodID || existing.GatewayID == pm.GatewayID {
			return nil, fmt.Errorf("duplicate active payment method %s", pm.GatewayID)
		}
	}

	data, err := pm.AdditionalData.Normalize()
	if err != nil {
		return nil, err
	}
	m.nextID++
	rec := *pm
	rec.RecordID = m.nextID
	rec.AdditionalData = data
	rec.IsDeleted = false
	rec.CreatedAt = m.now()
	rec.UpdatedAt = rec.CreatedAt
	m.records = append(m.records, &rec)
	out := rec
	return &out, nil
}

func (m *Mirror) UpdatePaymentMethod(_ context.Context, paymentMethodID, tenantID uuid.UUID, gatewayID string, data domain.AdditionalData) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.active(paymentMethodID, tenantID)
	if rec == nil {
		return domain.ErrPaymentMethodNotFound
	}
	normalized, err := data.Normalize()
	if err != nil {
		return err
	}
	rec.GatewayID = gatewayID
	rec.AdditionalData = normalized
	rec.UpdatedAt = m.now()
	return nil
}

func (m *Mirror) GetPaymentMethod(_ context.Context, paymentMethodID, tenantID uuid.UUID) (*domain.PaymentMethodRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.active(paymentMethodID, tenantID)
	if rec == nil {
		return nil, domain.ErrPaymentMethodNotFound
	}
	out := *rec
	return &out, nil
}

func (m *Mirror) ListPaymentMethods(_ context.Context, accountID, tenantID uuid.UUID) ([]*domain.PaymentMethodRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*domain.PaymentMethodRecord, 0)
	for _, rec := range m.records {
		if !rec.IsDeleted && rec.AccountID == accountID && rec.TenantID == tenantID {
			c := *rec
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *Mirror) MarkDeleted(_ context.Context, paymentMethodID, tenantID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.active(paymentMethodID, tenantID)
	if rec == nil {
		return domain.ErrPaymentMethodNotFound
	}
	rec.IsDeleted = true
	rec.UpdatedAt = m.now()
	return nil
}

func (m *Mirror) active(paymentMethodID, tenantID uuid.UUID) *domain.PaymentMethodRecord {
	for _, rec := range m.records {
		if !rec.IsDeleted && rec.PaymentMethodID == paymentMethodID && rec.TenantID == tenantID {
			return rec
		}
	}
	return nil
}

// HppStore is an in-memory ports.HppRequestStore
type HppStore struct {
	mu      sync.Mutex
	records []*domain.HppRequestRecord
	now     func() time.Time
}

var _ ports.HppRequestStore = (*HppStore)(nil)

// NewHppStore creates an empty store
func NewHppStore(now func() time.Time) *HppStore {
	return &HppStore{now: now}
}

func (s *HppStore) AddHppRequest(_ context.Context, req *domain.HppRequestRecord) (*domain.HppRequestRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := req.AdditionalData.Normalize()
	if err != nil {
		return nil, err
	}
	rec := *req
	rec.RecordID = int64(len(s.records) + 1)
	rec.AdditionalData = data
	rec.CreatedAt = s.now()
	s.records = append(s.records, &rec)
	out := rec
	return &out, nil
}

func (s *HppStore) GetHppRequest(_ context.Context, sessionID string, tenantID uuid.UUID) (*domain.HppRequestRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.records) - 1; i >= 0; i-- {
		if s.records[i].SessionID == sessionID && s.records[i].TenantID == tenantID {
			out := *s.records[i]
			return &out, nil
		}
	}
	return nil, domain.ErrHppRequestNotFound
}
