package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kevin07696/gateway-reconciler/internal/domain"
	"github.com/kevin07696/gateway-reconciler/internal/domain/ports"
)

const hppRequestColumns = `record_id, kb_account_id, kb_payment_id, kb_payment_transaction_id, kb_tenant_id,
	session_id, additional_data, created_date`

const (
	insertHppRequestSQL = `INSERT INTO stripe_hpp_requests (
	kb_account_id, kb_payment_id, kb_payment_transaction_id, kb_tenant_id, session_id, additional_data
) VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + hppRequestColumns

	getHppRequestSQL = `SELECT ` + hppRequestColumns + `
FROM stripe_hpp_requests
WHERE session_id = $1 AND kb_tenant_id = $2
ORDER BY record_id DESC
LIMIT 1`
)

// HppRequestRepository implements ports.HppRequestStore over the
// stripe_hpp_requests table
type HppRequestRepository struct {
	db ports.DBPort
}

var _ ports.HppRequestStore = (*HppRequestRepository)(nil)

// NewHppRequestRepository creates a new hosted page request repository
func NewHppRequestRepository(db ports.DBPort) *HppRequestRepository {
	return &HppRequestRepository{db: db}
}

func (r *HppRequestRepository) AddHppRequest(ctx context.Context, req *domain.HppRequestRecord) (*domain.HppRequestRecord, error) {
	data, err := req.AdditionalData.Encode()
	if err != nil {
		return nil, storageError("encode additional data", err)
	}

	rec, err := scanHppRequest(r.db.GetDB().QueryRow(ctx, insertHppRequestSQL,
		req.AccountID,
		nullUUID(req.PaymentID),
		nullUUID(req.TransactionID),
		req.TenantID,
		req.SessionID,
		data,
	))
	if err != nil {
		return nil, storageError("insert hpp request", err)
	}
	return rec, nil
}

func (r *HppRequestRepository) GetHppRequest(ctx context.Context, sessionID string, tenantID uuid.UUID) (*domain.HppRequestRecord, error) {
	rec, err := scanHppRequest(r.db.GetDB().QueryRow(ctx, getHppRequestSQL, sessionID, tenantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrHppRequestNotFound
	}
	if err != nil {
		return nil, storageError("get hpp request", err)
	}
	return rec, nil
}

func scanHppRequest(row pgx.Row) (*domain.HppRequestRecord, error) {
	var (
		rec           domain.HppRequestRecord
		paymentID     pgtype.UUID
		transactionID pgtype.UUID
		raw           []byte
	)
	if err := row.Scan(
		&rec.RecordID,
		&rec.AccountID,
		&paymentID,
		&transactionID,
		&rec.TenantID,
		&rec.SessionID,
		&raw,
		&rec.CreatedAt,
	); err != nil {
		return nil, err
	}

	data, err := domain.DecodeAdditionalData(raw)
	if err != nil {
		return nil, err
	}
	rec.PaymentID = uuidPtr(paymentID)
	rec.TransactionID = uuidPtr(transactionID)
	rec.AdditionalData = data
	rec.CreatedAt = rec.CreatedAt.UTC()
	return &rec, nil
}
