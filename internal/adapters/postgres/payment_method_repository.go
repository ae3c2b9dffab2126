package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kevin07696/gateway-reconciler/internal/domain"
	"github.com/kevin07696/gateway-reconciler/internal/domain/ports"
)

const paymentMethodColumns = `record_id, kb_account_id, kb_payment_method_id, kb_tenant_id,
	gateway_id, is_deleted, additional_data, created_date, updated_date`

const (
	insertPaymentMethodSQL = `INSERT INTO stripe_payment_methods (
	kb_account_id, kb_payment_method_id, kb_tenant_id, gateway_id, additional_data
) VALUES ($1, $2, $3, $4, $5)
RETURNING ` + paymentMethodColumns

	updatePaymentMethodSQL = `UPDATE stripe_payment_methods
SET gateway_id = $3, additional_data = $4, updated_date = now()
WHERE kb_payment_method_id = $1 AND kb_tenant_id = $2 AND NOT is_deleted`

	getPaymentMethodSQL = `SELECT ` + paymentMethodColumns + `
FROM stripe_payment_methods
WHERE kb_payment_method_id = $1 AND kb_tenant_id = $2 AND NOT is_deleted`

	listPaymentMethodsSQL = `SELECT ` + paymentMethodColumns + `
FROM stripe_payment_methods
WHERE kb_account_id = $1 AND kb_tenant_id = $2 AND NOT is_deleted
ORDER BY record_id ASC`

	markPaymentMethodDeletedSQL = `UPDATE stripe_payment_methods
SET is_deleted = TRUE, updated_date = now()
WHERE kb_payment_method_id = $1 AND kb_tenant_id = $2 AND NOT is_deleted`
)

// PaymentMethodRepository implements ports.PaymentMethodMirror over the
// stripe_payment_methods table
type PaymentMethodRepository struct {
	db ports.DBPort
}

var _ ports.PaymentMethodMirror = (*PaymentMethodRepository)(nil)

// NewPaymentMethodRepository creates a new payment method repository
func NewPaymentMethodRepository(db ports.DBPort) *PaymentMethodRepository {
	return &PaymentMethodRepository{db: db}
}

// AddPaymentMethod inserts an active record. The partial unique indexes reject
// a second active row for the same billing id or gateway instrument.
func (r *PaymentMethodRepository) AddPaymentMethod(ctx context.Context, pm *domain.PaymentMethodRecord) (*domain.PaymentMethodRecord, error) {
	data, err := pm.AdditionalData.Encode()
	if err != nil {
		return nil, storageError("encode additional data", err)
	}

	rec, err := scanPaymentMethod(r.db.GetDB().QueryRow(ctx, insertPaymentMethodSQL,
		pm.AccountID,
		pm.PaymentMethodID,
		pm.TenantID,
		pm.GatewayID,
		data,
	))
	if err != nil {
		return nil, storageError("insert payment method", err)
	}
	return rec, nil
}

// UpdatePaymentMethod replaces the gateway attributes of the active record
func (r *PaymentMethodRepository) UpdatePaymentMethod(ctx context.Context, paymentMethodID, tenantID uuid.UUID, gatewayID string, data domain.AdditionalData) error {
	raw, err := data.Encode()
	if err != nil {
		return storageError("encode additional data", err)
	}

	tag, err := r.db.GetDB().Exec(ctx, updatePaymentMethodSQL, paymentMethodID, tenantID, gatewayID, raw)
	if err != nil {
		return storageError("update payment method", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPaymentMethodNotFound
	}
	return nil
}

// GetPaymentMethod returns the active record for the billing payment method
func (r *PaymentMethodRepository) GetPaymentMethod(ctx context.Context, paymentMethodID, tenantID uuid.UUID) (*domain.PaymentMethodRecord, error) {
	rec, err := scanPaymentMethod(r.db.GetDB().QueryRow(ctx, getPaymentMethodSQL, paymentMethodID, tenantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPaymentMethodNotFound
	}
	if err != nil {
		return nil, storageError("get payment method", err)
	}
	return rec, nil
}

// ListPaymentMethods returns the account's active records in insertion order
func (r *PaymentMethodRepository) ListPaymentMethods(ctx context.Context, accountID, tenantID uuid.UUID) ([]*domain.PaymentMethodRecord, error) {
	rows, err := r.db.GetDB().Query(ctx, listPaymentMethodsSQL, accountID, tenantID)
	if err != nil {
		return nil, storageError("list payment methods", err)
	}
	defer rows.Close()

	var records []*domain.PaymentMethodRecord
	for rows.Next() {
		rec, err := scanPaymentMethod(rows)
		if err != nil {
			return nil, storageError("scan payment method", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("list payment methods", err)
	}
	return records, nil
}

// MarkDeleted logically deletes the active record
func (r *PaymentMethodRepository) MarkDeleted(ctx context.Context, paymentMethodID, tenantID uuid.UUID) error {
	tag, err := r.db.GetDB().Exec(ctx, markPaymentMethodDeletedSQL, paymentMethodID, tenantID)
	if err != nil {
		return storageError("delete payment method", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPaymentMethodNotFound
	}
	return nil
}

func scanPaymentMethod(row pgx.Row) (*domain.PaymentMethodRecord, error) {
	var (
		rec domain.PaymentMethodRecord
		raw []byte
	)
	if err := row.Scan(
		&rec.RecordID,
		&rec.AccountID,
		&rec.PaymentMethodID,
		&rec.TenantID,
		&rec.GatewayID,
		&rec.IsDeleted,
		&raw,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return nil, err
	}

	data, err := domain.DecodeAdditionalData(raw)
	if err != nil {
		return nil, err
	}
	rec.AdditionalData = data
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return &rec, nil
}
