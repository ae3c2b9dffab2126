package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kevin07696/gateway-reconciler/internal/domain"
	"github.com/kevin07696/gateway-reconciler/internal/domain/ports"
)

const responseColumns = `record_id, kb_account_id, kb_payment_id, kb_payment_transaction_id, kb_tenant_id,
	gateway_id, transaction_type, amount, currency, status_override, additional_data, created_date`

const (
	insertResponseSQL = `INSERT INTO stripe_responses (
	kb_account_id, kb_payment_id, kb_payment_transaction_id, kb_tenant_id,
	gateway_id, transaction_type, amount, currency, status_override, additional_data, created_date
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, COALESCE($11, now()))
RETURNING ` + responseColumns

	lockLatestResponseSQL = `SELECT ` + responseColumns + `
FROM stripe_responses
WHERE kb_payment_transaction_id = $1 AND kb_tenant_id = $2
ORDER BY record_id DESC
LIMIT 1
FOR UPDATE`

	updateResponseSQL = `UPDATE stripe_responses
SET additional_data = $2, status_override = COALESCE($3, status_override)
WHERE record_id = $1`

	latestAnchorSQL = `SELECT ` + responseColumns + `
FROM stripe_responses
WHERE kb_payment_id = $1 AND kb_tenant_id = $2
  AND transaction_type IN ('AUTHORIZE', 'PURCHASE')
ORDER BY record_id DESC
LIMIT 1`

	listResponsesSQL = `SELECT ` + responseColumns + `
FROM stripe_responses
WHERE kb_payment_id = $1 AND kb_tenant_id = $2
ORDER BY record_id ASC`
)

// TransactionRepository implements ports.TransactionLedger over the
// stripe_responses table
type TransactionRepository struct {
	db ports.DBPort
}

var _ ports.TransactionLedger = (*TransactionRepository)(nil)

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db ports.DBPort) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// AddRecord appends one gateway interaction
func (r *TransactionRepository) AddRecord(ctx context.Context, params ports.AddRecordParams) (*domain.TransactionRecord, error) {
	data, err := params.AdditionalData.Encode()
	if err != nil {
		return nil, storageError("encode additional data", err)
	}
	amount, err := decimalToNumeric(params.Amount)
	if err != nil {
		return nil, storageError("insert transaction record", err)
	}

	var createdAt pgtype.Timestamptz
	if !params.CreatedAt.IsZero() {
		createdAt = pgtype.Timestamptz{Time: params.CreatedAt.UTC(), Valid: true}
	}

	row := r.db.GetDB().QueryRow(ctx, insertResponseSQL,
		params.AccountID,
		params.PaymentID,
		params.TransactionID,
		params.TenantID,
		nullText(params.GatewayID),
		string(params.Type),
		amount,
		nullTextPtr(params.Currency),
		statusText(params.StatusOverride),
		data,
		createdAt,
	)

	rec, err := scanResponse(row)
	if err != nil {
		return nil, storageError("insert transaction record", err)
	}
	return rec, nil
}

// UpdateAdditionalData merges patch into the latest record of the transaction
// while holding its row lock
func (r *TransactionRepository) UpdateAdditionalData(ctx context.Context, transactionID, tenantID uuid.UUID, patch domain.RecordPatch) (*domain.TransactionRecord, error) {
	var snapshot *domain.TransactionRecord

	err := r.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		current, err := scanResponse(tx.QueryRow(ctx, lockLatestResponseSQL, transactionID, tenantID))
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("lock latest record: %w", err)
		}
		snapshot = current

		if patch.IsEmpty() {
			return nil
		}

		updated := patch.Apply(current)
		data, err := updated.AdditionalData.Encode()
		if err != nil {
			return fmt.Errorf("encode additional data: %w", err)
		}
		if _, err := tx.Exec(ctx, updateResponseSQL, current.RecordID, data, statusText(patch.StatusOverride)); err != nil {
			return fmt.Errorf("update record %d: %w", current.RecordID, err)
		}
		return nil
	})
	if err != nil {
		return nil, storageError("update transaction record", err)
	}
	return snapshot, nil
}

// GetLatestAuthorizationOrPurchase returns the anchor for follow-up operations
func (r *TransactionRepository) GetLatestAuthorizationOrPurchase(ctx context.Context, paymentID, tenantID uuid.UUID) (*domain.TransactionRecord, error) {
	rec, err := scanResponse(r.db.GetDB().QueryRow(ctx, latestAnchorSQL, paymentID, tenantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError("get anchor record", err)
	}
	return rec, nil
}

// ListByPayment returns the payment history in insertion order
func (r *TransactionRepository) ListByPayment(ctx context.Context, paymentID, tenantID uuid.UUID) ([]*domain.TransactionRecord, error) {
	rows, err := r.db.GetDB().Query(ctx, listResponsesSQL, paymentID, tenantID)
	if err != nil {
		return nil, storageError("list transaction records", err)
	}
	defer rows.Close()

	var records []*domain.TransactionRecord
	for rows.Next() {
		rec, err := scanResponse(rows)
		if err != nil {
			return nil, storageError("scan transaction record", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("list transaction records", err)
	}
	return records, nil
}

func scanResponse(row pgx.Row) (*domain.TransactionRecord, error) {
	var (
		rec       domain.TransactionRecord
		gatewayID pgtype.Text
		txType    string
		amount    pgtype.Numeric
		currency  pgtype.Text
		override  pgtype.Text
		raw       []byte
		createdAt time.Time
	)

	if err := row.Scan(
		&rec.RecordID,
		&rec.AccountID,
		&rec.PaymentID,
		&rec.TransactionID,
		&rec.TenantID,
		&gatewayID,
		&txType,
		&amount,
		&currency,
		&override,
		&raw,
		&createdAt,
	); err != nil {
		return nil, err
	}

	dec, err := pgNumericToDecimal(amount)
	if err != nil {
		return nil, err
	}
	data, err := domain.DecodeAdditionalData(raw)
	if err != nil {
		return nil, err
	}

	rec.GatewayID = gatewayID.String
	rec.Type = domain.TransactionType(txType)
	rec.Amount = dec
	rec.Currency = textPtr(currency)
	rec.StatusOverride = statusOverride(override)
	rec.AdditionalData = data
	rec.CreatedAt = createdAt.UTC()
	return &rec, nil
}
