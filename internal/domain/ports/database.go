package ports

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TransactionManager interface {
	// WithTransaction commits when fn returns nil and rolls back otherwise
	WithTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error

	WithReadOnlyTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error
}

// DBPort is what the ledger, mirror and HPP repositories are built on
type DBPort interface {
	GetDB() *pgxpool.Pool
	TransactionManager
}
