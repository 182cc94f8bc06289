package pgx

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lborres/technopark/core"
)

// querier is the subset of *pgxpool.Pool the adapter uses.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Adapter stores credential records in PostgreSQL.
type Adapter struct {
	db querier
}

var _ core.CredentialStore = (*Adapter)(nil)

func New(pool *pgxpool.Pool) *Adapter {
	return &Adapter{
		db: pool,
	}
}
