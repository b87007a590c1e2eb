package persistence

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresUnitOfWork provides transactional support for PostgreSQL.
type PostgresUnitOfWork struct {
	pool *pgxpool.Pool
}

// NewPostgresUnitOfWork creates a new PostgresUnitOfWork.
func NewPostgresUnitOfWork(pool *pgxpool.Pool) *PostgresUnitOfWork {
	return &PostgresUnitOfWork{pool: pool}
}

// Begin starts a transaction and stores it in the context. A nested Begin
// reuses the enclosing transaction without taking ownership of it.
func (u *PostgresUnitOfWork) Begin(ctx context.Context) (context.Context, error) {
	if bound, ok := BoundTxFrom(ctx); ok {
		return BindTx(ctx, bound.Tx, false), nil
	}

	tx, err := u.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}

	return BindTx(ctx, tx, true), nil
}

// Commit commits the transaction if this unit owns it.
func (u *PostgresUnitOfWork) Commit(ctx context.Context) error {
	bound, ok := BoundTxFrom(ctx)
	if !ok {
		return errors.New("no transaction in context")
	}
	if !bound.Owned {
		return nil
	}
	return bound.Tx.Commit(ctx)
}

// Rollback rolls back the transaction if this unit owns it.
func (u *PostgresUnitOfWork) Rollback(ctx context.Context) error {
	bound, ok := BoundTxFrom(ctx)
	if !ok {
		return errors.New("no transaction in context")
	}
	if !bound.Owned {
		return nil
	}
	return bound.Tx.Rollback(ctx)
}
