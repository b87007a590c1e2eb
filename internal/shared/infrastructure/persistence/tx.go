package persistence

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type boundTxKey struct{}

// BoundTx is the transaction currently attached to a context. Owned marks
// the binding that opened it; nested units of work join the existing
// transaction instead of opening their own, and only the owner commits.
type BoundTx struct {
	Tx    pgx.Tx
	Owned bool
}

// BindTx attaches a transaction to the context so repositories called
// underneath route their queries through it.
func BindTx(ctx context.Context, tx pgx.Tx, owned bool) context.Context {
	return context.WithValue(ctx, boundTxKey{}, BoundTx{Tx: tx, Owned: owned})
}

// BoundTxFrom returns the transaction bound to ctx, if any.
func BoundTxFrom(ctx context.Context) (BoundTx, bool) {
	bound, ok := ctx.Value(boundTxKey{}).(BoundTx)
	if !ok || bound.Tx == nil {
		return BoundTx{}, false
	}
	return bound, true
}

// Querier is the query surface shared by pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Executor routes to the bound transaction when one exists, else the pool.
// Repositories call this on every query so a booking claim, its conflict
// checks, and the outbox append all observe the same uncommitted state.
func Executor(ctx context.Context, pool *pgxpool.Pool) Querier {
	if bound, ok := BoundTxFrom(ctx); ok {
		return bound.Tx
	}
	return pool
}
