// Package tx carries an open database transaction through a context so that
// stores participating in a service-level transaction share it.
package tx

import (
	"context"
	"database/sql"
)

type contextKeyTx struct{}

// WithTx returns a context carrying tx.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, contextKeyTx{}, tx)
}

// From returns the transaction carried by ctx, if any.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(contextKeyTx{}).(*sql.Tx)
	return tx, ok && tx != nil
}

// Runner executes fn inside a transactional boundary.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// MutexRunner serializes in-memory "transactions" behind a single lock.
// Nested calls on the same context run inline.
type MutexRunner struct {
	mu chan struct{}
}

type contextKeyMutexHeld struct{}

// NewMutexRunner constructs a runner for in-memory stores.
func NewMutexRunner() *MutexRunner {
	return &MutexRunner{mu: make(chan struct{}, 1)}
}

func (r *MutexRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if held, _ := ctx.Value(contextKeyMutexHeld{}).(*MutexRunner); held == r {
		return fn(ctx)
	}
	select {
	case r.mu <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-r.mu }()
	return fn(context.WithValue(ctx, contextKeyMutexHeld{}, r))
}
