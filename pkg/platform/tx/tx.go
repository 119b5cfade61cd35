package tx

import (
	"context"
	"database/sql"
	"sync"
)

type ctxKey struct{}

var txKey = ctxKey{}

// WithTx stores a SQL transaction in context for downstream store usage.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From extracts a SQL transaction from context if present.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey).(*sql.Tx)
	return tx, ok
}

type hooksKey struct{}

// Hooks collects callbacks that must only run once the enclosing unit of work
// has committed (notification dispatch, metrics).
type Hooks struct {
	mu  sync.Mutex
	fns []func()
}

// WithHooks returns a context collecting after-commit callbacks. When ctx
// already carries hooks from an outer unit of work, the outer collector is
// reused and owner is false: only the owner runs them.
func WithHooks(ctx context.Context) (_ context.Context, h *Hooks, owner bool) {
	if existing, ok := ctx.Value(hooksKey{}).(*Hooks); ok {
		return ctx, existing, false
	}
	h = &Hooks{}
	return context.WithValue(ctx, hooksKey{}, h), h, true
}

// AfterCommit registers fn to run after the enclosing unit of work commits.
// Outside any unit of work fn runs immediately.
func AfterCommit(ctx context.Context, fn func()) {
	h, ok := ctx.Value(hooksKey{}).(*Hooks)
	if !ok {
		fn()
		return
	}
	h.mu.Lock()
	h.fns = append(h.fns, fn)
	h.mu.Unlock()
}

// Run executes the collected callbacks in registration order.
func (h *Hooks) Run() {
	h.mu.Lock()
	fns := h.fns
	h.fns = nil
	h.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Discard drops collected callbacks after a rollback.
func (h *Hooks) Discard() {
	h.mu.Lock()
	h.fns = nil
	h.mu.Unlock()
}
