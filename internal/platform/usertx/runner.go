// Package usertx serializes read-modify-write work on a single user.
//
// Every implementation runs fn inside a unit of work that collects
// after-commit hooks (see pkg/platform/tx): hooks registered by fn run only
// when the outermost RunForUser for the context returns nil.
package usertx

import (
	"context"

	id "trustcore/pkg/domain"
	dErrors "trustcore/pkg/domain-errors"
	"trustcore/pkg/platform/tx"
)

// Runner runs fn while holding exclusive access to one user's state.
// Nested calls for the same user on the same context do not deadlock.
type Runner interface {
	RunForUser(ctx context.Context, userID id.UserID, fn func(ctx context.Context) error) error
}

type heldKey struct{}

// held is the immutable set of lock keys a context chain already owns.
type held map[string]struct{}

func holds(ctx context.Context, key string) bool {
	h, _ := ctx.Value(heldKey{}).(held)
	_, ok := h[key]
	return ok
}

func withHeld(ctx context.Context, key string) context.Context {
	prev, _ := ctx.Value(heldKey{}).(held)
	next := make(held, len(prev)+1)
	for k := range prev {
		next[k] = struct{}{}
	}
	next[key] = struct{}{}
	return context.WithValue(ctx, heldKey{}, next)
}

// runWithHooks runs fn with an after-commit collector and fires or drops the
// hooks when this call owns the collector.
func runWithHooks(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, hooks, owner := tx.WithHooks(ctx)
	if err := fn(ctx); err != nil {
		if owner {
			hooks.Discard()
		}
		return err
	}
	if owner {
		hooks.Run()
	}
	return nil
}

func ctxErr(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "user transaction aborted: context cancelled")
	}
	return nil
}
