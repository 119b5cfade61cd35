package usertx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "trustcore/pkg/domain"
	dErrors "trustcore/pkg/domain-errors"
	txcontext "trustcore/pkg/platform/tx"
)

// Postgres serializes per user with a row lock on users held for one
// database transaction. Stores called from fn join the transaction through
// the context.
type Postgres struct {
	db      *sql.DB
	timeout time.Duration
}

func NewPostgres(db *sql.DB, timeout time.Duration) *Postgres {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Postgres{db: db, timeout: timeout}
}

func (p *Postgres) RunForUser(ctx context.Context, userID id.UserID, fn func(ctx context.Context) error) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}

	key := "pg:" + userID.String()
	if existing, ok := txcontext.From(ctx); ok {
		if holds(ctx, key) {
			return runWithHooks(ctx, fn)
		}
		if err := lockUser(ctx, existing, userID); err != nil {
			return err
		}
		return runWithHooks(withHeld(ctx, key), fn)
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	ctx, hooks, owner := txcontext.WithHooks(ctx)
	sqlTx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to begin user transaction")
	}
	if err := lockUser(ctx, sqlTx, userID); err != nil {
		_ = sqlTx.Rollback()
		return err
	}

	if err := fn(withHeld(txcontext.WithTx(ctx, sqlTx), key)); err != nil {
		_ = sqlTx.Rollback()
		if owner {
			hooks.Discard()
		}
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		if owner {
			hooks.Discard()
		}
		if ctxErr(ctx) != nil {
			return dErrors.Wrap(err, dErrors.CodeTimeout, "user transaction timed out")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to commit user transaction")
	}
	if owner {
		hooks.Run()
	}
	return nil
}

func lockUser(ctx context.Context, tx *sql.Tx, userID id.UserID) error {
	var locked uuid.UUID
	err := tx.QueryRowContext(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, uuid.UUID(userID)).Scan(&locked)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return dErrors.New(dErrors.CodeNotFound, "user not found")
	case ctx.Err() != nil:
		return dErrors.Wrap(err, dErrors.CodeTimeout, "timed out waiting for user lock")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, fmt.Sprintf("failed to lock user %s", userID))
	}
}
