package user

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trustcore/internal/identity/models"
	id "trustcore/pkg/domain"
	dErrors "trustcore/pkg/domain-errors"
	"trustcore/pkg/platform/sentinel"
)

var columnNames = []string{
	"id", "email", "password_hash", "external_id",
	"email_verified", "email_verified_at", "phone_verified", "phone_verified_at",
	"identity_verified", "identity_verified_at", "financial_verified", "financial_verified_at",
	"terms_accepted", "terms_accepted_at", "privacy_accepted", "privacy_accepted_at",
	"marketing_accepted", "marketing_accepted_at",
	"profile", "profile_validated", "profile_validated_at",
	"status", "trust_score", "suspension_reason", "suspended_by", "suspended_at",
	"created_at", "updated_at",
}

func userRow(userID uuid.UUID, verifiedAt time.Time) []driver.Value {
	return []driver.Value{
		userID.String(), "alice@example.com", "hash", nil,
		true, verifiedAt, false, nil,
		false, nil, false, nil,
		true, verifiedAt, true, verifiedAt,
		false, nil,
		[]byte(`{"first_name":"Alice","city":"Lyon"}`), false, nil,
		"email_confirmed", 1.0, nil, nil, nil,
		verifiedAt, verifiedAt,
	}
}

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgres(db), mock
}

func TestPostgresStore_FindByID(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("scans flags and profile", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \$1`).
			WithArgs(userID).
			WillReturnRows(sqlmock.NewRows(columnNames).AddRow(userRow(userID, at)...))

		u, err := store.FindByID(ctx, id.UserID(userID))
		require.NoError(t, err)
		assert.Equal(t, id.UserID(userID), u.ID)
		assert.Equal(t, models.StatusEmailConfirmed, u.Status)
		assert.True(t, u.EmailVerified.Set)
		require.NotNil(t, u.EmailVerified.At)
		assert.True(t, at.Equal(*u.EmailVerified.At))
		assert.False(t, u.PhoneVerified.Set)
		assert.Nil(t, u.PhoneVerified.At)
		assert.Equal(t, "Lyon", u.Profile.City)
		assert.Nil(t, u.Suspension)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps no rows to ErrNotFound", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \$1`).
			WithArgs(userID).
			WillReturnRows(sqlmock.NewRows(columnNames))

		_, err := store.FindByID(ctx, id.UserID(userID))
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}

func TestPostgresStore_Create(t *testing.T) {
	ctx := context.Background()
	u, err := models.NewUser(id.NewUserID(), "alice@example.com", "hash", "", time.Now())
	require.NoError(t, err)

	t.Run("maps unique violation to ErrAlreadyUsed", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec(`INSERT INTO users`).
			WillReturnError(&pq.Error{Code: "23505"})

		err := store.Create(ctx, u)
		assert.ErrorIs(t, err, sentinel.ErrAlreadyUsed)
	})

	t.Run("wraps other errors", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec(`INSERT INTO users`).
			WillReturnError(errors.New("connection reset"))

		err := store.Create(ctx, u)
		require.Error(t, err)
		assert.NotErrorIs(t, err, sentinel.ErrAlreadyUsed)
	})
}

func TestPostgresStore_Save(t *testing.T) {
	ctx := context.Background()
	u, err := models.NewUser(id.NewUserID(), "alice@example.com", "hash", "", time.Now())
	require.NoError(t, err)

	store, mock := newMockStore(t)
	mock.ExpectExec(`UPDATE users SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = store.Save(ctx, u)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestPostgresStore_Execute(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("locks the row and commits the mutation", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \$1 FOR UPDATE`).
			WithArgs(userID).
			WillReturnRows(sqlmock.NewRows(columnNames).AddRow(userRow(userID, at)...))
		mock.ExpectExec(`UPDATE users SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		u, err := store.Execute(ctx, id.UserID(userID),
			func(*models.User) error { return nil },
			func(u *models.User) { u.PhoneVerified.Mark(at) },
		)
		require.NoError(t, err)
		assert.True(t, u.PhoneVerified.Set)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nil validation still locks and commits", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \$1 FOR UPDATE`).
			WithArgs(userID).
			WillReturnRows(sqlmock.NewRows(columnNames).AddRow(userRow(userID, at)...))
		mock.ExpectExec(`UPDATE users SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		u, err := store.Execute(ctx, id.UserID(userID), nil,
			func(u *models.User) { u.EmailVerified.Mark(at) },
		)
		require.NoError(t, err)
		assert.True(t, u.EmailVerified.Set)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when validation fails", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \$1 FOR UPDATE`).
			WithArgs(userID).
			WillReturnRows(sqlmock.NewRows(columnNames).AddRow(userRow(userID, at)...))
		mock.ExpectRollback()

		_, err := store.Execute(ctx, id.UserID(userID),
			func(u *models.User) error { return u.CanSuspend(" ") },
			func(*models.User) { t.Fatal("mutate must not run") },
		)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeMissingReason))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
