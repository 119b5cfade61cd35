package user

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"trustcore/internal/identity/models"
	"trustcore/internal/platform/postgres"
	id "trustcore/pkg/domain"
	"trustcore/pkg/platform/sentinel"
	txcontext "trustcore/pkg/platform/tx"
)

// PostgresStore persists users in PostgreSQL. Calls join the transaction
// carried by the context when there is one.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const userColumns = `id, email, password_hash, external_id,
	email_verified, email_verified_at, phone_verified, phone_verified_at,
	identity_verified, identity_verified_at, financial_verified, financial_verified_at,
	terms_accepted, terms_accepted_at, privacy_accepted, privacy_accepted_at,
	marketing_accepted, marketing_accepted_at,
	profile, profile_validated, profile_validated_at,
	status, trust_score, suspension_reason, suspended_by, suspended_at,
	created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, u *models.User) error {
	profile, err := json.Marshal(u.Profile)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	reason, by, at := suspensionArgs(u.Suspension)
	query := `INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28)`
	_, err = postgres.Conn(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(u.ID), u.Email, postgres.NullString(u.PasswordHash), postgres.NullString(u.ExternalID),
		u.EmailVerified.Set, postgres.NullTime(u.EmailVerified.At),
		u.PhoneVerified.Set, postgres.NullTime(u.PhoneVerified.At),
		u.IdentityVerified.Set, postgres.NullTime(u.IdentityVerified.At),
		u.FinancialDocsVerified.Set, postgres.NullTime(u.FinancialDocsVerified.At),
		u.TermsAccepted.Set, postgres.NullTime(u.TermsAccepted.At),
		u.PrivacyAccepted.Set, postgres.NullTime(u.PrivacyAccepted.At),
		u.MarketingAccepted.Set, postgres.NullTime(u.MarketingAccepted.At),
		profile, u.ProfileValidated.Set, postgres.NullTime(u.ProfileValidated.At),
		string(u.Status), u.TrustScore, reason, by, at,
		u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("email %s: %w", u.Email, sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	row := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, uuid.UUID(userID))
	return scanUser(row)
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	row := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE LOWER(email) = $1`, models.NormalizeEmail(email))
	return scanUser(row)
}

func (s *PostgresStore) Save(ctx context.Context, u *models.User) error {
	return s.save(ctx, postgres.Conn(ctx, s.db), u)
}

func (s *PostgresStore) save(ctx context.Context, conn postgres.DBTX, u *models.User) error {
	profile, err := json.Marshal(u.Profile)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	reason, by, at := suspensionArgs(u.Suspension)
	res, err := conn.ExecContext(ctx, `UPDATE users SET
			email_verified = $2, email_verified_at = $3,
			phone_verified = $4, phone_verified_at = $5,
			identity_verified = $6, identity_verified_at = $7,
			financial_verified = $8, financial_verified_at = $9,
			terms_accepted = $10, terms_accepted_at = $11,
			privacy_accepted = $12, privacy_accepted_at = $13,
			marketing_accepted = $14, marketing_accepted_at = $15,
			profile = $16, profile_validated = $17, profile_validated_at = $18,
			status = $19, trust_score = $20,
			suspension_reason = $21, suspended_by = $22, suspended_at = $23,
			updated_at = $24
		WHERE id = $1`,
		uuid.UUID(u.ID),
		u.EmailVerified.Set, postgres.NullTime(u.EmailVerified.At),
		u.PhoneVerified.Set, postgres.NullTime(u.PhoneVerified.At),
		u.IdentityVerified.Set, postgres.NullTime(u.IdentityVerified.At),
		u.FinancialDocsVerified.Set, postgres.NullTime(u.FinancialDocsVerified.At),
		u.TermsAccepted.Set, postgres.NullTime(u.TermsAccepted.At),
		u.PrivacyAccepted.Set, postgres.NullTime(u.PrivacyAccepted.At),
		u.MarketingAccepted.Set, postgres.NullTime(u.MarketingAccepted.At),
		profile, u.ProfileValidated.Set, postgres.NullTime(u.ProfileValidated.At),
		string(u.Status), u.TrustScore,
		reason, by, at,
		u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user %s: %w", u.ID, sentinel.ErrNotFound)
	}
	return nil
}

// Execute locks the user row, validates, mutates, and saves it in a single
// transaction. When ctx already carries a transaction it is reused. A nil
// validate imposes no precondition.
func (s *PostgresStore) Execute(ctx context.Context, userID id.UserID, validate func(*models.User) error, mutate func(*models.User)) (*models.User, error) {
	if tx, ok := txcontext.From(ctx); ok {
		return s.execute(ctx, tx, userID, validate, mutate)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin user tx: %w", err)
	}
	u, err := s.execute(ctx, tx, userID, validate, mutate)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit user tx: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) execute(ctx context.Context, conn postgres.DBTX, userID id.UserID, validate func(*models.User) error, mutate func(*models.User)) (*models.User, error) {
	row := conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, uuid.UUID(userID))
	u, err := scanUser(row)
	if err != nil {
		return nil, err
	}
	if validate != nil {
		if err := validate(u); err != nil {
			return nil, err
		}
	}
	mutate(u)
	if err := s.save(ctx, conn, u); err != nil {
		return nil, err
	}
	return u, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u                models.User
		rawID            uuid.UUID
		passwordHash     sql.NullString
		externalID       sql.NullString
		flags            [8]bool
		flagTimes        [8]sql.NullTime
		profile          []byte
		status           string
		suspensionReason sql.NullString
		suspendedBy      uuid.NullUUID
		suspendedAt      sql.NullTime
	)
	err := row.Scan(
		&rawID, &u.Email, &passwordHash, &externalID,
		&flags[0], &flagTimes[0], &flags[1], &flagTimes[1],
		&flags[2], &flagTimes[2], &flags[3], &flagTimes[3],
		&flags[4], &flagTimes[4], &flags[5], &flagTimes[5],
		&flags[6], &flagTimes[6],
		&profile, &flags[7], &flagTimes[7],
		&status, &u.TrustScore, &suspensionReason, &suspendedBy, &suspendedAt,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	u.ID = id.UserID(rawID)
	u.PasswordHash = passwordHash.String
	u.ExternalID = externalID.String
	u.Status = models.Status(status)
	targets := []*models.Flag{
		&u.EmailVerified, &u.PhoneVerified, &u.IdentityVerified, &u.FinancialDocsVerified,
		&u.TermsAccepted, &u.PrivacyAccepted, &u.MarketingAccepted, &u.ProfileValidated,
	}
	for i, f := range targets {
		*f = models.Flag{Set: flags[i], At: postgres.TimePtr(flagTimes[i])}
	}
	if len(profile) > 0 {
		if err := json.Unmarshal(profile, &u.Profile); err != nil {
			return nil, fmt.Errorf("unmarshal profile: %w", err)
		}
	}
	if suspensionReason.Valid && suspendedAt.Valid {
		u.Suspension = &models.Suspension{
			Reason: suspensionReason.String,
			By:     id.AdminID(suspendedBy.UUID),
			At:     suspendedAt.Time,
		}
	}
	return &u, nil
}

func suspensionArgs(s *models.Suspension) (sql.NullString, uuid.NullUUID, sql.NullTime) {
	if s == nil {
		return sql.NullString{}, uuid.NullUUID{}, sql.NullTime{}
	}
	return sql.NullString{String: s.Reason, Valid: true},
		uuid.NullUUID{UUID: uuid.UUID(s.By), Valid: true},
		sql.NullTime{Time: s.At, Valid: true}
}
