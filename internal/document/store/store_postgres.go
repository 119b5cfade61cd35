package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"trustcore/internal/document/models"
	"trustcore/internal/platform/postgres"
	id "trustcore/pkg/domain"
	"trustcore/pkg/platform/sentinel"
	txcontext "trustcore/pkg/platform/tx"
)

// PostgresStore persists documents in PostgreSQL. The partial unique index
// documents_one_pending_idx backs the one-pending-per-type rule.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const documentColumns = `id, owner_id, type, status, file_ref, rejection_reason, notes,
	validated_by, validated_at, supersedes_id, submitted_at`

func (s *PostgresStore) Create(ctx context.Context, d *models.Document) error {
	_, err := postgres.Conn(ctx, s.db).ExecContext(ctx,
		`INSERT INTO documents (`+documentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		uuid.UUID(d.ID), uuid.UUID(d.OwnerID), string(d.Type), string(d.Status), d.FileRef,
		postgres.NullString(d.RejectionReason), postgres.NullString(d.Notes),
		adminArg(d.ValidatedBy), postgres.NullTime(d.ValidatedAt), documentArg(d.SupersedesID),
		d.SubmittedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("pending %s document: %w", d.Type, sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, docID id.DocumentID) (*models.Document, error) {
	row := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`, uuid.UUID(docID))
	return scanDocument(row)
}

func (s *PostgresStore) FindPending(ctx context.Context, owner id.UserID, docType id.DocumentType) (*models.Document, error) {
	row := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents
		WHERE owner_id = $1 AND type = $2 AND status = 'pending'`,
		uuid.UUID(owner), string(docType))
	return scanDocument(row)
}

func (s *PostgresStore) ListByOwner(ctx context.Context, owner id.UserID) ([]*models.Document, error) {
	rows, err := postgres.Conn(ctx, s.db).QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE owner_id = $1 ORDER BY submitted_at, id`,
		uuid.UUID(owner))
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return scanDocuments(rows)
}

func (s *PostgresStore) ListApprovedTypes(ctx context.Context, owner id.UserID) ([]id.DocumentType, error) {
	rows, err := postgres.Conn(ctx, s.db).QueryContext(ctx,
		`SELECT DISTINCT type FROM documents WHERE owner_id = $1 AND status = 'approved' ORDER BY type`,
		uuid.UUID(owner))
	if err != nil {
		return nil, fmt.Errorf("list approved types: %w", err)
	}
	defer rows.Close()

	out := make([]id.DocumentType, 0)
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan approved type: %w", err)
		}
		out = append(out, id.DocumentType(t))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate approved types: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) ListPending(ctx context.Context, limit int) ([]*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE status = 'pending' ORDER BY submitted_at, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := postgres.Conn(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list pending documents: %w", err)
	}
	return scanDocuments(rows)
}

// Execute locks the document row, validates and applies the mutation. The
// UPDATE is also guarded by status = 'pending'; a lost guard surfaces as
// sentinel.ErrInvalidState.
func (s *PostgresStore) Execute(ctx context.Context, docID id.DocumentID, validate func(*models.Document) error, mutate func(*models.Document)) (*models.Document, error) {
	if tx, ok := txcontext.From(ctx); ok {
		return s.execute(ctx, tx, docID, validate, mutate)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin document tx: %w", err)
	}
	d, err := s.execute(ctx, tx, docID, validate, mutate)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit document tx: %w", err)
	}
	return d, nil
}

func (s *PostgresStore) execute(ctx context.Context, conn postgres.DBTX, docID id.DocumentID, validate func(*models.Document) error, mutate func(*models.Document)) (*models.Document, error) {
	row := conn.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1 FOR UPDATE`, uuid.UUID(docID))
	d, err := scanDocument(row)
	if err != nil {
		return nil, err
	}
	if validate != nil {
		if err := validate(d); err != nil {
			return nil, err
		}
	}
	mutate(d)

	res, err := conn.ExecContext(ctx, `UPDATE documents SET
			status = $2, rejection_reason = $3, notes = $4, validated_by = $5, validated_at = $6
		WHERE id = $1 AND status = 'pending'`,
		uuid.UUID(d.ID), string(d.Status), postgres.NullString(d.RejectionReason),
		postgres.NullString(d.Notes), adminArg(d.ValidatedBy), postgres.NullTime(d.ValidatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("update document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update document rows affected: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("document %s: %w", d.ID, sentinel.ErrInvalidState)
	}
	return d, nil
}

func scanDocuments(rows *sql.Rows) ([]*models.Document, error) {
	defer rows.Close()
	out := make([]*models.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var (
		d           models.Document
		rawID       uuid.UUID
		owner       uuid.UUID
		docType     string
		status      string
		reason      sql.NullString
		notes       sql.NullString
		validatedBy uuid.NullUUID
		validatedAt sql.NullTime
		supersedes  uuid.NullUUID
	)
	err := row.Scan(&rawID, &owner, &docType, &status, &d.FileRef, &reason, &notes,
		&validatedBy, &validatedAt, &supersedes, &d.SubmittedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("document: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	d.ID = id.DocumentID(rawID)
	d.OwnerID = id.UserID(owner)
	d.Type = id.DocumentType(docType)
	d.Status = models.Status(status)
	d.RejectionReason = reason.String
	d.Notes = notes.String
	if validatedBy.Valid {
		admin := id.AdminID(validatedBy.UUID)
		d.ValidatedBy = &admin
	}
	d.ValidatedAt = postgres.TimePtr(validatedAt)
	if supersedes.Valid {
		prev := id.DocumentID(supersedes.UUID)
		d.SupersedesID = &prev
	}
	return &d, nil
}

func adminArg(a *id.AdminID) uuid.NullUUID {
	if a == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*a), Valid: true}
}

func documentArg(d *id.DocumentID) uuid.NullUUID {
	if d == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*d), Valid: true}
}
