package audittrail

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"trustcore/internal/platform/postgres"
	id "trustcore/pkg/domain"
)

// PostgresStore appends records to audit_records. A trigger on the table
// rejects UPDATE and DELETE.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Append joins the transaction carried by ctx, so a failed audit write rolls
// back the decision it records.
func (s *PostgresStore) Append(ctx context.Context, r Record) error {
	metadata, err := json.Marshal(r.Metadata)
	if err != nil {
		return fmt.Errorf("marshal audit metadata: %w", err)
	}
	if r.Metadata == nil {
		metadata = []byte("{}")
	}
	var docID uuid.NullUUID
	if r.DocumentID != nil {
		docID = uuid.NullUUID{UUID: uuid.UUID(*r.DocumentID), Valid: true}
	}

	_, err = postgres.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO audit_records
			(id, user_id, admin_id, document_id, document_type, approved, reason, metadata, decided_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		r.ID.String(), uuid.UUID(r.UserID), uuid.UUID(r.AdminID), docID,
		string(r.DocumentType), r.Approved, postgres.NullString(r.Reason), metadata, r.DecidedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]Record, error) {
	rows, err := postgres.Conn(ctx, s.db).QueryContext(ctx, `
		SELECT id, user_id, admin_id, document_id, document_type, approved, reason, metadata, decided_at
		FROM audit_records
		WHERE user_id = $1
		ORDER BY decided_at DESC, id DESC`,
		uuid.UUID(userID),
	)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()

	out := make([]Record, 0)
	for rows.Next() {
		var (
			r        Record
			rawID    string
			user     uuid.UUID
			admin    uuid.UUID
			docID    uuid.NullUUID
			docType  string
			reason   sql.NullString
			metadata []byte
		)
		if err := rows.Scan(&rawID, &user, &admin, &docID, &docType, &r.Approved, &reason, &metadata, &r.DecidedAt); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		if r.ID, err = ulid.ParseStrict(rawID); err != nil {
			return nil, fmt.Errorf("parse audit record id: %w", err)
		}
		r.UserID = id.UserID(user)
		r.AdminID = id.AdminID(admin)
		if docID.Valid {
			d := id.DocumentID(docID.UUID)
			r.DocumentID = &d
		}
		r.DocumentType = id.DocumentType(docType)
		r.Reason = reason.String
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &r.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal audit metadata: %w", err)
			}
			if len(r.Metadata) == 0 {
				r.Metadata = nil
			}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit records: %w", err)
	}
	return out, nil
}
