package audittrail

import (
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	id "trustcore/pkg/domain"
	dErrors "trustcore/pkg/domain-errors"
)

// Record is an immutable admin decision on a user's document.
//
// Invariants:
//   - ID is a ULID; for equal DecidedAt, a later record has a greater ID
//   - Reason is non-empty when Approved is false
//   - Records are append-only: there is no update or delete
type Record struct {
	ID           ulid.ULID         `json:"id"`
	UserID       id.UserID         `json:"user_id"`
	AdminID      id.AdminID        `json:"admin_id"`
	DocumentID   *id.DocumentID    `json:"document_id,omitempty"`
	DocumentType id.DocumentType   `json:"document_type"`
	Approved     bool              `json:"approved"`
	Reason       string            `json:"reason,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	DecidedAt    time.Time         `json:"decided_at"`
}

// Entry is the input to Trail.Record.
type Entry struct {
	UserID       id.UserID
	AdminID      id.AdminID
	DocumentID   *id.DocumentID
	DocumentType id.DocumentType
	Approved     bool
	Reason       string
	Metadata     map[string]string
	DecidedAt    time.Time
}

// NewRecord validates an entry and assigns it an id.
func NewRecord(e Entry) (*Record, error) {
	if e.UserID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "audit record requires a user")
	}
	if e.AdminID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "audit record requires an admin")
	}
	if !e.DocumentType.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "audit record requires a document type")
	}
	reason := strings.TrimSpace(e.Reason)
	if !e.Approved && reason == "" {
		return nil, dErrors.New(dErrors.CodeMissingReason, "rejection reason is required")
	}
	if e.DecidedAt.IsZero() {
		e.DecidedAt = time.Now()
	}
	return &Record{
		ID:           ulid.Make(),
		UserID:       e.UserID,
		AdminID:      e.AdminID,
		DocumentID:   e.DocumentID,
		DocumentType: e.DocumentType,
		Approved:     e.Approved,
		Reason:       reason,
		Metadata:     copyMetadata(e.Metadata),
		DecidedAt:    e.DecidedAt,
	}, nil
}

func copyMetadata(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (r Record) clone() Record {
	r.Metadata = copyMetadata(r.Metadata)
	if r.DocumentID != nil {
		d := *r.DocumentID
		r.DocumentID = &d
	}
	return r
}

// newestFirst orders by decision time descending, ties broken by id.
func newestFirst(a, b Record) bool {
	if !a.DecidedAt.Equal(b.DecidedAt) {
		return a.DecidedAt.After(b.DecidedAt)
	}
	return a.ID.Compare(b.ID) > 0
}
