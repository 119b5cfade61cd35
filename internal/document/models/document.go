package models

import (
	"strings"
	"time"

	id "trustcore/pkg/domain"
	dErrors "trustcore/pkg/domain-errors"
)

// Status is the review state of a submitted document.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// IsDecided reports whether the document has left pending. Decided
// documents never change again.
func (s Status) IsDecided() bool {
	return s == StatusApproved || s == StatusRejected
}

func (s Status) String() string {
	return string(s)
}

// Document is a verification document a user submits for admin review.
//
// Invariants:
//   - Status moves pending -> approved or pending -> rejected, never back
//   - Approved documents are immutable and never deleted
//   - A rejected document is superseded by a new record (SupersedesID), never
//     reopened in place
//   - FileRef is opaque; it is stored, never dereferenced
//   - ValidatedBy and ValidatedAt are set together, on decision only
type Document struct {
	ID              id.DocumentID   `json:"id"`
	OwnerID         id.UserID       `json:"owner_id"`
	Type            id.DocumentType `json:"type"`
	Status          Status          `json:"status"`
	FileRef         string          `json:"file_ref"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	ValidatedBy     *id.AdminID     `json:"validated_by,omitempty"`
	ValidatedAt     *time.Time      `json:"validated_at,omitempty"`
	SupersedesID    *id.DocumentID  `json:"supersedes_id,omitempty"`
	SubmittedAt     time.Time       `json:"submitted_at"`
}

// NewDocument creates a pending submission.
func NewDocument(docID id.DocumentID, owner id.UserID, docType id.DocumentType, fileRef string, now time.Time) (*Document, error) {
	if owner.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "document owner is required")
	}
	if !docType.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "unsupported document type")
	}
	fileRef = strings.TrimSpace(fileRef)
	if fileRef == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "file reference is required")
	}
	return &Document{
		ID:          docID,
		OwnerID:     owner,
		Type:        docType,
		Status:      StatusPending,
		FileRef:     fileRef,
		SubmittedAt: now,
	}, nil
}

// Group is the verification group the document counts towards.
func (d *Document) Group() id.VerificationGroup {
	return d.Type.Group()
}

// CanDecide checks that no decision has been recorded yet.
// Use with ApplyApproval or ApplyRejection in Execute callbacks.
func (d *Document) CanDecide() error {
	if d.Status != StatusPending {
		return dErrors.New(dErrors.CodeAlreadyProcessed, "document already "+d.Status.String())
	}
	return nil
}

// CanReject checks the reason, then the decision precondition.
func (d *Document) CanReject(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return dErrors.New(dErrors.CodeMissingReason, "rejection reason is required")
	}
	return d.CanDecide()
}

// ApplyApproval records an approval. Call CanDecide first.
func (d *Document) ApplyApproval(admin id.AdminID, notes string, now time.Time) {
	d.Status = StatusApproved
	d.Notes = strings.TrimSpace(notes)
	d.ValidatedBy = &admin
	d.ValidatedAt = &now
}

// ApplyRejection records a rejection. Call CanReject first.
func (d *Document) ApplyRejection(admin id.AdminID, reason, notes string, now time.Time) {
	d.Status = StatusRejected
	d.RejectionReason = strings.TrimSpace(reason)
	d.Notes = strings.TrimSpace(notes)
	d.ValidatedBy = &admin
	d.ValidatedAt = &now
}

// CanResubmit checks that the document was rejected.
func (d *Document) CanResubmit() error {
	if d.Status != StatusRejected {
		return dErrors.New(dErrors.CodeInvalidTransition, "only rejected documents can be resubmitted")
	}
	return nil
}

// NewResubmission creates the pending record that supersedes a rejected
// document. The rejected record itself is left untouched. An empty fileRef
// keeps the previous reference.
func (d *Document) NewResubmission(docID id.DocumentID, fileRef string, now time.Time) (*Document, error) {
	if err := d.CanResubmit(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(fileRef) == "" {
		fileRef = d.FileRef
	}
	next, err := NewDocument(docID, d.OwnerID, d.Type, fileRef, now)
	if err != nil {
		return nil, err
	}
	prev := d.ID
	next.SupersedesID = &prev
	return next, nil
}

// Clone returns a copy safe to mutate without affecting the original.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	c := *d
	if d.ValidatedBy != nil {
		v := *d.ValidatedBy
		c.ValidatedBy = &v
	}
	if d.ValidatedAt != nil {
		v := *d.ValidatedAt
		c.ValidatedAt = &v
	}
	if d.SupersedesID != nil {
		v := *d.SupersedesID
		c.SupersedesID = &v
	}
	return &c
}

// Decision is what the document service reports to its listener after a
// successful approve or reject.
type Decision struct {
	Document *Document
	Admin    id.AdminID
	Approved bool
	Reason   string
	Notes    string
}

// SubmitRequest is the input for a new document submission.
type SubmitRequest struct {
	OwnerID id.UserID `json:"owner_id" validate:"required"`
	Type    string    `json:"type" validate:"required,oneof=identity_card selfie_with_id income_proof ownership_proof"`
	FileRef string    `json:"file_ref" validate:"required,max=1024"`
}

// Normalize trims user-provided fields.
func (r *SubmitRequest) Normalize() {
	r.Type = strings.ToLower(strings.TrimSpace(r.Type))
	r.FileRef = strings.TrimSpace(r.FileRef)
}
