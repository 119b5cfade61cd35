// Package domain holds domain primitives shared across modules: typed
// identifiers and enumerated values that are validated at trust boundaries.
package domain

import (
	"github.com/google/uuid"

	dErrors "trustcore/pkg/domain-errors"
)

// UserID identifies a marketplace user.
type UserID uuid.UUID

// DocumentID identifies one submitted verification document.
type DocumentID uuid.UUID

// AdminID identifies the back-office actor who takes a moderation decision.
type AdminID uuid.UUID

func (id UserID) String() string     { return uuid.UUID(id).String() }
func (id DocumentID) String() string { return uuid.UUID(id).String() }
func (id AdminID) String() string    { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id DocumentID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id AdminID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// NewUserID, NewDocumentID and NewAdminID mint random (v4) identifiers.
func NewUserID() UserID         { return UserID(uuid.New()) }
func NewDocumentID() DocumentID { return DocumentID(uuid.New()) }
func NewAdminID() AdminID       { return AdminID(uuid.New()) }

// ParseUserID parses external input into a UserID.
// Errors: CodeInvalidInput for empty, malformed or nil UUIDs.
func ParseUserID(s string) (UserID, error) {
	u, err := parseID("user", s)
	return UserID(u), err
}

// ParseDocumentID parses external input into a DocumentID.
func ParseDocumentID(s string) (DocumentID, error) {
	u, err := parseID("document", s)
	return DocumentID(u), err
}

// ParseAdminID parses external input into an AdminID.
func ParseAdminID(s string) (AdminID, error) {
	u, err := parseID("admin", s)
	return AdminID(u), err
}

func parseID(kind, s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" ID cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind+" ID format")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" ID cannot be nil")
	}
	return u, nil
}
