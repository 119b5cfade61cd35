package domain

import dErrors "trustcore/pkg/domain-errors"

// DocumentType is a domain value identifying which proof a document carries.
// Invariant: the value must be one of the supported document types.
//
// Usage: construct via ParseDocumentType at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type DocumentType string

const (
	DocumentTypeIdentityCard   DocumentType = "identity_card"
	DocumentTypeSelfieWithID   DocumentType = "selfie_with_id"
	DocumentTypeIncomeProof    DocumentType = "income_proof"
	DocumentTypeOwnershipProof DocumentType = "ownership_proof"
)

// VerificationGroup is the user-level verification flag a document type feeds.
type VerificationGroup string

const (
	GroupIdentity  VerificationGroup = "identity"
	GroupFinancial VerificationGroup = "financial"
)

var documentGroups = map[DocumentType]VerificationGroup{
	DocumentTypeIdentityCard:   GroupIdentity,
	DocumentTypeSelfieWithID:   GroupIdentity,
	DocumentTypeIncomeProof:    GroupFinancial,
	DocumentTypeOwnershipProof: GroupFinancial,
}

// ParseDocumentType constructs a DocumentType from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseDocumentType(s string) (DocumentType, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "document type cannot be empty")
	}
	t := DocumentType(s)
	if !t.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid document type")
	}
	return t, nil
}

// IsValid checks if the document type is one of the supported enum values.
func (t DocumentType) IsValid() bool {
	_, ok := documentGroups[t]
	return ok
}

// Group returns the verification flag this document type contributes to.
func (t DocumentType) Group() VerificationGroup {
	return documentGroups[t]
}

func (t DocumentType) String() string {
	return string(t)
}
