package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	id "trustcore/pkg/domain"
)

func TestVerificationFrom(t *testing.T) {
	tests := []struct {
		name     string
		approved []id.DocumentType
		want     verification
	}{
		{"nothing approved", nil, verification{}},
		{"identity card alone", []id.DocumentType{id.DocumentTypeIdentityCard}, verification{}},
		{"selfie alone", []id.DocumentType{id.DocumentTypeSelfieWithID}, verification{}},
		{"identity pair", []id.DocumentType{id.DocumentTypeSelfieWithID, id.DocumentTypeIdentityCard}, verification{identity: true}},
		{"income proof", []id.DocumentType{id.DocumentTypeIncomeProof}, verification{financial: true}},
		{"ownership proof", []id.DocumentType{id.DocumentTypeOwnershipProof}, verification{financial: true}},
		{"everything", []id.DocumentType{
			id.DocumentTypeIdentityCard,
			id.DocumentTypeSelfieWithID,
			id.DocumentTypeIncomeProof,
			id.DocumentTypeOwnershipProof,
		}, verification{identity: true, financial: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, verificationFrom(tt.approved))
		})
	}
}
