package workflow

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"trustcore/internal/audittrail"
	documentModels "trustcore/internal/document/models"
	"trustcore/internal/identity/models"
	"trustcore/internal/notification"
	id "trustcore/pkg/domain"
	dErrors "trustcore/pkg/domain-errors"
)

// verification is what the owner's approved documents prove.
type verification struct {
	identity  bool
	financial bool
}

// verificationFrom derives the group flags from approved document types.
// Identity needs both the identity card and the selfie; financial needs
// either proof.
func verificationFrom(approved []id.DocumentType) verification {
	has := make(map[id.DocumentType]bool, len(approved))
	for _, t := range approved {
		has[t] = true
	}
	return verification{
		identity:  has[id.DocumentTypeIdentityCard] && has[id.DocumentTypeSelfieWithID],
		financial: has[id.DocumentTypeIncomeProof] || has[id.DocumentTypeOwnershipProof],
	}
}

// OnDocumentDecision reacts to an admin decision on one of the user's
// documents. Under the owner's lock it appends the audit record, recomputes
// the identity and financial flags from the approved documents, advances the
// status to documents_approved when both hold, and recomputes the score.
//
// A rejection forces the flag of the document's group to false, even when
// another document of that group is still approved, for example an income
// proof rejected next to an approved ownership proof. The status does not
// move back; the flag is restored by the next approval in the group. An
// audit failure aborts the whole reaction.
func (s *Service) OnDocumentDecision(ctx context.Context, decision documentModels.Decision) error {
	ctx, span := s.tracer.Start(ctx, "workflow.OnDocumentDecision")
	defer span.End()

	doc := decision.Document
	if doc == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "decision has no document")
	}
	if !doc.Status.IsDecided() {
		return dErrors.New(dErrors.CodeInvariantViolation, "document has no decision")
	}
	span.SetAttributes(
		attribute.String("document.type", doc.Type.String()),
		attribute.Bool("document.approved", decision.Approved),
	)

	return s.locker.RunForUser(ctx, doc.OwnerID, func(ctx context.Context) error {
		docID := doc.ID
		metadata := map[string]string{}
		if decision.Notes != "" {
			metadata["notes"] = decision.Notes
		}
		if doc.SupersedesID != nil {
			metadata["supersedes_id"] = doc.SupersedesID.String()
		}
		if _, err := s.audit.Record(ctx, audittrail.Entry{
			UserID:       doc.OwnerID,
			AdminID:      decision.Admin,
			DocumentID:   &docID,
			DocumentType: doc.Type,
			Approved:     decision.Approved,
			Reason:       decision.Reason,
			Metadata:     metadata,
			DecidedAt:    decidedAt(doc),
		}); err != nil {
			return err
		}

		approved, err := s.documents.ApprovedTypes(ctx, doc.OwnerID)
		if err != nil {
			return err
		}
		v := verificationFrom(approved)
		if !decision.Approved {
			switch doc.Group() {
			case id.GroupIdentity:
				v.identity = false
			case id.GroupFinancial:
				v.financial = false
			}
		}

		_, err = s.apply(ctx, "document_decision", doc.OwnerID, nil,
			func(u *models.User, now time.Time) bool {
				changed := u.SetVerification(id.GroupIdentity, v.identity, now)
				if u.SetVerification(id.GroupFinancial, v.financial, now) {
					changed = true
				}
				if u.IdentityVerified.Set && u.FinancialDocsVerified.Set {
					u.AdvanceTo(models.StatusDocumentsApproved, now)
				}
				return changed
			},
			func(ctx context.Context, res Result) error {
				kind := notification.KindDocumentApproved
				payload := map[string]string{
					"document_id":   doc.ID.String(),
					"document_type": doc.Type.String(),
				}
				if !decision.Approved {
					kind = notification.KindDocumentRejected
					payload["reason"] = decision.Reason
				}
				s.notify(ctx, doc.OwnerID, kind, payload)
				return nil
			},
		)
		return err
	})
}

func decidedAt(doc *documentModels.Document) time.Time {
	if doc.ValidatedAt != nil {
		return *doc.ValidatedAt
	}
	return time.Time{}
}
