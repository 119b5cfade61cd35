// Package service implements the document review lifecycle: submission,
// admin approval or rejection, and resubmission of rejected documents.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"trustcore/internal/document/metrics"
	"trustcore/internal/document/models"
	identityModels "trustcore/internal/identity/models"
	id "trustcore/pkg/domain"
	dErrors "trustcore/pkg/domain-errors"
	"trustcore/pkg/platform/sentinel"
	txcontext "trustcore/pkg/platform/tx"
	"trustcore/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, d *models.Document) error
	FindByID(ctx context.Context, docID id.DocumentID) (*models.Document, error)
	FindPending(ctx context.Context, owner id.UserID, docType id.DocumentType) (*models.Document, error)
	ListByOwner(ctx context.Context, owner id.UserID) ([]*models.Document, error)
	ListApprovedTypes(ctx context.Context, owner id.UserID) ([]id.DocumentType, error)
	ListPending(ctx context.Context, limit int) ([]*models.Document, error)
	Execute(ctx context.Context, docID id.DocumentID, validate func(*models.Document) error, mutate func(*models.Document)) (*models.Document, error)
}

// OwnerLookup confirms that a document owner is a registered user.
type OwnerLookup interface {
	FindByID(ctx context.Context, userID id.UserID) (*identityModels.User, error)
}

// UserLocker serializes work on a single user's state.
type UserLocker interface {
	RunForUser(ctx context.Context, userID id.UserID, fn func(ctx context.Context) error) error
}

// DecisionListener is told about every successful decision while the owner's
// lock is still held. A listener error aborts the decision.
type DecisionListener interface {
	OnDocumentDecision(ctx context.Context, decision models.Decision) error
}

// Result reports whether an idempotent operation created anything.
type Result struct {
	Document *models.Document
	Changed  bool
}

// Service orchestrates the document review lifecycle.
type Service struct {
	store     Store
	owners    OwnerLookup
	locker    UserLocker
	listener  DecisionListener
	validator *validator.Validate
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithDecisionListener sets the listener notified after approve and reject.
func WithDecisionListener(l DecisionListener) Option {
	return func(s *Service) {
		s.listener = l
	}
}

// New constructs a Service.
func New(store Store, owners OwnerLookup, locker UserLocker, opts ...Option) *Service {
	s := &Service{
		store:     store,
		owners:    owners,
		locker:    locker,
		validator: validator.New(validator.WithRequiredStructEnabled()),
		tracer:    otel.Tracer("trustcore/document"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetDecisionListener wires the listener after construction, for callers
// whose listener itself depends on this service.
func (s *Service) SetDecisionListener(l DecisionListener) {
	s.listener = l
}

// Submit creates a pending document. An unknown owner fails with
// CodeNotFound and a pending document of the same type for the same owner
// fails with CodeDuplicatePending; neither stores anything.
func (s *Service) Submit(ctx context.Context, req models.SubmitRequest) (*models.Document, error) {
	ctx, span := s.tracer.Start(ctx, "document.Submit")
	defer span.End()

	req.Normalize()
	if err := s.validator.Struct(req); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid document submission")
	}
	docType, err := id.ParseDocumentType(req.Type)
	if err != nil {
		return nil, err
	}
	if err := s.requireOwner(ctx, req.OwnerID); err != nil {
		return nil, err
	}

	if pending, err := s.HasPending(ctx, req.OwnerID, docType); err != nil {
		return nil, err
	} else if pending {
		return nil, dErrors.New(dErrors.CodeDuplicatePending, "a "+docType.String()+" document is already pending review")
	}

	d, err := models.NewDocument(id.NewDocumentID(), req.OwnerID, docType, req.FileRef, requestcontext.Now(ctx))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid document submission")
	}
	if err := s.create(ctx, d); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("document.type", docType.String()))
	s.logInfo(ctx, "document_submitted",
		"user_id", d.OwnerID.String(),
		"document_id", d.ID.String(),
		"document_type", d.Type.String(),
	)
	if s.metrics != nil {
		s.metrics.IncrementSubmitted(d.Type.String())
	}
	return d, nil
}

// Approve records an approval. A document that already has a decision fails
// with CodeAlreadyProcessed.
func (s *Service) Approve(ctx context.Context, docID id.DocumentID, admin id.AdminID, notes string) (*models.Document, error) {
	ctx, span := s.tracer.Start(ctx, "document.Approve")
	defer span.End()

	return s.decide(ctx, docID, admin, true, "", notes)
}

// Reject records a rejection. The reason is mandatory; an empty reason fails
// with CodeMissingReason before anything is loaded or changed.
func (s *Service) Reject(ctx context.Context, docID id.DocumentID, admin id.AdminID, reason, notes string) (*models.Document, error) {
	ctx, span := s.tracer.Start(ctx, "document.Reject")
	defer span.End()

	if strings.TrimSpace(reason) == "" {
		return nil, dErrors.New(dErrors.CodeMissingReason, "rejection reason is required")
	}
	return s.decide(ctx, docID, admin, false, reason, notes)
}

func (s *Service) decide(ctx context.Context, docID id.DocumentID, admin id.AdminID, approve bool, reason, notes string) (*models.Document, error) {
	start := time.Now()
	if admin.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "admin is required")
	}

	current, err := s.Get(ctx, docID)
	if err != nil {
		return nil, err
	}
	// Execute re-checks under the owner's lock.
	if err := current.CanDecide(); err != nil {
		return nil, err
	}

	var decided, before *models.Document
	err = s.locker.RunForUser(ctx, current.OwnerID, func(ctx context.Context) error {
		now := requestcontext.Now(ctx)
		d, err := s.store.Execute(ctx, docID,
			func(d *models.Document) error {
				if approve {
					return d.CanDecide()
				}
				return d.CanReject(reason)
			},
			func(d *models.Document) {
				before = d.Clone()
				if approve {
					d.ApplyApproval(admin, notes, now)
				} else {
					d.ApplyRejection(admin, reason, notes, now)
				}
			},
		)
		if err != nil {
			return translateDecisionError(err)
		}
		if s.listener != nil {
			if err := s.listener.OnDocumentDecision(ctx, models.Decision{
				Document: d.Clone(),
				Admin:    admin,
				Approved: approve,
				Reason:   d.RejectionReason,
				Notes:    d.Notes,
			}); err != nil {
				s.revertDecision(ctx, before)
				return err
			}
		}
		decided = d
		return nil
	})
	if err != nil {
		if !dErrors.IsPrecondition(err) {
			s.logError(ctx, "document_decision_failed", err, "document_id", docID.String())
		}
		return nil, err
	}

	s.logAudit(ctx, decisionEvent(approve),
		"user_id", decided.OwnerID.String(),
		"document_id", decided.ID.String(),
		"document_type", decided.Type.String(),
		"admin_id", admin.String(),
		"reason", decided.RejectionReason,
	)
	if s.metrics != nil {
		s.metrics.IncrementDecision(decided.Type.String(), approve)
		s.metrics.ObserveDecision(start)
	}
	return decided, nil
}

// revertDecision puts a decided document back to pending after the listener
// refused the decision. Inside a database transaction the rollback already
// does this.
func (s *Service) revertDecision(ctx context.Context, before *models.Document) {
	if _, inTx := txcontext.From(ctx); inTx || before == nil {
		return
	}
	_, err := s.store.Execute(ctx, before.ID,
		func(d *models.Document) error {
			if !d.Status.IsDecided() {
				return sentinel.ErrInvalidState
			}
			return nil
		},
		func(d *models.Document) { *d = *before.Clone() },
	)
	if err != nil {
		s.logError(ctx, "document_decision_revert_failed", err, "document_id", before.ID.String())
	}
}

// Resubmit creates a new pending document superseding a rejected one. When
// the rejected document was already resubmitted and that resubmission is
// still pending, it is returned unchanged.
func (s *Service) Resubmit(ctx context.Context, docID id.DocumentID, fileRef string) (Result, error) {
	ctx, span := s.tracer.Start(ctx, "document.Resubmit")
	defer span.End()

	rejected, err := s.Get(ctx, docID)
	if err != nil {
		return Result{}, err
	}
	if err := rejected.CanResubmit(); err != nil {
		return Result{}, err
	}

	existing, err := s.store.FindPending(ctx, rejected.OwnerID, rejected.Type)
	switch {
	case err == nil:
		if existing.SupersedesID != nil && *existing.SupersedesID == rejected.ID {
			return Result{Document: existing, Changed: false}, nil
		}
		return Result{}, dErrors.New(dErrors.CodeDuplicatePending, "a "+rejected.Type.String()+" document is already pending review")
	case !errors.Is(err, sentinel.ErrNotFound):
		return Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check pending documents")
	}

	next, err := rejected.NewResubmission(id.NewDocumentID(), fileRef, requestcontext.Now(ctx))
	if err != nil {
		return Result{}, err
	}
	if err := s.create(ctx, next); err != nil {
		return Result{}, err
	}

	s.logInfo(ctx, "document_resubmitted",
		"user_id", next.OwnerID.String(),
		"document_id", next.ID.String(),
		"supersedes_id", rejected.ID.String(),
	)
	if s.metrics != nil {
		s.metrics.IncrementSubmitted(next.Type.String())
	}
	return Result{Document: next, Changed: true}, nil
}

// HasPending reports whether the owner has a document of this type awaiting review.
func (s *Service) HasPending(ctx context.Context, owner id.UserID, docType id.DocumentType) (bool, error) {
	_, err := s.store.FindPending(ctx, owner, docType)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check pending documents")
}

func (s *Service) Get(ctx context.Context, docID id.DocumentID) (*models.Document, error) {
	d, err := s.store.FindByID(ctx, docID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "document not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load document")
	}
	return d, nil
}

func (s *Service) ListByOwner(ctx context.Context, owner id.UserID) ([]*models.Document, error) {
	docs, err := s.store.ListByOwner(ctx, owner)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list documents")
	}
	return docs, nil
}

// ListPending returns the admin review queue, oldest first. A non-positive
// limit returns everything.
func (s *Service) ListPending(ctx context.Context, limit int) ([]*models.Document, error) {
	docs, err := s.store.ListPending(ctx, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list pending documents")
	}
	return docs, nil
}

// ApprovedTypes returns the distinct approved document types of the owner.
func (s *Service) ApprovedTypes(ctx context.Context, owner id.UserID) ([]id.DocumentType, error) {
	types, err := s.store.ListApprovedTypes(ctx, owner)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list approved documents")
	}
	return types, nil
}

func (s *Service) requireOwner(ctx context.Context, owner id.UserID) error {
	if _, err := s.owners.FindByID(ctx, owner); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up document owner")
	}
	return nil
}

func (s *Service) create(ctx context.Context, d *models.Document) error {
	if err := s.store.Create(ctx, d); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return dErrors.New(dErrors.CodeDuplicatePending, "a "+d.Type.String()+" document is already pending review")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store document")
	}
	return nil
}

func translateDecisionError(err error) error {
	switch {
	case dErrors.CodeOf(err) != "":
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "document not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeAlreadyProcessed, "document already decided")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record decision")
	}
}

func decisionEvent(approved bool) string {
	if approved {
		return "document_approved"
	}
	return "document_rejected"
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	if s.logger != nil {
		s.logger.InfoContext(ctx, event, args...)
	}
}

func (s *Service) logInfo(ctx context.Context, msg string, attributes ...any) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, msg, attributes...)
	}
}

func (s *Service) logError(ctx context.Context, msg string, err error, attributes ...any) {
	if s.logger != nil {
		s.logger.ErrorContext(ctx, msg, append(attributes, "error", err)...)
	}
}
