// Package workflow is the verification state machine for marketplace users.
//
// It owns every write to a user's verification facts: email and phone
// confirmation, consents, personal info, document-driven identity and
// financial flags, admin activation and suspension. Each write recomputes
// the trust score under the user's lock and queues notifications that are
// delivered only after the write commits.
package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"

	"trustcore/internal/audittrail"
	"trustcore/internal/identity/models"
	"trustcore/internal/notification"
	"trustcore/internal/trustscore"
	"trustcore/internal/workflow/metrics"
	id "trustcore/pkg/domain"
	dErrors "trustcore/pkg/domain-errors"
	"trustcore/pkg/platform/sentinel"
	"trustcore/pkg/platform/tx"
	"trustcore/pkg/requestcontext"
)

// UserStore persists users. Execute runs validate (skipped when nil) and
// mutate atomically on one stored user.
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Execute(ctx context.Context, userID id.UserID, validate func(*models.User) error, mutate func(*models.User)) (*models.User, error)
}

// DocumentQuery reads the owner's approved documents.
type DocumentQuery interface {
	ApprovedTypes(ctx context.Context, owner id.UserID) ([]id.DocumentType, error)
}

// AuditRecorder appends and reads admin decisions.
type AuditRecorder interface {
	Record(ctx context.Context, e audittrail.Entry) (*audittrail.Record, error)
	History(ctx context.Context, userID id.UserID) ([]audittrail.Record, error)
}

// Notifier queues a user-facing event. It must not block.
type Notifier interface {
	Notify(ctx context.Context, userID id.UserID, kind notification.Kind, payload map[string]string)
}

// UserLocker serializes work on a single user's state.
type UserLocker interface {
	RunForUser(ctx context.Context, userID id.UserID, fn func(ctx context.Context) error) error
}

// Result is the outcome of a user write. Changed is false for idempotent
// repeats; Score reports the trust score recomputation done with the write.
type Result struct {
	User    *models.User
	Changed bool
	Score   trustscore.Change
}

// Service orchestrates the user verification workflow.
type Service struct {
	users      UserStore
	documents  DocumentQuery
	audit      AuditRecorder
	notifier   Notifier
	locker     UserLocker
	validator  *validator.Validate
	bcryptCost int
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
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

// WithNotifier sets the notification collaborator. Without one, events are
// not raised.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithBcryptCost overrides bcrypt.DefaultCost for password hashing.
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.bcryptCost = cost
		}
	}
}

// New constructs a Service.
func New(users UserStore, documents DocumentQuery, audit AuditRecorder, locker UserLocker, opts ...Option) *Service {
	s := &Service{
		users:      users,
		documents:  documents,
		audit:      audit,
		locker:     locker,
		validator:  validator.New(validator.WithRequiredStructEnabled()),
		bcryptCost: bcrypt.DefaultCost,
		tracer:     otel.Tracer("trustcore/workflow"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the user.
func (s *Service) Get(ctx context.Context, userID id.UserID) (*models.User, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, translateUserError(err)
	}
	return u, nil
}

// History returns the admin decisions on the user's documents, newest first.
func (s *Service) History(ctx context.Context, userID id.UserID) ([]audittrail.Record, error) {
	return s.audit.History(ctx, userID)
}

// apply runs one write against the user under the user's lock: validate and
// mutate are atomic with respect to every other write on the same user, and
// the trust score is recomputed before the user is stored. after runs with
// the stored result while the lock is still held.
func (s *Service) apply(
	ctx context.Context,
	operation string,
	userID id.UserID,
	validate func(*models.User) error,
	mutate func(u *models.User, now time.Time) bool,
	after func(ctx context.Context, res Result) error,
) (Result, error) {
	var res Result
	err := s.locker.RunForUser(ctx, userID, func(ctx context.Context) error {
		now := requestcontext.Now(ctx)
		var before models.Status
		u, err := s.users.Execute(ctx, userID, validate, func(u *models.User) {
			before = u.Status
			res.Changed = mutate(u, now)
			res.Score = trustscore.Apply(u)
			if res.Score.Changed {
				u.UpdatedAt = now
			}
		})
		if err != nil {
			return translateUserError(err)
		}
		res.User = u

		if after != nil {
			if err := after(ctx, res); err != nil {
				return err
			}
		}
		if res.Score.Increased {
			s.notify(ctx, userID, notification.KindTrustScoreIncreased, map[string]string{
				"old_score": formatScore(res.Score.Old),
				"new_score": formatScore(res.Score.New),
			})
		}
		s.afterCommit(ctx, func() {
			s.observe(operation, res, before)
		})
		return nil
	})
	if err != nil {
		s.observeFailure(ctx, operation, userID, err)
		return Result{}, err
	}
	return res, nil
}

// notify queues an event for delivery once the enclosing write commits.
func (s *Service) notify(ctx context.Context, userID id.UserID, kind notification.Kind, payload map[string]string) {
	if s.notifier == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	tx.AfterCommit(ctx, func() {
		s.notifier.Notify(ctx, userID, kind, payload)
	})
}

func (s *Service) afterCommit(ctx context.Context, fn func()) {
	tx.AfterCommit(ctx, fn)
}

func (s *Service) observe(operation string, res Result, before models.Status) {
	if s.metrics == nil {
		return
	}
	outcome := "unchanged"
	if res.Changed {
		outcome = "changed"
	}
	s.metrics.IncrementOperation(operation, outcome)
	if res.User != nil && res.User.Status != before {
		s.metrics.IncrementStatusChange(res.User.Status.String())
	}
	if res.Score.Changed {
		s.metrics.ObserveScore(res.Score.New, res.Score.Increased)
	}
}

func (s *Service) observeFailure(ctx context.Context, operation string, userID id.UserID, err error) {
	if dErrors.IsPrecondition(err) {
		if s.metrics != nil {
			s.metrics.IncrementOperation(operation, "rejected")
		}
		return
	}
	if s.metrics != nil {
		s.metrics.IncrementOperation(operation, "failed")
	}
	s.logError(ctx, operation+"_failed", err, "user_id", userID.String())
}

func translateUserError(err error) error {
	switch {
	case dErrors.CodeOf(err) != "":
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "user not found")
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.New(dErrors.CodeConflict, "email is already registered")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "user store failure")
	}
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
