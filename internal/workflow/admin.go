package workflow

import (
	"context"
	"strings"
	"time"

	"trustcore/internal/identity/models"
	"trustcore/internal/notification"
	id "trustcore/pkg/domain"
	dErrors "trustcore/pkg/domain-errors"
)

// Activate is the admin decision that opens the marketplace to the user. It
// is allowed from documents_approved, or from suspended to lift a suspension.
// Nothing activates a user automatically.
func (s *Service) Activate(ctx context.Context, userID id.UserID, admin id.AdminID) (Result, error) {
	ctx, span := s.tracer.Start(ctx, "workflow.Activate")
	defer span.End()

	if admin.IsNil() {
		return Result{}, dErrors.New(dErrors.CodeInvalidInput, "admin is required")
	}

	var previous models.Status
	return s.apply(ctx, "activate", userID,
		func(u *models.User) error {
			return u.CanActivate()
		},
		func(u *models.User, now time.Time) bool {
			previous = u.Status
			u.ApplyActivation(now)
			return true
		},
		func(ctx context.Context, res Result) error {
			s.logAudit(ctx, "user_activated",
				"user_id", userID.String(),
				"admin_id", admin.String(),
				"previous_status", previous.String(),
			)
			s.notify(ctx, userID, notification.KindAccountActivated, nil)
			return nil
		},
	)
}

// Suspend blocks the user from any state but suspended. The reason is
// required and stored on the user; only Activate reverses a suspension.
func (s *Service) Suspend(ctx context.Context, userID id.UserID, admin id.AdminID, reason string) (Result, error) {
	ctx, span := s.tracer.Start(ctx, "workflow.Suspend")
	defer span.End()

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Result{}, dErrors.New(dErrors.CodeMissingReason, "suspension reason is required")
	}
	if admin.IsNil() {
		return Result{}, dErrors.New(dErrors.CodeInvalidInput, "admin is required")
	}

	var previous models.Status
	return s.apply(ctx, "suspend", userID,
		func(u *models.User) error {
			return u.CanSuspend(reason)
		},
		func(u *models.User, now time.Time) bool {
			previous = u.Status
			u.ApplySuspension(admin, reason, now)
			return true
		},
		func(ctx context.Context, res Result) error {
			s.logAudit(ctx, "user_suspended",
				"user_id", userID.String(),
				"admin_id", admin.String(),
				"previous_status", previous.String(),
				"reason", reason,
			)
			s.notify(ctx, userID, notification.KindAccountSuspended, nil)
			return nil
		},
	)
}
