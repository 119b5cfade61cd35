package workflow

import (
	"context"
	"time"

	"trustcore/internal/identity/models"
	"trustcore/internal/notification"
	id "trustcore/pkg/domain"
	dErrors "trustcore/pkg/domain-errors"
)

// ConfirmEmail marks the email verified and moves a pending user to
// email_confirmed. Confirming twice is a no-op with Changed false.
func (s *Service) ConfirmEmail(ctx context.Context, userID id.UserID) (Result, error) {
	ctx, span := s.tracer.Start(ctx, "workflow.ConfirmEmail")
	defer span.End()

	return s.apply(ctx, "confirm_email", userID, nil,
		func(u *models.User, now time.Time) bool {
			if !u.EmailVerified.Mark(now) {
				return false
			}
			u.UpdatedAt = now
			u.AdvanceTo(models.StatusEmailConfirmed, now)
			return true
		},
		func(ctx context.Context, res Result) error {
			if !res.Changed {
				return nil
			}
			s.logInfo(ctx, "email_confirmed", "user_id", userID.String(), "status", res.User.Status.String())
			s.notify(ctx, userID, notification.KindEmailConfirmed, nil)
			return nil
		},
	)
}

// VerifyPhone marks the phone verified. It has no score weight but gates
// listing creation. Verifying twice is a no-op.
func (s *Service) VerifyPhone(ctx context.Context, userID id.UserID) (Result, error) {
	ctx, span := s.tracer.Start(ctx, "workflow.VerifyPhone")
	defer span.End()

	return s.apply(ctx, "verify_phone", userID, nil,
		func(u *models.User, now time.Time) bool {
			if !u.PhoneVerified.Mark(now) {
				return false
			}
			u.UpdatedAt = now
			return true
		},
		nil,
	)
}

// AcceptConsents grants the requested consents. Each consent keeps the time
// it was first given.
func (s *Service) AcceptConsents(ctx context.Context, userID id.UserID, req ConsentRequest) (Result, error) {
	ctx, span := s.tracer.Start(ctx, "workflow.AcceptConsents")
	defer span.End()

	if req.empty() {
		return Result{}, dErrors.New(dErrors.CodeValidation, "at least one consent is required")
	}
	return s.apply(ctx, "accept_consents", userID, nil,
		func(u *models.User, now time.Time) bool {
			return grantConsents(u, req, now)
		},
		nil,
	)
}
