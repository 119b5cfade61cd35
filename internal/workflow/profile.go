package workflow

import (
	"context"
	"time"

	"trustcore/internal/identity/models"
	id "trustcore/pkg/domain"
	dErrors "trustcore/pkg/domain-errors"
)

// UpdateProfile stores the user's personal information. Changing any field
// withdraws a previous admin validation, which can lower the score.
func (s *Service) UpdateProfile(ctx context.Context, userID id.UserID, profile models.Profile) (Result, error) {
	ctx, span := s.tracer.Start(ctx, "workflow.UpdateProfile")
	defer span.End()

	profile = normalizeProfile(profile)
	if err := s.validator.Struct(profile); err != nil {
		return Result{}, dErrors.Wrap(err, dErrors.CodeValidation, "invalid personal information")
	}
	return s.apply(ctx, "update_profile", userID, nil,
		func(u *models.User, now time.Time) bool {
			return u.UpdateProfile(profile, now)
		},
		nil,
	)
}

// ValidatePersonalInfo is the admin check of a complete profile. An
// incomplete profile fails with CodeInvalidTransition.
func (s *Service) ValidatePersonalInfo(ctx context.Context, userID id.UserID, admin id.AdminID) (Result, error) {
	ctx, span := s.tracer.Start(ctx, "workflow.ValidatePersonalInfo")
	defer span.End()

	if admin.IsNil() {
		return Result{}, dErrors.New(dErrors.CodeInvalidInput, "admin is required")
	}
	return s.apply(ctx, "validate_personal_info", userID,
		func(u *models.User) error {
			return u.CanValidateProfile()
		},
		func(u *models.User, now time.Time) bool {
			if !u.ProfileValidated.Mark(now) {
				return false
			}
			u.UpdatedAt = now
			return true
		},
		func(ctx context.Context, res Result) error {
			if res.Changed {
				s.logAudit(ctx, "personal_info_validated",
					"user_id", userID.String(),
					"admin_id", admin.String(),
				)
			}
			return nil
		},
	)
}
