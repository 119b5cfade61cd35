package workflow

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	"trustcore/internal/identity/models"
	"trustcore/internal/trustscore"
	id "trustcore/pkg/domain"
	dErrors "trustcore/pkg/domain-errors"
	"trustcore/pkg/platform/sentinel"
	"trustcore/pkg/requestcontext"
)

// Register creates a user in pending_verification. The email is compared
// case-insensitively; a taken email fails with CodeConflict.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	ctx, span := s.tracer.Start(ctx, "workflow.Register")
	defer span.End()

	req.Normalize()
	if err := s.validator.Struct(req); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid registration")
	}
	if (req.Password == "") == (req.ExternalID == "") {
		return nil, dErrors.New(dErrors.CodeValidation, "exactly one of password or external id is required")
	}

	if _, err := s.users.FindByEmail(ctx, req.Email); err == nil {
		return nil, dErrors.New(dErrors.CodeConflict, "email is already registered")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check email")
	}

	var hash string
	if req.Password != "" {
		b, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
		}
		hash = string(b)
	}

	now := requestcontext.Now(ctx)
	u, err := models.NewUser(id.NewUserID(), req.Email, hash, req.ExternalID, now)
	if err != nil {
		return nil, err
	}
	grantConsents(u, ConsentRequest{Terms: req.AcceptTerms, Privacy: req.AcceptPrivacy, Marketing: req.AcceptMarketing}, now)
	trustscore.Apply(u)

	if err := s.users.Create(ctx, u); err != nil {
		return nil, translateUserError(err)
	}

	s.logInfo(ctx, "user_registered",
		"user_id", u.ID.String(),
		"external", u.ExternalID != "",
		"trust_score", u.TrustScore,
	)
	if s.metrics != nil {
		s.metrics.IncrementRegistrations()
	}
	return u, nil
}

// VerifyPassword reports whether password matches the user's bcrypt hash.
// Externally authenticated users never match.
func VerifyPassword(u *models.User, password string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

func grantConsents(u *models.User, req ConsentRequest, now time.Time) bool {
	changed := false
	if req.Terms && u.TermsAccepted.Mark(now) {
		changed = true
	}
	if req.Privacy && u.PrivacyAccepted.Mark(now) {
		changed = true
	}
	if req.Marketing && u.MarketingAccepted.Mark(now) {
		changed = true
	}
	if changed {
		u.UpdatedAt = now
	}
	return changed
}
