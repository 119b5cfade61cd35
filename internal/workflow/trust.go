package workflow

import (
	"context"
	"strconv"
	"time"

	"trustcore/internal/identity/models"
	"trustcore/internal/trustscore"
	id "trustcore/pkg/domain"
)

// Snapshot is the read model of a user's verification state.
type Snapshot struct {
	UserID                id.UserID          `json:"user_id"`
	Status                models.Status      `json:"status"`
	EmailVerified         bool               `json:"email_verified"`
	PhoneVerified         bool               `json:"phone_verified"`
	IdentityVerified      bool               `json:"identity_verified"`
	FinancialDocsVerified bool               `json:"financial_docs_verified"`
	PersonalInfoValidated bool               `json:"personal_info_validated"`
	TermsAccepted         bool               `json:"terms_accepted"`
	PrivacyAccepted       bool               `json:"privacy_accepted"`
	TrustScore            float64            `json:"trust_score"`
	CanCreateListing      bool               `json:"can_create_listing"`
	Suspension            *models.Suspension `json:"suspension,omitempty"`
}

// CanCreateListing is derived from the current user on every call.
func (s *Service) CanCreateListing(ctx context.Context, userID id.UserID) (bool, error) {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	return u.CanCreateListing(), nil
}

// GetTrustScore computes the score and breakdown from the current flags.
func (s *Service) GetTrustScore(ctx context.Context, userID id.UserID) (trustscore.Result, error) {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return trustscore.Result{}, err
	}
	return trustscore.Calculate(u), nil
}

// GetNextSteps lists the unmet criteria, highest value first.
func (s *Service) GetNextSteps(ctx context.Context, userID id.UserID) ([]trustscore.NextStep, error) {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return trustscore.NextSteps(u), nil
}

// UpdateTrustScore recomputes and stores the score. Only an increase raises
// a notification; repeating with unchanged flags reports no change.
func (s *Service) UpdateTrustScore(ctx context.Context, userID id.UserID) (trustscore.Change, error) {
	ctx, span := s.tracer.Start(ctx, "workflow.UpdateTrustScore")
	defer span.End()

	res, err := s.apply(ctx, "update_trust_score", userID, nil,
		func(*models.User, time.Time) bool { return false },
		nil,
	)
	if err != nil {
		return trustscore.Change{}, err
	}
	return res.Score, nil
}

// Status returns the user's verification snapshot.
func (s *Service) Status(ctx context.Context, userID id.UserID) (Snapshot, error) {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		UserID:                u.ID,
		Status:                u.Status,
		EmailVerified:         u.EmailVerified.Set,
		PhoneVerified:         u.PhoneVerified.Set,
		IdentityVerified:      u.IdentityVerified.Set,
		FinancialDocsVerified: u.FinancialDocsVerified.Set,
		PersonalInfoValidated: u.PersonalInfoValidated(),
		TermsAccepted:         u.TermsAccepted.Set,
		PrivacyAccepted:       u.PrivacyAccepted.Set,
		TrustScore:            trustscore.Calculate(u).Score,
		CanCreateListing:      u.CanCreateListing(),
		Suspension:            u.Suspension,
	}, nil
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
