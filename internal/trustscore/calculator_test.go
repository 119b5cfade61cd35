package trustscore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trustcore/internal/identity/models"
	id "trustcore/pkg/domain"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newUser(t *testing.T) *models.User {
	t.Helper()
	u, err := models.NewUser(id.NewUserID(), "alice@example.com", "hash", "", t0)
	require.NoError(t, err)
	return u
}

func validateProfile(u *models.User) {
	birth := time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC)
	u.UpdateProfile(models.Profile{
		FirstName: "Alice", LastName: "Martin", Phone: "+33612345678",
		BirthDate: &birth, Address: "1 rue de la Paix", City: "Lyon",
	}, t0)
	u.ProfileValidated.Mark(t0)
}

func TestCalculate(t *testing.T) {
	tests := []struct {
		name  string
		setup func(u *models.User)
		want  float64
	}{
		{name: "fresh user scores zero", setup: func(*models.User) {}, want: 0.0},
		{name: "email only", setup: func(u *models.User) { u.EmailVerified.Mark(t0) }, want: 0.5},
		{name: "email and identity", setup: func(u *models.User) {
			u.EmailVerified.Mark(t0)
			u.IdentityVerified.Mark(t0)
		}, want: 2.0},
		{name: "email identity financial", setup: func(u *models.User) {
			u.EmailVerified.Mark(t0)
			u.IdentityVerified.Mark(t0)
			u.FinancialDocsVerified.Mark(t0)
		}, want: 3.5},
		{name: "all but personal info", setup: func(u *models.User) {
			u.EmailVerified.Mark(t0)
			u.IdentityVerified.Mark(t0)
			u.FinancialDocsVerified.Mark(t0)
			u.TermsAccepted.Mark(t0)
		}, want: 4.0},
		{name: "everything", setup: func(u *models.User) {
			u.EmailVerified.Mark(t0)
			u.IdentityVerified.Mark(t0)
			u.FinancialDocsVerified.Mark(t0)
			u.TermsAccepted.Mark(t0)
			validateProfile(u)
		}, want: 5.0},
		{name: "complete profile without validation earns nothing", setup: func(u *models.User) {
			validateProfile(u)
			u.ProfileValidated.Clear()
		}, want: 0.0},
		{name: "phone and privacy carry no weight", setup: func(u *models.User) {
			u.PhoneVerified.Mark(t0)
			u.PrivacyAccepted.Mark(t0)
			u.MarketingAccepted.Mark(t0)
		}, want: 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := newUser(t)
			tt.setup(u)

			res := Calculate(u)
			assert.InDelta(t, tt.want, res.Score, 1e-9)
			assert.GreaterOrEqual(t, res.Score, 0.0)
			assert.LessOrEqual(t, res.Score, MaxScore)

			var earned float64
			for _, c := range res.Breakdown.Criteria {
				earned += c.PointsEarned
				if c.Satisfied {
					assert.Equal(t, c.PointsAvailable, c.PointsEarned)
				} else {
					assert.Zero(t, c.PointsEarned)
				}
			}
			assert.InDelta(t, tt.want, earned, 1e-9)
		})
	}
}

func TestCalculate_BreakdownCoversEveryCriterion(t *testing.T) {
	res := Calculate(newUser(t))
	require.Len(t, res.Breakdown.Criteria, 5)

	var total float64
	for _, c := range res.Breakdown.Criteria {
		total += c.PointsAvailable
	}
	assert.InDelta(t, MaxScore, total, 1e-9)
}

func TestNextSteps(t *testing.T) {
	t.Run("orders by points then criteria order", func(t *testing.T) {
		steps := NextSteps(newUser(t))

		actions := make([]Action, 0, len(steps))
		for _, s := range steps {
			actions = append(actions, s.Action)
		}
		assert.Equal(t, []Action{
			ActionVerifyIdentity,
			ActionVerifyFinancial,
			ActionCompletePersonalInfo,
			ActionVerifyEmail,
			ActionAcceptTerms,
		}, actions)
		for _, s := range steps {
			assert.NotEmpty(t, s.Description)
		}
	})

	t.Run("omits satisfied criteria", func(t *testing.T) {
		u := newUser(t)
		u.EmailVerified.Mark(t0)
		u.IdentityVerified.Mark(t0)

		steps := NextSteps(u)
		require.Len(t, steps, 3)
		assert.Equal(t, ActionVerifyFinancial, steps[0].Action)
	})

	t.Run("empty when score is maximal", func(t *testing.T) {
		u := newUser(t)
		u.EmailVerified.Mark(t0)
		u.IdentityVerified.Mark(t0)
		u.FinancialDocsVerified.Mark(t0)
		u.TermsAccepted.Mark(t0)
		validateProfile(u)

		assert.Empty(t, NextSteps(u))
	})
}

func TestApply(t *testing.T) {
	t.Run("reports increase and writes score", func(t *testing.T) {
		u := newUser(t)
		u.EmailVerified.Mark(t0)

		change := Apply(u)
		assert.True(t, change.Changed)
		assert.True(t, change.Increased)
		assert.InDelta(t, 0.0, change.Old, 1e-9)
		assert.InDelta(t, 0.5, change.New, 1e-9)
		assert.InDelta(t, 0.5, u.TrustScore, 1e-9)
	})

	t.Run("is idempotent", func(t *testing.T) {
		u := newUser(t)
		u.EmailVerified.Mark(t0)
		Apply(u)

		change := Apply(u)
		assert.False(t, change.Changed)
		assert.False(t, change.Increased)
	})

	t.Run("reports decrease without increase", func(t *testing.T) {
		u := newUser(t)
		u.EmailVerified.Mark(t0)
		u.IdentityVerified.Mark(t0)
		Apply(u)

		u.IdentityVerified.Clear()
		change := Apply(u)
		assert.True(t, change.Changed)
		assert.False(t, change.Increased)
		assert.InDelta(t, 0.5, u.TrustScore, 1e-9)
	})

	t.Run("repairs a drifted stored score", func(t *testing.T) {
		u := newUser(t)
		u.TrustScore = 7.3

		change := Apply(u)
		assert.True(t, change.Changed)
		assert.InDelta(t, MaxScore, change.Old, 1e-9)
		assert.InDelta(t, 0.0, u.TrustScore, 1e-9)
	})
}
