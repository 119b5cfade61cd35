package trustscore

import (
	"github.com/shopspring/decimal"

	"trustcore/internal/identity/models"
)

// Criterion names a weighted trust signal.
type Criterion string

const (
	CriterionEmailVerified     Criterion = "email_verified"
	CriterionPersonalInfo      Criterion = "personal_info_validated"
	CriterionIdentityVerified  Criterion = "identity_verified"
	CriterionFinancialVerified Criterion = "financial_docs_verified"
	CriterionTermsAccepted     Criterion = "terms_accepted"
)

// Action is the machine-readable id of the step that satisfies a criterion.
type Action string

const (
	ActionVerifyEmail          Action = "verify_email"
	ActionCompletePersonalInfo Action = "complete_personal_info"
	ActionVerifyIdentity       Action = "verify_identity"
	ActionVerifyFinancial      Action = "verify_financial"
	ActionAcceptTerms          Action = "accept_terms"
)

type rule struct {
	criterion   Criterion
	action      Action
	description string
	weight      decimal.Decimal
	satisfied   func(u *models.User) bool
}

// rules is fixed and ordered; the order is the tie-break for next steps.
// Weights sum to exactly MaxScore.
var rules = []rule{
	{
		criterion:   CriterionEmailVerified,
		action:      ActionVerifyEmail,
		description: "Confirm your email address",
		weight:      decimal.RequireFromString("0.5"),
		satisfied:   func(u *models.User) bool { return u.EmailVerified.Set },
	},
	{
		criterion:   CriterionPersonalInfo,
		action:      ActionCompletePersonalInfo,
		description: "Complete your personal information and have it validated",
		weight:      decimal.RequireFromString("1.0"),
		satisfied:   func(u *models.User) bool { return u.PersonalInfoValidated() },
	},
	{
		criterion:   CriterionIdentityVerified,
		action:      ActionVerifyIdentity,
		description: "Upload an identity card and a selfie holding it",
		weight:      decimal.RequireFromString("1.5"),
		satisfied:   func(u *models.User) bool { return u.IdentityVerified.Set },
	},
	{
		criterion:   CriterionFinancialVerified,
		action:      ActionVerifyFinancial,
		description: "Upload a proof of income or a proof of ownership",
		weight:      decimal.RequireFromString("1.5"),
		satisfied:   func(u *models.User) bool { return u.FinancialDocsVerified.Set },
	},
	{
		criterion:   CriterionTermsAccepted,
		action:      ActionAcceptTerms,
		description: "Accept the terms of service",
		weight:      decimal.RequireFromString("0.5"),
		satisfied:   func(u *models.User) bool { return u.TermsAccepted.Set },
	},
}
