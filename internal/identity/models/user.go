package models

import (
	"strings"
	"time"

	id "trustcore/pkg/domain"
	dErrors "trustcore/pkg/domain-errors"
)

// User is the aggregate root for a marketplace account's verification state.
//
// Invariants:
//   - Email is stored trimmed and lower-cased; uniqueness is case-insensitive
//   - Exactly one authentication method: PasswordHash or ExternalID
//   - Every Flag keeps its first-set timestamp (see Flag)
//   - TrustScore is in [0.0, 5.0] and only written by the trust score calculator
//   - Status transitions: forward through onboarding automatically; active and
//     suspended only through Activate/Suspend
//   - Users are never hard-deleted
type User struct {
	ID           id.UserID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	ExternalID   string    `json:"external_id,omitempty"`

	EmailVerified         Flag `json:"email_verified"`
	PhoneVerified         Flag `json:"phone_verified"`
	IdentityVerified      Flag `json:"identity_verified"`
	FinancialDocsVerified Flag `json:"financial_docs_verified"`

	TermsAccepted     Flag `json:"terms_accepted"`
	PrivacyAccepted   Flag `json:"privacy_accepted"`
	MarketingAccepted Flag `json:"marketing_accepted"`

	Profile          Profile `json:"profile"`
	ProfileValidated Flag    `json:"profile_validated"`

	Status     Status  `json:"status"`
	TrustScore float64 `json:"trust_score"`

	Suspension *Suspension `json:"suspension,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Profile is the personal information a user provides.
type Profile struct {
	FirstName string     `json:"first_name" validate:"omitempty,max=100"`
	LastName  string     `json:"last_name" validate:"omitempty,max=100"`
	Phone     string     `json:"phone" validate:"omitempty,e164"`
	BirthDate *time.Time `json:"birth_date,omitempty"`
	Address   string     `json:"address" validate:"omitempty,max=255"`
	City      string     `json:"city" validate:"omitempty,max=100"`
}

// IsComplete reports whether every personal-info field needed for validation is present.
func (p Profile) IsComplete() bool {
	return strings.TrimSpace(p.FirstName) != "" &&
		strings.TrimSpace(p.LastName) != "" &&
		strings.TrimSpace(p.Phone) != "" &&
		p.BirthDate != nil &&
		strings.TrimSpace(p.Address) != "" &&
		strings.TrimSpace(p.City) != ""
}

// Suspension records why and by whom an account was suspended.
type Suspension struct {
	Reason string     `json:"reason"`
	By     id.AdminID `json:"by"`
	At     time.Time  `json:"at"`
}

// NormalizeEmail is the canonical form used for storage and lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NewUser constructs a freshly registered user.
func NewUser(userID id.UserID, email, passwordHash, externalID string, now time.Time) (*User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "email cannot be empty")
	}
	if (passwordHash == "") == (externalID == "") {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "exactly one authentication method is required")
	}
	return &User{
		ID:           userID,
		Email:        email,
		PasswordHash: passwordHash,
		ExternalID:   externalID,
		Status:       StatusPendingVerification,
		TrustScore:   0,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// AdvanceTo moves the user forward through onboarding when allowed. It
// reports whether the status changed; disallowed targets are a no-op.
func (u *User) AdvanceTo(target Status, now time.Time) bool {
	if !u.Status.CanAdvanceTo(target) {
		return false
	}
	u.Status = target
	u.UpdatedAt = now
	return true
}

// CanActivate checks if the user can transition to active status.
func (u *User) CanActivate() error {
	if u.Status == StatusActive {
		return dErrors.New(dErrors.CodeInvalidTransition, "user is already active")
	}
	if !u.Status.CanActivate() {
		return dErrors.New(dErrors.CodeInvalidTransition, "user cannot be activated from status "+u.Status.String())
	}
	return nil
}

// ApplyActivation transitions the user to active and lifts any suspension.
// Call CanActivate first to validate the transition.
func (u *User) ApplyActivation(now time.Time) {
	u.Status = StatusActive
	u.Suspension = nil
	u.UpdatedAt = now
}

// CanSuspend checks if the user can be suspended with the given reason.
func (u *User) CanSuspend(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return dErrors.New(dErrors.CodeMissingReason, "suspension reason is required")
	}
	if !u.Status.CanSuspend() {
		return dErrors.New(dErrors.CodeInvalidTransition, "user is already suspended")
	}
	return nil
}

// ApplySuspension transitions the user to suspended.
// Call CanSuspend first to validate the transition.
func (u *User) ApplySuspension(admin id.AdminID, reason string, now time.Time) {
	u.Status = StatusSuspended
	u.Suspension = &Suspension{Reason: strings.TrimSpace(reason), By: admin, At: now}
	u.UpdatedAt = now
}

// SetVerification sets or clears the flag for a document verification group.
// It reports whether the flag value changed.
func (u *User) SetVerification(group id.VerificationGroup, verified bool, now time.Time) bool {
	var f *Flag
	switch group {
	case id.GroupIdentity:
		f = &u.IdentityVerified
	case id.GroupFinancial:
		f = &u.FinancialDocsVerified
	default:
		return false
	}
	var changed bool
	if verified {
		changed = f.Mark(now)
	} else {
		changed = f.Clear()
	}
	if changed {
		u.UpdatedAt = now
	}
	return changed
}

// UpdateProfile replaces the personal information. Any change invalidates a
// prior admin validation. It reports whether the profile changed.
func (u *User) UpdateProfile(p Profile, now time.Time) bool {
	if profilesEqual(u.Profile, p) {
		return false
	}
	u.Profile = p
	u.ProfileValidated.Clear()
	u.UpdatedAt = now
	return true
}

// CanValidateProfile checks that the personal info can be marked validated.
func (u *User) CanValidateProfile() error {
	if !u.Profile.IsComplete() {
		return dErrors.New(dErrors.CodeInvalidTransition, "personal information is incomplete")
	}
	return nil
}

// PersonalInfoValidated is the trust criterion: complete and explicitly validated.
func (u *User) PersonalInfoValidated() bool {
	return u.Profile.IsComplete() && u.ProfileValidated.Set
}

// CanCreateListing is recomputed on every call; it is never stored.
func (u *User) CanCreateListing() bool {
	return u.Status == StatusActive &&
		u.EmailVerified.Set &&
		u.PhoneVerified.Set &&
		u.IdentityVerified.Set &&
		u.TermsAccepted.Set &&
		u.PrivacyAccepted.Set
}

func profilesEqual(a, b Profile) bool {
	if a.FirstName != b.FirstName || a.LastName != b.LastName || a.Phone != b.Phone ||
		a.Address != b.Address || a.City != b.City {
		return false
	}
	switch {
	case a.BirthDate == nil && b.BirthDate == nil:
		return true
	case a.BirthDate == nil || b.BirthDate == nil:
		return false
	default:
		return a.BirthDate.Equal(*b.BirthDate)
	}
}

// Clone returns a copy safe to mutate without affecting the original.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.Suspension != nil {
		s := *u.Suspension
		c.Suspension = &s
	}
	return &c
}
