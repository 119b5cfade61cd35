package workflow

import (
	"strings"

	"trustcore/internal/identity/models"
)

// RegisterRequest is the input for a new account. Exactly one of Password
// and ExternalID must be set.
type RegisterRequest struct {
	Email           string `json:"email" validate:"required,email,max=255"`
	Password        string `json:"password" validate:"omitempty,min=8,max=72"`
	ExternalID      string `json:"external_id" validate:"omitempty,max=255"`
	AcceptTerms     bool   `json:"accept_terms"`
	AcceptPrivacy   bool   `json:"accept_privacy"`
	AcceptMarketing bool   `json:"accept_marketing"`
}

// Normalize trims user-provided fields and lower-cases the email.
func (r *RegisterRequest) Normalize() {
	r.Email = models.NormalizeEmail(r.Email)
	r.ExternalID = strings.TrimSpace(r.ExternalID)
}

// ConsentRequest grants consents. False leaves a consent as it is.
type ConsentRequest struct {
	Terms     bool `json:"terms"`
	Privacy   bool `json:"privacy"`
	Marketing bool `json:"marketing"`
}

func (r ConsentRequest) empty() bool {
	return !r.Terms && !r.Privacy && !r.Marketing
}

func normalizeProfile(p models.Profile) models.Profile {
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
	p.Phone = strings.TrimSpace(p.Phone)
	p.Address = strings.TrimSpace(p.Address)
	p.City = strings.TrimSpace(p.City)
	return p
}
