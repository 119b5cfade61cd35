package models

// Status is the coarse-grained onboarding stage of a user.
type Status string

const (
	StatusPendingVerification Status = "pending_verification"
	StatusEmailConfirmed      Status = "email_confirmed"
	StatusDocumentsApproved   Status = "documents_approved"
	StatusActive              Status = "active"
	StatusSuspended           Status = "suspended"
)

// onboardingRank orders the automatic stages. Active and suspended are only
// reached through explicit admin action and are absent on purpose.
var onboardingRank = map[Status]int{
	StatusPendingVerification: 0,
	StatusEmailConfirmed:      1,
	StatusDocumentsApproved:   2,
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPendingVerification, StatusEmailConfirmed, StatusDocumentsApproved, StatusActive, StatusSuspended:
		return true
	}
	return false
}

// CanAdvanceTo reports whether an automatic (fact-driven) transition from s to
// target is allowed: strictly forward within the onboarding stages.
func (s Status) CanAdvanceTo(target Status) bool {
	from, ok := onboardingRank[s]
	if !ok {
		return false
	}
	to, ok := onboardingRank[target]
	return ok && to > from
}

// CanActivate reports whether an admin may move a user in s to active.
func (s Status) CanActivate() bool {
	return s == StatusDocumentsApproved || s == StatusSuspended
}

// CanSuspend reports whether an admin may suspend a user in s.
func (s Status) CanSuspend() bool {
	return s.IsValid() && s != StatusSuspended
}

func (s Status) String() string {
	return string(s)
}
