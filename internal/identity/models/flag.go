package models

import "time"

// Flag is a boolean fact about a user with the time it first became true.
//
// Invariant: At is set exactly once, on the first transition to true, and is
// never overwritten, even when the flag is later cleared and set again.
type Flag struct {
	Set bool       `json:"set"`
	At  *time.Time `json:"at,omitempty"`
}

// Mark sets the flag. It reports whether the value changed.
func (f *Flag) Mark(now time.Time) bool {
	if f.At == nil {
		t := now
		f.At = &t
	}
	if f.Set {
		return false
	}
	f.Set = true
	return true
}

// Clear unsets the flag, keeping the first-set timestamp. It reports whether
// the value changed.
func (f *Flag) Clear() bool {
	if !f.Set {
		return false
	}
	f.Set = false
	return true
}
