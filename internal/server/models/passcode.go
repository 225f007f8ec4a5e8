package models

import "time"

// Passcode purposes. Every identity-proving transition names one.
const (
	PurposeRegistration  = "registration"
	PurposeLogin         = "login"
	PurposePasswordReset = "password-reset"
)

// Passcode is an ephemeral proof-of-possession token. For a given
// (email, purpose) pair at most one unused, unexpired passcode exists;
// issuing a new one marks prior outstanding codes used.
type Passcode struct {
	ID        string
	Email     string
	Purpose   string
	Code      string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}
