package entity

import (
	"errors"
	"time"
)

var (
	ErrNoPendingChallenge = errors.New("otp: no pending challenge")
	ErrChallengeExpired   = errors.New("otp: challenge expired")
	ErrCodeMismatch       = errors.New("otp: code mismatch")
	ErrNotAuthenticated   = errors.New("otp: not authenticated")
)

// Challenge is the pending verification of one client session.
type Challenge struct {
	Email string
	// Digest is the keyed hash of the code; the code itself is never stored.
	Digest    string
	ExpiresAt time.Time
}

// Expired reports whether now is past the expiry. A code submitted at the
// exact expiry instant is still accepted.
func (c Challenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// Principal is the identity attached to a session after verification.
type Principal struct {
	Email         string
	Authenticated bool
}
