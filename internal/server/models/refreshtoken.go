package models

import "time"

// RefreshToken is one stored session row. The plaintext token is never
// persisted: Selector is the public lookup half and VerifierHash is the
// one-way hash of the secret half. Rows are only ever mutated by flipping
// Revoked to true; rotation inserts a new row instead of updating this one.
type RefreshToken struct {
	ID           string
	UserID       string
	Selector     string
	VerifierHash []byte
	ExpiresAt    time.Time
	Revoked      bool
	CreatedAt    time.Time
}

// Active reports whether the row can still redeem a refresh at time now.
func (t *RefreshToken) Active(now time.Time) bool {
	return !t.Revoked && t.ExpiresAt.After(now)
}
