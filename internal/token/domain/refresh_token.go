package domain

import "time"

// RefreshToken is the opaque bearer credential bound to exactly one member.
// At most one live row exists per member; a new token for a member replaces
// the existing row (upsert keyed by member id).
type RefreshToken struct {
	MemberID  string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Expired reports whether the token is expired at the given instant.
// Expiry at or before now counts as expired. Callers must evaluate every
// expiry check in one request against a single now reading.
func (t *RefreshToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}
