package security

import (
	"strings"

	"github.com/google/uuid"
)

// NewRefreshToken returns a new opaque refresh token value: a random UUIDv4
// with dashes stripped, 32 lowercase hex characters. uuid.New draws from
// crypto/rand, so token values are unguessable and collisions are negligible.
func NewRefreshToken() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}
