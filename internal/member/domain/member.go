package domain

import (
	"errors"
	"time"
)

// Member is the registered member identity record. Email is unique and
// case-sensitive per the store; PasswordHash is the bcrypt hash of the
// member's password.
type Member struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	CreatedAt    time.Time
}

// Validate validates the member for persistence. Returns an error describing the first validation failure.
func (m *Member) Validate() error {
	if m.Email == "" {
		return errors.New("email is required")
	}
	if m.PasswordHash == "" {
		return errors.New("password hash is required")
	}
	return nil
}
