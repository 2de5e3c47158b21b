// Package repository provides persistence for refresh tokens.
package repository

import (
	"context"

	"member-auth-service/internal/token/domain"
)

// Repository defines persistence for refresh tokens. The store holds at most
// one live token per member: Save has insert-or-replace semantics keyed by
// member id.
type Repository interface {
	// GetByToken returns the refresh token with the given token value, or nil if not found.
	GetByToken(ctx context.Context, token string) (*domain.RefreshToken, error)
	// GetByMemberID returns the member's refresh token, or nil if the member has none.
	GetByMemberID(ctx context.Context, memberID string) (*domain.RefreshToken, error)
	// Save upserts the refresh token row keyed by member id.
	Save(ctx context.Context, t *domain.RefreshToken) error
}
