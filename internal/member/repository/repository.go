// Package repository provides persistence for members.
package repository

import (
	"context"

	"member-auth-service/internal/member/domain"
)

// Repository defines persistence for members. Implementations are bound to a
// db.DBTX at construction, so the same repository code runs against the pool
// or inside a transaction.
type Repository interface {
	// GetByEmail returns the member with the given email, or nil if not found.
	GetByEmail(ctx context.Context, email string) (*domain.Member, error)
	// GetByID returns the member for id, or nil if not found.
	GetByID(ctx context.Context, id string) (*domain.Member, error)
	// Create persists the member. The member must have ID set; it is not assigned by this method.
	Create(ctx context.Context, m *domain.Member) error
}
