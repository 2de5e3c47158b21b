package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"member-auth-service/internal/db"
	"member-auth-service/internal/member/domain"
)

// PostgresRepository persists members in Postgres.
type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns a member repository bound to the given handle
// (pool or transaction).
func NewPostgresRepository(dbtx db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: dbtx}
}

// GetByEmail returns the member with the given email, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.Member, error) {
	query := `SELECT id, email, password_hash, name, created_at FROM members WHERE email = $1`

	m := &domain.Member{}
	err := r.db.QueryRowContext(ctx, query, email).
		Scan(&m.ID, &m.Email, &m.PasswordHash, &m.Name, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return m, nil
}

// GetByID returns the member for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Member, error) {
	query := `SELECT id, email, password_hash, name, created_at FROM members WHERE id = $1`

	m := &domain.Member{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&m.ID, &m.Email, &m.PasswordHash, &m.Name, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return m, nil
}

// Create persists the member. The members.email unique constraint turns a
// lost registration race into a database conflict.
func (r *PostgresRepository) Create(ctx context.Context, m *domain.Member) error {
	query := `INSERT INTO members (id, email, password_hash, name, created_at)
	          VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.ExecContext(ctx, query, m.ID, m.Email, m.PasswordHash, m.Name, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
