package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"member-auth-service/internal/db"
	"member-auth-service/internal/token/domain"
)

// PostgresRepository persists refresh tokens in Postgres, one row per member.
type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns a refresh token repository bound to the given
// handle (pool or transaction).
func NewPostgresRepository(dbtx db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: dbtx}
}

// GetByToken returns the refresh token with the given token value, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	query := `SELECT member_id, token, expires_at, created_at, updated_at
	          FROM refresh_tokens WHERE token = $1`

	return r.scanOne(r.db.QueryRowContext(ctx, query, token))
}

// GetByMemberID returns the member's refresh token, or nil if the member has none.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByMemberID(ctx context.Context, memberID string) (*domain.RefreshToken, error) {
	query := `SELECT member_id, token, expires_at, created_at, updated_at
	          FROM refresh_tokens WHERE member_id = $1`

	return r.scanOne(r.db.QueryRowContext(ctx, query, memberID))
}

// Save upserts the refresh token row keyed by member id. The member_id primary
// key guarantees at most one row per member; a concurrent rotation race
// resolves to last writer wins instead of a duplicate row.
func (r *PostgresRepository) Save(ctx context.Context, t *domain.RefreshToken) error {
	query := `INSERT INTO refresh_tokens (member_id, token, expires_at, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5)
	          ON CONFLICT (member_id) DO UPDATE
	          SET token = EXCLUDED.token,
	              expires_at = EXCLUDED.expires_at,
	              updated_at = EXCLUDED.updated_at`

	_, err := r.db.ExecContext(ctx, query, t.MemberID, t.Token, t.ExpiresAt, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*domain.RefreshToken, error) {
	t := &domain.RefreshToken{}
	err := row.Scan(&t.MemberID, &t.Token, &t.ExpiresAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}
