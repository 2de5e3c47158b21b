package repository

import (
	"context"
	"fmt"

	"member-auth-service/internal/audit/domain"
	"member-auth-service/internal/db"
)

// PostgresRepository persists audit logs in Postgres.
type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns an audit log repository bound to the given handle.
func NewPostgresRepository(dbtx db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: dbtx}
}

// Create persists the audit log entry. The entry must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	query := `INSERT INTO audit_logs (id, member_id, action, resource, ip, metadata, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(ctx, query, a.ID, a.MemberID, a.Action, a.Resource, a.IP, a.Metadata, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// ListByMember returns the member's audit log entries, newest first.
func (r *PostgresRepository) ListByMember(ctx context.Context, memberID string, limit, offset int32) ([]*domain.AuditLog, error) {
	query := `SELECT id, member_id, action, resource, ip, metadata, created_at
	          FROM audit_logs WHERE member_id = $1
	          ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, memberID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*domain.AuditLog
	for rows.Next() {
		a := &domain.AuditLog{}
		if err := rows.Scan(&a.ID, &a.MemberID, &a.Action, &a.Resource, &a.IP, &a.Metadata, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}
