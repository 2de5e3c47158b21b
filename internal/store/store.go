// Package store bundles the repositories behind one provider so the auth
// service can run its read-then-write sequences inside a single transaction
// scope without knowing the backing store.
package store

import (
	"context"
	"database/sql"

	"member-auth-service/internal/db"
	memberrepo "member-auth-service/internal/member/repository"
	tokenrepo "member-auth-service/internal/token/repository"
)

// Stores provides the repositories and a transactional scope over them.
type Stores interface {
	Members() memberrepo.Repository
	RefreshTokens() tokenrepo.Repository
	// WithinTx runs fn with repositories bound to one transaction, committed
	// on success and rolled back on error. Stores that cannot join the
	// transaction (e.g. the Redis token store) are passed through unchanged;
	// they resolve write races by upsert semantics instead.
	WithinTx(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
}

// SQLStores is the Postgres-backed Stores implementation. The refresh token
// store is Postgres by default but may be swapped for Redis.
type SQLStores struct {
	conn      *sql.DB
	members   memberrepo.Repository
	tokens    tokenrepo.Repository
	sqlTokens bool
}

// NewPostgres returns Stores with both members and refresh tokens in Postgres.
func NewPostgres(conn *sql.DB) *SQLStores {
	return &SQLStores{
		conn:      conn,
		members:   memberrepo.NewPostgresRepository(conn),
		tokens:    tokenrepo.NewPostgresRepository(conn),
		sqlTokens: true,
	}
}

// NewPostgresWithTokenStore returns Stores with members in Postgres and
// refresh tokens in the given external store (e.g. Redis).
func NewPostgresWithTokenStore(conn *sql.DB, tokens tokenrepo.Repository) *SQLStores {
	return &SQLStores{
		conn:    conn,
		members: memberrepo.NewPostgresRepository(conn),
		tokens:  tokens,
	}
}

func (s *SQLStores) Members() memberrepo.Repository { return s.members }

func (s *SQLStores) RefreshTokens() tokenrepo.Repository { return s.tokens }

// WithinTx rebinds the SQL-backed repositories to one transaction and runs fn.
func (s *SQLStores) WithinTx(ctx context.Context, fn func(ctx context.Context, scoped Stores) error) error {
	return db.WithinTx(ctx, s.conn, func(ctx context.Context, tx db.DBTX) error {
		scoped := &SQLStores{
			conn:      s.conn,
			members:   memberrepo.NewPostgresRepository(tx),
			tokens:    s.tokens,
			sqlTokens: s.sqlTokens,
		}
		if s.sqlTokens {
			scoped.tokens = tokenrepo.NewPostgresRepository(tx)
		}
		return fn(ctx, scoped)
	})
}
