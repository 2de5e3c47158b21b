package db

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}
	conn, err := Open(dsn)
	if err != nil {
		t.Skipf("database connection failed: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	_, err = conn.Exec(`CREATE TEMPORARY TABLE dbtx_t (id SERIAL PRIMARY KEY, v TEXT)`)
	require.NoError(t, err)
	return conn
}

func countRows(t *testing.T, conn *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM dbtx_t`).Scan(&n))
	return n
}

func TestWithinTx_Commit(t *testing.T) {
	conn := setupDB(t)
	ctx := context.Background()

	err := WithinTx(ctx, conn, func(ctx context.Context, tx DBTX) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO dbtx_t (v) VALUES ($1)`, "a")
		return err
	})
	require.NoError(t, err)
	require.Equal(t, 1, countRows(t, conn))
}

func TestWithinTx_RollbackOnError(t *testing.T) {
	conn := setupDB(t)
	ctx := context.Background()

	sentinel := errors.New("boom")
	err := WithinTx(ctx, conn, func(ctx context.Context, tx DBTX) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO dbtx_t (v) VALUES ($1)`, "a"); err != nil {
			return err
		}
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)
	require.Equal(t, 0, countRows(t, conn))
}

func TestWithinTx_RollbackOnPanic(t *testing.T) {
	conn := setupDB(t)
	ctx := context.Background()

	require.Panics(t, func() {
		_ = WithinTx(ctx, conn, func(ctx context.Context, tx DBTX) error {
			if _, err := tx.ExecContext(ctx, `INSERT INTO dbtx_t (v) VALUES ($1)`, "a"); err != nil {
				return err
			}
			panic("boom")
		})
	})
	require.Equal(t, 0, countRows(t, conn))
}
