package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/andresmejia3/facegate/internal/types"
)

// Store manages the PostgreSQL connection holding the login attempt history.
type Store struct {
	conn *pgx.Conn
}

// New establishes a connection to the database and ensures the schema is initialized.
func New(ctx context.Context, connString string) (*Store, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, err
	}

	// Initialize schema (Auto-Migration)
	if err := initSchema(ctx, conn); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return &Store{conn: conn}, nil
}

// initSchema creates the attempts table if it doesn't exist (Auto-Migration).
func initSchema(ctx context.Context, conn *pgx.Conn) error {
	query := `
		CREATE TABLE IF NOT EXISTS login_attempts (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL,
			success BOOLEAN NOT NULL DEFAULT FALSE,
			kind TEXT NOT NULL,
			message TEXT NOT NULL DEFAULT '',
			endpoint TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS login_attempts_created_at_idx ON login_attempts (created_at DESC);
	`
	_, err := conn.Exec(ctx, query)
	return err
}

// Close terminates the database connection.
func (s *Store) Close(ctx context.Context) {
	s.conn.Close(ctx)
}

// RecordAttempt saves one face-login submission.
func (s *Store) RecordAttempt(ctx context.Context, a types.Attempt) error {
	_, err := s.conn.Exec(ctx, `
		INSERT INTO login_attempts (id, username, success, kind, message, endpoint, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, a.ID, a.Username, a.Success, string(a.Kind), a.Message, a.Endpoint, a.CreatedAt)
	return err
}

// ListAttempts returns the newest attempts first. A limit <= 0 returns all of them.
func (s *Store) ListAttempts(ctx context.Context, limit int) ([]types.Attempt, error) {
	query := `SELECT id, username, success, kind, message, endpoint, created_at FROM login_attempts ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []types.Attempt
	for rows.Next() {
		var a types.Attempt
		var kind string
		if err := rows.Scan(&a.ID, &a.Username, &a.Success, &kind, &a.Message, &a.Endpoint, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Kind = types.AttemptKind(kind)
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// Reset drops the attempts table.
// The next New recreates it.
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.conn.Exec(ctx, `DROP TABLE IF EXISTS login_attempts CASCADE;`)
	return err
}
