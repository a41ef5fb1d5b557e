package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/haulbook/internal/session"
)

const schema = `
	CREATE TABLE IF NOT EXISTS operator_sessions (
		id          UUID PRIMARY KEY,
		token       TEXT NOT NULL,
		operator    TEXT NOT NULL DEFAULT '',
		permissions TEXT NOT NULL DEFAULT '',
		expires_at  TIMESTAMPTZ,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)
`

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the sessions table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating sessions table: %w", err)
	}

	return nil
}

func (s *Store) Save(ctx context.Context, sess *session.Session) error {
	query := `
		INSERT INTO operator_sessions (id, token, operator, permissions, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			token = EXCLUDED.token,
			operator = EXCLUDED.operator,
			permissions = EXCLUDED.permissions,
			expires_at = EXCLUDED.expires_at
	`

	var expiresAt *time.Time
	if !sess.ExpiresAt.IsZero() {
		expiresAt = &sess.ExpiresAt
	}

	_, err := s.db.ExecContext(ctx, query,
		sess.ID,
		sess.Token,
		sess.Operator,
		strings.Join(sess.Permissions, ","),
		expiresAt,
		sess.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}

	return nil
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (*session.Session, error) {
	query := `
		SELECT id, token, operator, permissions, expires_at, created_at
		FROM operator_sessions
		WHERE id = $1
	`

	var (
		sess        session.Session
		permissions string
		expiresAt   sql.NullTime
	)

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&sess.ID, &sess.Token, &sess.Operator, &permissions, &expiresAt, &sess.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, session.ErrNoSession
		}

		return nil, fmt.Errorf("getting session: %w", err)
	}

	if permissions != "" {
		sess.Permissions = strings.Split(permissions, ",")
	}

	if expiresAt.Valid {
		sess.ExpiresAt = expiresAt.Time.UTC()
	}

	return &sess, nil
}

func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM operator_sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}

	return nil
}

// DeleteExpired removes sessions past their expiry and reports how many were removed.
func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM operator_sessions WHERE expires_at IS NOT NULL AND expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("deleting expired sessions: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted sessions: %w", err)
	}

	return n, nil
}
