package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/talkdeck/talkdeck/pkg/history"
)

// Compile-time interface checks.
var (
	_ history.Store        = (*Store)(nil)
	_ history.ProfileStore = (*Store)(nil)
)

// Store is the PostgreSQL-backed history and profile store. It holds a
// single [pgxpool.Pool]; all methods are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore establishes a connection pool to the PostgreSQL database at dsn
// and runs [Migrate] to ensure all required tables exist.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres history: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres history: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres history: ping: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &Store{pool: pool}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping probes database connectivity. Used by the readiness endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// AppendTurn implements [history.Store].
func (s *Store) AppendTurn(ctx context.Context, sessionID, userText, assistantText string) error {
	const q = `
		INSERT INTO turns (session_id, user_text, assistant_text)
		VALUES ($1, $2, $3)`

	if _, err := s.pool.Exec(ctx, q, sessionID, userText, assistantText); err != nil {
		return fmt.Errorf("postgres history: append turn: %w", err)
	}
	return nil
}

// RecentTurns implements [history.Store]. Turns are returned most recent
// first.
func (s *Store) RecentTurns(ctx context.Context, sessionID string, limit int) ([]history.Turn, error) {
	const q = `
		SELECT session_id, user_text, assistant_text, created_at
		FROM   turns
		WHERE  session_id = $1
		ORDER  BY created_at DESC, id DESC
		LIMIT  $2`

	rows, err := s.pool.Query(ctx, q, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres history: recent turns: %w", err)
	}

	turns, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (history.Turn, error) {
		var t history.Turn
		err := row.Scan(&t.SessionID, &t.UserText, &t.AssistantText, &t.CreatedAt)
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres history: scan rows: %w", err)
	}
	if turns == nil {
		turns = []history.Turn{}
	}
	return turns, nil
}

// Profile implements [history.ProfileStore].
func (s *Store) Profile(ctx context.Context, sessionID string) (history.Profile, error) {
	const q = `
		SELECT resume, projects, job_description
		FROM   sessions
		WHERE  id = $1`

	var p history.Profile
	err := s.pool.QueryRow(ctx, q, sessionID).Scan(&p.Resume, &p.Projects, &p.JobDescription)
	if errors.Is(err, pgx.ErrNoRows) {
		return history.Profile{}, history.ErrSessionNotFound
	}
	if err != nil {
		return history.Profile{}, fmt.Errorf("postgres history: load profile: %w", err)
	}
	return p, nil
}

// SaveProfile implements [history.ProfileStore] as an upsert.
func (s *Store) SaveProfile(ctx context.Context, sessionID string, profile history.Profile) error {
	const q = `
		INSERT INTO sessions (id, resume, projects, job_description)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET resume = EXCLUDED.resume,
		    projects = EXCLUDED.projects,
		    job_description = EXCLUDED.job_description,
		    updated_at = now()`

	if _, err := s.pool.Exec(ctx, q, sessionID, profile.Resume, profile.Projects, profile.JobDescription); err != nil {
		return fmt.Errorf("postgres history: save profile: %w", err)
	}
	return nil
}
