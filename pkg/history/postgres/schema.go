// Package postgres provides a PostgreSQL-backed implementation of the
// history store and profile store, sharing a single [pgxpool.Pool].
//
// Usage:
//
//	store, err := postgres.NewStore(ctx, dsn)
//	if err != nil { … }
//	defer store.Close()
//
//	_ = store.AppendTurn(ctx, sessionID, userText, assistantText)
//	turns, _ := store.RecentTurns(ctx, sessionID, 5)
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlSessions = `
CREATE TABLE IF NOT EXISTS sessions (
    id              TEXT         PRIMARY KEY,
    resume          TEXT         NOT NULL DEFAULT '',
    projects        TEXT         NOT NULL DEFAULT '',
    job_description TEXT         NOT NULL DEFAULT '',
    created_at      TIMESTAMPTZ  NOT NULL DEFAULT now(),
    updated_at      TIMESTAMPTZ  NOT NULL DEFAULT now()
);
`

const ddlTurns = `
CREATE TABLE IF NOT EXISTS turns (
    id             BIGSERIAL    PRIMARY KEY,
    session_id     TEXT         NOT NULL,
    user_text      TEXT         NOT NULL,
    assistant_text TEXT         NOT NULL,
    created_at     TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_turns_session_id
    ON turns (session_id);

CREATE INDEX IF NOT EXISTS idx_turns_session_created
    ON turns (session_id, created_at DESC);
`

// Migrate ensures all required tables and indexes exist. It is idempotent
// and runs automatically from [NewStore].
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, ddl := range []string{ddlSessions, ddlTurns} {
		if _, err := pool.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("postgres history: apply schema: %w", err)
		}
	}
	return nil
}
