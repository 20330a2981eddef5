package history

import (
	"context"
	"errors"
)

// ErrSessionNotFound is returned by profile lookups for unknown session IDs.
var ErrSessionNotFound = errors.New("history: session not found")

// Store is the history sink and reader. Implementations must support
// concurrent writes from multiple connections without coordination from the
// caller.
type Store interface {
	// AppendTurn persists one completed turn under sessionID. The write is
	// append-only; existing turns are never modified.
	AppendTurn(ctx context.Context, sessionID, userText, assistantText string) error

	// RecentTurns returns up to limit turns for sessionID, most recent
	// first. A session with no turns yields an empty slice, not an error.
	RecentTurns(ctx context.Context, sessionID string, limit int) ([]Turn, error)
}

// ProfileStore reads and writes per-session profiles.
type ProfileStore interface {
	// Profile returns the profile stored for sessionID, or
	// [ErrSessionNotFound] when the session does not exist.
	Profile(ctx context.Context, sessionID string) (Profile, error)

	// SaveProfile stores profile under sessionID, creating the session when
	// it does not exist yet.
	SaveProfile(ctx context.Context, sessionID string, profile Profile) error
}
