package history_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/talkdeck/talkdeck/pkg/history"
)

func TestMemStoreAppendAndRecent(t *testing.T) {
	t.Parallel()

	s := history.NewMemStore()
	ctx := context.Background()

	// Deterministic, strictly increasing clock.
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	i := 0
	s.SetClock(func() time.Time {
		i++
		return base.Add(time.Duration(i) * time.Second)
	})

	for _, txt := range []string{"first", "second", "third"} {
		if err := s.AppendTurn(ctx, "sess-1", txt, "re: "+txt); err != nil {
			t.Fatalf("AppendTurn(%q) error: %v", txt, err)
		}
	}

	turns, err := s.RecentTurns(ctx, "sess-1", 2)
	if err != nil {
		t.Fatalf("RecentTurns() error: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("len(turns) = %d, want 2", len(turns))
	}
	// Most recent first.
	if turns[0].UserText != "third" || turns[1].UserText != "second" {
		t.Errorf("order = [%q, %q], want [third, second]", turns[0].UserText, turns[1].UserText)
	}
	if !turns[0].CreatedAt.After(turns[1].CreatedAt) {
		t.Error("timestamps should be strictly decreasing in most-recent-first order")
	}
}

func TestMemStoreRecentEmptySession(t *testing.T) {
	t.Parallel()

	s := history.NewMemStore()
	turns, err := s.RecentTurns(context.Background(), "nope", 5)
	if err != nil {
		t.Fatalf("RecentTurns() error: %v", err)
	}
	if len(turns) != 0 {
		t.Errorf("len(turns) = %d, want 0", len(turns))
	}
}

func TestMemStoreProfiles(t *testing.T) {
	t.Parallel()

	s := history.NewMemStore()
	ctx := context.Background()

	_, err := s.Profile(ctx, "missing")
	if !errors.Is(err, history.ErrSessionNotFound) {
		t.Fatalf("Profile(missing) error = %v, want ErrSessionNotFound", err)
	}

	want := history.Profile{Resume: "r", Projects: "p", JobDescription: "jd"}
	if err := s.SaveProfile(ctx, "sess-1", want); err != nil {
		t.Fatalf("SaveProfile() error: %v", err)
	}

	got, err := s.Profile(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Profile() error: %v", err)
	}
	if got != want {
		t.Errorf("Profile() = %+v, want %+v", got, want)
	}
}
