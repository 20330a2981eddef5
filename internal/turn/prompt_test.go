package turn_test

import (
	"strings"
	"testing"

	"github.com/talkdeck/talkdeck/internal/turn"
	"github.com/talkdeck/talkdeck/pkg/history"
)

func TestPromptBuildStructure(t *testing.T) {
	t.Parallel()

	b := turn.NewPromptBuilder("", 5)
	profile := history.Profile{
		Resume:         "10 years of Go",
		Projects:       "voice pipeline",
		JobDescription: "backend engineer",
	}
	// Most recent first, as the history store returns them.
	recent := []history.Turn{
		{UserText: "q2", AssistantText: "a2"},
		{UserText: "q1", AssistantText: "a1"},
	}

	req := b.Build(profile, recent, "What did you build?")

	if req.SystemPrompt != turn.DefaultPersona {
		t.Error("empty persona should fall back to DefaultPersona")
	}

	// context block + 2 history turns * 2 + final user message
	if len(req.Messages) != 6 {
		t.Fatalf("len(Messages) = %d, want 6", len(req.Messages))
	}

	ctxMsg := req.Messages[0]
	if ctxMsg.Role != "system" {
		t.Errorf("context block role = %q, want system", ctxMsg.Role)
	}
	for _, want := range []string{"[RESUME]", "10 years of Go", "[PROJECTS]", "voice pipeline", "[JOB_DESCRIPTION]", "backend engineer"} {
		if !strings.Contains(ctxMsg.Content, want) {
			t.Errorf("context block missing %q", want)
		}
	}

	// History reversed to chronological order.
	wantRoles := []string{"user", "assistant", "user", "assistant"}
	wantTexts := []string{"q1", "a1", "q2", "a2"}
	for i := 0; i < 4; i++ {
		m := req.Messages[1+i]
		if m.Role != wantRoles[i] || m.Content != wantTexts[i] {
			t.Errorf("Messages[%d] = {%s %q}, want {%s %q}", 1+i, m.Role, m.Content, wantRoles[i], wantTexts[i])
		}
	}

	last := req.Messages[5]
	if last.Role != "user" {
		t.Errorf("final message role = %q, want user", last.Role)
	}
	if !strings.Contains(last.Content, "TRANSCRIPT:\nWhat did you build?") {
		t.Error("final message should carry the transcript")
	}
	if !strings.Contains(last.Content, "[OUTPUT_INSTRUCTIONS]") {
		t.Error("final message should carry the output instructions")
	}
}

func TestPromptBuildHardCap(t *testing.T) {
	t.Parallel()

	b := turn.NewPromptBuilder("persona", 2)
	recent := []history.Turn{
		{UserText: "q4", AssistantText: "a4"},
		{UserText: "q3", AssistantText: "a3"},
		{UserText: "q2", AssistantText: "a2"},
		{UserText: "q1", AssistantText: "a1"},
	}

	req := b.Build(history.Profile{}, recent, "next")

	// context + 2 capped turns * 2 + final
	if len(req.Messages) != 6 {
		t.Fatalf("len(Messages) = %d, want 6", len(req.Messages))
	}
	// The two most recent survive the cap, oldest of those first.
	if req.Messages[1].Content != "q3" || req.Messages[3].Content != "q4" {
		t.Errorf("capped history = [%q, %q], want [q3, q4]", req.Messages[1].Content, req.Messages[3].Content)
	}
	if req.SystemPrompt != "persona" {
		t.Errorf("SystemPrompt = %q, want persona", req.SystemPrompt)
	}
}

func TestPromptBuildNoHistoryNoProfile(t *testing.T) {
	t.Parallel()

	b := turn.NewPromptBuilder("persona", 5)
	req := b.Build(history.Profile{}, nil, "hello there")

	if len(req.Messages) != 2 {
		t.Fatalf("len(Messages) = %d, want 2 (context + transcript)", len(req.Messages))
	}
	if !strings.Contains(req.Messages[0].Content, "[RESUME]") {
		t.Error("context block should keep its shape for empty profiles")
	}
}
