package turn_test

import (
	"testing"

	"github.com/talkdeck/talkdeck/internal/turn"
)

func TestGuardCheck(t *testing.T) {
	t.Parallel()

	g := turn.NewGuard(12, 2, []string{"Thanks for watching!", "you"})

	tests := []struct {
		name       string
		in         string
		wantText   string
		wantReason turn.RejectReason
	}{
		{"empty", "", "", turn.RejectEmpty},
		{"whitespace only", "   \n\t ", "", turn.RejectEmpty},
		{"short single word", "Hi", "Hi", turn.RejectTooShort},
		{"long single word passes on chars", "Constantinople", "Constantinople", turn.RejectNone},
		{"two short tokens pass on token count", "ok go", "ok go", turn.RejectNone},
		{"filler exact match", "Thanks for watching!", "Thanks for watching!", turn.RejectFiller},
		{"filler trimmed before match", "  Thanks for watching!  ", "Thanks for watching!", turn.RejectFiller},
		{"filler is case sensitive", "thanks for watching!", "thanks for watching!", turn.RejectNone},
		{"short filler entry", "you", "you", turn.RejectTooShort},
		{"normal question", "Tell me about your last project", "Tell me about your last project", turn.RejectNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, reason := g.Check(tt.in)
			if got != tt.wantText {
				t.Errorf("Check(%q) text = %q, want %q", tt.in, got, tt.wantText)
			}
			if reason != tt.wantReason {
				t.Errorf("Check(%q) reason = %q, want %q", tt.in, reason, tt.wantReason)
			}
		})
	}
}
