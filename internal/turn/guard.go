// Package turn runs the per-segment pipeline: encode, transcribe, guard,
// prompt assembly, streamed generation, and history persistence.
package turn

import "strings"

// RejectReason classifies why the quality guard discarded a transcript.
// The empty value means the transcript was accepted.
type RejectReason string

const (
	RejectNone     RejectReason = ""
	RejectEmpty    RejectReason = "empty"
	RejectTooShort RejectReason = "too_short"
	RejectFiller   RejectReason = "filler"
)

// Guard filters out transcripts that are not worth a generation call.
// Short-form transcribers reliably hallucinate boilerplate ("Thanks for
// watching!") on near-silent segments; rejecting here keeps those out of the
// prompt and out of history.
type Guard struct {
	minChars  int
	minTokens int
	fillers   map[string]struct{}
}

// NewGuard creates a Guard. A transcript is rejected when it is empty after
// trimming, when it has fewer than minTokens whitespace tokens AND fewer
// than minChars characters, or when the trimmed text exactly matches one of
// the filler phrases (case- and whitespace-sensitive).
func NewGuard(minChars, minTokens int, fillers []string) *Guard {
	set := make(map[string]struct{}, len(fillers))
	for _, f := range fillers {
		set[f] = struct{}{}
	}
	return &Guard{minChars: minChars, minTokens: minTokens, fillers: set}
}

// Check trims text and classifies it. The trimmed transcript is returned
// alongside the verdict so callers work with the same string the guard
// evaluated.
func (g *Guard) Check(text string) (string, RejectReason) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return trimmed, RejectEmpty
	}

	tokens := len(strings.Fields(trimmed))
	chars := len([]rune(trimmed))
	if tokens < g.minTokens && chars < g.minChars {
		return trimmed, RejectTooShort
	}

	if _, ok := g.fillers[trimmed]; ok {
		return trimmed, RejectFiller
	}

	return trimmed, RejectNone
}
