package turn

import (
	"fmt"
	"strings"

	"github.com/talkdeck/talkdeck/pkg/history"
	"github.com/talkdeck/talkdeck/pkg/provider/llm"
)

// DefaultPersona is the system instruction used when no persona is
// configured. It puts the model in the candidate's seat for a spoken job
// interview.
const DefaultPersona = `You are my voice in a job interview.
Speak in the first person ("I"), in a natural, conversational style - like I am sitting across the table.

Guidelines:
Length & depth: Give answers with enough substance (2-4 paragraphs).
Don't stop at a headline - explain context, process, decisions, and impact.

When asked "how" or "elaborate": go step-by-step, describing tools, design, trade-offs, and lessons learned.

Variety: Mix results with stories. Sometimes highlight metrics, sometimes highlight teamwork or problem-solving.

STAR: Use Situation, Task, Action, Result when helpful, but keep it conversational.

Honesty: Don't invent fake company names, dates, or facts.

Takeaway: End with a short, natural summary of why it matters.`

// outputInstructions is appended after the transcript in the final user
// message of every prompt.
const outputInstructions = `[OUTPUT_INSTRUCTIONS]
- Speak as me, in first person.
- Be concise and confident. No fluff or hedging. No invented facts.
- Use STAR when helpful; quantify impact if available.
- If details are missing, keep them generic but realistic.
- End with one-line takeaway.`

// PromptBuilder assembles the turn-structured completion request: persona,
// one context block built from the session profile, up to maxTurns of
// history as alternating user/assistant messages, and the current transcript
// as the final user message.
type PromptBuilder struct {
	persona  string
	maxTurns int
}

// NewPromptBuilder creates a builder. An empty persona selects
// [DefaultPersona].
func NewPromptBuilder(persona string, maxTurns int) *PromptBuilder {
	if persona == "" {
		persona = DefaultPersona
	}
	return &PromptBuilder{persona: persona, maxTurns: maxTurns}
}

// MaxTurns returns the history cap applied by Build. Callers use it as the
// fetch limit for the history store.
func (b *PromptBuilder) MaxTurns() int {
	return b.maxTurns
}

// Build assembles the completion request. recent must be ordered most recent
// first, as returned by the history store; it is reversed to chronological
// order before inclusion. The cap is a hard turn count, not a token budget.
func (b *PromptBuilder) Build(profile history.Profile, recent []history.Turn, transcript string) llm.CompletionRequest {
	msgs := make([]llm.Message, 0, 2*b.maxTurns+2)

	msgs = append(msgs, llm.Message{
		Role:    "system",
		Content: contextBlock(profile),
	})

	if len(recent) > b.maxTurns {
		recent = recent[:b.maxTurns]
	}
	// Oldest first.
	for i := len(recent) - 1; i >= 0; i-- {
		msgs = append(msgs,
			llm.Message{Role: "user", Content: recent[i].UserText},
			llm.Message{Role: "assistant", Content: recent[i].AssistantText},
		)
	}

	msgs = append(msgs, llm.Message{
		Role: "user",
		Content: fmt.Sprintf(
			"You are answering the interviewer's last question based on the transcript below.\n\nTRANSCRIPT:\n%s\n\n%s",
			transcript, outputInstructions,
		),
	})

	return llm.CompletionRequest{
		SystemPrompt: b.persona,
		Messages:     msgs,
	}
}

// contextBlock renders the profile fields. Absent fields stay as empty
// sections so the block shape is stable.
func contextBlock(p history.Profile) string {
	var sb strings.Builder
	sb.WriteString("[RESUME]\n")
	sb.WriteString(p.Resume)
	sb.WriteString("\n\n[PROJECTS]\n")
	sb.WriteString(p.Projects)
	sb.WriteString("\n\n[JOB_DESCRIPTION]\n")
	sb.WriteString(p.JobDescription)
	return sb.String()
}
