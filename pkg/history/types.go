// Package history defines the conversation persistence contracts: turns
// (one user utterance paired with one generated answer) and per-session
// profiles (the context documents a session was opened with).
//
// The turn pipeline is the only writer; it appends exactly one Turn per
// completed generation and reads a bounded window of recent turns to build
// prompt context. It never mutates existing history.
package history

import "time"

// Turn is the persisted unit of conversation: one user utterance and the
// response generated for it. Immutable after creation.
type Turn struct {
	// SessionID correlates the turn with a stored profile and its siblings.
	SessionID string `json:"session_id"`

	// UserText is the transcript the turn was generated from.
	UserText string `json:"user"`

	// AssistantText is the full generated response.
	AssistantText string `json:"assistant"`

	// CreatedAt records when the turn completed.
	CreatedAt time.Time `json:"timestamp"`
}

// Profile holds the context documents a session was opened with. Every field
// is optional; absent fields contribute an empty string to prompt assembly.
type Profile struct {
	// Resume is the candidate's resume text.
	Resume string

	// Projects describes notable projects.
	Projects string

	// JobDescription is the posting being interviewed for.
	JobDescription string
}
