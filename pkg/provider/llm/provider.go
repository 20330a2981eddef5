// Package llm defines the Provider interface for Large Language Model
// backends.
//
// An LLM provider wraps a remote or local model API (OpenAI, Anthropic, a
// local Ollama instance, ...) and exposes a uniform streaming interface for
// the turn pipeline. The stream is a lazy, finite, non-restartable sequence
// of text increments delivered over a channel.
//
// Implementations must be safe for concurrent use. Channels returned by
// StreamCompletion must be closed by the implementation when the stream ends
// or when the supplied context is cancelled.
package llm

import "context"

// Message represents a single message in an LLM conversation.
type Message struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the text content of the message.
	Content string
}

// CompletionRequest carries everything the LLM needs to produce a response.
// Callers should treat a zero-value request as invalid; at minimum Messages
// must be non-empty.
type CompletionRequest struct {
	// SystemPrompt is a high-priority instruction injected before the
	// conversation. Providers without a dedicated system slot prepend it as
	// a "system"-role message.
	SystemPrompt string

	// Messages is the ordered conversation. The last message is typically
	// from the "user" role and drives the response.
	Messages []Message

	// Temperature controls output randomness in [0.0, 2.0]. Zero means use
	// the provider default.
	Temperature float64

	// MaxTokens caps the number of completion tokens the model may generate.
	// Zero means use the provider default.
	MaxTokens int
}

// Chunk is a single text increment emitted by a streaming completion. An
// increment is not necessarily one lexical token; providers batch as they
// see fit.
type Chunk struct {
	// Text is the incremental content of this chunk. May be empty on the
	// final chunk.
	Text string

	// FinishReason is set on the final chunk and indicates why generation
	// stopped: "stop" (natural end), "length" (token cap), "error" (the
	// stream failed after it was opened; Text carries the error message),
	// or "" for non-final chunks.
	FinishReason string
}

// Provider is the abstraction over any LLM backend.
type Provider interface {
	// StreamCompletion sends req to the model and returns a read-only
	// channel that emits Chunk values as they arrive. The channel is closed
	// by the implementation when generation finishes or when ctx is
	// cancelled.
	//
	// Callers must drain the channel to avoid goroutine leaks. Errors that
	// occur after the channel is opened are surfaced as a Chunk with
	// FinishReason "error"; the initial error return is non-nil only for
	// failures that prevent the stream from starting.
	//
	// The returned channel must never be nil when error is nil.
	StreamCompletion(ctx context.Context, req CompletionRequest) (<-chan Chunk, error)

	// Complete sends req to the model and waits for the full response. It
	// is a convenience wrapper for callers that do not need incremental
	// output.
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
