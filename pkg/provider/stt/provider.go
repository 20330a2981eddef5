// Package stt defines the Transcriber interface for Speech-to-Text backends.
//
// The pipeline transcribes one finished utterance at a time: a complete WAV
// container in, plain text out. That batch shape matches how the segments are
// produced — the voice-activity state machine already decides utterance
// boundaries, so streaming partials would have nothing to attach to.
//
// Implementations must be safe for concurrent use; separate connections may
// transcribe simultaneously through the same Transcriber instance.
package stt

import "context"

// Transcriber is the abstraction over any batch speech-to-text backend.
type Transcriber interface {
	// Transcribe converts a self-describing WAV audio container into text.
	// It may block for the duration of the provider call and must respect
	// ctx cancellation. An error aborts the current turn only; callers treat
	// it as non-fatal to the connection.
	Transcribe(ctx context.Context, wav []byte) (string, error)
}
