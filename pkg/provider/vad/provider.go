// Package vad defines the Detector interface for frame-level speech
// classification.
//
// A Detector wraps a voice-activity classifier (an energy detector, a
// WebRTC-style aggressiveness-tuned model, or a mock) and answers one
// question per fixed-size PCM frame: speech or not. Segmentation policy —
// when an utterance starts, how much trailing silence ends it — lives in the
// caller's state machine, not here.
//
// Detectors must be deterministic per frame and side-effect-free: classifying
// a frame must not change the answer for any other frame. This keeps the
// segmentation state machine exhaustively testable.
package vad

// Config holds the parameters a Detector is constructed for. Frames passed to
// IsSpeech must match this format exactly.
type Config struct {
	// SampleRate is the audio sample rate in Hz. Common values: 8000, 16000.
	SampleRate int

	// FrameSizeMs is the duration of each audio frame in milliseconds. Most
	// detectors operate on fixed frame sizes (10, 20, or 30 ms).
	FrameSizeMs int
}

// Detector classifies single PCM frames as speech or non-speech.
//
// Implementations must be safe for concurrent use: one Detector instance is
// shared by every connection's segmentation loop.
type Detector interface {
	// IsSpeech reports whether frame contains speech. The frame must be raw
	// 16-bit little-endian mono PCM matching the Config the detector was
	// created with. Returns an error only for malformed input (wrong frame
	// size, odd byte count); classification itself cannot fail.
	//
	// IsSpeech is called on the frame-intake path and must not block.
	IsSpeech(frame []byte) (bool, error)
}
