// Package energy provides a pure-Go RMS energy speech detector.
//
// It classifies a frame as speech when its root-mean-square level exceeds a
// threshold expressed in native 16-bit PCM units (0–32767). The detector is
// stateless per frame, so classification is deterministic and the same frame
// always yields the same answer — hysteresis and run-length smoothing belong
// to the segmentation state machine that consumes the results.
//
// An aggressiveness level (0–3, mirroring WebRTC VAD) scales the threshold:
// higher levels demand more energy before a frame counts as speech, trading
// missed quiet speech for fewer false positives on breath and room noise.
package energy

import (
	"fmt"

	"github.com/talkdeck/talkdeck/pkg/audio"
	"github.com/talkdeck/talkdeck/pkg/provider/vad"
)

// Compile-time assertion that Detector satisfies vad.Detector.
var _ vad.Detector = (*Detector)(nil)

// baseThreshold is the RMS level at aggressiveness 0. For 16-bit audio the
// maximum is 32 767; a few hundred corresponds to near-silence.
const baseThreshold = 250.0

// thresholdStep is the per-level increase applied by aggressiveness.
const thresholdStep = 150.0

// Detector implements vad.Detector using RMS energy. Safe for concurrent use;
// it holds no mutable state.
type Detector struct {
	frameBytes int
	threshold  float64
}

// Option is a functional option for configuring a Detector.
type Option func(*Detector)

// WithThreshold overrides the computed RMS speech threshold entirely.
// Values are in 16-bit PCM units.
func WithThreshold(t float64) Option {
	return func(d *Detector) { d.threshold = t }
}

// New creates a Detector for the given audio format and aggressiveness level
// (0–3). Frames passed to IsSpeech must be exactly one cfg frame long.
func New(cfg vad.Config, aggressiveness int, opts ...Option) (*Detector, error) {
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("energy: sample rate must be positive, got %d", cfg.SampleRate)
	}
	if cfg.FrameSizeMs <= 0 {
		return nil, fmt.Errorf("energy: frame size must be positive, got %dms", cfg.FrameSizeMs)
	}
	if aggressiveness < 0 || aggressiveness > 3 {
		return nil, fmt.Errorf("energy: aggressiveness %d out of range [0, 3]", aggressiveness)
	}

	d := &Detector{
		frameBytes: cfg.SampleRate * cfg.FrameSizeMs / 1000 * audio.BytesPerSample,
		threshold:  baseThreshold + thresholdStep*float64(aggressiveness),
	}
	for _, o := range opts {
		o(d)
	}
	return d, nil
}

// IsSpeech implements vad.Detector.
func (d *Detector) IsSpeech(frame []byte) (bool, error) {
	if len(frame) != d.frameBytes {
		return false, fmt.Errorf("energy: frame is %d bytes, want %d", len(frame), d.frameBytes)
	}
	return audio.RMS(frame) >= d.threshold, nil
}

// Threshold returns the active RMS speech threshold. Useful for logging the
// effective configuration at startup.
func (d *Detector) Threshold() float64 { return d.threshold }
