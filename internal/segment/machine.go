package segment

import (
	"fmt"
	"time"

	"github.com/talkdeck/talkdeck/pkg/provider/vad"
)

// State is the voice activity state of a [Machine].
type State int

const (
	// StateIdle means no speech has been observed since the last segment.
	StateIdle State = iota

	// StateSpeech means an utterance is being accumulated.
	StateSpeech
)

// String implements [fmt.Stringer].
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSpeech:
		return "speech"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Machine is the per-connection voice activity state machine. It classifies
// each incoming frame through a [vad.Detector] and accumulates an utterance
// until the trailing silence reaches the configured threshold.
//
// The silence run length is tracked as elapsed time rather than a frame
// count, so the threshold keeps its meaning if the frame duration changes.
// Trailing silence frames stay in the segment on purpose: the transcriber
// handles natural utterance boundaries better than hard-trimmed audio.
type Machine struct {
	det       vad.Detector
	frameDur  time.Duration
	threshold time.Duration

	state   State
	acc     Accumulator
	silence time.Duration
}

// NewMachine creates a Machine that finalizes an utterance after
// silenceThreshold of continuous non-speech. frameDuration must match the
// duration of the frames passed to [Machine.Push].
func NewMachine(det vad.Detector, frameDuration, silenceThreshold time.Duration) *Machine {
	return &Machine{
		det:       det,
		frameDur:  frameDuration,
		threshold: silenceThreshold,
	}
}

// State returns the current voice activity state.
func (m *Machine) State() State {
	return m.state
}

// Buffered returns the number of PCM bytes accumulated for the open segment.
func (m *Machine) Buffered() int {
	return m.acc.Len()
}

// Push feeds one frame through the state machine. When the frame completes
// an utterance (the silence run reaches the threshold), the finalized PCM is
// returned and the machine resets to idle; otherwise the returned slice is
// nil.
//
// A detector error leaves the machine state untouched and the frame
// unclassified; the caller decides whether to log and continue.
func (m *Machine) Push(frame []byte) ([]byte, error) {
	speech, err := m.det.IsSpeech(frame)
	if err != nil {
		return nil, fmt.Errorf("segment: classify frame: %w", err)
	}

	switch m.state {
	case StateIdle:
		if !speech {
			// No segment open; silence between utterances is dropped.
			return nil, nil
		}
		m.state = StateSpeech
		m.silence = 0
		m.acc.Append(frame)
		return nil, nil

	case StateSpeech:
		m.acc.Append(frame)
		if speech {
			m.silence = 0
			return nil, nil
		}
		m.silence += m.frameDur
		if m.silence < m.threshold {
			return nil, nil
		}
		return m.reset(), nil
	}

	return nil, fmt.Errorf("segment: invalid state %v", m.state)
}

// Flush finalizes any utterance in progress without waiting for the silence
// threshold. It backs the disconnect path, so a user who stops talking and
// immediately closes the connection does not lose the last utterance.
// Returns nil when nothing is buffered.
func (m *Machine) Flush() []byte {
	if m.state != StateSpeech {
		return nil
	}
	return m.reset()
}

func (m *Machine) reset() []byte {
	out := m.acc.Drain()
	m.state = StateIdle
	m.silence = 0
	return out
}
