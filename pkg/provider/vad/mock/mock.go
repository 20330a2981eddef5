// Package mock provides a scriptable vad.Detector for tests.
package mock

import (
	"sync"

	"github.com/talkdeck/talkdeck/pkg/provider/vad"
)

// Compile-time assertion that Detector satisfies vad.Detector.
var _ vad.Detector = (*Detector)(nil)

// Detector is a test double that classifies frames from a scripted sequence.
// Once the script is exhausted it keeps returning the last scripted value
// (or false when no script was set). All methods are safe for concurrent use.
type Detector struct {
	mu sync.Mutex

	// Script is the ordered list of classifications to return.
	Script []bool

	// Err, when non-nil, is returned by every IsSpeech call.
	Err error

	// Calls records every frame passed to IsSpeech.
	Calls [][]byte

	next int
}

// IsSpeech implements vad.Detector by consuming the script.
func (d *Detector) IsSpeech(frame []byte) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	cp := make([]byte, len(frame))
	copy(cp, frame)
	d.Calls = append(d.Calls, cp)

	if d.Err != nil {
		return false, d.Err
	}
	if len(d.Script) == 0 {
		return false, nil
	}
	if d.next >= len(d.Script) {
		return d.Script[len(d.Script)-1], nil
	}
	v := d.Script[d.next]
	d.next++
	return v, nil
}

// CallCount returns how many frames have been classified.
func (d *Detector) CallCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Calls)
}
