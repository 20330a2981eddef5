// Package mock provides a scriptable stt.Transcriber for tests.
package mock

import (
	"context"
	"sync"

	"github.com/talkdeck/talkdeck/pkg/provider/stt"
)

// Compile-time assertion that Transcriber satisfies stt.Transcriber.
var _ stt.Transcriber = (*Transcriber)(nil)

// Transcriber is a test double returning canned transcripts. Safe for
// concurrent use.
type Transcriber struct {
	mu sync.Mutex

	// Results is the ordered list of transcripts to return. Once exhausted,
	// Result is returned instead.
	Results []string

	// Result is the fallback transcript.
	Result string

	// Err, when non-nil, is returned by every Transcribe call.
	Err error

	// Calls records the audio payload length of each call.
	Calls []int

	next int
}

// Transcribe implements stt.Transcriber.
func (t *Transcriber) Transcribe(ctx context.Context, wav []byte) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.Calls = append(t.Calls, len(wav))

	if t.Err != nil {
		return "", t.Err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if t.next < len(t.Results) {
		r := t.Results[t.next]
		t.next++
		return r, nil
	}
	return t.Result, nil
}

// CallCount returns how many Transcribe calls were made.
func (t *Transcriber) CallCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.Calls)
}
