package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/talkdeck/talkdeck/internal/turn"
)

// Compile-time assertion that Emitter can back the turn pipeline.
var _ turn.Emitter = (*Emitter)(nil)

// Event is the JSON shape of every server-to-client message on the audio
// websocket.
type Event struct {
	// Type is "ready", "clear", "token", or "complete".
	Type string `json:"type"`

	// Token carries the text increment for "token" events.
	Token string `json:"token,omitempty"`

	// SessionID echoes the negotiated session on "ready" events.
	SessionID string `json:"session_id,omitempty"`
}

// writeFunc sends one encoded text message to the client.
type writeFunc func(ctx context.Context, data []byte) error

// Emitter serializes outbound events for one connection. A single writer
// goroutine owns the socket's write side; producers enqueue into a bounded
// channel and block when it is full, which preserves in-order delivery.
//
// Events are fire-and-forget: a failed write is logged and the rest of the
// queue is drained without sending, so a dead client cannot wedge the
// pipeline.
type Emitter struct {
	write writeFunc
	ch    chan Event
	log   *slog.Logger

	closeOnce sync.Once
	done      chan struct{}
}

// NewEmitter creates an Emitter with the given queue depth. Call
// [Emitter.Run] in its own goroutine, then [Emitter.Close] once no more
// events will be produced.
func NewEmitter(write writeFunc, buffer int, log *slog.Logger) *Emitter {
	if buffer < 1 {
		buffer = 1
	}
	return &Emitter{
		write: write,
		ch:    make(chan Event, buffer),
		log:   log,
		done:  make(chan struct{}),
	}
}

// Run drains the queue until Close is called, writing each event to the
// client. After the first write failure the remaining events are discarded.
func (e *Emitter) Run(ctx context.Context) {
	defer close(e.done)

	dead := false
	for ev := range e.ch {
		if dead {
			continue
		}
		data, err := json.Marshal(ev)
		if err != nil {
			e.log.Error("failed to encode event", slog.Any("error", err))
			continue
		}
		if err := e.write(ctx, data); err != nil {
			e.log.Debug("client write failed; dropping remaining events", slog.Any("error", err))
			dead = true
		}
	}
}

// Close stops the writer after the queued events are flushed and waits for
// it to exit. Safe to call more than once.
func (e *Emitter) Close() {
	e.closeOnce.Do(func() { close(e.ch) })
	<-e.done
}

// Ready reports the negotiated session back to the client.
func (e *Emitter) Ready(sessionID string) {
	e.ch <- Event{Type: "ready", SessionID: sessionID}
}

// Clear implements turn.Emitter.
func (e *Emitter) Clear() {
	e.ch <- Event{Type: "clear"}
}

// Token implements turn.Emitter.
func (e *Emitter) Token(text string) {
	e.ch <- Event{Type: "token", Token: text}
}

// Complete implements turn.Emitter.
func (e *Emitter) Complete() {
	e.ch <- Event{Type: "complete"}
}
