package server

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"sync"
	"testing"
)

// captureWriter records written payloads; optionally fails from a given
// call count onward.
type captureWriter struct {
	mu       sync.Mutex
	payloads []string
	failFrom int // 0 = never fail
}

func (c *captureWriter) write(_ context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failFrom > 0 && len(c.payloads)+1 >= c.failFrom {
		return errors.New("broken pipe")
	}
	c.payloads = append(c.payloads, string(data))
	return nil
}

func (c *captureWriter) all() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.payloads))
	copy(out, c.payloads)
	return out
}

func TestEmitterOrderedDelivery(t *testing.T) {
	t.Parallel()

	w := &captureWriter{}
	em := NewEmitter(w.write, 8, slog.Default())
	go em.Run(context.Background())

	em.Ready("sess-1")
	em.Clear()
	em.Token("hello")
	em.Token(" world")
	em.Complete()
	em.Close()

	want := []string{
		`{"type":"ready","session_id":"sess-1"}`,
		`{"type":"clear"}`,
		`{"type":"token","token":"hello"}`,
		`{"type":"token","token":" world"}`,
		`{"type":"complete"}`,
	}
	if got := w.all(); !reflect.DeepEqual(got, want) {
		t.Errorf("payloads = %v, want %v", got, want)
	}
}

func TestEmitterDropsAfterWriteFailure(t *testing.T) {
	t.Parallel()

	w := &captureWriter{failFrom: 2}
	em := NewEmitter(w.write, 8, slog.Default())
	go em.Run(context.Background())

	em.Clear()
	em.Token("a")
	em.Token("b")
	em.Complete()
	em.Close() // must not hang on a dead client

	got := w.all()
	if len(got) != 1 {
		t.Errorf("payloads = %v, want only the first write to land", got)
	}
}

func TestEmitterCloseIdempotent(t *testing.T) {
	t.Parallel()

	em := NewEmitter((&captureWriter{}).write, 1, slog.Default())
	go em.Run(context.Background())

	em.Close()
	em.Close()
}
