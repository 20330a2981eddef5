// Package segment turns a per-frame speech/non-speech classification into
// finalized utterance segments. A [Machine] owns the voice activity state for
// exactly one connection and is not safe for concurrent use; the connection
// supervisor is its only caller.
package segment

// Accumulator collects PCM frames in strict receipt order.
type Accumulator struct {
	buf []byte
}

// Append adds one frame's PCM to the buffer. The payload is copied, so the
// caller may reuse its read buffer.
func (a *Accumulator) Append(frame []byte) {
	a.buf = append(a.buf, frame...)
}

// Len returns the number of buffered bytes.
func (a *Accumulator) Len() int {
	return len(a.buf)
}

// Drain returns the buffered PCM and resets the accumulator. Draining an
// empty accumulator returns nil; callers treat that as nothing to do.
func (a *Accumulator) Drain() []byte {
	if len(a.buf) == 0 {
		return nil
	}
	out := a.buf
	a.buf = nil
	return out
}
