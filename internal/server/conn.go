package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/talkdeck/talkdeck/internal/config"
	"github.com/talkdeck/talkdeck/internal/observe"
	"github.com/talkdeck/talkdeck/internal/segment"
	"github.com/talkdeck/talkdeck/internal/turn"
	"github.com/talkdeck/talkdeck/pkg/audio"
	"github.com/talkdeck/talkdeck/pkg/provider/vad"
)

// drainTimeout bounds the pipeline work that may still run after the client
// disconnected (the final flushed segment and anything already queued).
const drainTimeout = 60 * time.Second

// hello is the first text message a client sends after connecting.
type hello struct {
	SessionID string `json:"session_id"`
}

// AudioHandler upgrades /ws-audio requests and supervises one connection per
// request: frame intake, voice activity segmentation, and the per-connection
// pipeline worker.
type AudioHandler struct {
	audioCfg config.AudioConfig
	detector vad.Detector
	pipeline *turn.Pipeline
	metrics  *observe.Metrics
	log      *slog.Logger

	frameBytes int
}

// NewAudioHandler creates the websocket endpoint handler. The detector must
// be safe for concurrent use; it is shared across connections.
func NewAudioHandler(audioCfg config.AudioConfig, det vad.Detector, pipeline *turn.Pipeline, metrics *observe.Metrics, log *slog.Logger) *AudioHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AudioHandler{
		audioCfg:   audioCfg,
		detector:   det,
		pipeline:   pipeline,
		metrics:    metrics,
		log:        log,
		frameBytes: audio.FrameBytes(audioCfg.SampleRate, audioCfg.FrameDuration()),
	}
}

// ServeHTTP implements [http.Handler].
func (h *AudioHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Warn("websocket accept failed", slog.Any("error", err))
		return
	}
	h.supervise(r.Context(), c)
}

// supervise owns the receive loop for one connection. Frame intake and
// pipeline execution are decoupled by a bounded segment queue so
// classification of new frames never waits on transcription or generation;
// when the queue is full, intake blocks, which is the backpressure the
// client pays for talking faster than the pipeline drains.
func (h *AudioHandler) supervise(ctx context.Context, c *websocket.Conn) {
	h.metrics.ActiveConnections.Add(ctx, 1)
	defer h.metrics.ActiveConnections.Add(ctx, -1)

	// Pipeline work outlives the read side: the final flushed segment still
	// runs after the client disconnects. The drain timeout is armed only
	// once the read loop has exited.
	workCtx, cancelWork := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelWork()

	sessionID := h.awaitHello(ctx, c)
	log := h.log.With(slog.String("session_id", sessionID))
	log.Info("audio client connected")

	em := NewEmitter(func(ctx context.Context, data []byte) error {
		return c.Write(ctx, websocket.MessageText, data)
	}, 64, log)
	go em.Run(workCtx)

	em.Ready(sessionID)

	segCh := make(chan []byte, h.audioCfg.PendingSegments)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		for seg := range segCh {
			if err := h.pipeline.Run(workCtx, sessionID, seg, em); err != nil {
				// Single-turn failure is never connection-fatal.
				log.Error("turn aborted", slog.Any("error", err))
			}
		}
	}()

	machine := segment.NewMachine(h.detector, h.audioCfg.FrameDuration(), h.audioCfg.SilenceThreshold())
	h.readLoop(ctx, c, machine, segCh, log)

	// One final finalize so an utterance cut off by disconnect is not lost.
	if seg := machine.Flush(); seg != nil {
		h.metrics.Segments.Add(workCtx, 1)
		segCh <- seg
	}
	close(segCh)

	drain := time.AfterFunc(drainTimeout, cancelWork)
	<-workerDone
	drain.Stop()
	em.Close()

	c.Close(websocket.StatusNormalClosure, "")
	log.Info("audio client disconnected")
}

// awaitHello reads the initial hello message. A client that skips the hello
// and a malformed hello both degrade to an empty session: audio is still
// processed, but without profile context or persistence.
func (h *AudioHandler) awaitHello(ctx context.Context, c *websocket.Conn) string {
	typ, data, err := c.Read(ctx)
	if err != nil || typ != websocket.MessageText {
		return ""
	}
	var msg hello
	if err := json.Unmarshal(data, &msg); err != nil {
		h.log.Debug("malformed hello", slog.Any("error", err))
		return ""
	}
	return msg.SessionID
}

// readLoop consumes messages until close or read error. Binary payloads of
// exactly one frame go through the state machine; anything else is ignored.
func (h *AudioHandler) readLoop(ctx context.Context, c *websocket.Conn, machine *segment.Machine, segCh chan<- []byte, log *slog.Logger) {
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			return
		}
		if typ != websocket.MessageBinary {
			continue
		}
		if len(data) != h.frameBytes {
			h.metrics.DroppedFrames.Add(ctx, 1)
			log.Debug("dropped frame with unexpected size",
				slog.Int("got", len(data)),
				slog.Int("want", h.frameBytes),
			)
			continue
		}

		seg, err := machine.Push(data)
		if err != nil {
			log.Warn("frame classification failed", slog.Any("error", err))
			continue
		}
		if seg != nil {
			h.metrics.Segments.Add(ctx, 1)
			segCh <- seg
		}
	}
}
