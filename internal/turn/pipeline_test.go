package turn_test

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/talkdeck/talkdeck/internal/observe"
	"github.com/talkdeck/talkdeck/internal/turn"
	"github.com/talkdeck/talkdeck/pkg/history"
	"github.com/talkdeck/talkdeck/pkg/provider/llm"
	llmmock "github.com/talkdeck/talkdeck/pkg/provider/llm/mock"
	sttmock "github.com/talkdeck/talkdeck/pkg/provider/stt/mock"
)

// eventRecorder captures emitter calls in order.
type eventRecorder struct {
	mu     sync.Mutex
	events []string
}

func (r *eventRecorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "clear")
}

func (r *eventRecorder) Token(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "token:"+text)
}

func (r *eventRecorder) Complete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "complete")
}

func (r *eventRecorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	copy(out, r.events)
	return out
}

func testMetrics(t *testing.T) *observe.Metrics {
	t.Helper()
	mp := sdkmetric.NewMeterProvider()
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m
}

func newTestPipeline(t *testing.T, cfg turn.Config) *turn.Pipeline {
	t.Helper()
	if cfg.Guard == nil {
		cfg.Guard = turn.NewGuard(12, 2, []string{"Thanks for watching!"})
	}
	if cfg.Prompt == nil {
		cfg.Prompt = turn.NewPromptBuilder("persona", 5)
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Metrics == nil {
		cfg.Metrics = testMetrics(t)
	}
	p, err := turn.New(cfg)
	if err != nil {
		t.Fatalf("turn.New: %v", err)
	}
	return p
}

// pcm returns a short, valid mono segment.
func pcm() []byte {
	return make([]byte, 960*4)
}

func TestPipelineEmitsOrderedEvents(t *testing.T) {
	t.Parallel()

	store := history.NewMemStore()
	p := newTestPipeline(t, turn.Config{
		Transcriber: &sttmock.Transcriber{Result: "tell me about your project"},
		LLM: &llmmock.Provider{Chunks: []llm.Chunk{
			{Text: "I built "},
			{Text: "a voice pipeline."},
			{FinishReason: "stop"},
		}},
		Store:    store,
		Profiles: store,
	})

	rec := &eventRecorder{}
	if err := p.Run(context.Background(), "sess-1", pcm(), rec); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	want := []string{"clear", "token:I built ", "token:a voice pipeline.", "complete"}
	if got := rec.all(); !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}

	turns, err := store.RecentTurns(context.Background(), "sess-1", 5)
	if err != nil {
		t.Fatalf("RecentTurns() error: %v", err)
	}
	if len(turns) != 1 {
		t.Fatalf("persisted %d turns, want 1", len(turns))
	}
	if turns[0].UserText != "tell me about your project" {
		t.Errorf("persisted user text = %q", turns[0].UserText)
	}
	if turns[0].AssistantText != "I built a voice pipeline." {
		t.Errorf("persisted assistant text = %q", turns[0].AssistantText)
	}
}

func TestPipelineGuardRejectionEmitsNothing(t *testing.T) {
	t.Parallel()

	store := history.NewMemStore()
	llmProv := &llmmock.Provider{Chunks: []llm.Chunk{{Text: "never"}}}
	p := newTestPipeline(t, turn.Config{
		Transcriber: &sttmock.Transcriber{Result: "Thanks for watching!"},
		LLM:         llmProv,
		Store:       store,
		Profiles:    store,
	})

	rec := &eventRecorder{}
	if err := p.Run(context.Background(), "sess-1", pcm(), rec); err != nil {
		t.Fatalf("Run() error: %v (guard rejection is not an error)", err)
	}

	if got := rec.all(); len(got) != 0 {
		t.Errorf("events = %v, want none", got)
	}
	if n := llmProv.RequestCount(); n != 0 {
		t.Errorf("LLM calls = %d, want 0 (rejected before generation)", n)
	}
	turns, _ := store.RecentTurns(context.Background(), "sess-1", 5)
	if len(turns) != 0 {
		t.Errorf("persisted %d turns, want 0", len(turns))
	}
}

func TestPipelineTranscribeErrorAbortsTurn(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t, turn.Config{
		Transcriber: &sttmock.Transcriber{Err: errors.New("api down")},
		LLM:         &llmmock.Provider{},
	})

	rec := &eventRecorder{}
	err := p.Run(context.Background(), "sess-1", pcm(), rec)
	if err == nil {
		t.Fatal("Run() error = nil, want transcription failure")
	}
	if got := rec.all(); len(got) != 0 {
		t.Errorf("events = %v, want none on transcription failure", got)
	}
}

func TestPipelineStreamStartErrorEmitsNothing(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t, turn.Config{
		Transcriber: &sttmock.Transcriber{Result: "a perfectly valid question"},
		LLM:         &llmmock.Provider{StartErr: errors.New("rate limited")},
	})

	rec := &eventRecorder{}
	err := p.Run(context.Background(), "sess-1", pcm(), rec)
	if err == nil {
		t.Fatal("Run() error = nil, want stream start failure")
	}
	if got := rec.all(); len(got) != 0 {
		t.Errorf("events = %v, want none when the stream never opens", got)
	}
}

func TestPipelineStreamErrorSkipsPersistAndComplete(t *testing.T) {
	t.Parallel()

	store := history.NewMemStore()
	p := newTestPipeline(t, turn.Config{
		Transcriber: &sttmock.Transcriber{Result: "a perfectly valid question"},
		LLM: &llmmock.Provider{Chunks: []llm.Chunk{
			{Text: "partial "},
			{Text: "context deadline exceeded", FinishReason: "error"},
		}},
		Store:    store,
		Profiles: store,
	})

	rec := &eventRecorder{}
	err := p.Run(context.Background(), "sess-1", pcm(), rec)
	if err == nil {
		t.Fatal("Run() error = nil, want mid-stream failure")
	}

	events := rec.all()
	for _, e := range events {
		if e == "complete" {
			t.Error("complete must not be emitted for a failed turn")
		}
	}
	turns, _ := store.RecentTurns(context.Background(), "sess-1", 5)
	if len(turns) != 0 {
		t.Errorf("persisted %d turns, want 0 (no partial turns)", len(turns))
	}
}

func TestPipelineEmptySessionSkipsPersistence(t *testing.T) {
	t.Parallel()

	store := history.NewMemStore()
	llmProv := &llmmock.Provider{Chunks: []llm.Chunk{{Text: "answer"}, {FinishReason: "stop"}}}
	p := newTestPipeline(t, turn.Config{
		Transcriber: &sttmock.Transcriber{Result: "a perfectly valid question"},
		LLM:         llmProv,
		Store:       store,
		Profiles:    store,
	})

	rec := &eventRecorder{}
	if err := p.Run(context.Background(), "", pcm(), rec); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	want := []string{"clear", "token:answer", "complete"}
	if got := rec.all(); !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
	turns, _ := store.RecentTurns(context.Background(), "", 5)
	if len(turns) != 0 {
		t.Errorf("persisted %d turns for empty session, want 0", len(turns))
	}

	// The prompt still goes out, with an empty context block.
	req := llmProv.LastRequest()
	if len(req.Messages) != 2 {
		t.Errorf("len(Messages) = %d, want 2 for a session-less turn", len(req.Messages))
	}
}

func TestPipelineHistoryFoldedIntoPrompt(t *testing.T) {
	t.Parallel()

	store := history.NewMemStore()
	ctx := context.Background()
	_ = store.SaveProfile(ctx, "sess-1", history.Profile{Resume: "Go engineer"})
	_ = store.AppendTurn(ctx, "sess-1", "old question", "old answer")

	llmProv := &llmmock.Provider{Chunks: []llm.Chunk{{Text: "new answer"}, {FinishReason: "stop"}}}
	p := newTestPipeline(t, turn.Config{
		Transcriber: &sttmock.Transcriber{Result: "a perfectly valid question"},
		LLM:         llmProv,
		Store:       store,
		Profiles:    store,
		Temperature: 0.4,
	})

	if err := p.Run(ctx, "sess-1", pcm(), &eventRecorder{}); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	req := llmProv.LastRequest()
	if req.Temperature != 0.4 {
		t.Errorf("Temperature = %v, want 0.4", req.Temperature)
	}
	// context + one history turn * 2 + final user message
	if len(req.Messages) != 4 {
		t.Fatalf("len(Messages) = %d, want 4", len(req.Messages))
	}
	if req.Messages[1].Content != "old question" || req.Messages[2].Content != "old answer" {
		t.Errorf("history messages = [%q, %q], want [old question, old answer]",
			req.Messages[1].Content, req.Messages[2].Content)
	}
}
