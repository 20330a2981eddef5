package turn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/talkdeck/talkdeck/internal/observe"
	"github.com/talkdeck/talkdeck/pkg/audio"
	"github.com/talkdeck/talkdeck/pkg/history"
	"github.com/talkdeck/talkdeck/pkg/provider/llm"
	"github.com/talkdeck/talkdeck/pkg/provider/stt"
)

// Emitter receives the client-visible events of one turn, in order:
// Clear, zero or more Token calls, Complete. A guard-rejected or failed turn
// never reaches Complete.
type Emitter interface {
	// Clear tells the client to discard any prior partial render.
	Clear()

	// Token forwards one text increment in generation order.
	Token(text string)

	// Complete marks the turn as finished.
	Complete()
}

// Config wires a [Pipeline].
type Config struct {
	Transcriber stt.Transcriber
	LLM         llm.Provider

	// Store persists completed turns. Nil disables persistence and history
	// in prompts.
	Store history.Store

	// Profiles supplies the session context block. Nil means empty profiles.
	Profiles history.ProfileStore

	Guard  *Guard
	Prompt *PromptBuilder

	// SampleRate of the incoming PCM, for the WAV container.
	SampleRate int

	// Temperature for generation. Zero uses the provider default.
	Temperature float64

	// StageTimeout bounds the transcribe and generate stages individually.
	// Zero disables the bound.
	StageTimeout time.Duration

	Metrics *observe.Metrics
	Logger  *slog.Logger
}

// Pipeline executes one finalized segment end to end. It is stateless across
// runs and safe for concurrent use; per-connection sequencing (at most one
// run in flight per connection) is the caller's responsibility.
type Pipeline struct {
	cfg Config
	log *slog.Logger
}

// New creates a Pipeline from cfg. Transcriber, LLM, Guard, and Prompt are
// required.
func New(cfg Config) (*Pipeline, error) {
	var errs []error
	if cfg.Transcriber == nil {
		errs = append(errs, errors.New("turn: transcriber is required"))
	}
	if cfg.LLM == nil {
		errs = append(errs, errors.New("turn: llm provider is required"))
	}
	if cfg.Guard == nil {
		errs = append(errs, errors.New("turn: guard is required"))
	}
	if cfg.Prompt == nil {
		errs = append(errs, errors.New("turn: prompt builder is required"))
	}
	if cfg.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("turn: sample rate %d must be positive", cfg.SampleRate))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}
	return &Pipeline{cfg: cfg, log: log}, nil
}

// Run processes one segment: encode to WAV, transcribe, apply the quality
// guard, assemble the prompt, stream the generation to em, and persist the
// turn. A returned error means the turn was aborted; the connection stays
// usable and the caller only logs it. Guard rejections are not errors.
func (p *Pipeline) Run(ctx context.Context, sessionID string, pcm []byte, em Emitter) error {
	start := time.Now()
	log := p.log.With(slog.String("session_id", sessionID))

	wav, err := audio.EncodeWAV(pcm, p.cfg.SampleRate)
	if err != nil {
		p.cfg.Metrics.RecordTurn(ctx, "failed")
		return fmt.Errorf("turn: encode segment: %w", err)
	}

	text, err := p.transcribe(ctx, wav)
	if err != nil {
		p.cfg.Metrics.RecordProviderError(ctx, "stt", "transcribe")
		p.cfg.Metrics.RecordTurn(ctx, "failed")
		return fmt.Errorf("turn: transcribe: %w", err)
	}

	text, reason := p.cfg.Guard.Check(text)
	if reason != RejectNone {
		log.Debug("transcript rejected by quality guard",
			slog.String("reason", string(reason)),
			slog.Int("chars", len(text)),
		)
		p.cfg.Metrics.RecordTurn(ctx, "rejected")
		return nil
	}

	req := p.buildRequest(ctx, sessionID, text, log)

	full, err := p.generate(ctx, req, em)
	if err != nil {
		p.cfg.Metrics.RecordProviderError(ctx, "llm", "stream")
		p.cfg.Metrics.RecordTurn(ctx, "failed")
		return fmt.Errorf("turn: generate: %w", err)
	}

	// Persistence failure must not suppress the complete event; the client
	// already has the full answer.
	if p.cfg.Store != nil && sessionID != "" {
		if err := p.cfg.Store.AppendTurn(ctx, sessionID, text, full); err != nil {
			log.Warn("failed to persist turn", slog.Any("error", err))
		}
	}

	em.Complete()
	p.cfg.Metrics.TurnDuration.Record(ctx, time.Since(start).Seconds())
	p.cfg.Metrics.RecordTurn(ctx, "completed")
	log.Info("turn completed",
		slog.Int("transcript_chars", len(text)),
		slog.Int("response_chars", len(full)),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

func (p *Pipeline) transcribe(ctx context.Context, wav []byte) (string, error) {
	sctx, cancel := p.stageCtx(ctx)
	defer cancel()

	start := time.Now()
	text, err := p.cfg.Transcriber.Transcribe(sctx, wav)
	p.cfg.Metrics.STTDuration.Record(ctx, time.Since(start).Seconds())
	return text, err
}

// buildRequest loads the profile and recent history for sessionID and folds
// them into the prompt. Sessions without stored context degrade to an empty
// context block rather than failing the turn.
func (p *Pipeline) buildRequest(ctx context.Context, sessionID, transcript string, log *slog.Logger) llm.CompletionRequest {
	var profile history.Profile
	var recent []history.Turn

	if sessionID != "" {
		if p.cfg.Profiles != nil {
			prof, err := p.cfg.Profiles.Profile(ctx, sessionID)
			switch {
			case err == nil:
				profile = prof
			case errors.Is(err, history.ErrSessionNotFound):
				// Unknown session; answer without context.
			default:
				log.Warn("failed to load session profile", slog.Any("error", err))
			}
		}
		if p.cfg.Store != nil {
			turns, err := p.cfg.Store.RecentTurns(ctx, sessionID, p.cfg.Prompt.MaxTurns())
			if err != nil {
				log.Warn("failed to load recent turns", slog.Any("error", err))
			} else {
				recent = turns
			}
		}
	}

	req := p.cfg.Prompt.Build(profile, recent, transcript)
	req.Temperature = p.cfg.Temperature
	return req
}

// generate streams the completion to em and returns the concatenated text.
// Clear is emitted only once the stream has successfully opened, so a turn
// that fails to start leaves the client untouched.
func (p *Pipeline) generate(ctx context.Context, req llm.CompletionRequest, em Emitter) (string, error) {
	sctx, cancel := p.stageCtx(ctx)
	defer cancel()

	start := time.Now()
	chunks, err := p.cfg.LLM.StreamCompletion(sctx, req)
	if err != nil {
		return "", err
	}

	em.Clear()
	var sb strings.Builder
	var streamErr error
	for chunk := range chunks {
		if chunk.FinishReason == "error" {
			streamErr = fmt.Errorf("stream failed: %s", chunk.Text)
			continue // drain
		}
		if chunk.Text != "" {
			sb.WriteString(chunk.Text)
			em.Token(chunk.Text)
		}
	}
	p.cfg.Metrics.LLMDuration.Record(ctx, time.Since(start).Seconds())

	if streamErr != nil {
		return "", streamErr
	}
	if err := sctx.Err(); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (p *Pipeline) stageCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.cfg.StageTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.cfg.StageTimeout)
}
