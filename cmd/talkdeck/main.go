// Command talkdeck is the voice turn engine: it accepts PCM audio over a
// websocket, segments utterances by voice activity, and answers each one
// with a streamed LLM response grounded in the session's profile and
// history.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"golang.org/x/sync/errgroup"

	"github.com/talkdeck/talkdeck/internal/config"
	"github.com/talkdeck/talkdeck/internal/health"
	"github.com/talkdeck/talkdeck/internal/observe"
	"github.com/talkdeck/talkdeck/internal/server"
	"github.com/talkdeck/talkdeck/internal/turn"
	"github.com/talkdeck/talkdeck/pkg/history"
	"github.com/talkdeck/talkdeck/pkg/history/postgres"
	"github.com/talkdeck/talkdeck/pkg/provider/llm"
	"github.com/talkdeck/talkdeck/pkg/provider/llm/anyllm"
	"github.com/talkdeck/talkdeck/pkg/provider/stt"
	sttopenai "github.com/talkdeck/talkdeck/pkg/provider/stt/openai"
	sttwhisper "github.com/talkdeck/talkdeck/pkg/provider/stt/whisper"
	"github.com/talkdeck/talkdeck/pkg/provider/vad"
	"github.com/talkdeck/talkdeck/pkg/provider/vad/energy"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "talkdeck: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "talkdeck: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("talkdeck starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Observability ─────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "talkdeck",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg, cfg.Audio)

	detector, transcriber, llmProvider, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	// ── History store ─────────────────────────────────────────────────────────
	var (
		store    history.Store
		profiles history.ProfileStore
		checkers []health.Checker
	)
	if cfg.History.PostgresDSN != "" {
		pg, err := postgres.NewStore(ctx, cfg.History.PostgresDSN)
		if err != nil {
			slog.Error("failed to connect history store", "err", err)
			return 1
		}
		defer pg.Close()
		store, profiles = pg, pg
		checkers = append(checkers, health.PingChecker("history", pg))
		slog.Info("history store connected", "backend", "postgres")
	} else {
		mem := history.NewMemStore()
		store, profiles = mem, mem
		slog.Info("history store running in-memory; turns will not survive restarts")
	}

	// ── Turn pipeline ─────────────────────────────────────────────────────────
	pipeline, err := turn.New(turn.Config{
		Transcriber:  transcriber,
		LLM:          llmProvider,
		Store:        store,
		Profiles:     profiles,
		Guard:        turn.NewGuard(cfg.Guard.MinChars, cfg.Guard.MinTokens, cfg.Guard.Fillers),
		Prompt:       turn.NewPromptBuilder(cfg.Prompt.Persona, cfg.Prompt.MaxTurns),
		SampleRate:   cfg.Audio.SampleRate,
		Temperature:  cfg.Providers.LLM.FloatOption("temperature", 0.4),
		StageTimeout: cfg.Prompt.StageTimeout(),
		Metrics:      metrics,
	})
	if err != nil {
		slog.Error("failed to assemble turn pipeline", "err", err)
		return 1
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	audioHandler := server.NewAudioHandler(cfg.Audio, detector, pipeline, metrics, logger)
	api := server.NewAPI(profiles, store, logger)
	srv := server.New(cfg.Server.ListenAddr, audioHandler, api, health.New(checkers...), metrics, logger)

	printStartupSummary(cfg)
	slog.Info("server ready — press Ctrl+C to shut down")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(ctx) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the provider
// from the real implementation packages.
func registerBuiltinProviders(reg *config.Registry, audioCfg config.AudioConfig) {
	// ── VAD ───────────────────────────────────────────────────────────────────
	reg.RegisterVAD("energy", func(entry config.ProviderEntry) (vad.Detector, error) {
		var opts []energy.Option
		if t := entry.FloatOption("threshold", 0); t > 0 {
			opts = append(opts, energy.WithThreshold(t))
		}
		return energy.New(vad.Config{
			SampleRate:  audioCfg.SampleRate,
			FrameSizeMs: audioCfg.FrameMs,
		}, entry.IntOption("aggressiveness", 3), opts...)
	})

	// ── STT ───────────────────────────────────────────────────────────────────
	reg.RegisterSTT("openai", func(entry config.ProviderEntry) (stt.Transcriber, error) {
		var opts []sttopenai.Option
		if entry.BaseURL != "" {
			opts = append(opts, sttopenai.WithBaseURL(entry.BaseURL))
		}
		if lang := entry.StringOption("language", ""); lang != "" {
			opts = append(opts, sttopenai.WithLanguage(lang))
		}
		return sttopenai.New(entry.APIKey, entry.Model, opts...)
	})

	reg.RegisterSTT("whisper", func(entry config.ProviderEntry) (stt.Transcriber, error) {
		var opts []sttwhisper.Option
		if lang := entry.StringOption("language", ""); lang != "" {
			opts = append(opts, sttwhisper.WithLanguage(lang))
		}
		return sttwhisper.New(entry.Model, opts...)
	})

	// ── LLM ───────────────────────────────────────────────────────────────────
	// openai, anthropic, gemini, deepseek, mistral, groq, llamacpp, llamafile
	// all share the same pattern: optional APIKey + optional BaseURL.
	for _, providerName := range []string{
		"openai", "anthropic", "gemini",
		"deepseek", "mistral", "groq", "llamacpp", "llamafile",
	} {
		reg.RegisterLLM(providerName, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(providerName, entry.Model, opts...)
		})
	}

	// ollama is a local server; it uses BaseURL for the address, not an API key.
	reg.RegisterLLM("ollama", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.New("ollama", entry.Model, opts...)
	})
}

// buildProviders instantiates the three providers named in cfg.
func buildProviders(cfg *config.Config, reg *config.Registry) (vad.Detector, stt.Transcriber, llm.Provider, error) {
	detector, err := reg.CreateVAD(cfg.Providers.VAD)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create vad provider %q: %w", cfg.Providers.VAD.Name, err)
	}
	slog.Info("provider created", "kind", "vad", "name", cfg.Providers.VAD.Name)

	transcriber, err := reg.CreateSTT(cfg.Providers.STT)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create stt provider %q: %w", cfg.Providers.STT.Name, err)
	}
	slog.Info("provider created", "kind", "stt", "name", cfg.Providers.STT.Name)

	llmProvider, err := reg.CreateLLM(cfg.Providers.LLM)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create llm provider %q: %w", cfg.Providers.LLM.Name, err)
	}
	slog.Info("provider created", "kind", "llm", "name", cfg.Providers.LLM.Name, "model", cfg.Providers.LLM.Model)

	return detector, transcriber, llmProvider, nil
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║        talkdeck — startup summary     ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("VAD", cfg.Providers.VAD.Name, "")
	printProvider("STT", cfg.Providers.STT.Name, cfg.Providers.STT.Model)
	printProvider("LLM", cfg.Providers.LLM.Name, cfg.Providers.LLM.Model)
	backend := "in-memory"
	if cfg.History.PostgresDSN != "" {
		backend = "postgres"
	}
	fmt.Printf("║  History      : %-22s ║\n", backend)
	fmt.Printf("║  Audio        : %dHz / %dms frames%s║\n", cfg.Audio.SampleRate, cfg.Audio.FrameMs, "      ")
	fmt.Printf("║  Silence end  : %-22s ║\n", fmt.Sprintf("%dms", cfg.Audio.SilenceMs))
	fmt.Printf("║  Listen addr  : %-22s ║\n", cfg.Server.ListenAddr)
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	if len(value) > 22 {
		value = value[:19] + "…"
	}
	fmt.Printf("║  %-12s : %-22s ║\n", kind, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
