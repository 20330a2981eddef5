package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"vad": {"energy"},
	"stt": {"openai", "whisper"},
	"llm": {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
}

// Defaults match the browser capture worklet and the original interview
// deployment: 16 kHz mono, 30 ms frames, 2 s end-of-utterance silence.
const (
	DefaultListenAddr      = ":8001"
	DefaultSampleRate      = 16000
	DefaultFrameMs         = 30
	DefaultSilenceMs       = 2000
	DefaultPendingSegments = 1
	DefaultMinChars        = 12
	DefaultMinTokens       = 2
	DefaultMaxTurns        = 5
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills unset fields with their default values so a minimal
// config file only needs the provider credentials.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Audio.SampleRate == 0 {
		cfg.Audio.SampleRate = DefaultSampleRate
	}
	if cfg.Audio.FrameMs == 0 {
		cfg.Audio.FrameMs = DefaultFrameMs
	}
	if cfg.Audio.SilenceMs == 0 {
		cfg.Audio.SilenceMs = DefaultSilenceMs
	}
	if cfg.Audio.PendingSegments == 0 {
		cfg.Audio.PendingSegments = DefaultPendingSegments
	}
	if cfg.Guard.MinChars == 0 {
		cfg.Guard.MinChars = DefaultMinChars
	}
	if cfg.Guard.MinTokens == 0 {
		cfg.Guard.MinTokens = DefaultMinTokens
	}
	if cfg.Guard.Fillers == nil {
		cfg.Guard.Fillers = []string{"Thank you.", "Thanks for watching!", "you"}
	}
	if cfg.Prompt.MaxTurns == 0 {
		cfg.Prompt.MaxTurns = DefaultMaxTurns
	}
	if cfg.Providers.VAD.Name == "" {
		cfg.Providers.VAD.Name = "energy"
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Audio
	if cfg.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate %d must be positive", cfg.Audio.SampleRate))
	}
	if cfg.Audio.FrameMs <= 0 {
		errs = append(errs, fmt.Errorf("audio.frame_ms %d must be positive", cfg.Audio.FrameMs))
	}
	if cfg.Audio.SilenceMs <= 0 {
		errs = append(errs, fmt.Errorf("audio.silence_ms %d must be positive", cfg.Audio.SilenceMs))
	}
	if cfg.Audio.FrameMs > 0 && cfg.Audio.SilenceMs > 0 && cfg.Audio.SilenceMs < cfg.Audio.FrameMs {
		errs = append(errs, fmt.Errorf("audio.silence_ms %d is shorter than a single frame (%d ms)", cfg.Audio.SilenceMs, cfg.Audio.FrameMs))
	}
	if cfg.Audio.PendingSegments < 1 {
		errs = append(errs, fmt.Errorf("audio.pending_segments %d must be at least 1", cfg.Audio.PendingSegments))
	}

	// Guard
	if cfg.Guard.MinChars < 0 {
		errs = append(errs, fmt.Errorf("guard.min_chars %d must not be negative", cfg.Guard.MinChars))
	}
	if cfg.Guard.MinTokens < 0 {
		errs = append(errs, fmt.Errorf("guard.min_tokens %d must not be negative", cfg.Guard.MinTokens))
	}

	// Prompt
	if cfg.Prompt.MaxTurns < 0 {
		errs = append(errs, fmt.Errorf("prompt.max_turns %d must not be negative", cfg.Prompt.MaxTurns))
	}
	if cfg.Prompt.StageTimeoutS < 0 {
		errs = append(errs, fmt.Errorf("prompt.stage_timeout_s %d must not be negative", cfg.Prompt.StageTimeoutS))
	}

	// Providers
	if cfg.Providers.STT.Name == "" {
		errs = append(errs, errors.New("providers.stt.name is required"))
	}
	if cfg.Providers.LLM.Name == "" {
		errs = append(errs, errors.New("providers.llm.name is required"))
	}
	validateProviderName("vad", cfg.Providers.VAD.Name)
	validateProviderName("stt", cfg.Providers.STT.Name)
	validateProviderName("llm", cfg.Providers.LLM.Name)

	if cfg.History.PostgresDSN == "" {
		slog.Warn("history.postgres_dsn is empty; conversation history will not survive restarts")
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
