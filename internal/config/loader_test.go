package config_test

import (
	"strings"
	"testing"

	"github.com/talkdeck/talkdeck/internal/config"
)

func TestLoadFromReader_MinimalConfigGetsDefaults(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  stt:
    name: openai
    api_key: sk-test
  llm:
    name: openai
    api_key: sk-test
    model: gpt-4.1-mini
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("LoadFromReader() error: %v", err)
	}

	if cfg.Server.ListenAddr != config.DefaultListenAddr {
		t.Errorf("ListenAddr = %q, want %q", cfg.Server.ListenAddr, config.DefaultListenAddr)
	}
	if cfg.Audio.SampleRate != 16000 || cfg.Audio.FrameMs != 30 {
		t.Errorf("audio defaults = %d Hz / %d ms, want 16000 / 30", cfg.Audio.SampleRate, cfg.Audio.FrameMs)
	}
	if cfg.Audio.SilenceMs != 2000 {
		t.Errorf("SilenceMs = %d, want 2000", cfg.Audio.SilenceMs)
	}
	if cfg.Prompt.MaxTurns != 5 {
		t.Errorf("MaxTurns = %d, want 5", cfg.Prompt.MaxTurns)
	}
	if cfg.Providers.VAD.Name != "energy" {
		t.Errorf("VAD name = %q, want energy", cfg.Providers.VAD.Name)
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  stt:
    name: openai
  llm:
    name: openai
bogus_section:
  foo: bar
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for unknown top-level field, got nil")
	}
}

func TestValidate_MissingProviders(t *testing.T) {
	t.Parallel()
	_, err := config.LoadFromReader(strings.NewReader(""))
	if err == nil {
		t.Fatal("expected error for missing stt/llm providers, got nil")
	}
	if !strings.Contains(err.Error(), "providers.stt.name") {
		t.Errorf("error should mention providers.stt.name, got: %v", err)
	}
	if !strings.Contains(err.Error(), "providers.llm.name") {
		t.Errorf("error should mention providers.llm.name, got: %v", err)
	}
}

func TestValidate_BadAudioValues(t *testing.T) {
	t.Parallel()
	yaml := `
audio:
  sample_rate: -1
  frame_ms: 30
  silence_ms: 10
providers:
  stt:
    name: openai
  llm:
    name: openai
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid audio values, got nil")
	}
	if !strings.Contains(err.Error(), "audio.sample_rate") {
		t.Errorf("error should mention audio.sample_rate, got: %v", err)
	}
	if !strings.Contains(err.Error(), "shorter than a single frame") {
		t.Errorf("error should flag silence_ms < frame_ms, got: %v", err)
	}
}

func TestValidate_BadLogLevel(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: verbose
providers:
  stt:
    name: openai
  llm:
    name: openai
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid log level, got nil")
	}
	if !strings.Contains(err.Error(), "server.log_level") {
		t.Errorf("error should mention server.log_level, got: %v", err)
	}
}

func TestProviderEntryOptions(t *testing.T) {
	t.Parallel()
	entry := config.ProviderEntry{
		Options: map[string]any{
			"aggressiveness": 3,
			"temperature":    0.4,
			"language":       "en",
		},
	}

	if got := entry.IntOption("aggressiveness", 1); got != 3 {
		t.Errorf("IntOption(aggressiveness) = %d, want 3", got)
	}
	if got := entry.FloatOption("temperature", 0.7); got != 0.4 {
		t.Errorf("FloatOption(temperature) = %v, want 0.4", got)
	}
	if got := entry.StringOption("language", ""); got != "en" {
		t.Errorf("StringOption(language) = %q, want en", got)
	}
	if got := entry.IntOption("missing", 7); got != 7 {
		t.Errorf("IntOption(missing) = %d, want default 7", got)
	}
}
