// Package whisper provides a local Transcriber backed by the whisper.cpp CGO
// bindings. The model is loaded once at startup and shared across all
// connections; each Transcribe call creates its own whisper context, so
// concurrent calls do not interfere.
//
// The whisper.cpp static library (libwhisper.a) and headers (whisper.h) must
// be available at link time via LIBRARY_PATH and C_INCLUDE_PATH environment
// variables.
package whisper

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/talkdeck/talkdeck/pkg/provider/stt"
)

// Compile-time assertion that Transcriber satisfies stt.Transcriber.
var _ stt.Transcriber = (*Transcriber)(nil)

const defaultLanguage = "en"

// Transcriber implements stt.Transcriber using whisper.cpp Go bindings,
// eliminating network overhead entirely.
type Transcriber struct {
	model    whisperlib.Model
	language string
}

// Option is a functional option for configuring a Transcriber.
type Option func(*Transcriber)

// WithLanguage sets the language code for transcription (e.g., "en", "de").
// Defaults to "en".
func WithLanguage(lang string) Option {
	return func(t *Transcriber) { t.language = lang }
}

// New creates a Transcriber that loads the whisper.cpp model from the given
// file path. The caller must call Close when the transcriber is no longer
// needed.
func New(modelPath string, opts ...Option) (*Transcriber, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}

	t := &Transcriber{
		model:    model,
		language: defaultLanguage,
	}
	for _, o := range opts {
		o(t)
	}
	return t, nil
}

// Close releases the whisper model.
func (t *Transcriber) Close() error {
	if t.model != nil {
		return t.model.Close()
	}
	return nil
}

// Transcribe implements stt.Transcriber. It decodes the WAV container to
// float32 samples, runs whisper.cpp inference on a fresh context, and returns
// the concatenated segment text.
func (t *Transcriber) Transcribe(ctx context.Context, wav []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("whisper: context already cancelled: %w", err)
	}

	samples, err := wavToFloat32Mono(wav)
	if err != nil {
		return "", err
	}

	// Each whisper context is NOT thread-safe, but the model can be shared
	// across goroutines.
	wctx, err := t.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("whisper: create context: %w", err)
	}
	if err := wctx.SetLanguage(t.language); err != nil {
		return "", fmt.Errorf("whisper: set language %q: %w", t.language, err)
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("whisper: process audio: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("whisper: read segment: %w", err)
		}
		text := strings.TrimSpace(segment.Text)
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}

// wavToFloat32Mono strips the 44-byte PCM WAV header and converts the 16-bit
// little-endian mono payload to float32 samples in [-1, 1).
func wavToFloat32Mono(wav []byte) ([]float32, error) {
	if len(wav) < 44 {
		return nil, fmt.Errorf("whisper: WAV payload too short: %d bytes", len(wav))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return nil, errors.New("whisper: payload is not a RIFF/WAVE container")
	}
	if channels := binary.LittleEndian.Uint16(wav[22:24]); channels != 1 {
		return nil, fmt.Errorf("whisper: expected mono audio, got %d channels", channels)
	}

	pcm := wav[44:]
	samples := make([]float32, len(pcm)/2)
	for i := range samples {
		s := int16(binary.LittleEndian.Uint16(pcm[2*i:]))
		samples[i] = float32(s) / 32768.0
	}
	return samples, nil
}
