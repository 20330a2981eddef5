package audio_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/talkdeck/talkdeck/pkg/audio"
)

func TestEncodeWAV(t *testing.T) {
	t.Parallel()

	pcm := make([]byte, 960)
	for i := range pcm {
		pcm[i] = byte(i)
	}

	wav, err := audio.EncodeWAV(pcm, 16000)
	if err != nil {
		t.Fatalf("EncodeWAV() error: %v", err)
	}
	if len(wav) != 44+len(pcm) {
		t.Fatalf("WAV length = %d, want %d", len(wav), 44+len(pcm))
	}

	if !bytes.Equal(wav[0:4], []byte("RIFF")) {
		t.Errorf("chunk ID = %q, want RIFF", wav[0:4])
	}
	if !bytes.Equal(wav[8:12], []byte("WAVE")) {
		t.Errorf("format = %q, want WAVE", wav[8:12])
	}

	if ch := binary.LittleEndian.Uint16(wav[22:24]); ch != 1 {
		t.Errorf("channels = %d, want 1 (mono)", ch)
	}
	if sr := binary.LittleEndian.Uint32(wav[24:28]); sr != 16000 {
		t.Errorf("sample rate = %d, want 16000", sr)
	}
	if bits := binary.LittleEndian.Uint16(wav[34:36]); bits != 16 {
		t.Errorf("bits per sample = %d, want 16", bits)
	}
	if sz := binary.LittleEndian.Uint32(wav[40:44]); sz != uint32(len(pcm)) {
		t.Errorf("data size = %d, want %d", sz, len(pcm))
	}
	if !bytes.Equal(wav[44:], pcm) {
		t.Error("PCM payload does not round-trip through the container")
	}
}

func TestEncodeWAVRejectsBadInput(t *testing.T) {
	t.Parallel()

	if _, err := audio.EncodeWAV(nil, 16000); err == nil {
		t.Error("empty PCM should be rejected")
	}
	if _, err := audio.EncodeWAV(make([]byte, 3), 16000); err == nil {
		t.Error("odd byte count should be rejected")
	}
	if _, err := audio.EncodeWAV(make([]byte, 4), 0); err == nil {
		t.Error("zero sample rate should be rejected")
	}
}
