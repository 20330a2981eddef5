// Package audio provides the PCM primitives shared by the voice pipeline:
// frame sizing and validation for the fixed-format input stream, and the WAV
// container writer used to hand finished segments to a transcriber.
//
// The pipeline works exclusively with 16-bit little-endian signed PCM, mono.
// Anything else is the transport's problem; wrong-sized payloads are simply
// not frames and are discarded upstream.
package audio

import (
	"math"
	"time"
)

// BytesPerSample is fixed at 2 for 16-bit signed little-endian PCM.
const BytesPerSample = 2

// FrameBytes returns the exact byte length of one audio frame for the given
// sample rate and frame duration. For the default 16 kHz / 30 ms stream this
// is 960 bytes.
func FrameBytes(sampleRate int, frameDuration time.Duration) int {
	samples := sampleRate * int(frameDuration.Milliseconds()) / 1000
	return samples * BytesPerSample
}

// ValidFrame reports whether payload is exactly one frame of PCM for the
// given sample rate and frame duration. Zero-length payloads, text control
// messages rendered as bytes, and partial frames all fail this check.
func ValidFrame(payload []byte, sampleRate int, frameDuration time.Duration) bool {
	return len(payload) == FrameBytes(sampleRate, frameDuration)
}

// Duration returns the play time of a PCM byte buffer at the given sample
// rate. Odd trailing bytes are ignored.
func Duration(pcm []byte, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	samples := len(pcm) / BytesPerSample
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}

// RMS computes the root-mean-square energy of a PCM-16 buffer in native
// 16-bit units (0–32767). Used by the energy-based speech detector.
func RMS(pcm []byte) float64 {
	n := len(pcm) / BytesPerSample
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		s := int16(uint16(pcm[2*i]) | uint16(pcm[2*i+1])<<8)
		f := float64(s)
		sum += f * f
	}
	return math.Sqrt(sum / float64(n))
}
