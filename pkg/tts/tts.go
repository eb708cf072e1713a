// Package tts provides a unified interface for text-to-speech providers.
//
// The production provider is a local piper binary with an onnx voice model.
// All providers implement the Provider interface, enabling seamless switching
// without changing caller code. A synthesis failure is non-fatal by contract:
// the caller degrades to a text-only response.
package tts

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common failure conditions.
var (
	// ErrBinaryMissing is returned when the synthesis binary cannot be found.
	ErrBinaryMissing = errors.New("tts: synthesis binary not found")

	// ErrModelMissing is returned when the voice model file does not exist.
	ErrModelMissing = errors.New("tts: voice model not found")

	// ErrEmptyText is returned when there is nothing to synthesize.
	ErrEmptyText = errors.New("tts: empty text")
)

// Provider defines the text-to-speech provider interface.
type Provider interface {
	// Synthesize converts text to audio, returning the complete buffer.
	Synthesize(ctx context.Context, text string) (*AudioResult, error)

	// Health checks that the provider's binary and voice model are usable.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// AudioResult represents a complete synthesis result.
type AudioResult struct {
	// Audio contains WAV-framed audio data.
	Audio []byte

	// Format describes the audio encoding parameters.
	Format AudioFormat

	// Duration is the estimated playback duration.
	Duration time.Duration

	// CharCount is the number of characters synthesized.
	CharCount int

	// LatencyMs is the synthesis wall time in milliseconds.
	LatencyMs int64
}

// AudioFormat describes audio encoding parameters.
type AudioFormat struct {
	// SampleRate in Hz.
	SampleRate int

	// Channels is 1 for mono, 2 for stereo.
	Channels int

	// BitDepth for PCM formats.
	BitDepth int
}

// ExecError reports a synthesis subprocess that exited non-zero.
type ExecError struct {
	ExitCode int
	Stderr   string
}

// Error implements the error interface.
func (e *ExecError) Error() string {
	return fmt.Sprintf("tts: synthesis process exited with code %d: %s", e.ExitCode, e.Stderr)
}

// ProviderError wraps an error with provider context.
type ProviderError struct {
	Provider string
	Err      error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("tts [%s]: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// WrapError wraps an error with provider context.
func WrapError(provider string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Provider: provider, Err: err}
}
