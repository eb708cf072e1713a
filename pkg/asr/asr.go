// Package asr wraps speech recognition behind a small provider interface.
// The production backend is a faster-whisper HTTP server; model, device and
// compute precision are fixed configuration, never request parameters.
//
// An empty transcript is a valid result: silence recognizes to "".
package asr

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for the asr package.
var (
	// ErrNoEndpoint is returned when the recognizer endpoint is not configured.
	ErrNoEndpoint = errors.New("asr: endpoint required")

	// ErrDecodeFailed is returned when the backend could not decode the audio.
	// Fatal to the turn; re-recording is the expected recovery path.
	ErrDecodeFailed = errors.New("asr: decoder failed")
)

// Recognizer converts a normalized 16kHz mono WAV into text.
type Recognizer interface {
	// Transcribe returns the recognized text, possibly empty for silence.
	Transcribe(ctx context.Context, wav []byte) (string, error)

	// Health checks backend reachability.
	Health(ctx context.Context) error

	// Close releases any resources held by the recognizer.
	Close() error
}

// ProviderError wraps an error with recognizer backend context.
type ProviderError struct {
	Provider string
	Err      error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("asr [%s]: %v", e.Provider, e.Err)
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
