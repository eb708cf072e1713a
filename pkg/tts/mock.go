package tts

import (
	"context"
	"sync"
	"time"

	"github.com/solavoice/go-sola/pkg/audio"
)

// Mock implements Provider for testing.
// All methods can be customized via function fields.
type Mock struct {
	// SynthesizeFunc is called when Synthesize is invoked.
	// If nil, returns silent WAV audio sized to the text.
	SynthesizeFunc func(ctx context.Context, text string) (*AudioResult, error)

	// HealthFunc is called when Health is invoked.
	// If nil, returns nil (healthy).
	HealthFunc func(ctx context.Context) error

	mu    sync.Mutex
	texts []string
}

// NewMock creates a mock provider that produces silence.
func NewMock() *Mock {
	return &Mock{
		SynthesizeFunc: func(ctx context.Context, text string) (*AudioResult, error) {
			// ~20ms of silence per character at 16kHz gives roughly
			// natural speech pacing for duration-sensitive tests.
			samples := make([]int16, (len(text)+1)*320)
			wav, err := audio.Encode(samples, 16000)
			if err != nil {
				return nil, err
			}
			return &AudioResult{
				Audio:     wav,
				Format:    AudioFormat{SampleRate: 16000, Channels: 1, BitDepth: 16},
				Duration:  time.Duration(len(text)) * 20 * time.Millisecond,
				CharCount: len(text),
				LatencyMs: 1,
			}, nil
		},
	}
}

// MockWithError creates a mock provider that always fails.
func MockWithError(err error) *Mock {
	return &Mock{
		SynthesizeFunc: func(ctx context.Context, text string) (*AudioResult, error) {
			return nil, err
		},
		HealthFunc: func(ctx context.Context) error {
			return err
		},
	}
}

// Synthesize calls SynthesizeFunc and records the text.
func (m *Mock) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	m.mu.Lock()
	m.texts = append(m.texts, text)
	m.mu.Unlock()
	if m.SynthesizeFunc != nil {
		return m.SynthesizeFunc(ctx, text)
	}
	return nil, WrapError("mock", ErrBinaryMissing)
}

// Health calls HealthFunc.
func (m *Mock) Health(ctx context.Context) error {
	if m.HealthFunc != nil {
		return m.HealthFunc(ctx)
	}
	return nil
}

// Close is a no-op.
func (m *Mock) Close() error {
	return nil
}

// Texts returns all texts passed to Synthesize, in order.
func (m *Mock) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.texts))
	copy(out, m.texts)
	return out
}

// Verify Mock implements Provider at compile time.
var _ Provider = (*Mock)(nil)
