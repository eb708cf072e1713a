package asr

import (
	"context"
	"sync"
)

// Mock implements Recognizer for testing.
// All methods can be customized via function fields.
type Mock struct {
	// TranscribeFunc is called when Transcribe is invoked.
	// If nil, returns "mock transcript".
	TranscribeFunc func(ctx context.Context, wav []byte) (string, error)

	// HealthFunc is called when Health is invoked.
	// If nil, returns nil (healthy).
	HealthFunc func(ctx context.Context) error

	mu    sync.Mutex
	calls int
}

// NewMock creates a mock recognizer that returns a fixed transcript.
func NewMock(text string) *Mock {
	return &Mock{
		TranscribeFunc: func(ctx context.Context, wav []byte) (string, error) {
			return text, nil
		},
	}
}

// MockWithError creates a mock recognizer that always fails.
func MockWithError(err error) *Mock {
	return &Mock{
		TranscribeFunc: func(ctx context.Context, wav []byte) (string, error) {
			return "", err
		},
		HealthFunc: func(ctx context.Context) error {
			return err
		},
	}
}

// Transcribe calls TranscribeFunc and records the call.
func (m *Mock) Transcribe(ctx context.Context, wav []byte) (string, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.TranscribeFunc != nil {
		return m.TranscribeFunc(ctx, wav)
	}
	return "mock transcript", nil
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

// Calls returns how many times Transcribe was invoked.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Verify Mock implements Recognizer at compile time.
var _ Recognizer = (*Mock)(nil)
