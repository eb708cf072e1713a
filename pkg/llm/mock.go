package llm

import (
	"context"
	"sync"
)

// Mock implements Client for testing.
type Mock struct {
	// GenerateFunc is called when Generate is invoked.
	// If nil, echoes a canned reply.
	GenerateFunc func(ctx context.Context, prompt string) (string, error)

	// HealthFunc is called when Health is invoked.
	// If nil, returns nil (healthy).
	HealthFunc func(ctx context.Context) error

	// HostName and ModelName are reported by Host/Model.
	HostName  string
	ModelName string

	mu      sync.Mutex
	prompts []string
}

// NewMock creates a mock client that returns reply for every prompt.
func NewMock(reply string) *Mock {
	return &Mock{
		GenerateFunc: func(ctx context.Context, prompt string) (string, error) {
			return reply, nil
		},
		HostName:  "http://mock:11434",
		ModelName: "mock-model",
	}
}

// MockWithError creates a mock client that always fails.
func MockWithError(err error) *Mock {
	return &Mock{
		GenerateFunc: func(ctx context.Context, prompt string) (string, error) {
			return "", err
		},
		HealthFunc: func(ctx context.Context) error {
			return err
		},
		HostName:  "http://mock:11434",
		ModelName: "mock-model",
	}
}

// Generate calls GenerateFunc and records the prompt.
func (m *Mock) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, prompt)
	}
	return "mock reply", nil
}

// Health calls HealthFunc.
func (m *Mock) Health(ctx context.Context) error {
	if m.HealthFunc != nil {
		return m.HealthFunc(ctx)
	}
	return nil
}

// Host returns the mock host name.
func (m *Mock) Host() string { return m.HostName }

// Model returns the mock model name.
func (m *Mock) Model() string { return m.ModelName }

// Close is a no-op.
func (m *Mock) Close() error { return nil }

// Prompts returns all prompts passed to Generate, in order.
func (m *Mock) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.prompts))
	copy(out, m.prompts)
	return out
}

// LastPrompt returns the most recent prompt, or "" if none.
func (m *Mock) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return ""
	}
	return m.prompts[len(m.prompts)-1]
}

// Verify Mock implements Client at compile time.
var _ Client = (*Mock)(nil)
