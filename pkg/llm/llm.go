// Package llm provides a unified interface for language model backends.
//
// The primary backend is a local Ollama server; an OpenAI-compatible chat
// completion backend is available as an alternative. All backends implement
// the Client interface, so callers switch providers without code changes.
//
// Example usage:
//
//	client, _ := llm.NewOllama(
//	    llm.WithHost("http://localhost:11434"),
//	    llm.WithModel("llama3:8b"),
//	)
//	defer client.Close()
//
//	reply, _ := client.Generate(ctx, "Say hello.")
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Sentinel errors for the llm package.
var (
	// ErrUnavailable is returned when the model endpoint cannot be reached
	// after the single bounded reconnect attempt.
	ErrUnavailable = errors.New("llm: model endpoint unavailable")

	// ErrNoModel is returned when no model name is configured.
	ErrNoModel = errors.New("llm: model name required")

	// ErrNoAPIKey is returned when a hosted backend is missing its API key.
	ErrNoAPIKey = errors.New("llm: API key required")
)

// Client is the interface to a language model backend.
// Generation is treated as opaque and non-deterministic.
type Client interface {
	// Generate produces a completion for the given prompt.
	Generate(ctx context.Context, prompt string) (string, error)

	// Health checks endpoint reachability without generating.
	Health(ctx context.Context) error

	// Host returns the configured endpoint host.
	Host() string

	// Model returns the configured model name.
	Model() string

	// Close releases resources held by the client.
	Close() error
}

// APIError represents an error response from a model API.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Message is the error message from the API.
	Message string

	// Provider identifies which backend returned the error.
	Provider string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("llm [%s]: API error %d: %s", e.Provider, e.StatusCode, e.Message)
}

// ProviderError wraps an error with backend context.
type ProviderError struct {
	Provider string
	Err      error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("llm [%s]: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// WrapError wraps an error with backend context.
func WrapError(provider string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Provider: provider, Err: err}
}

// Config holds language model client configuration.
type Config struct {
	// Host is the endpoint base URL.
	Host string

	// Model is the model name.
	Model string

	// APIKey authenticates hosted backends.
	APIKey string

	// Timeout bounds a single generation call.
	Timeout time.Duration

	// HealthTimeout bounds a health probe.
	HealthTimeout time.Duration

	// ReconnectDelay is the pause before the single reconnect attempt on a
	// transient network failure.
	ReconnectDelay time.Duration

	// HTTPClient overrides the default HTTP client.
	HTTPClient *http.Client

	// Logger is the structured logger to use.
	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Host:           "http://localhost:11434",
		Model:          "llama3:8b",
		Timeout:        10 * time.Minute,
		HealthTimeout:  3 * time.Second,
		ReconnectDelay: 250 * time.Millisecond,
		Logger:         slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Option is a functional option for configuring clients.
type Option func(*Config)

// WithHost sets the endpoint base URL.
func WithHost(host string) Option {
	return func(c *Config) { c.Host = host }
}

// WithModel sets the model name.
func WithModel(model string) Option {
	return func(c *Config) { c.Model = model }
}

// WithAPIKey sets the API key for hosted backends.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithTimeout bounds a single generation call.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithHealthTimeout bounds a health probe.
func WithHealthTimeout(d time.Duration) Option {
	return func(c *Config) { c.HealthTimeout = d }
}

// WithReconnectDelay sets the pause before the reconnect attempt.
func WithReconnectDelay(d time.Duration) Option {
	return func(c *Config) { c.ReconnectDelay = d }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) { c.HTTPClient = client }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) { c.Logger = logger }
}
