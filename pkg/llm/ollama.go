package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/solavoice/go-sola/internal/httpc"
)

const providerOllama = "ollama"

// Ollama implements Client against a local Ollama server's generate API.
type Ollama struct {
	config  *Config
	client  *http.Client
	healthc *http.Client
	logger  *slog.Logger
}

// NewOllama creates an Ollama client.
func NewOllama(opts ...Option) (*Ollama, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if cfg.Model == "" {
		return nil, ErrNoModel
	}
	if cfg.Host == "" {
		return nil, fmt.Errorf("llm: host required")
	}

	client := cfg.HTTPClient
	if client == nil {
		client = httpc.NewClient(cfg.Timeout)
	}

	return &Ollama{
		config:  cfg,
		client:  client,
		healthc: httpc.NewClient(cfg.HealthTimeout),
		logger:  cfg.Logger.With("component", "llm.ollama"),
	}, nil
}

// generateRequest is the Ollama /api/generate payload.
type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// generateResponse is the non-streaming /api/generate response.
type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// Generate produces a completion via /api/generate. A transient network
// failure is retried exactly once after a short delay; HTTP-level errors are
// never retried.
func (o *Ollama) Generate(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(generateRequest{
		Model:  o.config.Model,
		Prompt: prompt,
		Stream: false,
	})
	if err != nil {
		return "", WrapError(providerOllama, fmt.Errorf("marshal payload: %w", err))
	}

	endpoint := strings.TrimRight(o.config.Host, "/") + "/api/generate"
	start := time.Now()

	resp, err := o.doWithReconnect(ctx, endpoint, payload)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", WrapError(providerOllama, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return "", WrapError(providerOllama, &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			Provider:   providerOllama,
		})
	}

	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", WrapError(providerOllama, fmt.Errorf("parse response: %w", err))
	}
	if parsed.Error != "" {
		return "", WrapError(providerOllama, fmt.Errorf("model error: %s", parsed.Error))
	}

	reply := strings.TrimSpace(parsed.Response)

	o.logger.Debug("generated completion",
		"model", o.config.Model,
		"prompt_chars", len(prompt),
		"reply_chars", len(reply),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return reply, nil
}

// doWithReconnect performs the POST, allowing a single reconnect attempt
// when the failure is a network error rather than a server response.
func (o *Ollama) doWithReconnect(ctx context.Context, endpoint string, payload []byte) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			o.logger.Warn("reconnecting after transient network failure", "error", lastErr)
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
			case <-time.After(o.config.ReconnectDelay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, WrapError(providerOllama, fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := o.client.Do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !isTransient(err) {
			break
		}
	}

	return nil, WrapError(providerOllama, fmt.Errorf("%w: %v", ErrUnavailable, lastErr))
}

// isTransient reports whether an error looks like a network failure worth
// one reconnect, as opposed to a caller-side problem like cancellation.
func isTransient(err error) bool {
	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		return false
	}
	if urlErr.Err == context.Canceled || urlErr.Err == context.DeadlineExceeded {
		return false
	}
	return true
}

// Health probes /api/tags with the short health timeout.
func (o *Ollama) Health(ctx context.Context) error {
	endpoint := strings.TrimRight(o.config.Host, "/") + "/api/tags"

	ctx, cancel := context.WithTimeout(ctx, o.config.HealthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return WrapError(providerOllama, err)
	}

	resp, err := o.healthc.Do(req)
	if err != nil {
		return WrapError(providerOllama, fmt.Errorf("%w: %v", ErrUnavailable, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return WrapError(providerOllama, &APIError{
			StatusCode: resp.StatusCode,
			Message:    "tags endpoint returned non-200",
			Provider:   providerOllama,
		})
	}
	return nil
}

// Host returns the configured endpoint host.
func (o *Ollama) Host() string {
	return o.config.Host
}

// Model returns the configured model name.
func (o *Ollama) Model() string {
	return o.config.Model
}

// Close releases idle connections.
func (o *Ollama) Close() error {
	o.client.CloseIdleConnections()
	o.healthc.CloseIdleConnections()
	return nil
}

// Verify Ollama implements Client at compile time.
var _ Client = (*Ollama)(nil)
