package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const providerOpenAI = "openai"

// OpenAI implements Client against an OpenAI-compatible chat completion API.
// Set Host to point it at a compatible gateway instead of api.openai.com.
type OpenAI struct {
	config *Config
	client *openai.Client
	logger *slog.Logger
}

// NewOpenAI creates an OpenAI-backed client.
func NewOpenAI(opts ...Option) (*OpenAI, error) {
	cfg := DefaultConfig()
	cfg.Model = openai.GPT4oMini
	cfg.Host = ""
	cfg.Apply(opts...)

	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if cfg.Model == "" {
		return nil, ErrNoModel
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.Host != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.Host, "/") + "/v1"
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	}

	return &OpenAI{
		config: cfg,
		client: openai.NewClientWithConfig(clientCfg),
		logger: cfg.Logger.With("component", "llm.openai"),
	}, nil
}

// Generate produces a completion from a single user message.
func (c *OpenAI) Generate(ctx context.Context, prompt string) (string, error) {
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", WrapError(providerOpenAI, &APIError{
				StatusCode: apiErr.HTTPStatusCode,
				Message:    apiErr.Message,
				Provider:   providerOpenAI,
			})
		}
		return "", WrapError(providerOpenAI, fmt.Errorf("%w: %v", ErrUnavailable, err))
	}

	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Health verifies reachability by listing models.
func (c *OpenAI) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.HealthTimeout)
	defer cancel()

	if _, err := c.client.ListModels(ctx); err != nil {
		return WrapError(providerOpenAI, fmt.Errorf("%w: %v", ErrUnavailable, err))
	}
	return nil
}

// Host returns the configured endpoint host.
func (c *OpenAI) Host() string {
	return c.config.Host
}

// Model returns the configured model name.
func (c *OpenAI) Model() string {
	return c.config.Model
}

// Close is a no-op; the underlying client holds no long-lived resources.
func (c *OpenAI) Close() error {
	return nil
}

// Verify OpenAI implements Client at compile time.
var _ Client = (*OpenAI)(nil)
