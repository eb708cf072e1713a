package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/solavoice/go-sola/internal/httpc"
)

const providerWhisper = "whisper"

// WhisperConfig configures the whisper HTTP recognizer.
type WhisperConfig struct {
	// Endpoint is the transcription URL of the whisper server.
	Endpoint string

	// Model is the whisper model name (e.g. "base", "small").
	Model string

	// Device is the inference device ("cpu", "cuda").
	Device string

	// ComputeType is the inference precision ("int8", "float16").
	ComputeType string

	// Timeout bounds a single transcription request.
	Timeout time.Duration

	// HTTPClient overrides the shared default client.
	HTTPClient *http.Client

	// Logger is the structured logger to use.
	Logger *slog.Logger
}

// WhisperOption is a functional option for configuring the recognizer.
type WhisperOption func(*WhisperConfig)

// WithEndpoint sets the transcription endpoint URL.
func WithEndpoint(url string) WhisperOption {
	return func(c *WhisperConfig) { c.Endpoint = url }
}

// WithModel sets the whisper model name.
func WithModel(model string) WhisperOption {
	return func(c *WhisperConfig) { c.Model = model }
}

// WithDevice sets the inference device.
func WithDevice(device string) WhisperOption {
	return func(c *WhisperConfig) { c.Device = device }
}

// WithComputeType sets the inference precision.
func WithComputeType(ct string) WhisperOption {
	return func(c *WhisperConfig) { c.ComputeType = ct }
}

// WithTimeout bounds a single transcription request.
func WithTimeout(d time.Duration) WhisperOption {
	return func(c *WhisperConfig) { c.Timeout = d }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) WhisperOption {
	return func(c *WhisperConfig) { c.HTTPClient = client }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) WhisperOption {
	return func(c *WhisperConfig) { c.Logger = logger }
}

// DefaultWhisperConfig returns sensible defaults.
func DefaultWhisperConfig() *WhisperConfig {
	return &WhisperConfig{
		Model:       "base",
		Device:      "cpu",
		ComputeType: "int8",
		Timeout:     2 * time.Minute,
		Logger:      slog.Default(),
	}
}

// Whisper is a Recognizer backed by a faster-whisper HTTP server.
type Whisper struct {
	config *WhisperConfig
	client *http.Client
	logger *slog.Logger
}

// NewWhisper creates a whisper-backed recognizer.
func NewWhisper(opts ...WhisperOption) (*Whisper, error) {
	cfg := DefaultWhisperConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Endpoint == "" {
		return nil, ErrNoEndpoint
	}

	client := cfg.HTTPClient
	if client == nil {
		client = httpc.NewClient(cfg.Timeout)
	}

	return &Whisper{
		config: cfg,
		client: client,
		logger: cfg.Logger.With("component", "asr.whisper"),
	}, nil
}

// whisperResponse is the JSON body the whisper server returns.
type whisperResponse struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments,omitempty"`
	Error string `json:"error,omitempty"`
}

// Transcribe sends the WAV to the whisper server and returns the joined,
// trimmed transcript.
func (w *Whisper) Transcribe(ctx context.Context, wav []byte) (string, error) {
	start := time.Now()

	body, contentType, err := w.buildMultipart(wav)
	if err != nil {
		return "", WrapError(providerWhisper, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.config.Endpoint, body)
	if err != nil {
		return "", WrapError(providerWhisper, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return "", WrapError(providerWhisper, fmt.Errorf("request: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", WrapError(providerWhisper, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return "", WrapError(providerWhisper,
			fmt.Errorf("%w: HTTP %d: %s", ErrDecodeFailed, resp.StatusCode, truncate(string(respBody), 200)))
	}

	var parsed whisperResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", WrapError(providerWhisper, fmt.Errorf("parse response: %w", err))
	}
	if parsed.Error != "" {
		return "", WrapError(providerWhisper, fmt.Errorf("%w: %s", ErrDecodeFailed, parsed.Error))
	}

	text := strings.TrimSpace(parsed.Text)
	if text == "" && len(parsed.Segments) > 0 {
		parts := make([]string, 0, len(parsed.Segments))
		for _, seg := range parsed.Segments {
			if s := strings.TrimSpace(seg.Text); s != "" {
				parts = append(parts, s)
			}
		}
		text = strings.Join(parts, " ")
	}

	w.logger.Debug("transcribed audio",
		"wav_bytes", len(wav),
		"chars", len(text),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return text, nil
}

// Health checks that the whisper server answers at all.
func (w *Whisper) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.config.Endpoint, nil)
	if err != nil {
		return WrapError(providerWhisper, err)
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return WrapError(providerWhisper, fmt.Errorf("health check: %w", err))
	}
	resp.Body.Close()
	// Any HTTP answer means the server is up; GET on a POST-only route
	// commonly yields 405.
	return nil
}

// Close releases idle connections.
func (w *Whisper) Close() error {
	w.client.CloseIdleConnections()
	return nil
}

// buildMultipart creates the multipart body with the audio file and the
// fixed decode parameters.
func (w *Whisper) buildMultipart(wav []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fileWriter, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := fileWriter.Write(wav); err != nil {
		return nil, "", fmt.Errorf("write audio: %w", err)
	}

	fields := map[string]string{
		"model":        w.config.Model,
		"device":       w.config.Device,
		"compute_type": w.config.ComputeType,
		"beam_size":    "1",
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", key, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close writer: %w", err)
	}

	return &buf, writer.FormDataContentType(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Verify Whisper implements Recognizer at compile time.
var _ Recognizer = (*Whisper)(nil)
