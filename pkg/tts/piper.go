package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/solavoice/go-sola/pkg/audio"
)

const providerPiper = "piper"

// Config holds piper provider configuration.
type Config struct {
	// BinaryPath is the piper binary name or absolute path.
	BinaryPath string

	// ModelPath is the onnx voice model file.
	ModelPath string

	// Timeout bounds a single synthesis run.
	Timeout time.Duration

	// Logger is the structured logger to use.
	Logger *slog.Logger
}

// Option is a functional option for configuring the piper provider.
type Option func(*Config)

// WithBinary sets the piper binary name or path.
func WithBinary(bin string) Option {
	return func(c *Config) { c.BinaryPath = bin }
}

// WithModel sets the voice model path.
func WithModel(path string) Option {
	return func(c *Config) { c.ModelPath = path }
}

// WithTimeout bounds a single synthesis run.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) { c.Logger = logger }
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BinaryPath: "piper",
		ModelPath:  "./voices/en_US-ryan-high.onnx",
		Timeout:    60 * time.Second,
		Logger:     slog.Default(),
	}
}

// Piper implements Provider by invoking a local piper binary, feeding text
// on stdin and collecting the WAV output.
type Piper struct {
	config *Config
	logger *slog.Logger
}

// NewPiper creates a piper-backed provider. Binary and model availability
// are checked lazily at synthesis/health time, not here, so the service can
// start degraded.
func NewPiper(opts ...Option) *Piper {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return &Piper{
		config: cfg,
		logger: cfg.Logger.With("component", "tts.piper"),
	}
}

// BinaryPath resolves the configured binary, reporting availability.
func (p *Piper) BinaryPath() (string, bool) {
	bin := p.config.BinaryPath
	if strings.ContainsRune(bin, filepath.Separator) {
		if _, err := os.Stat(bin); err != nil {
			return "", false
		}
		return bin, true
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return "", false
	}
	return path, true
}

// ModelPath returns the configured voice model path and whether it exists.
func (p *Piper) ModelPath() (string, bool) {
	_, err := os.Stat(p.config.ModelPath)
	return p.config.ModelPath, err == nil
}

// Synthesize runs piper over the text and returns the WAV audio.
func (p *Piper) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, WrapError(providerPiper, ErrEmptyText)
	}

	bin, ok := p.BinaryPath()
	if !ok {
		return nil, WrapError(providerPiper, ErrBinaryMissing)
	}
	model, ok := p.ModelPath()
	if !ok {
		return nil, WrapError(providerPiper, ErrModelMissing)
	}

	if p.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.Timeout)
		defer cancel()
	}

	start := time.Now()

	// "-f -" writes the WAV to stdout.
	cmd := exec.CommandContext(ctx, bin, "-m", model, "-f", "-")

	var stdout, stderr bytes.Buffer
	cmd.Stdin = strings.NewReader(text)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, WrapError(providerPiper, ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, WrapError(providerPiper, &ExecError{
				ExitCode: exitErr.ExitCode(),
				Stderr:   strings.TrimSpace(stderr.String()),
			})
		}
		return nil, WrapError(providerPiper, fmt.Errorf("run piper: %w", err))
	}

	wav := stdout.Bytes()
	format, err := audio.Info(wav)
	if err != nil {
		return nil, WrapError(providerPiper, fmt.Errorf("invalid synthesis output: %w", err))
	}

	latency := time.Since(start).Milliseconds()

	p.logger.Debug("synthesized speech",
		"chars", len(text),
		"bytes", len(wav),
		"sample_rate", format.SampleRate,
		"latency_ms", latency,
	)

	return &AudioResult{
		Audio: wav,
		Format: AudioFormat{
			SampleRate: format.SampleRate,
			Channels:   format.Channels,
			BitDepth:   format.BitDepth,
		},
		Duration:  estimateDuration(format),
		CharCount: len(text),
		LatencyMs: latency,
	}, nil
}

// Health verifies that the binary and voice model are present.
func (p *Piper) Health(ctx context.Context) error {
	if _, ok := p.BinaryPath(); !ok {
		return WrapError(providerPiper, ErrBinaryMissing)
	}
	if _, ok := p.ModelPath(); !ok {
		return WrapError(providerPiper, ErrModelMissing)
	}
	return nil
}

// Close releases resources held by the provider.
func (p *Piper) Close() error {
	return nil
}

func estimateDuration(f audio.Format) time.Duration {
	bytesPerSecond := f.SampleRate * f.Channels * f.BitDepth / 8
	if bytesPerSecond <= 0 {
		return 0
	}
	return time.Duration(float64(f.DataBytes) / float64(bytesPerSecond) * float64(time.Second))
}

// Verify Piper implements Provider at compile time.
var _ Provider = (*Piper)(nil)
