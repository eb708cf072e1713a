// Package transcode normalizes browser-recorded audio into the canonical
// 16kHz mono PCM WAV the recognizer expects. Conversion is delegated to an
// external ffmpeg binary; there are no retries, a failed conversion means
// the input is treated as corrupt.
package transcode

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

// TargetSampleRate is the sample rate the recognizer expects.
const TargetSampleRate = 16000

// ErrFFmpegMissing is returned when the configured ffmpeg binary cannot be found.
var ErrFFmpegMissing = errors.New("transcode: ffmpeg binary not found")

// ErrEmptyInput is returned when the input byte stream is empty.
var ErrEmptyInput = errors.New("transcode: empty audio input")

// ExecError reports a conversion subprocess that exited non-zero.
type ExecError struct {
	ExitCode int
	Stderr   string
}

// Error implements the error interface.
func (e *ExecError) Error() string {
	stderr := strings.TrimSpace(e.Stderr)
	if len(stderr) > 200 {
		stderr = stderr[:200] + "..."
	}
	return fmt.Sprintf("transcode: ffmpeg exited with code %d: %s", e.ExitCode, stderr)
}

// Config holds transcoder configuration.
type Config struct {
	// FFmpegBin is the ffmpeg binary name or absolute path.
	FFmpegBin string

	// Timeout bounds a single conversion.
	Timeout time.Duration

	// Logger is the structured logger to use.
	Logger *slog.Logger
}

// Option is a functional option for configuring the transcoder.
type Option func(*Config)

// WithBinary sets the ffmpeg binary name or path.
func WithBinary(bin string) Option {
	return func(c *Config) { c.FFmpegBin = bin }
}

// WithTimeout bounds a single conversion.
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
		FFmpegBin: "ffmpeg",
		Timeout:   30 * time.Second,
		Logger:    slog.Default(),
	}
}

// Transcoder converts arbitrary compressed audio into 16kHz mono PCM WAV.
type Transcoder struct {
	config *Config
	logger *slog.Logger
}

// New creates a Transcoder.
func New(opts ...Option) *Transcoder {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return &Transcoder{
		config: cfg,
		logger: cfg.Logger.With("component", "transcode"),
	}
}

// Available reports whether the ffmpeg binary can be resolved, and where.
func (t *Transcoder) Available() (string, bool) {
	return resolveBinary(t.config.FFmpegBin)
}

// Transcode converts data into a 16kHz mono 16-bit PCM WAV byte stream.
// Input that is already a valid WAV (per contentType and header) passes
// through untouched.
func (t *Transcoder) Transcode(ctx context.Context, data []byte, contentType string) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}

	if isWAVContentType(contentType) && audio.IsWAV(data) {
		return data, nil
	}

	bin, ok := resolveBinary(t.config.FFmpegBin)
	if !ok {
		return nil, ErrFFmpegMissing
	}

	if t.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.config.Timeout)
		defer cancel()
	}

	start := time.Now()

	cmd := exec.CommandContext(ctx, bin,
		"-hide_banner", "-loglevel", "error",
		"-i", "pipe:0",
		"-ar", fmt.Sprint(TargetSampleRate),
		"-ac", "1",
		"-f", "wav",
		"pipe:1",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdin = bytes.NewReader(data)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("transcode: %w", ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, &ExecError{ExitCode: exitErr.ExitCode(), Stderr: stderr.String()}
		}
		return nil, fmt.Errorf("transcode: run ffmpeg: %w", err)
	}

	out := stdout.Bytes()
	if len(out) == 0 {
		return nil, &ExecError{ExitCode: 0, Stderr: "ffmpeg produced no output"}
	}

	t.logger.Debug("transcoded audio",
		"in_bytes", len(data),
		"out_bytes", len(out),
		"content_type", contentType,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return out, nil
}

// resolveBinary resolves a binary name via PATH, or checks existence for an
// absolute/relative path.
func resolveBinary(bin string) (string, bool) {
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

func isWAVContentType(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "wav") || ct == "audio/wave"
}
