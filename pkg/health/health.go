// Package health probes the pipeline's external dependencies and reduces
// the results to a single snapshot. Probes run independently: one failing
// dependency never hides the state of the others, and Probe always returns
// a snapshot, never an error.
package health

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Status values for the aggregate snapshot.
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
)

// TranscoderProbe reports availability of the audio conversion binary.
type TranscoderProbe interface {
	Available() (path string, ok bool)
}

// SynthesizerProbe reports availability of the synthesis binary and model.
type SynthesizerProbe interface {
	BinaryPath() (path string, ok bool)
	ModelPath() (path string, ok bool)
}

// LLMProbe reports reachability of the language model endpoint.
type LLMProbe interface {
	Health(ctx context.Context) error
	Host() string
	Model() string
}

// TranscoderDetail describes the transcoder dependency.
type TranscoderDetail struct {
	Available bool   `json:"available"`
	Path      string `json:"path,omitempty"`
}

// SynthesizerDetail describes the synthesis binary and voice model.
type SynthesizerDetail struct {
	BinaryAvailable bool   `json:"binary_available"`
	BinaryPath      string `json:"binary_path,omitempty"`
	ModelAvailable  bool   `json:"model_available"`
	ModelPath       string `json:"model_path"`
}

// LLMDetail describes the language model endpoint.
type LLMDetail struct {
	Available bool   `json:"available"`
	Host      string `json:"host"`
	Model     string `json:"model"`
	Error     string `json:"error,omitempty"`
}

// Details groups the per-dependency probe results.
type Details struct {
	Transcoder  TranscoderDetail  `json:"transcoder"`
	Synthesizer SynthesizerDetail `json:"synthesizer"`
	LLM         LLMDetail         `json:"llm"`
}

// Snapshot is the aggregate health state at one point in time. It is
// recomputed for every request and never cached.
type Snapshot struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Details   Details   `json:"details"`
}

// Aggregator probes the three external dependencies.
type Aggregator struct {
	transcoder  TranscoderProbe
	synthesizer SynthesizerProbe
	llm         LLMProbe
	timeout     time.Duration
	logger      *slog.Logger
}

// New creates an Aggregator. probeTimeout bounds each individual probe;
// zero means 3 seconds.
func New(transcoder TranscoderProbe, synthesizer SynthesizerProbe, llm LLMProbe, probeTimeout time.Duration, logger *slog.Logger) *Aggregator {
	if probeTimeout <= 0 {
		probeTimeout = 3 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		transcoder:  transcoder,
		synthesizer: synthesizer,
		llm:         llm,
		timeout:     probeTimeout,
		logger:      logger.With("component", "health"),
	}
}

// Probe checks all dependencies concurrently and returns the snapshot.
func (a *Aggregator) Probe(ctx context.Context) Snapshot {
	snap := Snapshot{Timestamp: time.Now().UTC()}

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		path, ok := a.transcoder.Available()
		snap.Details.Transcoder = TranscoderDetail{Available: ok, Path: path}
	}()

	go func() {
		defer wg.Done()
		binPath, binOK := a.synthesizer.BinaryPath()
		modelPath, modelOK := a.synthesizer.ModelPath()
		snap.Details.Synthesizer = SynthesizerDetail{
			BinaryAvailable: binOK,
			BinaryPath:      binPath,
			ModelAvailable:  modelOK,
			ModelPath:       modelPath,
		}
	}()

	go func() {
		defer wg.Done()
		probeCtx, cancel := context.WithTimeout(ctx, a.timeout)
		defer cancel()

		detail := LLMDetail{Host: a.llm.Host(), Model: a.llm.Model()}
		if err := a.llm.Health(probeCtx); err != nil {
			detail.Error = err.Error()
		} else {
			detail.Available = true
		}
		snap.Details.LLM = detail
	}()

	wg.Wait()

	if snap.healthy() {
		snap.Status = StatusOK
	} else {
		snap.Status = StatusDegraded
		a.logger.Debug("health degraded",
			"transcoder", snap.Details.Transcoder.Available,
			"synth_binary", snap.Details.Synthesizer.BinaryAvailable,
			"synth_model", snap.Details.Synthesizer.ModelAvailable,
			"llm", snap.Details.LLM.Available,
		)
	}

	return snap
}

func (s *Snapshot) healthy() bool {
	return s.Details.Transcoder.Available &&
		s.Details.Synthesizer.BinaryAvailable &&
		s.Details.Synthesizer.ModelAvailable &&
		s.Details.LLM.Available
}
