// Package metrics defines the Prometheus instrumentation for the voice
// turn pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for turn counters.
const (
	OutcomeComplete = "complete"
	OutcomeDegraded = "degraded"
	OutcomeFailed   = "failed"
)

// Metrics contains all Prometheus metrics for the voice service.
type Metrics struct {
	// Turn pipeline metrics
	TurnsTotal    *prometheus.CounterVec
	TurnDuration  prometheus.Histogram
	StageDuration *prometheus.HistogramVec
	StageFailures *prometheus.CounterVec

	// Skill metrics
	SkillInvocations *prometheus.CounterVec

	// Provider metrics
	TranscriptionDuration prometheus.Histogram
	GenerationDuration    prometheus.Histogram
	SynthesisDuration     prometheus.Histogram
	SynthesisBytes        prometheus.Histogram

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers all metrics on the given registerer. Tests pass
// their own registry to avoid duplicate registration panics.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TurnsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sola_turns_total",
			Help: "Total number of voice turns by outcome",
		}, []string{"outcome"}),
		TurnDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "sola_turn_duration_seconds",
			Help:    "End-to-end duration of voice turns",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~2 minutes
		}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sola_stage_duration_seconds",
			Help:    "Duration of individual pipeline stages",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		}, []string{"stage"}),
		StageFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sola_stage_failures_total",
			Help: "Total number of pipeline stage failures",
		}, []string{"stage"}),

		SkillInvocations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sola_skill_invocations_total",
			Help: "Total number of skill invocations by role and skill",
		}, []string{"role", "skill"}),

		TranscriptionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "sola_transcription_duration_seconds",
			Help:    "Duration of speech recognition requests",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		GenerationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "sola_generation_duration_seconds",
			Help:    "Duration of language model generation requests",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		SynthesisDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "sola_synthesis_duration_seconds",
			Help:    "Duration of speech synthesis runs",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		SynthesisBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "sola_synthesis_audio_bytes",
			Help:    "Size of synthesized audio in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 2, 12), // 1KB to ~4MB
		}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sola_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sola_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
	}
}

// RecordTurn records a completed turn with its outcome and total duration.
func (m *Metrics) RecordTurn(outcome string, duration time.Duration) {
	m.TurnsTotal.WithLabelValues(outcome).Inc()
	m.TurnDuration.Observe(duration.Seconds())
}

// RecordStage records the duration of one pipeline stage.
func (m *Metrics) RecordStage(stage string, duration time.Duration) {
	m.StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordStageFailure increments the failure counter for a stage.
func (m *Metrics) RecordStageFailure(stage string) {
	m.StageFailures.WithLabelValues(stage).Inc()
}

// RecordSkill increments the invocation counter for a role/skill pair.
func (m *Metrics) RecordSkill(roleID, skillID string) {
	m.SkillInvocations.WithLabelValues(roleID, skillID).Inc()
}

// RecordSynthesis records a synthesis run.
func (m *Metrics) RecordSynthesis(duration time.Duration, audioBytes int) {
	m.SynthesisDuration.Observe(duration.Seconds())
	m.SynthesisBytes.Observe(float64(audioBytes))
}
