// Package orchestrator sequences a voice turn through the pipeline:
// transcode the uploaded clip, recognize speech, generate a persona
// reply, and synthesize it back to audio. All state is per-request;
// conversational context arrives with the request and leaves with the
// response.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/solavoice/go-sola/internal/events"
	"github.com/solavoice/go-sola/internal/metrics"
	"github.com/solavoice/go-sola/pkg/asr"
	"github.com/solavoice/go-sola/pkg/conversation"
	"github.com/solavoice/go-sola/pkg/roles"
	"github.com/solavoice/go-sola/pkg/transcode"
	"github.com/solavoice/go-sola/pkg/tts"
)

// Stage identifies a step of the turn pipeline.
type Stage string

const (
	StageIdle         Stage = "idle"
	StageTranscoding  Stage = "transcoding"
	StageTranscribing Stage = "transcribing"
	StageReplying     Stage = "replying"
	StageSynthesizing Stage = "synthesizing"
	StageComplete     Stage = "complete"
)

// StageError reports which pipeline stage a turn failed in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Config holds the orchestrator dependencies and stage timeouts.
type Config struct {
	Transcoder *transcode.Transcoder
	Recognizer asr.Recognizer
	Engine     *conversation.Engine
	Registry   *roles.Registry
	Synth      tts.Provider

	Events  events.Publisher
	Metrics *metrics.Metrics
	Logger  *slog.Logger

	TranscodeTimeout  time.Duration
	TranscribeTimeout time.Duration
	GenerateTimeout   time.Duration
	SynthesizeTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.Events == nil {
		c.Events = events.NopPublisher{}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.TranscodeTimeout <= 0 {
		c.TranscodeTimeout = 15 * time.Second
	}
	if c.TranscribeTimeout <= 0 {
		c.TranscribeTimeout = 30 * time.Second
	}
	if c.GenerateTimeout <= 0 {
		c.GenerateTimeout = 60 * time.Second
	}
	if c.SynthesizeTimeout <= 0 {
		c.SynthesizeTimeout = 30 * time.Second
	}
}

// Validate checks the required dependencies are present.
func (c *Config) Validate() error {
	if c.Transcoder == nil {
		return fmt.Errorf("orchestrator: transcoder is required")
	}
	if c.Recognizer == nil {
		return fmt.Errorf("orchestrator: recognizer is required")
	}
	if c.Engine == nil {
		return fmt.Errorf("orchestrator: engine is required")
	}
	if c.Registry == nil {
		return fmt.Errorf("orchestrator: registry is required")
	}
	if c.Synth == nil {
		return fmt.Errorf("orchestrator: synthesizer is required")
	}
	return nil
}

// Orchestrator runs voice turns and skill invocations.
type Orchestrator struct {
	cfg    Config
	logger *slog.Logger
}

// New creates an Orchestrator from the config.
func New(cfg Config) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &Orchestrator{
		cfg:    cfg,
		logger: cfg.Logger.With("component", "orchestrator"),
	}, nil
}

// TurnRequest carries one uploaded utterance and its context.
type TurnRequest struct {
	RequestID   string
	Audio       []byte
	ContentType string
	RoleID      string
	History     []conversation.Turn
}

// TurnResult is the outcome of a completed turn. Audio is nil when
// synthesis failed and the turn degraded to text only.
type TurnResult struct {
	RoleID        string
	Transcription string
	ReplyText     string
	Audio         *tts.AudioResult
	Degraded      bool
}

// RunTurn executes the full pipeline for one utterance. Failures before
// synthesis abort the turn with a *StageError; a synthesis failure
// degrades the result instead.
func (o *Orchestrator) RunTurn(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	start := time.Now()

	role, err := o.resolveRole(req.RoleID)
	if err != nil {
		return nil, err
	}
	history := conversation.TrimHistory(req.History)

	log := o.logger.With("request_id", req.RequestID, "role", role.ID)
	result := &TurnResult{RoleID: role.ID}

	// Transcoding
	o.announce(req.RequestID, role.ID, StageTranscoding)
	tctx, cancel := context.WithTimeout(ctx, o.cfg.TranscodeTimeout)
	stageStart := time.Now()
	wav, err := o.cfg.Transcoder.Transcode(tctx, req.Audio, req.ContentType)
	cancel()
	o.recordStage(StageTranscoding, time.Since(stageStart))
	if err != nil {
		return nil, o.fail(req.RequestID, role.ID, start, StageTranscoding, err)
	}

	// Transcribing
	o.announce(req.RequestID, role.ID, StageTranscribing)
	tctx, cancel = context.WithTimeout(ctx, o.cfg.TranscribeTimeout)
	stageStart = time.Now()
	text, err := o.cfg.Recognizer.Transcribe(tctx, wav)
	cancel()
	o.recordStage(StageTranscribing, time.Since(stageStart))
	if o.cfg.Metrics != nil {
		o.cfg.Metrics.TranscriptionDuration.Observe(time.Since(stageStart).Seconds())
	}
	if err != nil {
		return nil, o.fail(req.RequestID, role.ID, start, StageTranscribing, err)
	}
	result.Transcription = text
	o.emit(req.RequestID, role.ID, events.KindTranscript, text, "")

	// Replying
	o.announce(req.RequestID, role.ID, StageReplying)
	tctx, cancel = context.WithTimeout(ctx, o.cfg.GenerateTimeout)
	stageStart = time.Now()
	reply, err := o.cfg.Engine.GenerateReply(tctx, role, history, text)
	cancel()
	o.recordStage(StageReplying, time.Since(stageStart))
	if o.cfg.Metrics != nil {
		o.cfg.Metrics.GenerationDuration.Observe(time.Since(stageStart).Seconds())
	}
	if err != nil {
		return nil, o.fail(req.RequestID, role.ID, start, StageReplying, err)
	}
	result.ReplyText = reply
	o.emit(req.RequestID, role.ID, events.KindReply, reply, "")

	// Synthesizing (non-fatal)
	result.Audio, result.Degraded = o.synthesize(ctx, req.RequestID, role.ID, reply, log)

	outcome := metrics.OutcomeComplete
	if result.Degraded {
		outcome = metrics.OutcomeDegraded
	}
	o.recordTurn(outcome, time.Since(start))
	o.announce(req.RequestID, role.ID, StageComplete)
	o.emit(req.RequestID, role.ID, events.KindTurnDone, "", "")

	log.Info("turn complete",
		"transcription_chars", len(result.Transcription),
		"reply_chars", len(result.ReplyText),
		"degraded", result.Degraded,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

// SkillRequest invokes one predefined persona action.
type SkillRequest struct {
	RequestID string
	RoleID    string
	SkillID   string
	Input     string
	History   []conversation.Turn
	Speak     bool
}

// SkillResult is the outcome of a skill invocation.
type SkillResult struct {
	RoleID   string
	SkillID  string
	Text     string
	Audio    *tts.AudioResult
	Degraded bool
}

// RunSkill resolves the role and skill, generates the skill text, and
// optionally synthesizes it when req.Speak is set.
func (o *Orchestrator) RunSkill(ctx context.Context, req SkillRequest) (*SkillResult, error) {
	role, err := o.cfg.Registry.Get(req.RoleID)
	if err != nil {
		return nil, err
	}
	history := conversation.TrimHistory(req.History)

	if o.cfg.Metrics != nil {
		o.cfg.Metrics.RecordSkill(role.ID, req.SkillID)
	}

	gctx, cancel := context.WithTimeout(ctx, o.cfg.GenerateTimeout)
	defer cancel()
	text, err := o.cfg.Engine.InvokeSkill(gctx, role, req.SkillID, req.Input, history)
	if err != nil {
		return nil, err
	}

	result := &SkillResult{RoleID: role.ID, SkillID: req.SkillID, Text: text}
	o.emit(req.RequestID, role.ID, events.KindSkillResult, text, "")

	if req.Speak {
		log := o.logger.With("request_id", req.RequestID, "role", role.ID, "skill", req.SkillID)
		result.Audio, result.Degraded = o.synthesize(ctx, req.RequestID, role.ID, text, log)
	}
	return result, nil
}

// synthesize runs the synthesis stage. It never fails the turn: on
// error the caller gets a nil result and degraded=true.
func (o *Orchestrator) synthesize(ctx context.Context, requestID, roleID, text string, log *slog.Logger) (*tts.AudioResult, bool) {
	o.announce(requestID, roleID, StageSynthesizing)
	sctx, cancel := context.WithTimeout(ctx, o.cfg.SynthesizeTimeout)
	defer cancel()

	stageStart := time.Now()
	audio, err := o.cfg.Synth.Synthesize(sctx, text)
	o.recordStage(StageSynthesizing, time.Since(stageStart))
	if err != nil {
		if o.cfg.Metrics != nil {
			o.cfg.Metrics.RecordStageFailure(string(StageSynthesizing))
		}
		o.emit(requestID, roleID, events.KindDegraded, "", err.Error())
		log.Warn("synthesis failed, returning text only", "error", err)
		return nil, true
	}
	if o.cfg.Metrics != nil {
		o.cfg.Metrics.RecordSynthesis(time.Since(stageStart), len(audio.Audio))
	}
	return audio, false
}

// resolveRole falls back to the registry default when no role is named.
func (o *Orchestrator) resolveRole(id string) (roles.Role, error) {
	if id == "" {
		id = o.cfg.Registry.DefaultRoleID()
	}
	return o.cfg.Registry.Get(id)
}

// fail records and publishes a fatal stage failure and wraps the error.
func (o *Orchestrator) fail(requestID, roleID string, turnStart time.Time, stage Stage, err error) error {
	if o.cfg.Metrics != nil {
		o.cfg.Metrics.RecordStageFailure(string(stage))
	}
	o.recordTurn(metrics.OutcomeFailed, time.Since(turnStart))

	ev := events.NewEvent(events.KindTurnFailed)
	ev.RequestID = requestID
	ev.RoleID = roleID
	ev.Stage = string(stage)
	ev.Error = err.Error()
	o.cfg.Events.Publish(ev)

	o.logger.Error("turn failed", "request_id", requestID, "stage", stage, "error", err)
	return &StageError{Stage: stage, Err: err}
}

func (o *Orchestrator) announce(requestID, roleID string, stage Stage) {
	ev := events.NewEvent(events.KindStage)
	ev.RequestID = requestID
	ev.RoleID = roleID
	ev.Stage = string(stage)
	o.cfg.Events.Publish(ev)
}

func (o *Orchestrator) emit(requestID, roleID, kind, text, errText string) {
	ev := events.NewEvent(kind)
	ev.RequestID = requestID
	ev.RoleID = roleID
	ev.Text = text
	ev.Error = errText
	o.cfg.Events.Publish(ev)
}

func (o *Orchestrator) recordStage(stage Stage, d time.Duration) {
	if o.cfg.Metrics != nil {
		o.cfg.Metrics.RecordStage(string(stage), d)
	}
}

func (o *Orchestrator) recordTurn(outcome string, d time.Duration) {
	if o.cfg.Metrics != nil {
		o.cfg.Metrics.RecordTurn(outcome, d)
	}
}
