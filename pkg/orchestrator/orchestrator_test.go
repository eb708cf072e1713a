package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/solavoice/go-sola/internal/events"
	"github.com/solavoice/go-sola/pkg/asr"
	"github.com/solavoice/go-sola/pkg/audio"
	"github.com/solavoice/go-sola/pkg/conversation"
	"github.com/solavoice/go-sola/pkg/llm"
	"github.com/solavoice/go-sola/pkg/roles"
	"github.com/solavoice/go-sola/pkg/transcode"
	"github.com/solavoice/go-sola/pkg/tts"
)

// recorder captures published events for assertions.
type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(ev events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Kind)
	}
	return out
}

func wavClip(t *testing.T) []byte {
	t.Helper()
	data, err := audio.Encode(make([]int16, 1600), 16000)
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return data
}

func newOrchestrator(t *testing.T, recognizer asr.Recognizer, model llm.Client, synth tts.Provider, rec events.Publisher) *Orchestrator {
	t.Helper()
	o, err := New(Config{
		Transcoder: transcode.New(),
		Recognizer: recognizer,
		Engine:     conversation.NewEngine(model, nil),
		Registry:   roles.DefaultRegistry(),
		Synth:      synth,
		Events:     rec,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return o
}

func TestRunTurnHappyPath(t *testing.T) {
	rec := &recorder{}
	o := newOrchestrator(t,
		asr.NewMock("what is the weather today"),
		llm.NewMock("A fine day for quidditch, I'd say."),
		tts.NewMock(),
		rec,
	)

	// WAV passthrough avoids any external binary.
	result, err := o.RunTurn(context.Background(), TurnRequest{
		RequestID:   "r1",
		Audio:       wavClip(t),
		ContentType: "audio/wav",
	})
	if err != nil {
		t.Fatalf("RunTurn: %v", err)
	}
	if result.RoleID != roles.DefaultRoleID {
		t.Errorf("role = %q, want default", result.RoleID)
	}
	if result.Transcription != "what is the weather today" {
		t.Errorf("transcription = %q", result.Transcription)
	}
	if result.ReplyText != "A fine day for quidditch, I'd say." {
		t.Errorf("reply = %q", result.ReplyText)
	}
	if result.Degraded {
		t.Error("turn should not be degraded")
	}
	if result.Audio == nil || len(result.Audio.Audio) == 0 {
		t.Error("expected synthesized audio")
	}

	kinds := rec.kinds()
	var sawTranscript, sawReply, sawDone bool
	for _, k := range kinds {
		switch k {
		case events.KindTranscript:
			sawTranscript = true
		case events.KindReply:
			sawReply = true
		case events.KindTurnDone:
			sawDone = true
		}
	}
	if !sawTranscript || !sawReply || !sawDone {
		t.Errorf("missing events, got %v", kinds)
	}
}

func TestRunTurnUnknownRole(t *testing.T) {
	o := newOrchestrator(t, asr.NewMock("hi"), llm.NewMock("hello"), tts.NewMock(), nil)

	_, err := o.RunTurn(context.Background(), TurnRequest{
		Audio:       wavClip(t),
		ContentType: "audio/wav",
		RoleID:      "gandalf",
	})
	if !errors.Is(err, roles.ErrRoleNotFound) {
		t.Fatalf("err = %v, want ErrRoleNotFound", err)
	}
}

func TestRunTurnTranscriptionFailureAborts(t *testing.T) {
	boom := errors.New("whisper exploded")
	synth := tts.NewMock()
	o := newOrchestrator(t, asr.MockWithError(boom), llm.NewMock("hello"), synth, nil)

	_, err := o.RunTurn(context.Background(), TurnRequest{
		Audio:       wavClip(t),
		ContentType: "audio/wav",
	})

	var stageErr *StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("err = %v, want *StageError", err)
	}
	if stageErr.Stage != StageTranscribing {
		t.Errorf("stage = %q, want %q", stageErr.Stage, StageTranscribing)
	}
	if !errors.Is(err, boom) {
		t.Error("cause not preserved through unwrap")
	}
	if len(synth.Texts()) != 0 {
		t.Error("synthesis must not run after transcription failure")
	}
}

func TestRunTurnLLMFailureAborts(t *testing.T) {
	o := newOrchestrator(t, asr.NewMock("hi"), llm.MockWithError(llm.ErrUnavailable), tts.NewMock(), nil)

	_, err := o.RunTurn(context.Background(), TurnRequest{
		Audio:       wavClip(t),
		ContentType: "audio/wav",
	})

	var stageErr *StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("err = %v, want *StageError", err)
	}
	if stageErr.Stage != StageReplying {
		t.Errorf("stage = %q, want %q", stageErr.Stage, StageReplying)
	}
}

func TestRunTurnSynthesisFailureDegrades(t *testing.T) {
	rec := &recorder{}
	o := newOrchestrator(t, asr.NewMock("hi"), llm.NewMock("hello there"), tts.MockWithError(tts.ErrBinaryMissing), rec)

	result, err := o.RunTurn(context.Background(), TurnRequest{
		Audio:       wavClip(t),
		ContentType: "audio/wav",
	})
	if err != nil {
		t.Fatalf("RunTurn should not fail on synthesis error: %v", err)
	}
	if !result.Degraded {
		t.Error("result should be degraded")
	}
	if result.Audio != nil {
		t.Error("audio must be omitted when degraded")
	}
	if result.ReplyText != "hello there" {
		t.Errorf("reply = %q, text must survive degradation", result.ReplyText)
	}

	var sawDegraded bool
	for _, k := range rec.kinds() {
		if k == events.KindDegraded {
			sawDegraded = true
		}
	}
	if !sawDegraded {
		t.Error("degraded event not published")
	}
}

func TestRunTurnEmptyTranscriptionClarifies(t *testing.T) {
	model := llm.NewMock("should not be called")
	o := newOrchestrator(t, asr.NewMock(""), model, tts.NewMock(), nil)

	result, err := o.RunTurn(context.Background(), TurnRequest{
		Audio:       wavClip(t),
		ContentType: "audio/wav",
	})
	if err != nil {
		t.Fatalf("RunTurn: %v", err)
	}
	if result.ReplyText != conversation.ClarifyingReply {
		t.Errorf("reply = %q, want clarifying reply", result.ReplyText)
	}
	if len(model.Prompts()) != 0 {
		t.Error("model must not be called for an empty utterance")
	}
}

func TestRunSkill(t *testing.T) {
	synth := tts.NewMock()
	o := newOrchestrator(t, asr.NewMock(""), llm.NewMock("Expecto Patronum, obviously."), synth, nil)

	t.Run("text only", func(t *testing.T) {
		result, err := o.RunSkill(context.Background(), SkillRequest{
			RoleID:  roles.DefaultRoleID,
			SkillID: "signature_quote",
		})
		if err != nil {
			t.Fatalf("RunSkill: %v", err)
		}
		if result.Text == "" {
			t.Error("empty skill text")
		}
		if result.Audio != nil {
			t.Error("audio must be absent without speak")
		}
	})

	t.Run("with speech", func(t *testing.T) {
		result, err := o.RunSkill(context.Background(), SkillRequest{
			RoleID:  roles.DefaultRoleID,
			SkillID: "signature_quote",
			Speak:   true,
		})
		if err != nil {
			t.Fatalf("RunSkill: %v", err)
		}
		if result.Audio == nil {
			t.Error("expected synthesized audio")
		}
	})

	t.Run("unknown skill", func(t *testing.T) {
		_, err := o.RunSkill(context.Background(), SkillRequest{
			RoleID:  roles.DefaultRoleID,
			SkillID: "time_travel",
		})
		if !errors.Is(err, roles.ErrSkillNotFound) {
			t.Fatalf("err = %v, want ErrSkillNotFound", err)
		}
	})

	t.Run("missing required input", func(t *testing.T) {
		_, err := o.RunSkill(context.Background(), SkillRequest{
			RoleID:  roles.DefaultRoleID,
			SkillID: "mentor_plan",
		})
		if !errors.Is(err, conversation.ErrMissingInput) {
			t.Fatalf("err = %v, want ErrMissingInput", err)
		}
	})
}

func TestConfigValidate(t *testing.T) {
	_, err := New(Config{})
	if err == nil {
		t.Fatal("empty config must not validate")
	}
}
