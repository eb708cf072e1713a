package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/solavoice/go-sola/pkg/llm"
	"github.com/solavoice/go-sola/pkg/roles"
)

func testRole(t *testing.T) roles.Role {
	t.Helper()
	role, err := roles.DefaultRegistry().Get("socrates")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return role
}

func TestTrimHistory(t *testing.T) {
	t.Run("keeps newest eight", func(t *testing.T) {
		var history []Turn
		for i := 0; i < 12; i++ {
			history = append(history, Turn{Role: RoleUser, Content: fmt.Sprintf("turn %d", i)})
		}
		trimmed := TrimHistory(history)
		if len(trimmed) != HistoryLimit {
			t.Fatalf("expected %d turns, got %d", HistoryLimit, len(trimmed))
		}
		if trimmed[0].Content != "turn 4" {
			t.Errorf("expected oldest kept turn to be 'turn 4', got %q", trimmed[0].Content)
		}
		if trimmed[len(trimmed)-1].Content != "turn 11" {
			t.Errorf("expected newest turn kept, got %q", trimmed[len(trimmed)-1].Content)
		}
	})

	t.Run("drops blank turns", func(t *testing.T) {
		history := []Turn{
			{Role: RoleUser, Content: "hello"},
			{Role: RoleAssistant, Content: "   "},
			{Role: RoleUser, Content: ""},
		}
		trimmed := TrimHistory(history)
		if len(trimmed) != 1 {
			t.Errorf("expected 1 turn, got %d", len(trimmed))
		}
	})

	t.Run("does not modify input", func(t *testing.T) {
		history := []Turn{{Role: RoleUser, Content: "a"}, {Role: RoleUser, Content: "b"}}
		_ = TrimHistory(history)
		if history[0].Content != "a" || history[1].Content != "b" {
			t.Error("input slice was modified")
		}
	})
}

func TestGenerateReply(t *testing.T) {
	role := testRole(t)

	t.Run("prompt carries persona and utterance", func(t *testing.T) {
		mock := llm.NewMock("an answer")
		engine := NewEngine(mock, nil)

		reply, err := engine.GenerateReply(context.Background(), role, nil, "what is virtue?")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if reply != "an answer" {
			t.Errorf("expected mock reply, got %q", reply)
		}

		prompt := mock.LastPrompt()
		for _, want := range []string{role.Name, role.Background, role.Style, "what is virtue?"} {
			if !strings.Contains(prompt, want) {
				t.Errorf("prompt missing %q", want)
			}
		}
	})

	t.Run("long history is trimmed in the prompt", func(t *testing.T) {
		mock := llm.NewMock("ok")
		engine := NewEngine(mock, nil)

		var history []Turn
		for i := 0; i < 20; i++ {
			history = append(history, Turn{Role: RoleUser, Content: fmt.Sprintf("marker-%02d", i)})
		}

		if _, err := engine.GenerateReply(context.Background(), role, history, "go on"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		prompt := mock.LastPrompt()
		if strings.Contains(prompt, "marker-11") {
			t.Error("prompt contains a turn older than the history limit")
		}
		if !strings.Contains(prompt, "marker-12") || !strings.Contains(prompt, "marker-19") {
			t.Error("prompt missing turns within the history limit")
		}
	})

	t.Run("empty utterance yields clarifying reply without a model call", func(t *testing.T) {
		mock := llm.NewMock("should not be called")
		engine := NewEngine(mock, nil)

		reply, err := engine.GenerateReply(context.Background(), role, nil, "   ")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if reply != ClarifyingReply {
			t.Errorf("expected clarifying reply, got %q", reply)
		}
		if len(mock.Prompts()) != 0 {
			t.Error("model must not be called for an empty utterance")
		}
	})

	t.Run("model failure propagates", func(t *testing.T) {
		engine := NewEngine(llm.MockWithError(llm.ErrUnavailable), nil)
		_, err := engine.GenerateReply(context.Background(), role, nil, "hello")
		if !errors.Is(err, llm.ErrUnavailable) {
			t.Errorf("expected ErrUnavailable, got %v", err)
		}
	})

	t.Run("empty model reply is not an error", func(t *testing.T) {
		engine := NewEngine(llm.NewMock(""), nil)
		reply, err := engine.GenerateReply(context.Background(), role, nil, "hello")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if reply != "" {
			t.Errorf("expected empty reply passthrough, got %q", reply)
		}
	})
}

func TestInvokeSkill(t *testing.T) {
	role := testRole(t)

	t.Run("renders skill prompt", func(t *testing.T) {
		mock := llm.NewMock("the quote")
		engine := NewEngine(mock, nil)

		text, err := engine.InvokeSkill(context.Background(), role, "signature_quote", "", nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if text != "the quote" {
			t.Errorf("expected mock reply, got %q", text)
		}

		skill, _ := role.Skill("signature_quote")
		prompt := mock.LastPrompt()
		if !strings.Contains(prompt, skill.Description) {
			t.Error("prompt missing skill description")
		}
		if !strings.Contains(prompt, skill.PromptInstructions) {
			t.Error("prompt missing skill instructions")
		}
	})

	t.Run("unknown skill", func(t *testing.T) {
		engine := NewEngine(llm.NewMock("x"), nil)
		_, err := engine.InvokeSkill(context.Background(), role, "no_such_skill", "", nil)
		if !errors.Is(err, roles.ErrSkillNotFound) {
			t.Errorf("expected ErrSkillNotFound, got %v", err)
		}
	})

	t.Run("required input missing", func(t *testing.T) {
		engine := NewEngine(llm.NewMock("x"), nil)
		for _, input := range []string{"", "   "} {
			_, err := engine.InvokeSkill(context.Background(), role, "mentor_plan", input, nil)
			if !errors.Is(err, ErrMissingInput) {
				t.Errorf("input %q: expected ErrMissingInput, got %v", input, err)
			}
		}
	})

	t.Run("optional input never triggers missing-input", func(t *testing.T) {
		engine := NewEngine(llm.NewMock("x"), nil)
		for _, skillID := range []string{"world_briefing", "signature_quote", "challenge_question"} {
			for _, input := range []string{"", "extra context"} {
				if _, err := engine.InvokeSkill(context.Background(), role, skillID, input, nil); err != nil {
					t.Errorf("skill %q input %q: unexpected error: %v", skillID, input, err)
				}
			}
		}
	})

	t.Run("history only included when the skill asks for it", func(t *testing.T) {
		mock := llm.NewMock("x")
		engine := NewEngine(mock, nil)
		history := []Turn{{Role: RoleUser, Content: "history-marker"}}

		// world_briefing ignores history.
		if _, err := engine.InvokeSkill(context.Background(), role, "world_briefing", "", history); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(mock.LastPrompt(), "history-marker") {
			t.Error("world_briefing prompt should not include history")
		}

		// signature_quote includes it.
		if _, err := engine.InvokeSkill(context.Background(), role, "signature_quote", "", history); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(mock.LastPrompt(), "history-marker") {
			t.Error("signature_quote prompt should include history")
		}
	})

	t.Run("concurrent invocations do not interfere", func(t *testing.T) {
		mock := &llm.Mock{
			GenerateFunc: func(ctx context.Context, prompt string) (string, error) {
				return prompt, nil // echo so each caller can verify its own prompt
			},
		}
		engine := NewEngine(mock, nil)

		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				input := fmt.Sprintf("goal-%d", n)
				out, err := engine.InvokeSkill(context.Background(), role, "mentor_plan", input, nil)
				if err != nil {
					t.Errorf("unexpected error: %v", err)
					return
				}
				if !strings.Contains(out, input) {
					t.Errorf("skill result lost its own input %q", input)
				}
			}(i)
		}
		wg.Wait()
	})
}
