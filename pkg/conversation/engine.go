package conversation

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/solavoice/go-sola/pkg/llm"
	"github.com/solavoice/go-sola/pkg/roles"
)

// ErrMissingInput is returned when a skill that requires user input is
// invoked without any.
var ErrMissingInput = errors.New("conversation: skill requires user input")

// ClarifyingReply is returned for an empty utterance instead of calling the
// model. Silence should prompt the user to try again, not fail the turn.
const ClarifyingReply = "I didn't quite catch that. Could you say it again?"

// Engine builds role-conditioned prompts and calls the language model.
// It keeps no mutable state between calls and is safe for concurrent use.
type Engine struct {
	client llm.Client
	logger *slog.Logger
}

// NewEngine creates an Engine on top of a language model client.
func NewEngine(client llm.Client, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		client: client,
		logger: logger.With("component", "conversation"),
	}
}

// GenerateReply produces the role's answer to a new user utterance given
// the trimmed history. An empty or whitespace utterance yields a fixed
// clarifying reply without touching the model.
func (e *Engine) GenerateReply(ctx context.Context, role roles.Role, history []Turn, utterance string) (string, error) {
	if strings.TrimSpace(utterance) == "" {
		e.logger.Debug("empty utterance, returning clarifying reply", "role", role.ID)
		return ClarifyingReply, nil
	}

	prompt := buildConversationPrompt(role, utterance, TrimHistory(history))

	reply, err := e.client.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}

	e.logger.Debug("generated reply",
		"role", role.ID,
		"history_turns", len(history),
		"reply_chars", len(reply),
	)

	return reply, nil
}

// InvokeSkill renders the skill's prompt template for the role and returns
// the raw model output. Skills requiring user input fail with
// ErrMissingInput when none is supplied.
func (e *Engine) InvokeSkill(ctx context.Context, role roles.Role, skillID, userInput string, history []Turn) (string, error) {
	skill, err := role.Skill(skillID)
	if err != nil {
		return "", err
	}

	if skill.RequiresUserInput && strings.TrimSpace(userInput) == "" {
		return "", ErrMissingInput
	}

	prompt := buildSkillPrompt(role, skill, userInput, TrimHistory(history))

	text, err := e.client.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}

	e.logger.Debug("invoked skill",
		"role", role.ID,
		"skill", skill.ID,
		"reply_chars", len(text),
	)

	return text, nil
}
