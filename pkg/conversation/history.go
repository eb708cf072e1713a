// Package conversation builds role-conditioned prompts and drives the
// language model for both free conversation turns and ad-hoc skill
// invocations. The engine holds no per-session state: callers resend the
// trimmed history with every request, and that history is the sole source
// of prior context.
package conversation

import "strings"

// HistoryLimit caps the number of turns considered when building a prompt.
// Older turns are evicted first.
const HistoryLimit = 8

// TurnRole tags who produced a conversation turn.
type TurnRole string

const (
	RoleUser      TurnRole = "user"
	RoleAssistant TurnRole = "assistant"
)

// Turn is one utterance in a conversation.
type Turn struct {
	Role    TurnRole `json:"role"`
	Content string   `json:"content"`
}

// Valid reports whether the turn carries a known role tag.
func (t Turn) Valid() bool {
	return t.Role == RoleUser || t.Role == RoleAssistant
}

// TrimHistory keeps the most recent HistoryLimit turns, dropping blank
// entries. The input slice is never modified.
func TrimHistory(history []Turn) []Turn {
	if len(history) > HistoryLimit {
		history = history[len(history)-HistoryLimit:]
	}
	out := make([]Turn, 0, len(history))
	for _, t := range history {
		if strings.TrimSpace(t.Content) == "" {
			continue
		}
		out = append(out, t)
	}
	return out
}
