package conversation

import (
	"strings"

	"github.com/solavoice/go-sola/pkg/roles"
)

// formatHistory renders turns as "speaker: text" lines, naming the
// assistant with the role's display name.
func formatHistory(history []Turn, roleName string) string {
	var b strings.Builder
	for i, turn := range history {
		if i > 0 {
			b.WriteByte('\n')
		}
		speaker := roleName
		if turn.Role == RoleUser {
			speaker = "User"
		}
		b.WriteString(speaker)
		b.WriteString(": ")
		b.WriteString(strings.TrimSpace(turn.Content))
	}
	return b.String()
}

// personaSections renders the shared persona preamble for a role.
func personaSections(role roles.Role) []string {
	sections := []string{
		"Character: " + role.Name + " (" + role.DisplayAlias() + "), " + role.Tagline,
	}
	if role.Background != "" {
		sections = append(sections, "Background: "+role.Background)
	}
	if role.Style != "" {
		sections = append(sections, "Speaking style: "+role.Style)
	}
	return sections
}

// buildConversationPrompt assembles the prompt for a free conversation turn.
// The history must already be trimmed.
func buildConversationPrompt(role roles.Role, userText string, history []Turn) string {
	sections := personaSections(role)

	if len(role.KnowledgeFocus) > 0 {
		sections = append(sections, "Topics you love to share: "+strings.Join(role.KnowledgeFocus, ", "))
	}

	sections = append(sections,
		"Conversation rules:\n"+
			"1. Speak in the first person and keep the character's distinctive voice.\n"+
			"2. Keep answers to 2-4 sentences; line breaks or short lists are fine.\n"+
			"3. If the user refers to earlier events, respond in context; never break character.")

	if len(history) > 0 {
		sections = append(sections, "Recent conversation:\n"+formatHistory(history, role.Name))
	}

	sections = append(sections,
		"The user's latest transcribed speech: "+strings.TrimSpace(userText),
		"Give your answer, returning only the character's words.")

	return strings.Join(sections, "\n\n")
}

// buildSkillPrompt assembles the prompt for a skill invocation.
// The history must already be trimmed.
func buildSkillPrompt(role roles.Role, skill roles.Skill, userInput string, history []Turn) string {
	sections := personaSections(role)

	sections = append(sections,
		"Skill goal: "+skill.Description,
		"Execution notes: "+skill.PromptInstructions,
	)

	if skill.IncludeHistory && len(history) > 0 {
		sections = append(sections, "Relevant conversation so far:\n"+formatHistory(history, role.Name))
	}

	if input := strings.TrimSpace(userInput); input != "" {
		sections = append(sections, "Additional input from the user: "+input)
	}

	sections = append(sections,
		"Produce the content the skill asks for, staying in the character's voice.")

	return strings.Join(sections, "\n\n")
}
