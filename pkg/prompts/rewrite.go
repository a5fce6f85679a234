package prompts

import (
	"fmt"
	"strings"

	"github.com/flsteven87/chatalyst-ai/pkg/models"
)

// BuildRewritePrompt creates the prompt that rewrites a follow-up question
// into a self-contained one using recent conversation turns. History is
// rendered oldest first so the model reads it in order.
func BuildRewritePrompt(question string, history []models.ConversationTurn) string {
	var prompt strings.Builder

	prompt.WriteString("# Question Rewrite\n\n")
	prompt.WriteString("A user is asking questions about a database in a conversation. ")
	prompt.WriteString("Their latest question may rely on earlier turns (\"those customers\", \"the same period\", \"what about last month\").\n\n")

	prompt.WriteString("## Conversation So Far\n\n")
	for i, turn := range history {
		prompt.WriteString(fmt.Sprintf("### Turn %d\n", i+1))
		prompt.WriteString(fmt.Sprintf("Question: %s\n", turn.Question))
		if turn.GeneratedSQL != "" {
			prompt.WriteString("```sql\n")
			prompt.WriteString(strings.TrimSpace(turn.GeneratedSQL))
			prompt.WriteString("\n```\n")
		}
		prompt.WriteString("\n")
	}

	prompt.WriteString("## Latest Question\n\n")
	prompt.WriteString(question)
	prompt.WriteString("\n\n")

	prompt.WriteString("## Task\n\n")
	prompt.WriteString("Rewrite the latest question so it stands alone: resolve pronouns and references ")
	prompt.WriteString("to earlier turns into the concrete entities, filters and time ranges they refer to. ")
	prompt.WriteString("Do not answer the question and do not add conditions the user did not imply. ")
	prompt.WriteString("If the latest question is already self-contained, return it unchanged.\n\n")

	prompt.WriteString("## Output Format\n\n")
	prompt.WriteString("Respond in JSON with:\n")
	prompt.WriteString("- `question`: The self-contained question\n\n")

	prompt.WriteString("Example:\n")
	prompt.WriteString("```json\n")
	prompt.WriteString(`{
  "question": "Which customers in the EU region placed more than five orders in March 2025?"
}
`)
	prompt.WriteString("```\n\n")

	prompt.WriteString("Return ONLY the JSON, no additional text.\n")

	return prompt.String()
}

// BuildRewriteSystemMessage returns the system message for question rewriting.
func BuildRewriteSystemMessage() string {
	return `You rewrite follow-up questions about a database into self-contained questions. You preserve the user's intent exactly; you only make implicit references explicit.`
}
