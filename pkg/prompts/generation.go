package prompts

import (
	"fmt"
	"strings"

	"github.com/flsteven87/chatalyst-ai/pkg/models"
)

// BuildGenerationPrompt creates the prompt asking the LLM for a single
// PostgreSQL SELECT statement answering the question. It includes the schema
// summary, retrieved similar examples, and the JSON response contract.
func BuildGenerationPrompt(question, schemaSummary string, examples []models.RetrievedExample) string {
	var prompt strings.Builder

	prompt.WriteString("# SQL Generation Request\n\n")
	prompt.WriteString("Write one PostgreSQL SELECT statement that answers the question below.\n\n")

	prompt.WriteString("## Database Schema\n\n")
	prompt.WriteString(strings.TrimSpace(schemaSummary))
	prompt.WriteString("\n\n")

	if len(examples) > 0 {
		prompt.WriteString("## Similar Answered Questions\n\n")
		prompt.WriteString("Queries that answered related questions against this schema:\n\n")
		for i, ex := range examples {
			prompt.WriteString(fmt.Sprintf("### Example %d\n", i+1))
			prompt.WriteString(fmt.Sprintf("Question: %s\n", ex.Question))
			prompt.WriteString("```sql\n")
			prompt.WriteString(strings.TrimSpace(ex.SQL))
			prompt.WriteString("\n```\n\n")
		}
	}

	prompt.WriteString("## Question\n\n")
	prompt.WriteString(question)
	prompt.WriteString("\n\n")

	writeGenerationRequirements(&prompt)
	writeGenerationOutputContract(&prompt)

	return prompt.String()
}

// BuildStrictRetryPrompt creates the retry prompt used after the previous
// reply could not be parsed. It shows the rejected reply and restates the
// contract more strictly.
func BuildStrictRetryPrompt(question, schemaSummary string, examples []models.RetrievedExample, rawReply string) string {
	var prompt strings.Builder

	prompt.WriteString("# SQL Generation Request (Retry)\n\n")
	prompt.WriteString("Your previous reply could not be parsed. It was:\n\n")
	prompt.WriteString("```\n")
	prompt.WriteString(excerpt(rawReply, 500))
	prompt.WriteString("\n```\n\n")
	prompt.WriteString("Reply again, as a single JSON object and nothing else: ")
	prompt.WriteString("no markdown fences, no commentary, no text before or after the JSON.\n\n")

	prompt.WriteString("## Database Schema\n\n")
	prompt.WriteString(strings.TrimSpace(schemaSummary))
	prompt.WriteString("\n\n")

	if len(examples) > 0 {
		prompt.WriteString("## Similar Answered Questions\n\n")
		for i, ex := range examples {
			prompt.WriteString(fmt.Sprintf("### Example %d\n", i+1))
			prompt.WriteString(fmt.Sprintf("Question: %s\n", ex.Question))
			prompt.WriteString("```sql\n")
			prompt.WriteString(strings.TrimSpace(ex.SQL))
			prompt.WriteString("\n```\n\n")
		}
	}

	prompt.WriteString("## Question\n\n")
	prompt.WriteString(question)
	prompt.WriteString("\n\n")

	writeGenerationRequirements(&prompt)
	writeGenerationOutputContract(&prompt)

	return prompt.String()
}

// BuildRefinementPrompt creates the prompt asking the LLM to improve its own
// low-confidence candidate. The prior SQL and its self-reported confidence
// are included so the model can revise rather than start over.
func BuildRefinementPrompt(question, schemaSummary string, prior *models.CandidateQuery) string {
	var prompt strings.Builder

	prompt.WriteString("# SQL Refinement Request\n\n")
	prompt.WriteString("You previously generated SQL for the question below but reported low confidence. ")
	prompt.WriteString("Review your query against the schema and produce an improved version, or the same query with higher confidence if it is already correct.\n\n")

	prompt.WriteString("## Database Schema\n\n")
	prompt.WriteString(strings.TrimSpace(schemaSummary))
	prompt.WriteString("\n\n")

	prompt.WriteString("## Question\n\n")
	prompt.WriteString(question)
	prompt.WriteString("\n\n")

	prompt.WriteString("## Previous Attempt\n\n")
	prompt.WriteString("```sql\n")
	prompt.WriteString(strings.TrimSpace(prior.SQL))
	prompt.WriteString("\n```\n")
	if prior.Explanation != "" {
		prompt.WriteString(fmt.Sprintf("Explanation: %s\n", prior.Explanation))
	}
	prompt.WriteString(fmt.Sprintf("Reported confidence: %.2f\n\n", prior.Confidence))

	prompt.WriteString("## What to Check\n\n")
	prompt.WriteString("- Does every table and column exist in the schema above?\n")
	prompt.WriteString("- Do the joins follow the foreign keys shown?\n")
	prompt.WriteString("- Does the query actually answer the question (grouping, filters, ordering)?\n\n")

	writeGenerationRequirements(&prompt)
	writeGenerationOutputContract(&prompt)

	return prompt.String()
}

// BuildGenerationSystemMessage returns the system message for SQL generation.
func BuildGenerationSystemMessage() string {
	return `You are a PostgreSQL analyst. You translate business questions into correct, read-only SELECT statements using only the tables, columns and relationships provided in the schema. You never modify data and you never guess at names that are not in the schema.`
}

func writeGenerationRequirements(prompt *strings.Builder) {
	prompt.WriteString("## Requirements\n\n")
	prompt.WriteString("- Exactly one SELECT statement; WITH ... SELECT is allowed, nothing else\n")
	prompt.WriteString("- No INSERT, UPDATE, DELETE, DDL, SELECT INTO or FOR UPDATE\n")
	prompt.WriteString("- Use only tables and columns that appear in the schema; never invent names\n")
	prompt.WriteString("- Join tables only along the foreign keys listed in the schema\n")
	prompt.WriteString("- Qualify columns with table aliases when more than one table is involved\n")
	prompt.WriteString("- Prefer an explicit column list over SELECT *\n\n")
}

func writeGenerationOutputContract(prompt *strings.Builder) {
	prompt.WriteString("## Output Format\n\n")
	prompt.WriteString("Respond in JSON with:\n")
	prompt.WriteString("- `sql`: The SELECT statement\n")
	prompt.WriteString("- `explanation`: One or two sentences describing what the query returns\n")
	prompt.WriteString("- `confidence`: 0.0-1.0 (how confident you are that the SQL answers the question)\n\n")

	prompt.WriteString("Example:\n")
	prompt.WriteString("```json\n")
	prompt.WriteString(`{
  "sql": "SELECT c.name, SUM(o.total_amount) AS revenue FROM orders o JOIN customers c ON o.customer_id = c.id GROUP BY c.name ORDER BY revenue DESC LIMIT 10",
  "explanation": "Top ten customers by total order revenue.",
  "confidence": 0.9
}
`)
	prompt.WriteString("```\n\n")

	prompt.WriteString("Return ONLY the JSON, no additional text.\n")
}

// excerpt truncates s for inclusion in a prompt or log line.
func excerpt(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
