package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/flsteven87/chatalyst-ai/pkg/llm"
	"github.com/flsteven87/chatalyst-ai/pkg/logging"
	"github.com/flsteven87/chatalyst-ai/pkg/models"
	"github.com/flsteven87/chatalyst-ai/pkg/prompts"
)

// rewriteTemperature keeps the rewrite call near-deterministic.
const rewriteTemperature = 0.2

// Rewriter folds conversation history into a self-contained question so that
// follow-ups like "only for last month" can be answered without the model
// seeing the whole transcript.
type Rewriter struct {
	llmClient llm.LLMClient
	logger    *zap.Logger
}

// NewRewriter creates a context rewriter.
func NewRewriter(llmClient llm.LLMClient, logger *zap.Logger) *Rewriter {
	return &Rewriter{
		llmClient: llmClient,
		logger:    logger.Named("rewriter"),
	}
}

// rewriteResponse is the JSON contract for the rewrite call.
type rewriteResponse struct {
	Question string `json:"question"`
}

// Rewrite returns a self-contained version of question given the session's
// recent turns. With no history the question is already self-contained and is
// returned as-is with resolved=true. On any LLM or parse failure the original
// question is returned with resolved=false; the pipeline proceeds with it and
// flags the answer as context-unresolved. History is never mutated.
func (r *Rewriter) Rewrite(ctx context.Context, question string, history []models.ConversationTurn) (string, bool) {
	if len(history) == 0 {
		return question, true
	}

	prompt := prompts.BuildRewritePrompt(question, history)
	result, err := r.llmClient.GenerateResponse(ctx, prompt, prompts.BuildRewriteSystemMessage(), rewriteTemperature)
	if err != nil {
		r.logger.Warn("Context rewrite failed, using question as asked",
			zap.String("question", logging.TruncateQuestion(question)),
			zap.Error(err))
		return question, false
	}

	parsed, err := llm.ParseJSONResponse[rewriteResponse](result.Content)
	if err != nil {
		r.logger.Warn("Context rewrite reply unparseable, using question as asked",
			zap.String("question", logging.TruncateQuestion(question)),
			zap.Error(err))
		return question, false
	}

	rewritten := strings.TrimSpace(parsed.Question)
	if rewritten == "" {
		r.logger.Warn("Context rewrite returned empty question, using question as asked",
			zap.String("question", logging.TruncateQuestion(question)))
		return question, false
	}

	if rewritten != question {
		r.logger.Debug("Question rewritten with conversation context",
			zap.String("original", logging.TruncateQuestion(question)),
			zap.String("rewritten", logging.TruncateQuestion(rewritten)),
			zap.Int("history_turns", len(history)))
	}
	return rewritten, true
}
