package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/flsteven87/chatalyst-ai/pkg/llm"
	"github.com/flsteven87/chatalyst-ai/pkg/models"
)

func historyOf(questions ...string) []models.ConversationTurn {
	turns := make([]models.ConversationTurn, len(questions))
	for i, q := range questions {
		turns[i] = models.ConversationTurn{
			Question:          q,
			RewrittenQuestion: q,
			GeneratedSQL:      "SELECT count(*) FROM orders",
		}
	}
	return turns
}

func TestRewrite_EmptyHistorySkipsLLM(t *testing.T) {
	mock := llm.NewMockLLMClient()
	rewriter := NewRewriter(mock, zap.NewNop())

	rewritten, resolved := rewriter.Rewrite(context.Background(), "how many orders last week?", nil)

	assert.Equal(t, "how many orders last week?", rewritten)
	assert.True(t, resolved)
	assert.Equal(t, 0, mock.GenerateResponseCalls)
}

func TestRewrite_ResolvesFollowUp(t *testing.T) {
	mock := llm.NewMockLLMClient()
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, systemMsg string, temperature float64) (*llm.GenerateResponseResult, error) {
		assert.Contains(t, prompt, "how many orders were placed?")
		assert.Contains(t, prompt, "what about last month?")
		return &llm.GenerateResponseResult{
			Content: `{"question": "how many orders were placed last month?"}`,
		}, nil
	}
	rewriter := NewRewriter(mock, zap.NewNop())

	rewritten, resolved := rewriter.Rewrite(context.Background(),
		"what about last month?", historyOf("how many orders were placed?"))

	assert.True(t, resolved)
	assert.Equal(t, "how many orders were placed last month?", rewritten)
	assert.Equal(t, 1, mock.GenerateResponseCalls)
}

func TestRewrite_LLMFailureKeepsOriginal(t *testing.T) {
	mock := llm.NewMockLLMClient()
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, systemMsg string, temperature float64) (*llm.GenerateResponseResult, error) {
		return nil, errors.New("model unavailable")
	}
	rewriter := NewRewriter(mock, zap.NewNop())

	rewritten, resolved := rewriter.Rewrite(context.Background(),
		"and for them?", historyOf("who are our top customers?"))

	assert.False(t, resolved)
	assert.Equal(t, "and for them?", rewritten)
}

func TestRewrite_UnparseableReplyKeepsOriginal(t *testing.T) {
	mock := llm.NewMockLLMClient()
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, systemMsg string, temperature float64) (*llm.GenerateResponseResult, error) {
		return &llm.GenerateResponseResult{Content: "Sure! The question is about last month."}, nil
	}
	rewriter := NewRewriter(mock, zap.NewNop())

	rewritten, resolved := rewriter.Rewrite(context.Background(),
		"what about last month?", historyOf("how many orders were placed?"))

	assert.False(t, resolved)
	assert.Equal(t, "what about last month?", rewritten)
}

func TestRewrite_EmptyReplyKeepsOriginal(t *testing.T) {
	mock := llm.NewMockLLMClient()
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, systemMsg string, temperature float64) (*llm.GenerateResponseResult, error) {
		return &llm.GenerateResponseResult{Content: `{"question": "   "}`}, nil
	}
	rewriter := NewRewriter(mock, zap.NewNop())

	rewritten, resolved := rewriter.Rewrite(context.Background(),
		"what about last month?", historyOf("how many orders were placed?"))

	assert.False(t, resolved)
	assert.Equal(t, "what about last month?", rewritten)
}
