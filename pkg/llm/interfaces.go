// Package llm talks to OpenAI-compatible model endpoints: chat completions
// for SQL generation and question rewriting, embeddings for example
// retrieval.
package llm

import (
	"context"
)

// ChatCompleter is the generation side of the provider API.
type ChatCompleter interface {
	// GenerateResponse generates a chat completion response.
	GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (*GenerateResponseResult, error)
}

// Embedder is the embedding side of the provider API.
type Embedder interface {
	// CreateEmbedding generates an embedding vector for the input text.
	CreateEmbedding(ctx context.Context, input string, model string) ([]float32, error)

	// CreateEmbeddings generates embeddings for multiple inputs in one call.
	CreateEmbeddings(ctx context.Context, inputs []string, model string) ([][]float32, error)
}

// LLMClient is the full provider surface. Constructors take this when a
// component needs both sides; consumers needing one capability declare their
// own narrower interface.
type LLMClient interface {
	ChatCompleter
	Embedder

	// GetModel returns the configured model name.
	GetModel() string
}

var _ LLMClient = (*Client)(nil)
