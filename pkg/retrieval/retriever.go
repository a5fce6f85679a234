// Package retrieval finds stored question→SQL examples similar to an incoming
// question, for few-shot prompting. Retrieval is an optimization: every
// failure path degrades to "no examples", never to a failed question.
package retrieval

import (
	"context"

	"go.uber.org/zap"

	"github.com/flsteven87/chatalyst-ai/pkg/models"
)

// Embedder turns text into an embedding vector. llm.Client satisfies this.
type Embedder interface {
	CreateEmbedding(ctx context.Context, input string, model string) ([]float32, error)
}

// Hit is one similarity match from a Searcher.
type Hit struct {
	Example models.StoredExample
	Score   float64
}

// Searcher finds the nearest stored examples to a query vector.
type Searcher interface {
	Search(ctx context.Context, vector []float32, topK int) ([]Hit, error)
}

// Retriever embeds the question and looks up similar stored examples.
type Retriever struct {
	embedder Embedder
	searcher Searcher
	model    string
	logger   *zap.Logger
}

// NewRetriever creates a retriever. model names the embedding model passed to
// the embedder; empty uses the embedder's default.
func NewRetriever(embedder Embedder, searcher Searcher, model string, logger *zap.Logger) *Retriever {
	return &Retriever{
		embedder: embedder,
		searcher: searcher,
		model:    model,
		logger:   logger.Named("retrieval"),
	}
}

// Retrieve returns up to topK examples ordered by descending similarity.
// It never returns an error: an unconfigured embedder, an embedding failure,
// or a search failure all yield an empty result and a log line.
func (r *Retriever) Retrieve(ctx context.Context, question string, topK int) []models.RetrievedExample {
	if topK <= 0 || r.embedder == nil || r.searcher == nil {
		return nil
	}

	vector, err := r.embedder.CreateEmbedding(ctx, question, r.model)
	if err != nil {
		r.logger.Warn("Example retrieval skipped: embedding failed", zap.Error(err))
		return nil
	}

	hits, err := r.searcher.Search(ctx, vector, topK)
	if err != nil {
		r.logger.Warn("Example retrieval skipped: search failed", zap.Error(err))
		return nil
	}
	if len(hits) == 0 {
		return nil
	}

	examples := make([]models.RetrievedExample, 0, len(hits))
	for _, hit := range hits {
		examples = append(examples, models.RetrievedExample{
			Question: hit.Example.Question,
			SQL:      hit.Example.SQL,
			Score:    hit.Score,
		})
	}

	r.logger.Debug("Retrieved similar examples",
		zap.Int("count", len(examples)),
		zap.Float64("top_score", examples[0].Score))
	return examples
}
