package retrieval

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/flsteven87/chatalyst-ai/pkg/models"
)

// Index is an in-process Searcher: cosine similarity over all stored example
// embeddings. Rebuilt from the example store at startup and appended to on
// ingestion. Fine for curated example sets; a remote vector service can
// replace it behind the Searcher interface without touching the pipeline.
type Index struct {
	mu       sync.RWMutex
	examples []models.StoredExample
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{}
}

// Load replaces the index contents. Examples without an embedding are kept
// out so Search never scores against a zero vector.
func (ix *Index) Load(examples []models.StoredExample) {
	kept := make([]models.StoredExample, 0, len(examples))
	for _, ex := range examples {
		if len(ex.Embedding) > 0 {
			kept = append(kept, ex)
		}
	}

	ix.mu.Lock()
	ix.examples = kept
	ix.mu.Unlock()
}

// Add appends one example to the index.
func (ix *Index) Add(example models.StoredExample) {
	if len(example.Embedding) == 0 {
		return
	}
	ix.mu.Lock()
	ix.examples = append(ix.examples, example)
	ix.mu.Unlock()
}

// Len reports how many examples are searchable.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.examples)
}

// Search returns the topK most similar examples by cosine similarity,
// descending. Examples with a non-positive similarity are excluded.
func (ix *Index) Search(_ context.Context, vector []float32, topK int) ([]Hit, error) {
	ix.mu.RLock()
	examples := ix.examples
	ix.mu.RUnlock()

	if len(examples) == 0 || len(vector) == 0 || topK <= 0 {
		return nil, nil
	}

	hits := make([]Hit, 0, len(examples))
	for _, ex := range examples {
		sim := cosineSimilarity(vector, ex.Embedding)
		if sim > 0 {
			hits = append(hits, Hit{Example: ex, Score: sim})
		}
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// cosineSimilarity computes the cosine similarity between two vectors.
// Mismatched lengths and zero vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}
