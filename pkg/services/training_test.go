package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/flsteven87/chatalyst-ai/pkg/apperrors"
	"github.com/flsteven87/chatalyst-ai/pkg/llm"
	"github.com/flsteven87/chatalyst-ai/pkg/models"
	"github.com/flsteven87/chatalyst-ai/pkg/retrieval"
)

// exampleStore is an in-memory ExampleRepository. Batch ingestion writes from
// worker goroutines, so access is locked.
type exampleStore struct {
	mu       sync.Mutex
	examples []models.StoredExample
	err      error
}

func (s *exampleStore) Create(ctx context.Context, example *models.StoredExample) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.examples = append(s.examples, *example)
	return nil
}

func (s *exampleStore) ListAll(ctx context.Context) ([]models.StoredExample, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.StoredExample, len(s.examples))
	copy(out, s.examples)
	return out, nil
}

func (s *exampleStore) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.examples), nil
}

func (s *exampleStore) Delete(ctx context.Context, id uuid.UUID) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, ex := range s.examples {
		if ex.ID == id {
			s.examples = append(s.examples[:i], s.examples[i+1:]...)
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func newTestTraining(mock *llm.MockLLMClient, store *exampleStore, index *retrieval.Index) TrainingService {
	pool := llm.NewWorkerPool(llm.WorkerPoolConfig{MaxConcurrent: 1}, zap.NewNop())
	return NewTrainingService(mock, "text-embedding-3-small", store, index, pool, zap.NewNop())
}

func TestAddExample_PersistsAndIndexes(t *testing.T) {
	mock := llm.NewMockLLMClient()
	mock.CreateEmbeddingFunc = func(ctx context.Context, input, model string) ([]float32, error) {
		assert.Equal(t, "text-embedding-3-small", model)
		return []float32{0.1, 0.9}, nil
	}
	store := &exampleStore{}
	index := retrieval.NewIndex()
	training := newTestTraining(mock, store, index)

	example, err := training.AddExample(context.Background(), ExamplePair{
		Question: "  how many orders shipped last week?  ",
		SQL:      "SELECT count(*) FROM orders",
	})

	require.NoError(t, err)
	assert.NotEqual(t, "", example.ID.String())
	assert.Equal(t, "how many orders shipped last week?", example.Question)
	assert.Equal(t, []float32{0.1, 0.9}, example.Embedding)
	require.Len(t, store.examples, 1)
	assert.Equal(t, 1, index.Len())
}

func TestAddExample_RejectsBlankPair(t *testing.T) {
	mock := llm.NewMockLLMClient()
	store := &exampleStore{}
	training := newTestTraining(mock, store, retrieval.NewIndex())

	_, err := training.AddExample(context.Background(), ExamplePair{Question: "", SQL: "SELECT 1"})
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = training.AddExample(context.Background(), ExamplePair{Question: "how many?", SQL: "  "})
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)

	assert.Equal(t, 0, mock.CreateEmbeddingCalls)
	assert.Empty(t, store.examples)
}

func TestAddExample_EmbeddingFailure(t *testing.T) {
	mock := llm.NewMockLLMClient()
	mock.CreateEmbeddingFunc = func(ctx context.Context, input, model string) ([]float32, error) {
		return nil, errors.New("embedding endpoint down")
	}
	store := &exampleStore{}
	index := retrieval.NewIndex()
	training := newTestTraining(mock, store, index)

	_, err := training.AddExample(context.Background(), ExamplePair{
		Question: "how many orders?",
		SQL:      "SELECT count(*) FROM orders",
	})

	require.Error(t, err)
	assert.Empty(t, store.examples)
	assert.Equal(t, 0, index.Len())
}

func TestAddExamples_SkipsFailedPairs(t *testing.T) {
	mock := llm.NewMockLLMClient()
	mock.CreateEmbeddingFunc = func(ctx context.Context, input, model string) ([]float32, error) {
		if strings.Contains(input, "broken") {
			return nil, errors.New("embedding endpoint down")
		}
		return []float32{1, 0}, nil
	}
	store := &exampleStore{}
	index := retrieval.NewIndex()
	training := newTestTraining(mock, store, index)

	stored, err := training.AddExamples(context.Background(), []ExamplePair{
		{Question: "how many orders?", SQL: "SELECT count(*) FROM orders"},
		{Question: "broken one", SQL: "SELECT 1"},
		{Question: "top customers?", SQL: "SELECT name FROM customers LIMIT 10"},
	})

	require.NoError(t, err)
	assert.Equal(t, 2, stored)
	assert.Len(t, store.examples, 2)
	assert.Equal(t, 2, index.Len())
}

func TestAddExamples_EmptyBatch(t *testing.T) {
	mock := llm.NewMockLLMClient()
	training := newTestTraining(mock, &exampleStore{}, retrieval.NewIndex())

	stored, err := training.AddExamples(context.Background(), nil)

	require.NoError(t, err)
	assert.Equal(t, 0, stored)
	assert.Equal(t, 0, mock.CreateEmbeddingCalls)
}

func TestRemoveExample_DeletesAndRebuildsIndex(t *testing.T) {
	keep := models.StoredExample{ID: uuid.New(), Question: "keep", SQL: "SELECT 1", Embedding: []float32{1, 0}}
	drop := models.StoredExample{ID: uuid.New(), Question: "drop", SQL: "SELECT 2", Embedding: []float32{0, 1}}
	store := &exampleStore{examples: []models.StoredExample{keep, drop}}
	index := retrieval.NewIndex()
	index.Load(store.examples)
	training := newTestTraining(llm.NewMockLLMClient(), store, index)

	err := training.RemoveExample(context.Background(), drop.ID)

	require.NoError(t, err)
	require.Len(t, store.examples, 1)
	assert.Equal(t, keep.ID, store.examples[0].ID)
	assert.Equal(t, 1, index.Len())
}

func TestRemoveExample_UnknownID(t *testing.T) {
	store := &exampleStore{}
	training := newTestTraining(llm.NewMockLLMClient(), store, retrieval.NewIndex())

	err := training.RemoveExample(context.Background(), uuid.New())

	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestReloadIndex_SkipsExamplesWithoutEmbedding(t *testing.T) {
	store := &exampleStore{examples: []models.StoredExample{
		{Question: "embedded", SQL: "SELECT 1", Embedding: []float32{1, 0}},
		{Question: "not embedded", SQL: "SELECT 2"},
	}}
	index := retrieval.NewIndex()
	training := newTestTraining(llm.NewMockLLMClient(), store, index)

	indexed, err := training.ReloadIndex(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, indexed)
	assert.Equal(t, 1, index.Len())
}

func TestReloadIndex_StoreFailure(t *testing.T) {
	store := &exampleStore{err: errors.New("db offline")}
	training := newTestTraining(llm.NewMockLLMClient(), store, retrieval.NewIndex())

	_, err := training.ReloadIndex(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list examples")
}
