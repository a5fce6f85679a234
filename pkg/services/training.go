package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flsteven87/chatalyst-ai/pkg/apperrors"
	"github.com/flsteven87/chatalyst-ai/pkg/llm"
	"github.com/flsteven87/chatalyst-ai/pkg/models"
	"github.com/flsteven87/chatalyst-ai/pkg/repositories"
	"github.com/flsteven87/chatalyst-ai/pkg/retrieval"
)

// ExamplePair is one question with its known-good SQL, as submitted for
// ingestion.
type ExamplePair struct {
	Question string `json:"question"`
	SQL      string `json:"sql"`
}

// TrainingService curates the question/SQL pairs used as retrieval examples.
// Each pair is embedded, persisted, and appended to the in-process vector
// index; removals rebuild the index from the store.
type TrainingService interface {
	// AddExample ingests a single pair.
	AddExample(ctx context.Context, pair ExamplePair) (*models.StoredExample, error)

	// AddExamples ingests a batch, embedding concurrently. Returns how many
	// pairs were stored; pairs that fail are logged and skipped.
	AddExamples(ctx context.Context, pairs []ExamplePair) (int, error)

	// RemoveExample deletes a stored example and rebuilds the index without
	// it. Returns apperrors.ErrNotFound if the id is unknown.
	RemoveExample(ctx context.Context, id uuid.UUID) error

	// ReloadIndex rebuilds the vector index from the store. Returns the
	// number of indexed examples.
	ReloadIndex(ctx context.Context) (int, error)
}

type trainingService struct {
	llmClient      llm.LLMClient
	embeddingModel string
	exampleRepo    repositories.ExampleRepository
	index          *retrieval.Index
	workerPool     *llm.WorkerPool
	logger         *zap.Logger
}

// NewTrainingService creates the example ingestion service.
func NewTrainingService(
	llmClient llm.LLMClient,
	embeddingModel string,
	exampleRepo repositories.ExampleRepository,
	index *retrieval.Index,
	workerPool *llm.WorkerPool,
	logger *zap.Logger,
) TrainingService {
	return &trainingService{
		llmClient:      llmClient,
		embeddingModel: embeddingModel,
		exampleRepo:    exampleRepo,
		index:          index,
		workerPool:     workerPool,
		logger:         logger.Named("training"),
	}
}

var _ TrainingService = (*trainingService)(nil)

func (s *trainingService) AddExample(ctx context.Context, pair ExamplePair) (*models.StoredExample, error) {
	example, err := s.ingest(ctx, pair)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Example ingested",
		zap.String("example_id", example.ID.String()),
		zap.Int("index_size", s.index.Len()))
	return example, nil
}

func (s *trainingService) AddExamples(ctx context.Context, pairs []ExamplePair) (int, error) {
	if len(pairs) == 0 {
		return 0, nil
	}

	tasks := make([]llm.Task[*models.StoredExample], len(pairs))
	for i, pair := range pairs {
		tasks[i] = llm.Task[*models.StoredExample]{
			ID: fmt.Sprintf("example-%d", i),
			Run: func(ctx context.Context) (*models.StoredExample, error) {
				return s.ingest(ctx, pair)
			},
		}
	}

	results := llm.Process(ctx, s.workerPool, tasks)

	stored := 0
	for _, res := range results {
		if res.Err != nil {
			s.logger.Warn("Example ingestion failed, skipping pair",
				zap.String("item", res.ID),
				zap.Error(res.Err))
			continue
		}
		stored++
	}

	s.logger.Info("Example batch ingested",
		zap.Int("submitted", len(pairs)),
		zap.Int("stored", stored),
		zap.Int("index_size", s.index.Len()))
	return stored, nil
}

func (s *trainingService) RemoveExample(ctx context.Context, id uuid.UUID) error {
	if err := s.exampleRepo.Delete(ctx, id); err != nil {
		return err
	}

	// The flat index has no tombstones, so removal is a rebuild.
	if _, err := s.ReloadIndex(ctx); err != nil {
		return fmt.Errorf("example deleted but index rebuild failed: %w", err)
	}

	s.logger.Info("Example removed",
		zap.String("example_id", id.String()),
		zap.Int("index_size", s.index.Len()))
	return nil
}

func (s *trainingService) ReloadIndex(ctx context.Context) (int, error) {
	examples, err := s.exampleRepo.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list examples: %w", err)
	}
	s.index.Load(examples)
	s.logger.Info("Vector index reloaded",
		zap.Int("stored", len(examples)),
		zap.Int("indexed", s.index.Len()))
	return s.index.Len(), nil
}

// ingest embeds, persists, and indexes one pair.
func (s *trainingService) ingest(ctx context.Context, pair ExamplePair) (*models.StoredExample, error) {
	question := strings.TrimSpace(pair.Question)
	sqlText := strings.TrimSpace(pair.SQL)
	if question == "" || sqlText == "" {
		return nil, fmt.Errorf("%w: example needs both question and sql", apperrors.ErrInvalidInput)
	}

	embedding, err := s.llmClient.CreateEmbedding(ctx, question, s.embeddingModel)
	if err != nil {
		return nil, fmt.Errorf("failed to embed example question: %w", err)
	}

	example := &models.StoredExample{
		ID:        uuid.New(),
		Question:  question,
		SQL:       sqlText,
		Embedding: embedding,
		CreatedAt: time.Now(),
	}
	if err := s.exampleRepo.Create(ctx, example); err != nil {
		return nil, fmt.Errorf("failed to store example: %w", err)
	}

	s.index.Add(*example)
	return example, nil
}
