package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/flsteven87/chatalyst-ai/pkg/apperrors"
	"github.com/flsteven87/chatalyst-ai/pkg/database"
	"github.com/flsteven87/chatalyst-ai/pkg/models"
)

// ExampleRepository persists curated question→SQL examples. The retrieval
// index is rebuilt from ListAll at startup, appended to after each Create,
// and rebuilt again after a Delete.
type ExampleRepository interface {
	Create(ctx context.Context, example *models.StoredExample) error
	ListAll(ctx context.Context) ([]models.StoredExample, error)
	Count(ctx context.Context) (int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type exampleRepository struct {
	db *database.DB
}

func NewExampleRepository(db *database.DB) ExampleRepository {
	return &exampleRepository{db: db}
}

var _ ExampleRepository = (*exampleRepository)(nil)

func (r *exampleRepository) Create(ctx context.Context, example *models.StoredExample) error {
	if example.ID == uuid.Nil {
		example.ID = uuid.New()
	}
	if example.CreatedAt.IsZero() {
		example.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO query_examples (id, question, sql, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.Exec(ctx, query,
		example.ID,
		example.Question,
		example.SQL,
		example.Embedding,
		example.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create query example: %w", err)
	}

	return nil
}

func (r *exampleRepository) ListAll(ctx context.Context) ([]models.StoredExample, error) {
	query := `
		SELECT id, question, sql, embedding, created_at
		FROM query_examples
		ORDER BY created_at`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list query examples: %w", err)
	}
	defer rows.Close()

	var examples []models.StoredExample
	for rows.Next() {
		var ex models.StoredExample
		if err := rows.Scan(&ex.ID, &ex.Question, &ex.SQL, &ex.Embedding, &ex.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan query example: %w", err)
		}
		examples = append(examples, ex)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating query examples: %w", err)
	}

	return examples, nil
}

func (r *exampleRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM query_examples`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count query examples: %w", err)
	}
	return count, nil
}

func (r *exampleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM query_examples WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete query example: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("query example %s: %w", id, apperrors.ErrNotFound)
	}
	return nil
}
