package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/flsteven87/chatalyst-ai/pkg/database"
	"github.com/flsteven87/chatalyst-ai/pkg/models"
)

// QueryHistoryRepository persists the audit trail of asked questions.
type QueryHistoryRepository interface {
	Create(ctx context.Context, entry *models.QueryHistoryEntry) error
	List(ctx context.Context, filters models.QueryHistoryFilters) ([]*models.QueryHistoryEntry, int, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type queryHistoryRepository struct {
	db *database.DB
}

func NewQueryHistoryRepository(db *database.DB) QueryHistoryRepository {
	return &queryHistoryRepository{db: db}
}

var _ QueryHistoryRepository = (*queryHistoryRepository)(nil)

func (r *queryHistoryRepository) Create(ctx context.Context, entry *models.QueryHistoryEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO query_history (
			id, session_id, question, rewritten_question,
			sql, explanation, confidence,
			outcome, error_message,
			row_count, duration_ms, from_cache, context_used,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.db.Exec(ctx, query,
		entry.ID,
		entry.SessionID,
		entry.Question,
		entry.RewrittenQuestion,
		entry.SQL,
		entry.Explanation,
		entry.Confidence,
		entry.Outcome,
		entry.ErrorMessage,
		entry.RowCount,
		entry.DurationMs,
		entry.FromCache,
		entry.ContextUsed,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create query history entry: %w", err)
	}

	return nil
}

func (r *queryHistoryRepository) List(ctx context.Context, filters models.QueryHistoryFilters) ([]*models.QueryHistoryEntry, int, error) {
	limit := filters.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	conditions := []string{"TRUE"}
	args := []any{}
	argIdx := 1

	if filters.SessionID != "" {
		conditions = append(conditions, fmt.Sprintf("session_id = $%d", argIdx))
		args = append(args, filters.SessionID)
		argIdx++
	}

	if filters.Outcome != "" {
		conditions = append(conditions, fmt.Sprintf("outcome = $%d", argIdx))
		args = append(args, filters.Outcome)
		argIdx++
	}

	if filters.Since != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argIdx))
		args = append(args, *filters.Since)
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM query_history WHERE %s`, where)
	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count query history entries: %w", err)
	}

	dataQuery := fmt.Sprintf(`
		SELECT id, session_id, question, rewritten_question,
		       sql, explanation, confidence,
		       outcome, error_message,
		       row_count, duration_ms, from_cache, context_used,
		       created_at
		FROM query_history
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d`, where, argIdx)

	args = append(args, limit)

	rows, err := r.db.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list query history entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.QueryHistoryEntry
	for rows.Next() {
		var entry models.QueryHistoryEntry
		err := rows.Scan(
			&entry.ID,
			&entry.SessionID,
			&entry.Question,
			&entry.RewrittenQuestion,
			&entry.SQL,
			&entry.Explanation,
			&entry.Confidence,
			&entry.Outcome,
			&entry.ErrorMessage,
			&entry.RowCount,
			&entry.DurationMs,
			&entry.FromCache,
			&entry.ContextUsed,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan query history entry: %w", err)
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating query history entries: %w", err)
	}

	return entries, total, nil
}

func (r *queryHistoryRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM query_history WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old query history entries: %w", err)
	}
	return tag.RowsAffected(), nil
}
