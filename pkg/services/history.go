package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/flsteven87/chatalyst-ai/pkg/models"
	"github.com/flsteven87/chatalyst-ai/pkg/repositories"
)

// HistoryService lists and prunes persisted ask records.
type HistoryService interface {
	// List returns history entries matching the filters, newest first, plus
	// the total count before the limit.
	List(ctx context.Context, filters models.QueryHistoryFilters) ([]*models.QueryHistoryEntry, int, error)

	// Prune deletes entries older than the retention window. Returns the
	// number of deleted rows. A non-positive retention is a no-op.
	Prune(ctx context.Context, retention time.Duration) (int64, error)
}

type historyService struct {
	historyRepo repositories.QueryHistoryRepository
	logger      *zap.Logger
}

// NewHistoryService creates the query history service.
func NewHistoryService(historyRepo repositories.QueryHistoryRepository, logger *zap.Logger) HistoryService {
	return &historyService{
		historyRepo: historyRepo,
		logger:      logger.Named("history"),
	}
}

var _ HistoryService = (*historyService)(nil)

func (s *historyService) List(ctx context.Context, filters models.QueryHistoryFilters) ([]*models.QueryHistoryEntry, int, error) {
	entries, total, err := s.historyRepo.List(ctx, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list query history: %w", err)
	}
	return entries, total, nil
}

func (s *historyService) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, nil
	}
	cutoff := time.Now().Add(-retention)
	deleted, err := s.historyRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune query history: %w", err)
	}
	if deleted > 0 {
		s.logger.Info("Pruned old query history",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff))
	}
	return deleted, nil
}
