package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/flsteven87/chatalyst-ai/pkg/apperrors"
	"github.com/flsteven87/chatalyst-ai/pkg/cache"
	"github.com/flsteven87/chatalyst-ai/pkg/catalog"
	"github.com/flsteven87/chatalyst-ai/pkg/config"
	"github.com/flsteven87/chatalyst-ai/pkg/datasource"
	"github.com/flsteven87/chatalyst-ai/pkg/logging"
	"github.com/flsteven87/chatalyst-ai/pkg/metrics"
	"github.com/flsteven87/chatalyst-ai/pkg/models"
	"github.com/flsteven87/chatalyst-ai/pkg/repositories"
	"github.com/flsteven87/chatalyst-ai/pkg/retrieval"
	sqlcheck "github.com/flsteven87/chatalyst-ai/pkg/sql"
)

// AskService is the pipeline surface exposed to transports (HTTP, MCP).
type AskService interface {
	Ask(ctx context.Context, question, sessionID string) (*models.AskResult, error)
	Schema(ctx context.Context) (*models.SchemaSnapshot, error)
	RefreshSchema(ctx context.Context) (*models.SchemaSnapshot, error)
}

// Pipeline answers natural-language questions against the target database.
// One Ask is one pass through rewrite, cache lookup, retrieval, generation,
// validation, and execution. Rejections and execution failures come back as
// structured outcomes inside AskResult, not as Go errors; only an empty
// question or a cold-start schema discovery failure aborts the request.
type Pipeline struct {
	catalog   *catalog.Catalog
	sessions  *SessionStore
	rewriter  *Rewriter
	retriever *retrieval.Retriever
	generator *Generator
	validator *sqlcheck.Validator
	executor  datasource.Executor
	store     cache.Store
	history   repositories.QueryHistoryRepository
	cfg       *config.PipelineConfig
	logger    *zap.Logger
}

var _ AskService = (*Pipeline)(nil)

// NewPipeline wires the question answering pipeline. The history repository
// may be nil; audit records are then skipped.
func NewPipeline(
	cat *catalog.Catalog,
	sessions *SessionStore,
	rewriter *Rewriter,
	retriever *retrieval.Retriever,
	generator *Generator,
	validator *sqlcheck.Validator,
	executor datasource.Executor,
	store cache.Store,
	history repositories.QueryHistoryRepository,
	cfg *config.PipelineConfig,
	logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		catalog:   cat,
		sessions:  sessions,
		rewriter:  rewriter,
		retriever: retriever,
		generator: generator,
		validator: validator,
		executor:  executor,
		store:     store,
		history:   history,
		cfg:       cfg,
		logger:    logger.Named("pipeline"),
	}
}

// Ask answers one question. sessionID groups follow-up questions into a
// conversation; pass "" for a one-off question with no history tracking.
func (p *Pipeline) Ask(ctx context.Context, question, sessionID string) (*models.AskResult, error) {
	started := time.Now()

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, apperrors.ErrEmptyQuestion
	}

	// Questions are prose; SQLi patterns in one mean someone is trying to
	// steer the generator. Logged here, and the validator screens whatever
	// comes back regardless.
	if hit := sqlcheck.CheckQuestion(question); hit != nil {
		p.logger.Warn("Question carries a SQL injection pattern",
			zap.String("fingerprint", hit.Fingerprint),
			zap.String("question", logging.TruncateQuestion(question)))
	}

	snapshot, err := p.catalog.Snapshot(ctx, false)
	if err != nil {
		return nil, err
	}

	var history []models.ConversationTurn
	if sessionID != "" {
		history = p.sessions.Recent(sessionID, p.cfg.RewriteWindow)
	}
	rewritten, resolved := p.rewriter.Rewrite(ctx, question, history)
	if !resolved {
		p.logger.Warn("context_unresolved: answering the question as asked",
			zap.String("session_id", sessionID),
			zap.String("question", logging.TruncateQuestion(question)))
	}

	result := &models.AskResult{
		Question:          question,
		ContextUnresolved: !resolved,
	}
	if rewritten != question {
		result.RewrittenQuestion = rewritten
	}

	key := cache.Key(rewritten, snapshot.Fingerprint)
	if entry, ok := p.store.Get(ctx, key); ok {
		metrics.RecordCacheHit()
		p.answerFromCache(result, entry)
		p.appendTurn(sessionID, result)
		p.finish(ctx, result, sessionID, started)
		return result, nil
	}
	metrics.RecordCacheMiss()

	examples := p.retriever.Retrieve(ctx, rewritten, p.cfg.RetrieveTopK)

	candidate, err := p.generator.Generate(ctx, rewritten, snapshot, examples)
	if err != nil {
		result.Outcome = models.AskOutcomeFailed
		result.ErrorMessage = err.Error()
		p.finish(ctx, result, sessionID, started)
		return result, nil
	}
	result.SQL = candidate.SQL
	result.Explanation = candidate.Explanation
	result.Confidence = candidate.Confidence

	verdict := p.validator.Validate(*candidate, snapshot)
	result.Warnings = verdict.WarningMessages()
	if !verdict.Accepted {
		result.Outcome = models.AskOutcomeRejected
		result.Violations = verdict.Violations
		for _, v := range verdict.Blocking() {
			metrics.RecordValidationRejection(v.Rule)
		}
		p.logger.Info("Candidate query rejected",
			zap.String("sql", logging.TruncateSQL(candidate.SQL)),
			zap.Int("violations", len(verdict.Violations)))
		p.finish(ctx, result, sessionID, started)
		return result, nil
	}

	execResult, err := p.execute(ctx, candidate.SQL)
	if err != nil {
		result.Outcome = models.AskOutcomeFailed
		result.ErrorMessage = executionErrorMessage(err)
		p.logger.Warn("Accepted query failed to execute",
			zap.String("sql", logging.TruncateSQL(candidate.SQL)),
			zap.Error(err))
		p.finish(ctx, result, sessionID, started)
		return result, nil
	}

	result.Outcome = models.AskOutcomeAnswered
	result.Columns = toResultColumns(execResult.Columns)
	result.Rows = execResult.Rows
	result.RowCount = execResult.RowCount

	p.store.Put(ctx, key, models.CacheEntry{
		Candidate: *candidate,
		Result: &models.QueryResult{
			Columns:  result.Columns,
			Rows:     result.Rows,
			RowCount: result.RowCount,
		},
		Warnings: result.Warnings,
	}, p.cfg.CacheTTL())

	p.appendTurn(sessionID, result)
	p.finish(ctx, result, sessionID, started)
	return result, nil
}

// Schema returns the current snapshot, discovering it on first use.
func (p *Pipeline) Schema(ctx context.Context) (*models.SchemaSnapshot, error) {
	return p.catalog.Snapshot(ctx, false)
}

// RefreshSchema forces schema rediscovery. When the refresh lands a different
// fingerprint, memoized answers against the old schema are unreachable by key
// construction anyway, but they are dropped eagerly to free capacity.
func (p *Pipeline) RefreshSchema(ctx context.Context) (*models.SchemaSnapshot, error) {
	prev := p.catalog.Current()
	snapshot, err := p.catalog.Snapshot(ctx, true)
	if err != nil {
		return nil, err
	}
	if prev != nil && prev.Fingerprint != snapshot.Fingerprint {
		p.logger.Info("Schema fingerprint changed, dropping memoized answers",
			zap.String("previous", prev.Fingerprint),
			zap.String("current", snapshot.Fingerprint))
		p.store.InvalidateAll(ctx)
	}
	return snapshot, nil
}

// executionErrorMessage prefers the database's own diagnosis when the query
// itself was at fault, so a failed outcome names the undefined column or bad
// cast instead of a generic wrapper.
func executionErrorMessage(err error) string {
	var execErr *apperrors.ExecutionError
	if errors.As(err, &execErr) && datasource.IsUserSQLError(execErr.Cause) {
		return fmt.Sprintf("%s: %s", datasource.UserSQLErrorCode(execErr.Cause), datasource.CleanSQLErrorMessage(execErr.Cause))
	}
	return err.Error()
}

// execute runs accepted SQL under the configured timeout and row cap,
// classifying failures into the pipeline's execution error types.
func (p *Pipeline) execute(ctx context.Context, sqlText string) (*datasource.QueryExecutionResult, error) {
	timeout := p.cfg.QueryTimeout()
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := time.Now()
	res, err := p.executor.ExecuteQuery(execCtx, sqlText, p.cfg.MaxRows)
	metrics.ObserveExecution(time.Since(started))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(execCtx.Err(), context.DeadlineExceeded) {
			return nil, &apperrors.ExecutionTimeout{SQL: sqlText, Timeout: timeout}
		}
		return nil, &apperrors.ExecutionError{SQL: sqlText, Cause: err}
	}
	return res, nil
}

// answerFromCache copies a memoized answer into the result.
func (p *Pipeline) answerFromCache(result *models.AskResult, entry *models.CacheEntry) {
	result.Outcome = models.AskOutcomeAnswered
	result.SQL = entry.Candidate.SQL
	result.Explanation = entry.Candidate.Explanation
	result.Confidence = entry.Candidate.Confidence
	result.Warnings = entry.Warnings
	result.FromCache = true
	if entry.Result != nil {
		result.Columns = entry.Result.Columns
		result.Rows = entry.Result.Rows
		result.RowCount = entry.Result.RowCount
	}
	p.logger.Debug("Answered from cache",
		zap.String("sql", logging.TruncateSQL(result.SQL)))
}

// appendTurn records an answered question in the session's history so later
// follow-ups can be rewritten against it.
func (p *Pipeline) appendTurn(sessionID string, result *models.AskResult) {
	if sessionID == "" {
		return
	}
	rewritten := result.RewrittenQuestion
	if rewritten == "" {
		rewritten = result.Question
	}
	p.sessions.Append(sessionID, models.ConversationTurn{
		Question:          result.Question,
		RewrittenQuestion: rewritten,
		GeneratedSQL:      result.SQL,
		Confidence:        result.Confidence,
		Timestamp:         time.Now(),
	})
}

// finish stamps the duration, records pipeline metrics, and persists the
// audit record. Called exactly once per Ask on every outcome path.
func (p *Pipeline) finish(ctx context.Context, result *models.AskResult, sessionID string, started time.Time) {
	elapsed := time.Since(started)
	result.DurationMs = int(elapsed.Milliseconds())
	metrics.ObserveQuestion(result.Outcome, elapsed)
	p.recordHistory(ctx, result, sessionID)
}

// recordHistory persists the audit record for one ask. Best effort: a failed
// write is logged, never surfaced.
func (p *Pipeline) recordHistory(ctx context.Context, result *models.AskResult, sessionID string) {
	if p.history == nil {
		return
	}

	entry := &models.QueryHistoryEntry{
		SessionID:   sessionID,
		Question:    result.Question,
		Confidence:  result.Confidence,
		Outcome:     result.Outcome,
		FromCache:   result.FromCache,
		ContextUsed: result.RewrittenQuestion != "",
	}
	if result.RewrittenQuestion != "" {
		entry.RewrittenQuestion = &result.RewrittenQuestion
	}
	if result.SQL != "" {
		entry.SQL = &result.SQL
	}
	if result.Explanation != "" {
		entry.Explanation = &result.Explanation
	}
	if result.ErrorMessage != "" {
		entry.ErrorMessage = &result.ErrorMessage
	}
	if result.Outcome == models.AskOutcomeAnswered {
		rowCount := result.RowCount
		entry.RowCount = &rowCount
	}
	durationMs := result.DurationMs
	entry.DurationMs = &durationMs

	if err := p.history.Create(ctx, entry); err != nil {
		p.logger.Warn("Failed to record query history",
			zap.String("session_id", sessionID),
			zap.Error(err))
	}
}

// toResultColumns converts executor column metadata to the result shape.
func toResultColumns(cols []datasource.ColumnInfo) []models.ResultColumn {
	out := make([]models.ResultColumn, len(cols))
	for i, c := range cols {
		out[i] = models.ResultColumn{Name: c.Name, Type: c.Type}
	}
	return out
}
