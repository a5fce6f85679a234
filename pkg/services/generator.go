package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/flsteven87/chatalyst-ai/pkg/apperrors"
	"github.com/flsteven87/chatalyst-ai/pkg/catalog"
	"github.com/flsteven87/chatalyst-ai/pkg/jsonutil"
	"github.com/flsteven87/chatalyst-ai/pkg/llm"
	"github.com/flsteven87/chatalyst-ai/pkg/logging"
	"github.com/flsteven87/chatalyst-ai/pkg/metrics"
	"github.com/flsteven87/chatalyst-ai/pkg/models"
	"github.com/flsteven87/chatalyst-ai/pkg/prompts"
	"github.com/flsteven87/chatalyst-ai/pkg/retry"
)

// generationState names the steps of the bounded parse-retry loop.
type generationState string

const (
	stateGenerating  generationState = "generating"
	stateParseFailed generationState = "parse_failed"
	stateRetrying    generationState = "retrying"
	stateGenerated   generationState = "generated"
	stateFailed      generationState = "failed"
)

// generationResponse is the JSON contract the model must return. Explanation
// and confidence decode leniently because smaller models quote numbers or put
// numbers where prose belongs.
type generationResponse struct {
	SQL         string          `json:"sql"`
	Explanation json.RawMessage `json:"explanation"`
	Confidence  json.RawMessage `json:"confidence"`
}

// GeneratorConfig holds the generator's tuning knobs.
type GeneratorConfig struct {
	// Temperature for the generation calls.
	Temperature float64
	// ConfidenceThreshold below which the candidate is sent back for refinement.
	ConfidenceThreshold float64
	// MaxRefinementRounds bounds the refinement loop. Zero disables it.
	MaxRefinementRounds int
	// SchemaSummaryBudget caps the schema rendering in the prompt, in
	// characters. Zero means no cap.
	SchemaSummaryBudget int
}

// Generator turns a self-contained question into a candidate SQL query via
// the language model. Replies must follow a strict JSON contract; a reply
// that does not parse gets exactly one retry with a stricter prompt before
// the failure is surfaced. Candidates are never trusted: the caller validates
// them before execution.
type Generator struct {
	llmClient llm.LLMClient
	breaker   *llm.CircuitBreaker
	retryCfg  *retry.Config
	cfg       GeneratorConfig
	logger    *zap.Logger
}

// NewGenerator creates a query generator. The circuit breaker is optional;
// pass nil to call the model unconditionally.
func NewGenerator(llmClient llm.LLMClient, breaker *llm.CircuitBreaker, cfg GeneratorConfig, logger *zap.Logger) *Generator {
	return &Generator{
		llmClient: llmClient,
		breaker:   breaker,
		retryCfg: &retry.Config{
			MaxRetries:   1,
			InitialDelay: 500 * time.Millisecond,
			MaxDelay:     2 * time.Second,
			Multiplier:   2.0,
			JitterFactor: 0.1,
		},
		cfg:    cfg,
		logger: logger.Named("generator"),
	}
}

// Generate produces a candidate query for the question against the given
// schema snapshot, optionally seeded with retrieved examples.
//
// The parse-retry loop is explicit and bounded: generating, then on an
// unparseable reply parse_failed and retrying with a stricter prompt, ending
// in generated or failed. When the parsed confidence sits below the
// configured threshold, the model is asked to refine its own SQL at most
// MaxRefinementRounds times and the highest-confidence candidate wins.
func (g *Generator) Generate(ctx context.Context, question string, snapshot *models.SchemaSnapshot, examples []models.RetrievedExample) (*models.CandidateQuery, error) {
	summary := catalog.Summarize(snapshot, question, examples, g.cfg.SchemaSummaryBudget)
	systemMsg := prompts.BuildGenerationSystemMessage()

	state := stateGenerating
	g.logger.Debug("Generating candidate query",
		zap.String("state", string(state)),
		zap.String("question", logging.TruncateQuestion(question)),
		zap.Int("example_count", len(examples)))

	candidate, rawReply, err := g.attempt(ctx, prompts.BuildGenerationPrompt(question, summary, examples), systemMsg)
	if err != nil {
		var parseErr *apperrors.GenerationParseError
		if !errors.As(err, &parseErr) {
			state = stateFailed
			g.logger.Error("Generation failed",
				zap.String("state", string(state)),
				zap.Error(err))
			return nil, err
		}

		state = stateParseFailed
		g.logger.Warn("Candidate reply did not match the output contract",
			zap.String("state", string(state)),
			zap.String("detail", parseErr.Detail))

		state = stateRetrying
		metrics.RecordLLMRetry()
		g.logger.Debug("Retrying generation with stricter prompt",
			zap.String("state", string(state)))

		candidate, _, err = g.attempt(ctx, prompts.BuildStrictRetryPrompt(question, summary, examples, rawReply), systemMsg)
		if err != nil {
			state = stateFailed
			g.logger.Error("Generation failed after strict retry",
				zap.String("state", string(state)),
				zap.Error(err))
			return nil, err
		}
	}

	state = stateGenerated
	g.logger.Debug("Candidate query generated",
		zap.String("state", string(state)),
		zap.String("sql", logging.TruncateSQL(candidate.SQL)),
		zap.Float64("confidence", candidate.Confidence))

	return g.refine(ctx, question, summary, candidate), nil
}

// refine asks the model to improve its own low-confidence SQL, keeping the
// best candidate seen. Refinement failures are not fatal; the best candidate
// so far is returned.
func (g *Generator) refine(ctx context.Context, question, summary string, best *models.CandidateQuery) *models.CandidateQuery {
	for round := 1; round <= g.cfg.MaxRefinementRounds && best.Confidence < g.cfg.ConfidenceThreshold; round++ {
		metrics.RecordRefinementRound()
		g.logger.Debug("Refining low-confidence candidate",
			zap.Int("round", round),
			zap.Float64("confidence", best.Confidence),
			zap.Float64("threshold", g.cfg.ConfidenceThreshold))

		refined, _, err := g.attempt(ctx, prompts.BuildRefinementPrompt(question, summary, best), prompts.BuildGenerationSystemMessage())
		if err != nil {
			g.logger.Warn("Refinement round failed, keeping best candidate",
				zap.Int("round", round),
				zap.Error(err))
			break
		}
		if refined.Confidence > best.Confidence {
			best = refined
		}
	}
	return best
}

// attempt makes one guarded LLM call and parses the reply into a candidate.
// The raw reply text is returned alongside so a stricter retry can quote it.
func (g *Generator) attempt(ctx context.Context, prompt, systemMsg string) (*models.CandidateQuery, string, error) {
	if g.breaker != nil {
		if ok, err := g.breaker.Allow(); !ok {
			return nil, "", fmt.Errorf("llm circuit breaker open: %w", err)
		}
	}

	var result *llm.GenerateResponseResult
	err := retry.DoIfRetryable(ctx, g.retryCfg, func() error {
		var callErr error
		result, callErr = g.llmClient.GenerateResponse(ctx, prompt, systemMsg, g.cfg.Temperature)
		return callErr
	})
	if err != nil {
		if g.breaker != nil {
			g.breaker.RecordFailure()
		}
		return nil, "", fmt.Errorf("generation call failed: %w", err)
	}
	if g.breaker != nil {
		g.breaker.RecordSuccess()
	}

	candidate, err := parseCandidate(result.Content)
	if err != nil {
		return nil, result.Content, err
	}
	return candidate, result.Content, nil
}

// parseCandidate decodes the strict JSON contract and checks its invariants:
// the sql field must be present and confidence must sit in [0,1]. An absent
// confidence reads as 0, which routes the candidate into refinement.
func parseCandidate(content string) (*models.CandidateQuery, error) {
	parsed, err := llm.ParseJSONResponse[generationResponse](content)
	if err != nil {
		return nil, &apperrors.GenerationParseError{Detail: err.Error(), Raw: content}
	}

	sqlText := strings.TrimSpace(parsed.SQL)
	if sqlText == "" {
		return nil, &apperrors.GenerationParseError{Detail: "missing sql field", Raw: content}
	}

	var confidence float64
	if len(parsed.Confidence) != 0 && string(parsed.Confidence) != "null" {
		f, ok := jsonutil.FlexibleFloatValue(parsed.Confidence)
		if !ok {
			return nil, &apperrors.GenerationParseError{Detail: "unreadable confidence field", Raw: content}
		}
		confidence = f
	}
	if confidence < 0 || confidence > 1 {
		return nil, &apperrors.GenerationParseError{
			Detail: fmt.Sprintf("confidence %.2f outside [0,1]", confidence),
			Raw:    content,
		}
	}

	return &models.CandidateQuery{
		SQL:         sqlText,
		Explanation: strings.TrimSpace(jsonutil.FlexibleStringValue(parsed.Explanation)),
		Confidence:  confidence,
		Source:      models.QuerySourceGenerated,
	}, nil
}
