// assess-answers evaluates the quality of stored question->SQL answers.
//
// Two layers of checks:
//   - Deterministic: outcome and cache-hit rates, confidence calibration
//     (does confidence actually separate answered from failed?), latency,
//     and SQL shape over everything in query_history.
//   - LLM-graded: a sample of answered entries is graded for faithfulness
//     (does the SQL answer the question given the live target schema?).
//
// Usage: go run ./scripts/assess-answers [sample-size]
//
// Requires: ANTHROPIC_API_KEY environment variable
// Database connection: standard PG* env vars for the history database,
// TARGET_PG* (falling back to PG*) for the schema the SQL runs against.
//
// NOTE: This standalone assessment script uses direct SQL queries rather than
// the repository layer. This is intentional to keep the script self-contained
// and avoid circular dependencies.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/liushuangls/go-anthropic/v2"
)

const (
	judgeModel         = "claude-sonnet-4-5-20250929"
	defaultSampleSize  = 20
	overconfidentAbove = 0.8
)

// HistoryEntry mirrors one query_history row.
type HistoryEntry struct {
	ID                uuid.UUID `json:"id"`
	SessionID         string    `json:"session_id"`
	Question          string    `json:"question"`
	RewrittenQuestion *string   `json:"rewritten_question"`
	SQL               *string   `json:"sql"`
	Confidence        float64   `json:"confidence"`
	Outcome           string    `json:"outcome"`
	ErrorMessage      *string   `json:"error_message"`
	RowCount          *int      `json:"row_count"`
	DurationMs        *int      `json:"duration_ms"`
	FromCache         bool      `json:"from_cache"`
	ContextUsed       bool      `json:"context_used"`
}

// OutcomeStats summarizes how asks resolved.
type OutcomeStats struct {
	Total        int     `json:"total"`
	Answered     int     `json:"answered"`
	Rejected     int     `json:"rejected"`
	Failed       int     `json:"failed"`
	CacheHits    int     `json:"cache_hits"`
	Rewritten    int     `json:"rewritten"`
	AnswerRate   float64 `json:"answer_rate"`
	CacheHitRate float64 `json:"cache_hit_rate"`
	RewriteRate  float64 `json:"rewrite_rate"`
	Score        int     `json:"score"` // 0-100, answered vs failed; rejections don't count against
}

// CalibrationStats checks that confidence separates good answers from bad.
type CalibrationStats struct {
	AnsweredWithConfidence int     `json:"answered_with_confidence"`
	FailedWithConfidence   int     `json:"failed_with_confidence"`
	AvgConfidenceAnswered  float64 `json:"avg_confidence_answered"`
	AvgConfidenceFailed    float64 `json:"avg_confidence_failed"`
	Gap                    float64 `json:"gap"` // answered minus failed; positive is healthy
	OverconfidentFailures  int     `json:"overconfident_failures"`
	Score                  int     `json:"score"`
}

// SQLShapeStats runs cheap structural checks over the generated SQL.
type SQLShapeStats struct {
	Checked        int      `json:"checked"`
	NonSelect      int      `json:"non_select"`
	MultiStatement int      `json:"multi_statement"`
	MissingLimit   int      `json:"missing_limit"` // informational; the executor caps rows anyway
	Examples       []string `json:"examples"`
	Score          int      `json:"score"`
}

// LatencyStats summarizes end-to-end answer latency.
type LatencyStats struct {
	Measured int     `json:"measured"`
	AvgMs    float64 `json:"avg_ms"`
	P95Ms    int     `json:"p95_ms"`
	MaxMs    int     `json:"max_ms"`
	MaxID    string  `json:"max_id"`
}

// JudgeGrade is the verdict for one sampled entry.
type JudgeGrade struct {
	Index    int      `json:"index"`
	Faithful bool     `json:"faithful"`
	Issues   []string `json:"issues"`
}

// JudgeReport is the LLM-graded faithfulness assessment.
type JudgeReport struct {
	SampleSize      int          `json:"sample_size"`
	Faithful        int          `json:"faithful"`
	Unfaithful      int          `json:"unfaithful"`
	Grades          []JudgeGrade `json:"grades"`
	WeakAreas       []string     `json:"weak_areas"`
	Recommendations []string     `json:"recommendations"`
	Score           int          `json:"score"`
}

// AssessmentResult is the full JSON output.
type AssessmentResult struct {
	CommitInfo      string           `json:"commit_info"`
	EntriesLoaded   int              `json:"entries_loaded"`
	Outcomes        OutcomeStats     `json:"outcomes"`
	Calibration     CalibrationStats `json:"calibration"`
	SQLShape        SQLShapeStats    `json:"sql_shape"`
	Latency         LatencyStats     `json:"latency"`
	Judge           JudgeReport      `json:"judge"`
	FinalScore      int              `json:"final_score"`
	FinalAssessment string           `json:"final_assessment"`
}

func main() {
	sampleSize := defaultSampleSize
	if len(os.Args) > 1 {
		n, err := strconv.Atoi(os.Args[1])
		if err != nil || n < 1 {
			fmt.Fprintf(os.Stderr, "Usage: %s [sample-size]\n", os.Args[0])
			os.Exit(1)
		}
		sampleSize = n
	}

	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		fmt.Fprintf(os.Stderr, "ANTHROPIC_API_KEY environment variable is required\n")
		os.Exit(1)
	}

	ctx := context.Background()

	conn, err := pgx.Connect(ctx, buildConnString(""))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to history database: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close(ctx)

	fmt.Fprintf(os.Stderr, "Loading query history...\n")
	entries, err := loadHistory(ctx, conn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load query history: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "  Loaded %d entries\n", len(entries))
	if len(entries) == 0 {
		fmt.Fprintf(os.Stderr, "Nothing to assess\n")
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "Loading target schema...\n")
	schemaText, err := loadTargetSchemaText(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "  Warning: could not load target schema (%v); grading without it\n", err)
		schemaText = "(schema unavailable)"
	}

	fmt.Fprintf(os.Stderr, "Running deterministic checks...\n")
	outcomes := calculateOutcomeStats(entries)
	fmt.Fprintf(os.Stderr, "  Outcomes: answered=%d rejected=%d failed=%d (score %d/100)\n",
		outcomes.Answered, outcomes.Rejected, outcomes.Failed, outcomes.Score)

	calibration := calculateCalibration(entries)
	fmt.Fprintf(os.Stderr, "  Calibration: answered avg %.2f vs failed avg %.2f, gap %.2f (score %d/100)\n",
		calibration.AvgConfidenceAnswered, calibration.AvgConfidenceFailed, calibration.Gap, calibration.Score)

	shape := checkSQLShape(entries)
	fmt.Fprintf(os.Stderr, "  SQL shape: %d checked, %d non-select, %d multi-statement (score %d/100)\n",
		shape.Checked, shape.NonSelect, shape.MultiStatement, shape.Score)

	latency := calculateLatency(entries)
	fmt.Fprintf(os.Stderr, "  Latency: avg %.0fms, p95 %dms, max %dms\n", latency.AvgMs, latency.P95Ms, latency.MaxMs)

	fmt.Fprintf(os.Stderr, "Grading answer faithfulness (sample of up to %d)...\n", sampleSize)
	client := anthropic.NewClient(apiKey)
	judge := gradeFaithfulness(ctx, client, entries, schemaText, sampleSize)
	fmt.Fprintf(os.Stderr, "  Graded %d answers: %d faithful, %d not (score %d/100)\n",
		judge.SampleSize, judge.Faithful, judge.Unfaithful, judge.Score)

	// Weights: faithfulness 40%, outcomes 30%, calibration 15%, SQL shape 15%.
	finalScore := int(
		float64(judge.Score)*0.40 +
			float64(outcomes.Score)*0.30 +
			float64(calibration.Score)*0.15 +
			float64(shape.Score)*0.15,
	)

	result := AssessmentResult{
		CommitInfo:      getCommitInfo(),
		EntriesLoaded:   len(entries),
		Outcomes:        outcomes,
		Calibration:     calibration,
		SQLShape:        shape,
		Latency:         latency,
		Judge:           judge,
		FinalScore:      finalScore,
		FinalAssessment: generateFinalAssessment(finalScore, outcomes, calibration, judge),
	}

	output, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(output))
}

func generateFinalAssessment(score int, outcomes OutcomeStats, calibration CalibrationStats, judge JudgeReport) string {
	var assessment string

	switch {
	case score >= 90:
		assessment = "EXCELLENT: Answers are faithful and the pipeline resolves almost everything it accepts."
	case score >= 75:
		assessment = "GOOD: Most answers hold up. A few failures or unfaithful queries need attention."
	case score >= 60:
		assessment = "FAIR: Noticeable failure or unfaithfulness rate. Review the flagged examples."
	case score >= 40:
		assessment = "POOR: A large share of accepted questions produce wrong or failing SQL."
	default:
		assessment = "INADEQUATE: The pipeline cannot reliably answer questions against this schema."
	}

	if calibration.OverconfidentFailures > 0 {
		assessment += fmt.Sprintf(" %d failures carried confidence above %.1f.", calibration.OverconfidentFailures, overconfidentAbove)
	}
	if judge.Unfaithful > 0 {
		assessment += fmt.Sprintf(" %d of %d graded answers did not match their question.", judge.Unfaithful, judge.SampleSize)
	}
	if outcomes.Failed > outcomes.Answered {
		assessment += " Failures outnumber answered questions."
	}

	return assessment
}

// =============================================================================
// Data Loading
// =============================================================================

func loadHistory(ctx context.Context, conn *pgx.Conn) ([]HistoryEntry, error) {
	query := `
		SELECT id, session_id, question, rewritten_question, sql,
		       confidence, outcome, error_message, row_count, duration_ms,
		       from_cache, context_used
		FROM query_history
		ORDER BY created_at DESC`

	rows, err := conn.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(
			&e.ID, &e.SessionID, &e.Question, &e.RewrittenQuestion, &e.SQL,
			&e.Confidence, &e.Outcome, &e.ErrorMessage, &e.RowCount, &e.DurationMs,
			&e.FromCache, &e.ContextUsed,
		); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// loadTargetSchemaText renders the target database's public schema as compact
// "table(column type, ...)" lines for the grading prompt.
func loadTargetSchemaText(ctx context.Context) (string, error) {
	conn, err := pgx.Connect(ctx, buildConnString("TARGET_"))
	if err != nil {
		return "", err
	}
	defer conn.Close(ctx)

	query := `
		SELECT table_name, column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = 'public'
		ORDER BY table_name, ordinal_position`

	rows, err := conn.Query(ctx, query)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	columnsByTable := make(map[string][]string)
	var tableOrder []string
	for rows.Next() {
		var table, column, dataType string
		if err := rows.Scan(&table, &column, &dataType); err != nil {
			return "", err
		}
		if _, seen := columnsByTable[table]; !seen {
			tableOrder = append(tableOrder, table)
		}
		columnsByTable[table] = append(columnsByTable[table], column+" "+dataType)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	if len(tableOrder) == 0 {
		return "", fmt.Errorf("no tables in public schema")
	}

	var b strings.Builder
	for _, table := range tableOrder {
		fmt.Fprintf(&b, "%s(%s)\n", table, strings.Join(columnsByTable[table], ", "))
	}
	return b.String(), nil
}

// =============================================================================
// Deterministic Checks
// =============================================================================

func calculateOutcomeStats(entries []HistoryEntry) OutcomeStats {
	s := OutcomeStats{Total: len(entries)}
	for _, e := range entries {
		switch e.Outcome {
		case "answered":
			s.Answered++
		case "rejected":
			s.Rejected++
		case "failed":
			s.Failed++
		}
		if e.FromCache {
			s.CacheHits++
		}
		if e.ContextUsed {
			s.Rewritten++
		}
	}
	if s.Total > 0 {
		s.AnswerRate = float64(s.Answered) / float64(s.Total)
		s.CacheHitRate = float64(s.CacheHits) / float64(s.Total)
		s.RewriteRate = float64(s.Rewritten) / float64(s.Total)
	}
	// Rejections are the guardrails working, so score only answered vs failed.
	resolved := s.Answered + s.Failed
	if resolved == 0 {
		s.Score = 100
	} else {
		s.Score = 100 * s.Answered / resolved
	}
	return s
}

func calculateCalibration(entries []HistoryEntry) CalibrationStats {
	var s CalibrationStats
	var answeredSum, failedSum float64
	for _, e := range entries {
		switch e.Outcome {
		case "answered":
			s.AnsweredWithConfidence++
			answeredSum += e.Confidence
		case "failed":
			s.FailedWithConfidence++
			failedSum += e.Confidence
			if e.Confidence >= overconfidentAbove {
				s.OverconfidentFailures++
			}
		}
	}
	if s.AnsweredWithConfidence > 0 {
		s.AvgConfidenceAnswered = answeredSum / float64(s.AnsweredWithConfidence)
	}
	if s.FailedWithConfidence > 0 {
		s.AvgConfidenceFailed = failedSum / float64(s.FailedWithConfidence)
	}

	s.Score = 100
	if s.AnsweredWithConfidence > 0 && s.FailedWithConfidence > 0 {
		s.Gap = s.AvgConfidenceAnswered - s.AvgConfidenceFailed
		if s.Gap <= 0 {
			s.Score -= 40
		} else if s.Gap < 0.1 {
			s.Score -= 20
		}
	}
	s.Score -= 10 * s.OverconfidentFailures
	if s.Score < 0 {
		s.Score = 0
	}
	return s
}

func checkSQLShape(entries []HistoryEntry) SQLShapeStats {
	var s SQLShapeStats
	for _, e := range entries {
		if e.SQL == nil || *e.SQL == "" {
			continue
		}
		s.Checked++
		upper := strings.ToUpper(strings.TrimSpace(*e.SQL))
		if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
			s.NonSelect++
			s.Examples = appendExample(s.Examples, *e.SQL)
		}
		// Crude but a stored query should never contain an inner semicolon.
		if strings.Contains(strings.TrimRight(strings.TrimSpace(*e.SQL), "; \t\n"), ";") {
			s.MultiStatement++
			s.Examples = appendExample(s.Examples, *e.SQL)
		}
		if !strings.Contains(upper, "LIMIT") {
			s.MissingLimit++
		}
	}

	s.Score = 100
	if s.Checked > 0 {
		s.Score -= 100 * s.NonSelect / s.Checked
		s.Score -= 50 * s.MultiStatement / s.Checked
	}
	if s.Score < 0 {
		s.Score = 0
	}
	return s
}

func appendExample(examples []string, sql string) []string {
	if len(examples) >= 5 {
		return examples
	}
	if len(sql) > 200 {
		sql = sql[:200] + "..."
	}
	return append(examples, sql)
}

func calculateLatency(entries []HistoryEntry) LatencyStats {
	var s LatencyStats
	var durations []int
	var sum int
	for _, e := range entries {
		if e.DurationMs == nil || e.FromCache {
			continue
		}
		durations = append(durations, *e.DurationMs)
		sum += *e.DurationMs
		if *e.DurationMs > s.MaxMs {
			s.MaxMs = *e.DurationMs
			s.MaxID = e.ID.String()
		}
	}
	s.Measured = len(durations)
	if s.Measured == 0 {
		return s
	}
	s.AvgMs = float64(sum) / float64(s.Measured)
	sort.Ints(durations)
	s.P95Ms = durations[(len(durations)*95)/100]
	return s
}

// =============================================================================
// LLM-Graded Faithfulness
// =============================================================================

func gradeFaithfulness(ctx context.Context, client *anthropic.Client, entries []HistoryEntry, schemaText string, sampleSize int) JudgeReport {
	var sample []HistoryEntry
	for _, e := range entries {
		if e.Outcome != "answered" || e.SQL == nil || *e.SQL == "" {
			continue
		}
		sample = append(sample, e)
		if len(sample) >= sampleSize {
			break
		}
	}

	if len(sample) == 0 {
		return JudgeReport{
			WeakAreas: []string{"no answered entries with SQL to grade"},
			Score:     50,
		}
	}

	var pairs strings.Builder
	for i, e := range sample {
		question := e.Question
		if e.RewrittenQuestion != nil && *e.RewrittenQuestion != "" {
			question = *e.RewrittenQuestion
		}
		fmt.Fprintf(&pairs, "### %d\nQuestion: %s\nSQL:\n%s\n\n", i+1, question, *e.SQL)
	}

	prompt := fmt.Sprintf(`You are grading whether generated SQL faithfully answers its question.

## TARGET SCHEMA
%s

## QUESTION/SQL PAIRS
%s

## TASK
For each numbered pair, decide whether running the SQL against the schema
answers the question as asked. Wrong aggregations, wrong filters, wrong
tables/joins, or answering a different question all count as unfaithful.
Style does not matter.

Return JSON:
{
  "grades": [{"index": 1, "faithful": true, "issues": ["specific problems, empty if faithful"]}],
  "weak_areas": ["recurring failure patterns across the sample"],
  "recommendations": ["what would most improve answer quality"]
}

Return ONLY JSON.`, schemaText, pairs.String())

	resp, err := client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     judgeModel,
		MaxTokens: 4000,
		Messages: []anthropic.Message{
			{Role: anthropic.RoleUser, Content: []anthropic.MessageContent{
				{Type: "text", Text: &prompt},
			}},
		},
	})
	if err != nil {
		return JudgeReport{
			SampleSize: len(sample),
			WeakAreas:  []string{fmt.Sprintf("Grading failed: %v", err)},
			Score:      50, // Default to moderate on error
		}
	}

	var parsed struct {
		Grades          []JudgeGrade `json:"grades"`
		WeakAreas       []string     `json:"weak_areas"`
		Recommendations []string     `json:"recommendations"`
	}
	responseText := extractJSON(extractTextFromResponse(resp))
	if err := json.Unmarshal([]byte(responseText), &parsed); err != nil {
		return JudgeReport{
			SampleSize: len(sample),
			WeakAreas:  []string{fmt.Sprintf("Parse error: %v", err)},
			Score:      50,
		}
	}

	report := JudgeReport{
		SampleSize:      len(sample),
		Grades:          parsed.Grades,
		WeakAreas:       parsed.WeakAreas,
		Recommendations: parsed.Recommendations,
	}
	for _, g := range parsed.Grades {
		if g.Faithful {
			report.Faithful++
		} else {
			report.Unfaithful++
		}
	}
	if graded := report.Faithful + report.Unfaithful; graded > 0 {
		report.Score = 100 * report.Faithful / graded
	} else {
		report.Score = 50
	}
	return report
}

func extractTextFromResponse(resp anthropic.MessagesResponse) string {
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != nil {
			return *block.Text
		}
	}
	return ""
}

func extractJSON(s string) string {
	// Find JSON object in response
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

// =============================================================================
// Helpers
// =============================================================================

func buildConnString(prefix string) string {
	host := envOr(prefix+"PGHOST", envOr("PGHOST", "localhost"))
	port := envOr(prefix+"PGPORT", envOr("PGPORT", "5432"))
	user := envOr(prefix+"PGUSER", envOr("PGUSER", "chatalyst"))
	password := envOr(prefix+"PGPASSWORD", os.Getenv("PGPASSWORD"))
	dbname := envOr(prefix+"PGDATABASE", envOr("PGDATABASE", "chatalyst"))

	connStr := fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=disable",
		host, port, user, dbname)
	if password != "" {
		connStr += fmt.Sprintf(" password=%s", password)
	}
	return connStr
}

func envOr(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getCommitInfo() string {
	cmd := exec.Command("git", "describe", "--always", "--dirty")
	output, err := cmd.Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(output))
}
