package models

import "time"

// ResultColumn describes one column of an executed result set.
type ResultColumn struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// QueryResult holds the rows returned by executing an accepted query.
type QueryResult struct {
	Columns  []ResultColumn   `json:"columns"`
	Rows     []map[string]any `json:"rows"`
	RowCount int              `json:"row_count"`
}

// AskResult is the structured outcome of one pipeline question. Validation
// rejections and execution failures are outcomes, not Go errors: the caller
// always receives the attempted SQL and the reasons alongside the outcome.
type AskResult struct {
	Question          string           `json:"question"`
	RewrittenQuestion string           `json:"rewritten_question,omitempty"`
	SQL               string           `json:"sql,omitempty"`
	Explanation       string           `json:"explanation,omitempty"`
	Confidence        float64          `json:"confidence"`
	Columns           []ResultColumn   `json:"columns,omitempty"`
	Rows              []map[string]any `json:"rows,omitempty"`
	RowCount          int              `json:"row_count"`
	Warnings          []string         `json:"warnings,omitempty"`
	Violations        []Violation      `json:"violations,omitempty"`
	Outcome           string           `json:"outcome"`
	ErrorMessage      string           `json:"error_message,omitempty"`
	FromCache         bool             `json:"from_cache"`
	ContextUnresolved bool             `json:"context_unresolved,omitempty"`
	DurationMs        int              `json:"duration_ms"`
}

// CacheEntry is one memoized answer owned by the result cache. The candidate
// carries the generated SQL; Result is present when execution rows were
// cached along with it.
type CacheEntry struct {
	Key       string         `json:"key"`
	Candidate CandidateQuery `json:"candidate"`
	Result    *QueryResult   `json:"result,omitempty"`
	Warnings  []string       `json:"warnings,omitempty"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// Expired reports whether the entry is past its deadline at the given time.
func (e *CacheEntry) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}
