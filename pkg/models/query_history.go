package models

import (
	"time"

	"github.com/google/uuid"
)

// Ask outcomes recorded in query history.
const (
	AskOutcomeAnswered = "answered"
	AskOutcomeRejected = "rejected"
	AskOutcomeFailed   = "failed"
)

// QueryHistoryEntry is the persisted audit record of one pipeline question.
// Every ask is recorded, including rejections and failures.
type QueryHistoryEntry struct {
	ID        uuid.UUID `json:"id"`
	SessionID string    `json:"session_id"`

	// The question and what was generated for it
	Question          string  `json:"question"`
	RewrittenQuestion *string `json:"rewritten_question,omitempty"`
	SQL               *string `json:"sql,omitempty"`
	Explanation       *string `json:"explanation,omitempty"`
	Confidence        float64 `json:"confidence"`

	// How the ask ended
	Outcome      string  `json:"outcome"`
	ErrorMessage *string `json:"error_message,omitempty"`

	// Execution details
	RowCount    *int `json:"row_count,omitempty"`
	DurationMs  *int `json:"duration_ms,omitempty"`
	FromCache   bool `json:"from_cache"`
	ContextUsed bool `json:"context_used"`

	CreatedAt time.Time `json:"created_at"`
}

// QueryHistoryFilters narrows history listing.
type QueryHistoryFilters struct {
	SessionID string
	Outcome   string
	Since     *time.Time
	Limit     int
}
