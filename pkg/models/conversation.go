package models

import "time"

// ConversationTurn records one completed question within a session. Turns are
// immutable once appended; the session store keeps a bounded FIFO of the most
// recent turns.
type ConversationTurn struct {
	Question          string    `json:"question"`
	RewrittenQuestion string    `json:"rewritten_question"`
	GeneratedSQL      string    `json:"generated_sql"`
	Confidence        float64   `json:"confidence"`
	Timestamp         time.Time `json:"timestamp"`
}
