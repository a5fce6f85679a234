package models

import (
	"time"

	"github.com/google/uuid"
)

// StoredExample is a persisted question→SQL pair from the training path.
// Examples are append-only: the retriever never modifies them.
type StoredExample struct {
	ID        uuid.UUID `json:"id"`
	Question  string    `json:"question"`
	SQL       string    `json:"sql"`
	Embedding []float32 `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// RetrievedExample is one similarity hit returned to the generator.
type RetrievedExample struct {
	Question string  `json:"question"`
	SQL      string  `json:"sql"`
	Score    float64 `json:"score"`
}
