package apperrors

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrInvalidInput  = errors.New("invalid input")
	ErrEmptyQuestion = errors.New("question must not be empty")
	ErrNoSnapshot    = errors.New("no schema snapshot available")
)

// SchemaDiscoveryError indicates that catalog introspection against the live
// database failed. It is fatal only when no previously discovered snapshot
// exists; otherwise callers fall back to the last good snapshot.
type SchemaDiscoveryError struct {
	Cause error
}

func (e *SchemaDiscoveryError) Error() string {
	return fmt.Sprintf("schema discovery failed: %v", e.Cause)
}

func (e *SchemaDiscoveryError) Unwrap() error {
	return e.Cause
}

// GenerationParseError indicates the language model reply could not be parsed
// into a well-formed candidate query (missing SQL field, confidence out of
// range, malformed JSON). The generator retries once with a stricter prompt
// before surfacing this error.
type GenerationParseError struct {
	Detail string
	Raw    string
}

func (e *GenerationParseError) Error() string {
	return fmt.Sprintf("generation reply unparseable: %s", e.Detail)
}

// ExecutionError indicates the database rejected or failed a validated query.
// It carries the SQL so callers can show the user what was attempted.
type ExecutionError struct {
	SQL   string
	Cause error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("query execution failed: %v", e.Cause)
}

func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// ExecutionTimeout indicates the query exceeded the caller-supplied deadline.
// Recoverable: the data is intact, the query simply took too long.
type ExecutionTimeout struct {
	SQL     string
	Timeout time.Duration
}

func (e *ExecutionTimeout) Error() string {
	return fmt.Sprintf("query execution exceeded %s", e.Timeout)
}

// IsExecutionTimeout reports whether err is (or wraps) an ExecutionTimeout.
func IsExecutionTimeout(err error) bool {
	var t *ExecutionTimeout
	return errors.As(err, &t)
}
