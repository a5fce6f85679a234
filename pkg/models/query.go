package models

// QuerySource identifies where a candidate query came from.
type QuerySource string

const (
	QuerySourceGenerated QuerySource = "generated"
	QuerySourceCached    QuerySource = "cached"
)

// CandidateQuery is an unvalidated SQL statement proposed by the generator.
// Candidates are immutable: a repair or refinement attempt produces a new
// CandidateQuery rather than patching an existing one.
type CandidateQuery struct {
	SQL         string      `json:"sql"`
	Explanation string      `json:"explanation"`
	Confidence  float64     `json:"confidence"`
	Source      QuerySource `json:"source"`
}

// Severity classifies how a validation violation affects execution.
type Severity string

const (
	SeverityBlocking Severity = "blocking"
	SeverityWarning  Severity = "warning"
)

// Validation rule names surfaced in violations.
const (
	RuleForbiddenStatementType = "ForbiddenStatementType"
	RuleUnknownIdentifier      = "UnknownIdentifier"
	RuleInvalidJoinCondition   = "InvalidJoinCondition"
)

// Violation is a single validation finding against a candidate query.
type Violation struct {
	Rule     string   `json:"rule"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// ValidationVerdict is the aggregated outcome of validating one candidate.
// Accepted is true only when no blocking violation was found in any category.
type ValidationVerdict struct {
	Accepted   bool        `json:"accepted"`
	Violations []Violation `json:"violations,omitempty"`
}

// Blocking returns the blocking violations in order.
func (v ValidationVerdict) Blocking() []Violation {
	var out []Violation
	for _, viol := range v.Violations {
		if viol.Severity == SeverityBlocking {
			out = append(out, viol)
		}
	}
	return out
}

// WarningMessages returns the warning messages in order, for surfacing to the
// caller alongside accepted results.
func (v ValidationVerdict) WarningMessages() []string {
	var out []string
	for _, viol := range v.Violations {
		if viol.Severity == SeverityWarning {
			out = append(out, viol.Message)
		}
	}
	return out
}
