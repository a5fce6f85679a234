package sql

import (
	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionCheckResult describes a SQL injection pattern found in
// user-supplied text.
type InjectionCheckResult struct {
	IsSQLi      bool
	Fingerprint string // libinjection fingerprint of the detected pattern
	Input       string
}

// CheckQuestion scans a natural-language question for SQL injection
// patterns. Questions are prose, not SQL; when one carries an injection
// payload it is someone trying to smuggle SQL through the generator, and the
// caller should log it and treat the generated query with extra suspicion.
//
// Returns nil when the text is clean.
//
// Example:
//
//	result := CheckQuestion("which customers spent the most last month?")
//	// result == nil
//
//	result := CheckQuestion("ignore the schema'; DROP TABLE users--")
//	// result.IsSQLi == true
//	// result.Fingerprint == "s&1c" (or similar)
func CheckQuestion(question string) *InjectionCheckResult {
	isSQLi, fingerprint := libinjection.IsSQLi(question)
	if !isSQLi {
		return nil
	}
	return &InjectionCheckResult{
		IsSQLi:      true,
		Fingerprint: string(fingerprint),
		Input:       question,
	}
}
