package logging

import (
	"regexp"
)

const (
	// MaxSQLLogLength bounds generated SQL in log fields.
	MaxSQLLogLength = 300
	// MaxQuestionLogLength bounds user questions in log fields.
	MaxQuestionLogLength = 200
	// RedactedText replaces sensitive values.
	RedactedText = "[REDACTED]"
)

var (
	// password=xxx, pwd=xxx, pass=xxx in keyword/value DSNs
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	// user:pass@host in URL-style DSNs
	dsnCredsPattern = regexp.MustCompile(`://[^:/\s]+:[^@\s]+@[^/\s]+`)

	// api_key=xxx, apikey=xxx and OpenAI-style sk- tokens
	apiKeyPattern  = regexp.MustCompile(`(?i)(api[_-]?key|apikey)=[A-Za-z0-9-_]{8,}`)
	skTokenPattern = regexp.MustCompile(`\bsk-[A-Za-z0-9-_]{16,}\b`)
)

// SanitizeDSN masks credentials in a database connection string before it is
// logged. Handles both keyword/value and URL forms.
func SanitizeDSN(dsn string) string {
	if dsn == "" {
		return ""
	}
	out := passwordPattern.ReplaceAllString(dsn, "${1}="+RedactedText)
	out = dsnCredsPattern.ReplaceAllString(out, "://"+RedactedText+"@"+RedactedText)
	return out
}

// SanitizeError masks credentials and API keys that may leak through driver or
// provider error messages.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	out := passwordPattern.ReplaceAllString(err.Error(), "${1}="+RedactedText)
	out = apiKeyPattern.ReplaceAllString(out, "${1}="+RedactedText)
	out = skTokenPattern.ReplaceAllString(out, RedactedText)
	out = dsnCredsPattern.ReplaceAllString(out, "://"+RedactedText+"@"+RedactedText)
	return out
}

// TruncateSQL bounds a SQL statement for log fields. Generated SQL is not
// secret but can be arbitrarily long.
func TruncateSQL(sql string) string {
	return Truncate(sql, MaxSQLLogLength)
}

// TruncateQuestion bounds a user question for log fields.
func TruncateQuestion(q string) string {
	return Truncate(q, MaxQuestionLogLength)
}

// Truncate shortens s to maxLen runes with an ellipsis marker.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
