package datasource

import (
	"errors"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// sqlStateRegex matches PostgreSQL SQLSTATE codes in error messages like "(SQLSTATE 42601)"
var sqlStateRegex = regexp.MustCompile(`\(SQLSTATE ([0-9A-Z]{5})\)`)

// IsUserSQLError reports whether err was caused by the submitted SQL itself
// (syntax error, unknown column, bad cast) rather than by the connection or
// the server. User SQL errors are recoverable: a corrected query can succeed
// against the same database.
//
// PostgreSQL SQLSTATE class codes that indicate user errors:
//   - 22xxx: Data Exception (invalid input, division by zero)
//   - 23xxx: Integrity Constraint Violation (unique, FK, check)
//   - 42xxx: Syntax Error or Access Rule Violation
//   - 44xxx: WITH CHECK OPTION Violation
func IsUserSQLError(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return isSQLStateUserError(pgErr.Code)
	}

	// Wrapped errors keep the SQLSTATE in their message
	if matches := sqlStateRegex.FindStringSubmatch(err.Error()); len(matches) >= 2 {
		return isSQLStateUserError(matches[1])
	}

	return false
}

func isSQLStateUserError(code string) bool {
	if len(code) < 2 {
		return false
	}
	switch code[:2] {
	case "22", // Data Exception
		"23", // Integrity Constraint Violation
		"42", // Syntax Error or Access Rule Violation
		"44": // WITH CHECK OPTION Violation
		return true
	}
	return false
}

// UserSQLErrorCode maps err's SQLSTATE to a stable snake_case code. Returns
// empty string when err is not a user SQL error.
func UserSQLErrorCode(err error) string {
	if err == nil {
		return ""
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return mapSQLStateToCode(pgErr.Code)
	}

	if matches := sqlStateRegex.FindStringSubmatch(err.Error()); len(matches) >= 2 {
		return mapSQLStateToCode(matches[1])
	}

	return ""
}

func mapSQLStateToCode(sqlState string) string {
	if len(sqlState) < 2 {
		return "sql_error"
	}

	switch sqlState {
	case "42601":
		return "syntax_error"
	case "42703":
		return "undefined_column"
	case "42P01":
		return "undefined_table"
	case "42883":
		return "undefined_function"
	case "22001":
		return "value_too_long"
	case "22003":
		return "numeric_out_of_range"
	case "22007":
		return "invalid_datetime"
	case "22012":
		return "division_by_zero"
	case "22P02":
		return "invalid_input"
	}

	switch sqlState[:2] {
	case "22":
		return "data_exception"
	case "23":
		return "constraint_violation"
	case "42":
		return "sql_error"
	case "44":
		return "check_option_violation"
	}

	return "sql_error"
}

// CleanSQLErrorMessage extracts a display-ready message from a SQL error,
// dropping the SQLSTATE suffix and common wrapper prefixes.
func CleanSQLErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Message
	}

	msg := err.Error()
	if idx := strings.Index(msg, " (SQLSTATE"); idx != -1 {
		msg = msg[:idx]
	}
	for _, prefix := range []string{"failed to execute query: ", "query execution failed: ", "ERROR: "} {
		msg = strings.TrimPrefix(msg, prefix)
	}
	return msg
}
