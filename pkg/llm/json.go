package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// thinkBlockPattern strips a leading <think>...</think> block some local
// models emit before their answer.
var thinkBlockPattern = regexp.MustCompile(`(?s)^\s*<think>.*?</think>\s*`)

// ExtractJSON pulls the first valid JSON value out of a model reply that may
// carry <think> blocks, markdown code fences, or surrounding prose.
func ExtractJSON(response string) (string, error) {
	cleaned := thinkBlockPattern.ReplaceAllString(response, "")

	for i := 0; i < len(cleaned); i++ {
		if cleaned[i] != '{' && cleaned[i] != '[' {
			continue
		}
		if candidate, ok := scanBalanced(cleaned, i); ok {
			if json.Valid([]byte(candidate)) {
				return candidate, nil
			}
		}
	}

	// The whole reply may be a bare scalar like a quoted string or number.
	trimmed := strings.TrimSpace(cleaned)
	if trimmed != "" && json.Valid([]byte(trimmed)) {
		return trimmed, nil
	}

	return "", fmt.Errorf("no valid JSON found in response")
}

// scanBalanced returns the balanced bracket run opening at start. The scan is
// string-aware so braces inside quoted SQL text do not throw off the depth.
func scanBalanced(s string, start int) (string, bool) {
	open := s[start]
	var closer byte = '}'
	if open == '[' {
		closer = ']'
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
			// Brackets inside string literals do not count.
		case c == open:
			depth++
		case c == closer:
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}

	return "", false
}

// ParseJSONResponse extracts JSON from a model reply and unmarshals it into T.
func ParseJSONResponse[T any](response string) (T, error) {
	var result T

	jsonStr, err := ExtractJSON(response)
	if err != nil {
		return result, err
	}

	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return result, fmt.Errorf("unmarshal JSON: %w", err)
	}

	return result, nil
}
