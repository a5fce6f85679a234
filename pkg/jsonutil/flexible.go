package jsonutil

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FlexibleStringValue converts a json.RawMessage to a string, tolerating
// model replies that put numbers or booleans where a string belongs. Returns
// empty string for null/empty.
func FlexibleStringValue(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var strVal string
	if err := json.Unmarshal(raw, &strVal); err == nil {
		return strVal
	}

	var numVal float64
	if err := json.Unmarshal(raw, &numVal); err == nil {
		if numVal == float64(int64(numVal)) {
			return fmt.Sprintf("%d", int64(numVal))
		}
		return fmt.Sprintf("%g", numVal)
	}

	var boolVal bool
	if err := json.Unmarshal(raw, &boolVal); err == nil {
		return fmt.Sprintf("%t", boolVal)
	}

	return string(raw)
}

// FlexibleFloatValue converts a json.RawMessage to a float64, tolerating
// model replies that quote the number ("0.85") or append a percent sign
// ("85%"). Returns (0, false) when no numeric reading exists.
func FlexibleFloatValue(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}

	var numVal float64
	if err := json.Unmarshal(raw, &numVal); err == nil {
		return numVal, true
	}

	var strVal string
	if err := json.Unmarshal(raw, &strVal); err != nil {
		return 0, false
	}
	strVal = strings.TrimSpace(strVal)
	if strVal == "" {
		return 0, false
	}
	if strings.HasSuffix(strVal, "%") {
		pct, err := strconv.ParseFloat(strings.TrimSuffix(strVal, "%"), 64)
		if err != nil {
			return 0, false
		}
		return pct / 100, true
	}
	f, err := strconv.ParseFloat(strVal, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
