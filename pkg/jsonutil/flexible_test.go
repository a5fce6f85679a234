package jsonutil

import (
	"encoding/json"
	"testing"
)

func TestFlexibleStringValue(t *testing.T) {
	tests := []struct {
		name  string
		input json.RawMessage
		want  string
	}{
		{
			name:  "string value",
			input: json.RawMessage(`"joins orders to customers"`),
			want:  "joins orders to customers",
		},
		{
			name:  "integer value",
			input: json.RawMessage(`42`),
			want:  "42",
		},
		{
			name:  "float value",
			input: json.RawMessage(`3.14`),
			want:  "3.14",
		},
		{
			name:  "boolean",
			input: json.RawMessage(`true`),
			want:  "true",
		},
		{
			name:  "null value",
			input: json.RawMessage(`null`),
			want:  "",
		},
		{
			name:  "nil raw message",
			input: nil,
			want:  "",
		},
		{
			name:  "object falls back to raw string",
			input: json.RawMessage(`{"key":"value"}`),
			want:  `{"key":"value"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FlexibleStringValue(tt.input)
			if got != tt.want {
				t.Errorf("FlexibleStringValue(%s) = %q, want %q", string(tt.input), got, tt.want)
			}
		})
	}
}

func TestFlexibleFloatValue(t *testing.T) {
	tests := []struct {
		name   string
		input  json.RawMessage
		want   float64
		wantOK bool
	}{
		{
			name:   "plain number",
			input:  json.RawMessage(`0.85`),
			want:   0.85,
			wantOK: true,
		},
		{
			name:   "integer",
			input:  json.RawMessage(`1`),
			want:   1,
			wantOK: true,
		},
		{
			name:   "quoted number",
			input:  json.RawMessage(`"0.85"`),
			want:   0.85,
			wantOK: true,
		},
		{
			name:   "quoted with whitespace",
			input:  json.RawMessage(`" 0.7 "`),
			want:   0.7,
			wantOK: true,
		},
		{
			name:   "percent string",
			input:  json.RawMessage(`"85%"`),
			want:   0.85,
			wantOK: true,
		},
		{
			name:   "null",
			input:  json.RawMessage(`null`),
			wantOK: false,
		},
		{
			name:   "empty string",
			input:  json.RawMessage(`""`),
			wantOK: false,
		},
		{
			name:   "non numeric string",
			input:  json.RawMessage(`"high"`),
			wantOK: false,
		},
		{
			name:   "object",
			input:  json.RawMessage(`{"value":0.8}`),
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FlexibleFloatValue(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("FlexibleFloatValue(%s) ok = %v, want %v", string(tt.input), ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("FlexibleFloatValue(%s) = %v, want %v", string(tt.input), got, tt.want)
			}
		})
	}
}
