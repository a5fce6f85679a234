package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func TestParseExampleID(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name       string
		pathValue  string
		wantOK     bool
		wantStatus int
		wantError  string
	}{
		{
			name:      "valid UUID",
			pathValue: "550e8400-e29b-41d4-a716-446655440000",
			wantOK:    true,
		},
		{
			name:       "invalid UUID",
			pathValue:  "not-a-uuid",
			wantOK:     false,
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid_example_id",
		},
		{
			name:       "empty path value",
			pathValue:  "",
			wantOK:     false,
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid_example_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodDelete, "/test", nil)
			req.SetPathValue("id", tt.pathValue)
			rec := httptest.NewRecorder()

			id, ok := ParseExampleID(rec, req, logger)

			if ok != tt.wantOK {
				t.Errorf("ParseExampleID() ok = %v, want %v", ok, tt.wantOK)
			}

			if tt.wantOK {
				if id.String() != tt.pathValue {
					t.Errorf("ParseExampleID() id = %v, want %v", id, tt.pathValue)
				}
				return
			}

			if id != uuid.Nil {
				t.Errorf("ParseExampleID() id = %v, want uuid.Nil", id)
			}
			if rec.Code != tt.wantStatus {
				t.Errorf("ParseExampleID() status = %v, want %v", rec.Code, tt.wantStatus)
			}

			var resp map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp["error"] != tt.wantError {
				t.Errorf("ParseExampleID() error = %v, want %v", resp["error"], tt.wantError)
			}
		})
	}
}

func TestParseUUID_CustomErrorMessages(t *testing.T) {
	logger := zap.NewNop()

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.SetPathValue("my_id", "not-valid")
	rec := httptest.NewRecorder()

	_, ok := parseUUID(rec, req, "my_id", "my_error_code", "My custom error message", logger)

	if ok {
		t.Error("parseUUID() ok = true, want false")
	}

	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["error"] != "my_error_code" {
		t.Errorf("parseUUID() error = %v, want my_error_code", resp["error"])
	}
	if resp["message"] != "My custom error message" {
		t.Errorf("parseUUID() message = %v, want 'My custom error message'", resp["message"])
	}
}
