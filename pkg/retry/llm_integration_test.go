package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/flsteven87/chatalyst-ai/pkg/llm"
	"github.com/flsteven87/chatalyst-ai/pkg/retry"
)

// TestIsRetryable_WithLLMError verifies that retry.IsRetryable correctly
// recognizes llm.Error retryability via the IsRetryable() interface method.
func TestIsRetryable_WithLLMError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "retryable llm.Error (503)",
			err:      llm.NewError(llm.ErrorTypeEndpoint, "server error", true, errors.New("HTTP 503")),
			expected: true,
		},
		{
			name:     "retryable llm.Error (429)",
			err:      llm.NewError(llm.ErrorTypeRateLimited, "rate limited", true, errors.New("HTTP 429")),
			expected: true,
		},
		{
			name:     "non-retryable llm.Error (401)",
			err:      llm.NewError(llm.ErrorTypeAuth, "authentication failed", false, errors.New("HTTP 401")),
			expected: false,
		},
		{
			name:     "non-retryable llm.Error (model not found)",
			err:      llm.NewError(llm.ErrorTypeModel, "model not found", false, errors.New("model does not exist")),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := retry.IsRetryable(tt.err)
			if result != tt.expected {
				t.Errorf("IsRetryable(%v) = %v, expected %v", tt.err, result, tt.expected)
			}
		})
	}
}

// TestDoIfRetryable_WithLLMError verifies end-to-end behavior: retryable LLM
// errors are retried, permanent ones are returned immediately.
func TestDoIfRetryable_WithLLMError(t *testing.T) {
	cfg := &retry.Config{
		MaxRetries:   3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}

	t.Run("retryable error is retried", func(t *testing.T) {
		callCount := 0
		err := retry.DoIfRetryable(context.Background(), cfg, func() error {
			callCount++
			if callCount < 3 {
				return llm.NewError(llm.ErrorTypeEndpoint, "server error", true, errors.New("HTTP 503"))
			}
			return nil
		})

		if err != nil {
			t.Errorf("expected success after retries, got %v", err)
		}
		if callCount != 3 {
			t.Errorf("expected 3 calls, got %d", callCount)
		}
	})

	t.Run("permanent error returns immediately", func(t *testing.T) {
		callCount := 0
		authErr := llm.NewError(llm.ErrorTypeAuth, "authentication failed", false, errors.New("HTTP 401"))
		err := retry.DoIfRetryable(context.Background(), cfg, func() error {
			callCount++
			return authErr
		})

		if !errors.Is(err, authErr) {
			t.Errorf("expected auth error, got %v", err)
		}
		if callCount != 1 {
			t.Errorf("expected 1 call, got %d", callCount)
		}
	})
}
