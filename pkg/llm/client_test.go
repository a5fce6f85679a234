package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestNewClient_RequiresEndpoint(t *testing.T) {
	_, err := NewClient(&Config{Model: "gpt-4o-mini"}, zap.NewNop())
	if err == nil {
		t.Error("expected error for missing endpoint")
	}
}

func TestNewClient_RequiresModel(t *testing.T) {
	_, err := NewClient(&Config{Endpoint: "http://localhost:11434/v1"}, zap.NewNop())
	if err == nil {
		t.Error("expected error for missing model")
	}
}

func TestGenerateResponse_Success(t *testing.T) {
	// Fake OpenAI-compatible chat completion endpoint.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("expected system+user messages, got %+v", req.Messages)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": `{"sql": "SELECT 1"}`}},
			},
			"usage": map[string]any{
				"prompt_tokens":     10,
				"completion_tokens": 5,
				"total_tokens":      15,
			},
		})
	}))
	defer server.Close()

	client, err := NewClient(&Config{Endpoint: server.URL, Model: "test-model"}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	result, err := client.GenerateResponse(context.Background(), "List all users", "You write SQL.", 0)
	if err != nil {
		t.Fatalf("GenerateResponse failed: %v", err)
	}
	if result.Content != `{"sql": "SELECT 1"}` {
		t.Errorf("unexpected content %q", result.Content)
	}
	if result.PromptTokens != 10 || result.CompletionTokens != 5 {
		t.Errorf("unexpected usage: %+v", result)
	}
}

func TestGenerateResponse_ServerErrorClassified(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := NewClient(&Config{Endpoint: server.URL, Model: "test-model"}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	_, err = client.GenerateResponse(context.Background(), "question", "system", 0)
	if err == nil {
		t.Fatal("expected error from 500 response")
	}
	if !IsRetryable(err) {
		t.Errorf("expected 500 to be classified retryable, got %v", err)
	}
}

func TestCreateEmbedding_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"embedding": []float32{0.1, 0.2, 0.3}, "index": 0},
			},
		})
	}))
	defer server.Close()

	client, err := NewClient(&Config{Endpoint: server.URL, Model: "test-model"}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	vec, err := client.CreateEmbedding(context.Background(), "monthly revenue per region", "")
	if err != nil {
		t.Fatalf("CreateEmbedding failed: %v", err)
	}
	if len(vec) != 3 {
		t.Errorf("expected 3-dim embedding, got %d", len(vec))
	}
}
