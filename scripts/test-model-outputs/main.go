// test-model-outputs tests SQL generation output parsing across multiple models.
// It sends the same generation prompt to each model and verifies the JSON
// extraction and response contract hold.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/flsteven87/chatalyst-ai/pkg/llm"
	"github.com/flsteven87/chatalyst-ai/pkg/models"
	"github.com/flsteven87/chatalyst-ai/pkg/prompts"
)

// Model defines a model endpoint to test
type Model struct {
	Name     string
	Endpoint string
	Model    string
	APIKey   string
}

var defaultModels = []Model{
	{
		Name:     "qwen2.5-coder-ollama",
		Endpoint: "http://localhost:11434/v1",
		Model:    "qwen2.5-coder:14b",
		APIKey:   "",
	},
	{
		Name:     "vllm-local",
		Endpoint: "http://localhost:8000/v1",
		Model:    "Qwen/Qwen2.5-Coder-14B-Instruct",
		APIKey:   "",
	},
}

// A small e-commerce schema, rendered the way the catalog renders one.
const sampleSchemaSummary = `Tables:

public.customers (1000 rows)
  - id: bigint, not null [PK]
  - name: text, not null
  - email: text, not null [unique]
  - country: text
  - created_at: timestamp with time zone, not null

public.orders (10000 rows)
  - id: bigint, not null [PK]
  - customer_id: bigint, not null [FK -> customers.id]
  - status: text, not null
  - total: numeric, not null
  - created_at: timestamp with time zone, not null

Relationships:
  orders.customer_id -> customers.id`

const sampleQuestion = "Who are the top five customers by total order value this year?"

var sampleExamples = []models.RetrievedExample{
	{
		Question: "How many orders were placed last month?",
		SQL:      "SELECT COUNT(*) FROM orders WHERE created_at >= date_trunc('month', now()) - interval '1 month' AND created_at < date_trunc('month', now())",
	},
}

func main() {
	// Parse flags
	timeout := flag.Duration("timeout", 120*time.Second, "Timeout for each model call")
	flag.Parse()

	// Create logger
	logConfig := zap.NewDevelopmentConfig()
	logConfig.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	logger, _ := logConfig.Build()
	defer logger.Sync()

	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("SQL Generation Format Test")
	fmt.Println("Testing JSON extraction across multiple models")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println()

	ctx := context.Background()

	results := make(map[string]TestResult)
	for _, model := range defaultModels {
		fmt.Printf("\n%s\n", strings.Repeat("-", 80))
		fmt.Printf("Testing: %s\n", model.Name)
		fmt.Printf("Endpoint: %s\n", model.Endpoint)
		fmt.Printf("%s\n\n", strings.Repeat("-", 80))

		result := testModel(ctx, model, logger, *timeout)
		results[model.Name] = result

		printResult(result)
	}

	// Print summary
	fmt.Printf("\n%s\n", strings.Repeat("=", 80))
	fmt.Println("SUMMARY")
	fmt.Printf("%s\n\n", strings.Repeat("=", 80))

	allPassed := true
	for name, result := range results {
		status := "✓ PASS"
		if !result.Success {
			status = "✗ FAIL"
			allPassed = false
		}
		fmt.Printf("%s: %s\n", status, name)
		if result.Error != "" {
			fmt.Printf("  Error: %s\n", result.Error)
		}
	}

	if allPassed {
		fmt.Println("\nAll models passed!")
		os.Exit(0)
	} else {
		fmt.Println("\nSome models failed.")
		os.Exit(1)
	}
}

type TestResult struct {
	Success       bool
	Error         string
	RawResponse   string
	ExtractedJSON string
	HasSQL        bool
	SQLIsSelect   bool
	HasConfidence bool
	DurationMs    int64
	TokensPerSec  float64
}

func testModel(ctx context.Context, model Model, logger *zap.Logger, timeout time.Duration) TestResult {
	result := TestResult{}
	start := time.Now()

	// Create context with timeout
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Create client
	client, err := llm.NewClient(&llm.Config{
		Endpoint: model.Endpoint,
		Model:    model.Model,
		APIKey:   model.APIKey,
	}, logger)
	if err != nil {
		result.Error = fmt.Sprintf("Failed to create client: %v", err)
		return result
	}

	// Call model with the real generation prompt
	prompt := prompts.BuildGenerationPrompt(sampleQuestion, sampleSchemaSummary, sampleExamples)
	fmt.Println("Sending prompt...")
	resp, err := client.GenerateResponse(ctx, prompt, prompts.BuildGenerationSystemMessage(), 0.0)
	if err != nil {
		result.Error = fmt.Sprintf("API call failed: %v", err)
		return result
	}

	result.DurationMs = time.Since(start).Milliseconds()
	result.RawResponse = resp.Content

	// Calculate tokens/sec
	if result.DurationMs > 0 && resp.CompletionTokens > 0 {
		result.TokensPerSec = float64(resp.CompletionTokens) / (float64(result.DurationMs) / 1000.0)
	}

	// Print raw response (truncated)
	fmt.Println("\n--- Raw Response (first 800 chars) ---")
	truncated := resp.Content
	if len(truncated) > 800 {
		truncated = truncated[:800] + "..."
	}
	fmt.Println(truncated)
	fmt.Println("--- End Raw Response ---")
	fmt.Printf("\nTokens: prompt=%d, completion=%d, total=%d\n",
		resp.PromptTokens, resp.CompletionTokens, resp.TotalTokens)
	fmt.Printf("Duration: %dms, Throughput: %.1f tok/s\n", result.DurationMs, result.TokensPerSec)

	// Try to extract JSON
	fmt.Println("\n--- JSON Extraction ---")
	jsonStr, err := llm.ExtractJSON(resp.Content)
	if err != nil {
		result.Error = fmt.Sprintf("JSON extraction failed: %v", err)
		fmt.Printf("ERROR: %s\n", result.Error)
		return result
	}
	result.ExtractedJSON = jsonStr
	fmt.Println("JSON extraction: SUCCESS")

	// Parse and validate against the generation contract
	var parsed struct {
		SQL         string   `json:"sql"`
		Explanation string   `json:"explanation"`
		Confidence  *float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		result.Error = fmt.Sprintf("JSON parse failed: %v", err)
		return result
	}

	if parsed.SQL != "" {
		result.HasSQL = true
		fmt.Printf("sql: PRESENT %q\n", truncateString(parsed.SQL, 70))
		upper := strings.ToUpper(strings.TrimSpace(parsed.SQL))
		result.SQLIsSelect = strings.HasPrefix(upper, "SELECT") || strings.HasPrefix(upper, "WITH")
		if result.SQLIsSelect {
			fmt.Println("  starts with SELECT/WITH: YES")
		} else {
			fmt.Println("  starts with SELECT/WITH: NO")
		}
	} else {
		fmt.Println("sql: MISSING or EMPTY")
	}

	if parsed.Explanation != "" {
		fmt.Printf("explanation: PRESENT %q\n", truncateString(parsed.Explanation, 70))
	} else {
		fmt.Println("explanation: MISSING or EMPTY")
	}

	if parsed.Confidence != nil {
		result.HasConfidence = *parsed.Confidence >= 0 && *parsed.Confidence <= 1
		if result.HasConfidence {
			fmt.Printf("confidence: PRESENT (%.2f)\n", *parsed.Confidence)
		} else {
			fmt.Printf("confidence: OUT OF RANGE (%.2f)\n", *parsed.Confidence)
		}
	} else {
		fmt.Println("confidence: MISSING")
	}

	// Determine success
	result.Success = result.HasSQL && result.SQLIsSelect && result.HasConfidence
	return result
}

func printResult(result TestResult) {
	fmt.Println("\n--- Test Result ---")
	if result.Success {
		fmt.Println("Status: ✓ PASS")
	} else {
		fmt.Println("Status: ✗ FAIL")
		if result.Error != "" {
			fmt.Printf("Error: %s\n", result.Error)
		}
	}
}

func truncateString(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
