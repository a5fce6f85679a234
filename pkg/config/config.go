package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for chatalyst.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	BaseURL  string `yaml:"base_url" env:"BASE_URL" env-default:""` // Auto-derived from Port if empty
	Version  string `yaml:"-"`                                      // Set at load time, not from config

	// Application database (query history, stored examples)
	Database DatabaseConfig `yaml:"database"`

	// Target is the analytics database that questions are answered against.
	// If no host is configured, the application database is used for both.
	Target TargetConfig `yaml:"target"`

	// LLM endpoint used for rewriting and SQL generation
	LLM LLMConfig `yaml:"llm"`

	// Embedding endpoint used for example retrieval.
	// Falls back to the LLM endpoint and key when not set.
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Pipeline tuning knobs
	Pipeline PipelineConfig `yaml:"pipeline"`

	// Optional Redis-backed result cache. In-memory cache is used when unset.
	Redis RedisConfig `yaml:"redis"`

	// RulesPath points at a YAML file of business validation rules
	// (forbidden columns, required filters). Empty disables business rules.
	RulesPath string `yaml:"rules_path" env:"RULES_PATH" env-default:""`

	// MigrationsPath is the directory holding application schema migrations.
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"migrations"`
}

// DatabaseConfig holds PostgreSQL configuration for the application database.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"chatalyst"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"chatalyst"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	MinConnections int32  `yaml:"min_connections" env:"PGMIN_CONNECTIONS" env-default:"2"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// TargetConfig holds PostgreSQL configuration for the target analytics database.
type TargetConfig struct {
	Host           string `yaml:"host" env:"TARGET_PGHOST" env-default:""`
	Port           int    `yaml:"port" env:"TARGET_PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"TARGET_PGUSER" env-default:""`
	Password       string `yaml:"-" env:"TARGET_PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"TARGET_PGDATABASE" env-default:""`
	MaxConnections int32  `yaml:"max_connections" env:"TARGET_PGMAX_CONNECTIONS" env-default:"10"`
	MinConnections int32  `yaml:"min_connections" env:"TARGET_PGMIN_CONNECTIONS" env-default:"1"`
	SSLMode        string `yaml:"ssl_mode" env:"TARGET_PGSSLMODE" env-default:"disable"`
}

// IsConfigured returns true if a separate target database is configured.
func (c *TargetConfig) IsConfigured() bool {
	return c.Host != ""
}

// LLMConfig holds the chat completion endpoint configuration.
type LLMConfig struct {
	BaseURL        string  `yaml:"base_url" env:"LLM_BASE_URL" env-default:"https://api.openai.com/v1"`
	Model          string  `yaml:"model" env:"LLM_MODEL" env-default:"gpt-4o-mini"`
	APIKey         string  `yaml:"-" env:"LLM_API_KEY"` // Secret - not in YAML
	Temperature    float64 `yaml:"temperature" env:"LLM_TEMPERATURE" env-default:"0"`
	TimeoutSeconds int     `yaml:"timeout_seconds" env:"LLM_TIMEOUT_SECONDS" env-default:"60"`
	// BreakerThreshold is the number of consecutive failed generation calls
	// that trips the circuit breaker.
	BreakerThreshold int `yaml:"breaker_threshold" env:"LLM_BREAKER_THRESHOLD" env-default:"5"`
	// BreakerResetSeconds is how long the tripped breaker waits before
	// probing the endpoint again.
	BreakerResetSeconds int `yaml:"breaker_reset_seconds" env:"LLM_BREAKER_RESET_SECONDS" env-default:"30"`
}

// EmbeddingConfig holds the embedding endpoint configuration.
type EmbeddingConfig struct {
	BaseURL        string `yaml:"base_url" env:"EMBEDDING_BASE_URL" env-default:""`
	Model          string `yaml:"model" env:"EMBEDDING_MODEL" env-default:"text-embedding-3-small"`
	APIKey         string `yaml:"-" env:"EMBEDDING_API_KEY"` // Secret - not in YAML
	TimeoutSeconds int    `yaml:"timeout_seconds" env:"EMBEDDING_TIMEOUT_SECONDS" env-default:"30"`
}

// PipelineConfig holds tuning knobs for the question answering pipeline.
type PipelineConfig struct {
	// HistoryLimit is the number of turns kept per conversation session.
	HistoryLimit int `yaml:"history_limit" env:"PIPELINE_HISTORY_LIMIT" env-default:"20"`
	// RewriteWindow is the number of recent turns given to the rewriter.
	RewriteWindow int `yaml:"rewrite_window" env:"PIPELINE_REWRITE_WINDOW" env-default:"5"`
	// RetrieveTopK is the number of stored examples retrieved per question.
	RetrieveTopK int `yaml:"retrieve_top_k" env:"PIPELINE_RETRIEVE_TOP_K" env-default:"5"`
	// CacheTTLMinutes is how long cached results stay fresh.
	CacheTTLMinutes int `yaml:"cache_ttl_minutes" env:"PIPELINE_CACHE_TTL_MINUTES" env-default:"15"`
	// CacheCapacity is the maximum number of cached results.
	CacheCapacity int `yaml:"cache_capacity" env:"PIPELINE_CACHE_CAPACITY" env-default:"256"`
	// SchemaStaleMinutes is how old a schema snapshot may get before a
	// background refresh is triggered.
	SchemaStaleMinutes int `yaml:"schema_stale_minutes" env:"PIPELINE_SCHEMA_STALE_MINUTES" env-default:"10"`
	// QueryTimeoutSeconds bounds execution of a generated query.
	QueryTimeoutSeconds int `yaml:"query_timeout_seconds" env:"PIPELINE_QUERY_TIMEOUT_SECONDS" env-default:"30"`
	// MaxRows caps the number of rows returned to the caller.
	MaxRows int `yaml:"max_rows" env:"PIPELINE_MAX_ROWS" env-default:"500"`
	// ConfidenceThreshold marks answers below it as low confidence.
	ConfidenceThreshold float64 `yaml:"confidence_threshold" env:"PIPELINE_CONFIDENCE_THRESHOLD" env-default:"0.6"`
	// MaxRefinementRounds bounds validation-feedback regeneration attempts.
	MaxRefinementRounds int `yaml:"max_refinement_rounds" env:"PIPELINE_MAX_REFINEMENT_ROUNDS" env-default:"2"`
	// SchemaSummaryBudget caps the schema rendering in prompts, in characters.
	// Zero means no cap.
	SchemaSummaryBudget int `yaml:"schema_summary_budget" env:"PIPELINE_SCHEMA_SUMMARY_BUDGET" env-default:"8000"`
}

// CacheTTL returns the result cache TTL as a duration.
func (c *PipelineConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}

// SchemaStaleAfter returns the schema staleness threshold as a duration.
func (c *PipelineConfig) SchemaStaleAfter() time.Duration {
	return time.Duration(c.SchemaStaleMinutes) * time.Minute
}

// QueryTimeout returns the query execution timeout as a duration.
func (c *PipelineConfig) QueryTimeout() time.Duration {
	return time.Duration(c.QueryTimeoutSeconds) * time.Second
}

// Timeout returns the request timeout as a duration.
func (c *LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// BreakerReset returns the circuit breaker reset window as a duration.
func (c *LLMConfig) BreakerReset() time.Duration {
	return time.Duration(c.BreakerResetSeconds) * time.Second
}

// Timeout returns the request timeout as a duration.
func (c *EmbeddingConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RedisConfig holds optional Redis configuration for the result cache.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// IsAvailable returns true if Redis is configured.
func (c *RedisConfig) IsAvailable() bool {
	return c.Host != ""
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
// Environment variables override YAML values. Secrets (PGPASSWORD, LLM_API_KEY,
// REDIS_PASSWORD) must come from environment variables (yaml:"-" fields).
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	// Load config from YAML file with environment variable overrides
	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	cfg.applyFallbacks()

	if err := cfg.validatePipeline(); err != nil {
		return nil, fmt.Errorf("invalid pipeline configuration: %w", err)
	}

	// Auto-derive BaseURL from Port if not explicitly set
	if cfg.BaseURL == "" {
		cfg.BaseURL = (&url.URL{
			Scheme: "http",
			Host:   "localhost:" + cfg.Port,
		}).String()
	}

	return cfg, nil
}

// applyFallbacks fills in fields that default to other sections.
func (c *Config) applyFallbacks() {
	// Without a dedicated target database, query the application database.
	if !c.Target.IsConfigured() {
		c.Target.Host = c.Database.Host
		c.Target.Port = c.Database.Port
		c.Target.User = c.Database.User
		c.Target.Password = c.Database.Password
		c.Target.Database = c.Database.Database
		c.Target.SSLMode = c.Database.SSLMode
	}

	// The embedding endpoint shares the LLM endpoint unless overridden.
	if c.Embedding.BaseURL == "" {
		c.Embedding.BaseURL = c.LLM.BaseURL
	}
	if c.Embedding.APIKey == "" {
		c.Embedding.APIKey = c.LLM.APIKey
	}
}

// validatePipeline rejects pipeline settings outside their workable ranges.
func (c *Config) validatePipeline() error {
	p := &c.Pipeline
	if p.HistoryLimit < 1 {
		return fmt.Errorf("history_limit must be at least 1, got %d", p.HistoryLimit)
	}
	if p.RewriteWindow < 1 {
		return fmt.Errorf("rewrite_window must be at least 1, got %d", p.RewriteWindow)
	}
	if p.RewriteWindow > p.HistoryLimit {
		return fmt.Errorf("rewrite_window (%d) cannot exceed history_limit (%d)", p.RewriteWindow, p.HistoryLimit)
	}
	if p.RetrieveTopK < 0 {
		return fmt.Errorf("retrieve_top_k cannot be negative, got %d", p.RetrieveTopK)
	}
	if p.CacheTTLMinutes < 1 {
		return fmt.Errorf("cache_ttl_minutes must be at least 1, got %d", p.CacheTTLMinutes)
	}
	if p.CacheCapacity < 1 {
		return fmt.Errorf("cache_capacity must be at least 1, got %d", p.CacheCapacity)
	}
	if p.SchemaStaleMinutes < 1 {
		return fmt.Errorf("schema_stale_minutes must be at least 1, got %d", p.SchemaStaleMinutes)
	}
	if p.QueryTimeoutSeconds < 1 {
		return fmt.Errorf("query_timeout_seconds must be at least 1, got %d", p.QueryTimeoutSeconds)
	}
	if p.MaxRows < 1 {
		return fmt.Errorf("max_rows must be at least 1, got %d", p.MaxRows)
	}
	if p.ConfidenceThreshold < 0 || p.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold must be between 0 and 1, got %g", p.ConfidenceThreshold)
	}
	if p.MaxRefinementRounds < 0 {
		return fmt.Errorf("max_refinement_rounds cannot be negative, got %d", p.MaxRefinementRounds)
	}
	if p.SchemaSummaryBudget < 0 {
		return fmt.Errorf("schema_summary_budget cannot be negative, got %d", p.SchemaSummaryBudget)
	}
	return nil
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// ConnectionString returns a PostgreSQL connection string. The host is
// rewritten for containerized deployments so a target database on the host
// machine stays reachable.
func (c *TargetConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		ResolveHostForDocker(c.Host), c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
