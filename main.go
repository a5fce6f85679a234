package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/flsteven87/chatalyst-ai/pkg/cache"
	"github.com/flsteven87/chatalyst-ai/pkg/catalog"
	"github.com/flsteven87/chatalyst-ai/pkg/config"
	"github.com/flsteven87/chatalyst-ai/pkg/database"
	"github.com/flsteven87/chatalyst-ai/pkg/datasource"
	"github.com/flsteven87/chatalyst-ai/pkg/handlers"
	"github.com/flsteven87/chatalyst-ai/pkg/llm"
	"github.com/flsteven87/chatalyst-ai/pkg/mcp"
	"github.com/flsteven87/chatalyst-ai/pkg/mcp/tools"
	"github.com/flsteven87/chatalyst-ai/pkg/middleware"
	"github.com/flsteven87/chatalyst-ai/pkg/repositories"
	"github.com/flsteven87/chatalyst-ai/pkg/retrieval"
	"github.com/flsteven87/chatalyst-ai/pkg/services"
	sqlcheck "github.com/flsteven87/chatalyst-ai/pkg/sql"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.String("app_database", fmt.Sprintf("%s@%s:%d/%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)),
		zap.String("target_database", fmt.Sprintf("%s@%s:%d/%s", cfg.Target.User, cfg.Target.Host, cfg.Target.Port, cfg.Target.Database)),
		zap.String("llm_model", cfg.LLM.Model),
		zap.String("embedding_model", cfg.Embedding.Model))

	ctx := context.Background()

	// Application database: query history and stored examples.
	appDB, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
		MinConnections: cfg.Database.MinConnections,
	})
	if err != nil {
		logger.Fatal("failed to connect to application database", zap.Error(err))
	}
	defer appDB.Close()

	if err := runMigrations(cfg, logger); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	// Target database: the schema questions are answered against. Without a
	// dedicated target configured this points at the application database.
	targetDB, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Target.ConnectionString(),
		MaxConnections: cfg.Target.MaxConnections,
		MinConnections: cfg.Target.MinConnections,
	})
	if err != nil {
		logger.Fatal("failed to connect to target database", zap.Error(err))
	}
	defer targetDB.Close()

	discoverer := datasource.NewSchemaDiscoverer(targetDB.Pool, logger)
	cat := catalog.NewCatalog(discoverer, cfg.Pipeline.SchemaStaleAfter(), logger)
	if _, err := cat.Snapshot(ctx, false); err != nil {
		logger.Warn("initial schema discovery failed, retrying on first question", zap.Error(err))
	}

	var store cache.Store
	if cfg.Redis.IsAvailable() {
		redisClient, err := database.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		store = cache.NewRedisCache(redisClient, logger)
		logger.Info("using redis result cache", zap.String("host", cfg.Redis.Host))
	} else {
		store = cache.NewMemoryCache(cfg.Pipeline.CacheCapacity)
	}

	chatClient, err := llm.NewClient(&llm.Config{
		Endpoint: cfg.LLM.BaseURL,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
		Timeout:  cfg.LLM.Timeout(),
	}, logger)
	if err != nil {
		logger.Fatal("failed to create LLM client", zap.Error(err))
	}

	embedClient, err := llm.NewClient(&llm.Config{
		Endpoint: cfg.Embedding.BaseURL,
		Model:    cfg.Embedding.Model,
		APIKey:   cfg.Embedding.APIKey,
		Timeout:  cfg.Embedding.Timeout(),
	}, logger)
	if err != nil {
		logger.Fatal("failed to create embedding client", zap.Error(err))
	}

	breaker := llm.NewCircuitBreaker(llm.CircuitBreakerConfig{
		Threshold:  cfg.LLM.BreakerThreshold,
		ResetAfter: cfg.LLM.BreakerReset(),
	})
	workerPool := llm.NewWorkerPool(llm.DefaultWorkerPoolConfig(), logger)

	index := retrieval.NewIndex()
	retriever := retrieval.NewRetriever(embedClient, index, cfg.Embedding.Model, logger)

	historyRepo := repositories.NewQueryHistoryRepository(appDB)
	exampleRepo := repositories.NewExampleRepository(appDB)

	training := services.NewTrainingService(embedClient, cfg.Embedding.Model, exampleRepo, index, workerPool, logger)
	if indexed, err := training.ReloadIndex(ctx); err != nil {
		logger.Warn("failed to load example index", zap.Error(err))
	} else {
		logger.Info("example index loaded", zap.Int("examples", indexed))
	}

	ruleset := sqlcheck.NewRuleset()
	if cfg.RulesPath != "" {
		ruleset, err = sqlcheck.LoadRuleset(cfg.RulesPath)
		if err != nil {
			logger.Fatal("failed to load business rules", zap.String("path", cfg.RulesPath), zap.Error(err))
		}
		logger.Info("business rules loaded", zap.String("path", cfg.RulesPath))
	}
	validator := sqlcheck.NewValidator(ruleset, logger)

	sessions := services.NewSessionStore(cfg.Pipeline.HistoryLimit)
	rewriter := services.NewRewriter(chatClient, logger)
	generator := services.NewGenerator(chatClient, breaker, services.GeneratorConfig{
		Temperature:         cfg.LLM.Temperature,
		ConfidenceThreshold: cfg.Pipeline.ConfidenceThreshold,
		MaxRefinementRounds: cfg.Pipeline.MaxRefinementRounds,
		SchemaSummaryBudget: cfg.Pipeline.SchemaSummaryBudget,
	}, logger)
	executor := datasource.NewQueryExecutor(targetDB.Pool)

	pipeline := services.NewPipeline(cat, sessions, rewriter, retriever, generator, validator, executor, store, historyRepo, &cfg.Pipeline, logger)
	historyService := services.NewHistoryService(historyRepo, logger)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewAskHandler(pipeline, logger).RegisterRoutes(mux)
	handlers.NewSchemaHandler(pipeline, logger).RegisterRoutes(mux)
	handlers.NewHistoryHandler(historyService, logger).RegisterRoutes(mux)
	handlers.NewExamplesHandler(training, logger).RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	mcpServer := mcp.NewServer("chatalyst", cfg.Version, logger)
	tools.RegisterAskTools(mcpServer.MCP(), &tools.AskToolDeps{Pipeline: pipeline, Logger: logger})
	tools.RegisterSchemaTools(mcpServer.MCP(), &tools.SchemaToolDeps{Pipeline: pipeline, Logger: logger})
	tools.RegisterHealthTool(mcpServer.MCP(), cfg.Version)
	handlers.NewMCPHandler(mcpServer, logger).RegisterRoutes(mux)

	server := &http.Server{
		Addr:    cfg.BindAddr + ":" + cfg.Port,
		Handler: middleware.RequestLogger(logger)(mux),
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting chatalyst", zap.String("addr", server.Addr), zap.String("version", cfg.Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
		_ = server.Close()
	}
}

// runMigrations applies pending application schema migrations. The migrate
// driver needs database/sql, so it gets its own short-lived connection.
func runMigrations(cfg *config.Config, logger *zap.Logger) error {
	sqlDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer func() { _ = sqlDB.Close() }()
	return database.RunMigrations(sqlDB, cfg.MigrationsPath, logger)
}

// newLogger builds the process logger. Production gets JSON output, every
// other environment the development console encoder.
func newLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
