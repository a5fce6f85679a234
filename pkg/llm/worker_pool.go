package llm

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// WorkerPoolConfig configures the LLM worker pool.
type WorkerPoolConfig struct {
	MaxConcurrent int // Maximum in-flight LLM calls (default: 8)
}

// DefaultWorkerPoolConfig returns sensible defaults.
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{MaxConcurrent: 8}
}

// WorkerPool bounds how many LLM calls run at once. Batch embedding fans out
// through it; a semaphore caps in-flight requests so a large batch cannot
// saturate the endpoint.
type WorkerPool struct {
	config WorkerPoolConfig
	logger *zap.Logger
}

// NewWorkerPool creates a new LLM worker pool.
func NewWorkerPool(config WorkerPoolConfig, logger *zap.Logger) *WorkerPool {
	if config.MaxConcurrent < 1 {
		config.MaxConcurrent = 8
	}
	return &WorkerPool{
		config: config,
		logger: logger.Named("llm-worker-pool"),
	}
}

// Task is one unit of work submitted to the pool.
type Task[T any] struct {
	ID  string // For logging
	Run func(ctx context.Context) (T, error)
}

// TaskResult pairs a task's ID with what running it produced.
type TaskResult[T any] struct {
	ID    string
	Value T
	Err   error
}

// Process runs all tasks with bounded parallelism and returns results in
// completion order. A failed task does not stop the rest; a cancelled
// context fails the tasks still waiting for a slot.
func Process[T any](ctx context.Context, pool *WorkerPool, tasks []Task[T]) []TaskResult[T] {
	if len(tasks) == 0 {
		return nil
	}

	resultsChan := make(chan TaskResult[T], len(tasks))
	sem := make(chan struct{}, pool.config.MaxConcurrent)

	var wg sync.WaitGroup
	for _, task := range tasks {
		wg.Add(1)
		go func(task Task[T]) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				var zero T
				resultsChan <- TaskResult[T]{ID: task.ID, Value: zero, Err: ctx.Err()}
				return
			}

			value, err := task.Run(ctx)
			resultsChan <- TaskResult[T]{ID: task.ID, Value: value, Err: err}
		}(task)
	}

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	results := make([]TaskResult[T], 0, len(tasks))
	for result := range resultsChan {
		results = append(results, result)
	}
	return results
}
