// Package parallel provides the bounded-concurrency execution service used
// for multi-column pipeline fan-out and for data sampling. Tasks run on
// plain goroutines gated by a channel semaphore; there is no fixed worker
// count, only a ceiling on how many tasks run at once.
package parallel

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Config tunes the execution service.
type Config struct {
	// MaxConcurrent is the maximum number of tasks running at once.
	MaxConcurrent int
	// BatchTimeout bounds how long a batch waits for results. Tasks still
	// pending when it elapses are abandoned; their results are simply not
	// collected. The timeout never cancels work that already started.
	BatchTimeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrent: 8,
		BatchTimeout:  30 * time.Second,
	}
}

// Service executes batches of independent tasks with bounded parallelism.
type Service struct {
	config Config
	logger *zap.Logger
}

// NewService creates an execution service.
func NewService(config Config, logger *zap.Logger) *Service {
	if config.MaxConcurrent < 1 {
		config.MaxConcurrent = DefaultConfig().MaxConcurrent
	}
	if config.BatchTimeout <= 0 {
		config.BatchTimeout = DefaultConfig().BatchTimeout
	}
	return &Service{
		config: config,
		logger: logger.Named("parallel"),
	}
}

// Task is a unit of work with an identifier for logging.
type Task[T any] struct {
	ID  string
	Run func(ctx context.Context) (T, error)
}

// Result pairs a task ID with its outcome.
type Result[T any] struct {
	ID    string
	Value T
	Err   error
}

// Execute runs all tasks and returns the results that completed within the
// batch timeout, in completion order. Failed tasks are logged and excluded;
// a partial result set is expected under load and is not an error.
func Execute[T any](ctx context.Context, svc *Service, tasks []Task[T]) []Result[T] {
	if len(tasks) == 0 {
		return nil
	}

	resultsChan := make(chan Result[T], len(tasks))
	sem := make(chan struct{}, svc.config.MaxConcurrent)

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
				resultsChan <- Result[T]{ID: task.ID, Value: zero, Err: ctx.Err()}
				return
			}

			value, err := task.Run(ctx)
			resultsChan <- Result[T]{ID: task.ID, Value: value, Err: err}
		}(task)
	}

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	timeout := time.NewTimer(svc.config.BatchTimeout)
	defer timeout.Stop()

	results := make([]Result[T], 0, len(tasks))
	collected := 0
	for collected < len(tasks) {
		select {
		case r, ok := <-resultsChan:
			if !ok {
				return keepSucceeded(svc, results)
			}
			collected++
			results = append(results, r)
		case <-timeout.C:
			svc.logger.Warn("batch timeout elapsed, returning partial results",
				zap.Int("completed", collected),
				zap.Int("total", len(tasks)),
				zap.Duration("timeout", svc.config.BatchTimeout))
			return keepSucceeded(svc, results)
		case <-ctx.Done():
			svc.logger.Warn("batch cancelled, returning partial results",
				zap.Int("completed", collected),
				zap.Int("total", len(tasks)))
			return keepSucceeded(svc, results)
		}
	}
	return keepSucceeded(svc, results)
}

// keepSucceeded drops failed results, logging each failure once.
func keepSucceeded[T any](svc *Service, results []Result[T]) []Result[T] {
	kept := results[:0]
	for _, r := range results {
		if r.Err != nil {
			svc.logger.Warn("task failed, excluding from results",
				zap.String("task_id", r.ID),
				zap.Error(r.Err))
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

// ExecuteKeyed runs a map of keyed tasks and returns a map of the results
// that completed successfully within the batch timeout. Semantics match
// Execute: failures and abandoned tasks are simply absent from the map.
func ExecuteKeyed[K comparable, T any](ctx context.Context, svc *Service, tasks map[K]func(ctx context.Context) (T, error)) map[K]T {
	if len(tasks) == 0 {
		return map[K]T{}
	}

	type keyedResult struct {
		key   K
		value T
		err   error
	}

	resultsChan := make(chan keyedResult, len(tasks))
	sem := make(chan struct{}, svc.config.MaxConcurrent)

	var wg sync.WaitGroup
	for key, run := range tasks {
		wg.Add(1)
		go func(key K, run func(ctx context.Context) (T, error)) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				var zero T
				resultsChan <- keyedResult{key: key, value: zero, err: ctx.Err()}
				return
			}

			value, err := run(ctx)
			resultsChan <- keyedResult{key: key, value: value, err: err}
		}(key, run)
	}

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	timeout := time.NewTimer(svc.config.BatchTimeout)
	defer timeout.Stop()

	out := make(map[K]T, len(tasks))
	collected := 0
	for collected < len(tasks) {
		select {
		case r, ok := <-resultsChan:
			if !ok {
				return out
			}
			collected++
			if r.err != nil {
				svc.logger.Warn("keyed task failed, excluding from results", zap.Error(r.err))
				continue
			}
			out[r.key] = r.value
		case <-timeout.C:
			svc.logger.Warn("batch timeout elapsed, returning partial keyed results",
				zap.Int("completed", collected),
				zap.Int("total", len(tasks)))
			return out
		case <-ctx.Done():
			return out
		}
	}
	return out
}
