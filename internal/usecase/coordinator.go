package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"NewsHarvester/internal/domain"
	"NewsHarvester/internal/ports"
)

// Coordinator fetches article bodies for a set of tasks with a fixed number
// of workers. Each attempt runs under its own timeout; a failed primary
// attempt is retried once through the fallback strategy.
type Coordinator struct {
	fetcher ports.ContentFetcher
	logger  *slog.Logger
}

// NewCoordinator builds a Coordinator around fetcher.
func NewCoordinator(fetcher ports.ContentFetcher, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{fetcher: fetcher, logger: logger}
}

// FetchAll runs every task and returns one result per task in completion
// order. It never fails as a whole: per-task problems are carried in the
// results.
func (c *Coordinator) FetchAll(ctx context.Context, tasks []domain.FetchTask, limit int, timeout time.Duration) []domain.TaskResult {
	results := make([]domain.TaskResult, 0, len(tasks))
	for res := range c.Stream(ctx, tasks, limit, timeout) {
		results = append(results, res)
	}
	return results
}

// Stream starts the worker pool and returns the channel results are fanned
// into. The channel is closed once every task has produced its result.
func (c *Coordinator) Stream(ctx context.Context, tasks []domain.FetchTask, limit int, timeout time.Duration) <-chan domain.TaskResult {
	if limit < 1 {
		limit = 1
	}
	if limit > len(tasks) {
		limit = len(tasks)
	}

	queue := make(chan domain.FetchTask)
	out := make(chan domain.TaskResult, len(tasks))

	var wg sync.WaitGroup
	for i := 0; i < limit; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range queue {
				out <- c.run(ctx, task, timeout)
			}
		}()
	}

	go func() {
		for _, task := range tasks {
			queue <- task
		}
		close(queue)
		wg.Wait()
		close(out)
	}()

	return out
}

func (c *Coordinator) run(ctx context.Context, task domain.FetchTask, timeout time.Duration) domain.TaskResult {
	start := time.Now()
	url := task.Stub.URL

	if err := ctx.Err(); err != nil {
		return c.finish(task, domain.Failed(err), start)
	}

	task.AttemptCount++
	content, err := c.attempt(ctx, domain.StrategyPrimary, url, timeout)
	if err == nil {
		return c.finish(task, domain.Success(content, domain.StrategyPrimary), start)
	}
	if ctx.Err() != nil {
		return c.finish(task, domain.Failed(err), start)
	}

	c.logger.Debug("primary fetch failed, trying fallback",
		"url", url,
		"reason", domain.KindOf(err).String(),
		"error", err)

	task.AttemptCount++
	content, err = c.attempt(ctx, domain.StrategyFallback, url, timeout)
	if err != nil {
		return c.finish(task, domain.Failed(err), start)
	}
	return c.finish(task, domain.Success(content, domain.StrategyFallback), start)
}

func (c *Coordinator) attempt(ctx context.Context, via domain.Strategy, url string, timeout time.Duration) (string, error) {
	attemptCtx := ctx
	cancel := func() {}
	if timeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	content, err := c.fetcher.FetchContent(attemptCtx, via, url)
	if err != nil {
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil && domain.KindOf(err) != domain.KindTimeout {
			return "", domain.NewError(domain.KindTimeout, "fetch "+via.String(), url, err)
		}
		return "", err
	}
	if strings.TrimSpace(content) == "" {
		return "", domain.NewError(domain.KindEmptyContent, "fetch "+via.String(), url, nil)
	}
	return content, nil
}

func (c *Coordinator) finish(task domain.FetchTask, result domain.FetchResult, start time.Time) domain.TaskResult {
	result.Elapsed = time.Since(start)
	if result.Succeeded() {
		c.logger.Debug("article fetched",
			"url", task.Stub.URL,
			"via", result.FetchedVia.String(),
			"attempts", task.AttemptCount,
			"duration", result.Elapsed)
	} else {
		c.logger.Warn("article fetch failed",
			"url", task.Stub.URL,
			"reason", result.Failure.Reason.String(),
			"attempts", task.AttemptCount,
			"error", result.Failure.Err)
	}
	return domain.TaskResult{Task: task, Result: result}
}
