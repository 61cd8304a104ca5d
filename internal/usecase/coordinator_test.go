package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"NewsHarvester/internal/domain"
)

type fetchFunc func(ctx context.Context, via domain.Strategy, url string) (string, error)

func (f fetchFunc) FetchContent(ctx context.Context, via domain.Strategy, url string) (string, error) {
	return f(ctx, via, url)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func makeTasks(n int) []domain.FetchTask {
	tasks := make([]domain.FetchTask, n)
	for i := range tasks {
		tasks[i] = domain.FetchTask{Stub: domain.ArticleStub{
			URL:   fmt.Sprintf("https://example.com/news/%d", i),
			Title: fmt.Sprintf("Story number %d", i),
		}}
	}
	return tasks
}

func byURL(results []domain.TaskResult) map[string]domain.TaskResult {
	out := make(map[string]domain.TaskResult, len(results))
	for _, r := range results {
		out[r.Task.Stub.URL] = r
	}
	return out
}

func TestFetchAllRespectsConcurrencyLimit(t *testing.T) {
	t.Parallel()

	var inFlight, peak atomic.Int32
	fetcher := fetchFunc(func(ctx context.Context, via domain.Strategy, url string) (string, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(15 * time.Millisecond)
		return "body of " + url, nil
	})

	c := NewCoordinator(fetcher, discardLogger())
	results := c.FetchAll(context.Background(), makeTasks(20), 3, time.Second)

	if len(results) != 20 {
		t.Fatalf("expected 20 results, got %d", len(results))
	}
	if got := peak.Load(); got > 3 {
		t.Fatalf("observed %d concurrent fetches, limit is 3", got)
	}
	for _, r := range results {
		if !r.Result.Succeeded() || r.Result.FetchedVia != domain.StrategyPrimary {
			t.Fatalf("unexpected result for %s: %+v", r.Task.Stub.URL, r.Result)
		}
		if r.Result.Content != "body of "+r.Task.Stub.URL {
			t.Fatalf("result associated with the wrong task: %s -> %q", r.Task.Stub.URL, r.Result.Content)
		}
	}
}

func TestFetchAllFallbackPolicy(t *testing.T) {
	t.Parallel()

	tasks := makeTasks(3)
	okURL, fallbackURL, deadURL := tasks[0].Stub.URL, tasks[1].Stub.URL, tasks[2].Stub.URL

	var mu sync.Mutex
	calls := map[string][]domain.Strategy{}
	fetcher := fetchFunc(func(ctx context.Context, via domain.Strategy, url string) (string, error) {
		mu.Lock()
		calls[url] = append(calls[url], via)
		mu.Unlock()

		switch {
		case url == okURL:
			return "primary content", nil
		case url == fallbackURL && via == domain.StrategyFallback:
			return "fallback content", nil
		case url == fallbackURL:
			return "", domain.NewError(domain.KindNetwork, "fetch", url, errors.New("connection reset"))
		default:
			return "", domain.NewError(domain.KindNetwork, "fetch", url, errors.New("no route to host"))
		}
	})

	results := byURL(NewCoordinator(fetcher, discardLogger()).FetchAll(context.Background(), tasks, 2, time.Second))

	if r := results[okURL]; !r.Result.Succeeded() || r.Result.FetchedVia != domain.StrategyPrimary || r.Task.AttemptCount != 1 {
		t.Fatalf("primary success mismatch: %+v attempts=%d", r.Result, r.Task.AttemptCount)
	}
	if r := results[fallbackURL]; !r.Result.Succeeded() || r.Result.FetchedVia != domain.StrategyFallback || r.Task.AttemptCount != 2 {
		t.Fatalf("fallback success mismatch: %+v attempts=%d", r.Result, r.Task.AttemptCount)
	}
	r := results[deadURL]
	if r.Result.Succeeded() || r.Result.Failure.Reason != domain.KindNetwork || r.Task.AttemptCount != 2 {
		t.Fatalf("double failure mismatch: %+v attempts=%d", r.Result, r.Task.AttemptCount)
	}
	if got := calls[okURL]; len(got) != 1 {
		t.Fatalf("successful primary must not trigger fallback, calls=%v", got)
	}
	if got := calls[deadURL]; len(got) != 2 {
		t.Fatalf("expected exactly one retry, calls=%v", got)
	}
}

func TestFetchAllTimeoutScenario(t *testing.T) {
	t.Parallel()

	tasks := makeTasks(10)
	hanging := map[string]bool{}
	for _, task := range tasks[:3] {
		hanging[task.Stub.URL] = true
	}

	fetcher := fetchFunc(func(ctx context.Context, via domain.Strategy, url string) (string, error) {
		if hanging[url] {
			<-ctx.Done()
			return "", ctx.Err()
		}
		return "article text for " + url, nil
	})

	start := time.Now()
	results := NewCoordinator(fetcher, discardLogger()).FetchAll(context.Background(), tasks, 5, 50*time.Millisecond)
	elapsed := time.Since(start)

	var ok, timeouts int
	for _, r := range results {
		switch {
		case r.Result.Succeeded():
			ok++
		case r.Result.Failure.Reason == domain.KindTimeout:
			if !errors.Is(r.Result.Failure.Err, context.DeadlineExceeded) {
				t.Fatalf("timeout failure should wrap the deadline error: %v", r.Result.Failure.Err)
			}
			timeouts++
		default:
			t.Fatalf("unexpected failure: %+v", r.Result.Failure)
		}
	}
	if ok != 7 || timeouts != 3 {
		t.Fatalf("expected 7 successes and 3 timeouts, got %d and %d", ok, timeouts)
	}
	if elapsed > 2*time.Second {
		t.Fatalf("hung fetches were not bounded by the per-item timeout: %s", elapsed)
	}
}

func TestFetchAllEmptyContentTriggersFallback(t *testing.T) {
	t.Parallel()

	fetcher := fetchFunc(func(ctx context.Context, via domain.Strategy, url string) (string, error) {
		if via == domain.StrategyPrimary {
			return "   ", nil
		}
		return "rendered body", nil
	})

	results := NewCoordinator(fetcher, discardLogger()).FetchAll(context.Background(), makeTasks(1), 1, time.Second)
	if len(results) != 1 || !results[0].Result.Succeeded() || results[0].Result.FetchedVia != domain.StrategyFallback {
		t.Fatalf("expected fallback success, got %+v", results)
	}
}

func TestFetchAllParentCancellationSkipsFallback(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	var fallbacks atomic.Int32
	fetcher := fetchFunc(func(fctx context.Context, via domain.Strategy, url string) (string, error) {
		if via == domain.StrategyFallback {
			fallbacks.Add(1)
			return "late", nil
		}
		cancel()
		<-fctx.Done()
		return "", fctx.Err()
	})

	results := NewCoordinator(fetcher, discardLogger()).FetchAll(ctx, makeTasks(4), 2, time.Second)
	if len(results) != 4 {
		t.Fatalf("every task must yield a result, got %d", len(results))
	}
	for _, r := range results {
		if r.Result.Succeeded() {
			t.Fatalf("no task should succeed after cancellation: %+v", r)
		}
	}
	if n := fallbacks.Load(); n != 0 {
		t.Fatalf("fallback attempted %d times after cancellation", n)
	}
}

func TestFetchAllNoTasks(t *testing.T) {
	t.Parallel()

	fetcher := fetchFunc(func(context.Context, domain.Strategy, string) (string, error) {
		t.Fatal("fetcher must not be called")
		return "", nil
	})
	if got := NewCoordinator(fetcher, discardLogger()).FetchAll(context.Background(), nil, 4, time.Second); len(got) != 0 {
		t.Fatalf("expected no results, got %d", len(got))
	}
}

func TestFailureKindsAreDistinct(t *testing.T) {
	t.Parallel()

	err := domain.NewError(domain.KindEmptyContent, "fetch", "https://example.com", nil)
	if !errors.Is(err, domain.ErrEmptyContent) || errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("kind matching broken for %v", err)
	}
	if !strings.Contains(err.Error(), "empty_content") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
