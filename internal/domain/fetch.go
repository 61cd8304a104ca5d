package domain

import "time"

// Strategy names which retrieval path produced a page.
type Strategy int

const (
	StrategyPrimary Strategy = iota
	StrategyFallback
)

func (s Strategy) String() string {
	switch s {
	case StrategyPrimary:
		return "primary"
	case StrategyFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// FetchTask is one unit of content-fetch work.
type FetchTask struct {
	Stub         ArticleStub
	AttemptCount int
}

// FetchResult is either a success carrying content or a failure carrying a
// reason. Exactly one of the two shapes is populated.
type FetchResult struct {
	Content    string
	FetchedVia Strategy
	Failure    *FetchFailure
	Elapsed    time.Duration
}

// FetchFailure describes why a task ended without content.
type FetchFailure struct {
	Reason ErrorKind
	Err    error
}

// Succeeded reports whether the result carries content.
func (r FetchResult) Succeeded() bool {
	return r.Failure == nil
}

// Success builds a successful result.
func Success(content string, via Strategy) FetchResult {
	return FetchResult{Content: content, FetchedVia: via}
}

// Failed builds a failed result classifying err.
func Failed(err error) FetchResult {
	return FetchResult{Failure: &FetchFailure{Reason: KindOf(err), Err: err}}
}

// TaskResult pairs a finished task with its outcome.
type TaskResult struct {
	Task   FetchTask
	Result FetchResult
}
