package api

import (
	"context"
	"time"

	"NewsHarvester/internal/domain"
)

// RunController starts runs on demand and exposes the last finished one.
type RunController interface {
	Trigger(ctx context.Context) (domain.RunSummary, error)
	Latest() (domain.RunSummary, bool)
}

// StatsReader reports what the store currently holds.
type StatsReader interface {
	Stats(ctx context.Context) (domain.StoreStats, error)
}

// RunResponse is the JSON form of a run summary.
type RunResponse struct {
	RunID             string    `json:"run_id"`
	Stage             string    `json:"stage"`
	FailureReason     string    `json:"failure_reason,omitempty"`
	SourcesSucceeded  int       `json:"sources_succeeded"`
	SourcesFailed     int       `json:"sources_failed"`
	TotalCandidates   int       `json:"total_candidates"`
	StaleSkipped      int       `json:"stale_skipped"`
	DuplicatesSkipped int       `json:"duplicates_skipped"`
	Deferred          int       `json:"deferred"`
	FetchSuccesses    int       `json:"fetch_successes"`
	FetchFailures     int       `json:"fetch_failures"`
	RecordsCommitted  int       `json:"records_committed"`
	CommitFailures    int       `json:"commit_failures"`
	StartedAt         time.Time `json:"started_at"`
	FinishedAt        time.Time `json:"finished_at"`
	DurationSeconds   float64   `json:"duration_seconds"`
}

// StatsResponse is the JSON form of store statistics.
type StatsResponse struct {
	Total    int64            `json:"total"`
	BySource map[string]int64 `json:"by_source"`
}

func newRunResponse(s domain.RunSummary) RunResponse {
	return RunResponse{
		RunID:             s.RunID,
		Stage:             string(s.Stage),
		FailureReason:     s.FailureReason,
		SourcesSucceeded:  s.SourcesSucceeded,
		SourcesFailed:     s.SourcesFailed,
		TotalCandidates:   s.TotalCandidates,
		StaleSkipped:      s.StaleSkipped,
		DuplicatesSkipped: s.DuplicatesSkipped,
		Deferred:          s.Deferred,
		FetchSuccesses:    s.FetchSuccesses,
		FetchFailures:     s.FetchFailures,
		RecordsCommitted:  s.RecordsCommitted,
		CommitFailures:    s.CommitFailures,
		StartedAt:         s.StartedAt,
		FinishedAt:        s.FinishedAt,
		DurationSeconds:   s.Duration().Seconds(),
	}
}
