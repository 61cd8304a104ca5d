package domain

import "time"

// Stage is a state of the ingestion run.
type Stage string

const (
	StageIdle           Stage = "idle"
	StageListingFetched Stage = "listing_fetched"
	StageDeduped        Stage = "deduped"
	StageContentFetched Stage = "content_fetched"
	StageCommitted      Stage = "committed"
	StageAborted        Stage = "aborted"
)

// RunSummary aggregates one pipeline run. It is returned from every
// terminal state, including Aborted.
type RunSummary struct {
	RunID             string
	Stage             Stage
	FailureReason     string
	SourcesSucceeded  int
	SourcesFailed     int
	TotalCandidates   int
	StaleSkipped      int
	DuplicatesSkipped int
	Deferred          int
	FetchSuccesses    int
	FetchFailures     int
	RecordsCommitted  int
	CommitFailures    int
	StartedAt         time.Time
	FinishedAt        time.Time
}

// Aborted reports whether the run ended before commit.
func (s RunSummary) Aborted() bool {
	return s.Stage == StageAborted
}

// Duration is the wall time of the run.
func (s RunSummary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}
