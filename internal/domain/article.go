package domain

import "time"

// ArticleStub is a lightweight reference discovered on a listing page.
type ArticleStub struct {
	URL         string
	Title       string
	PublishedAt time.Time
	SourceLabel string
	Industries  []string
}

// HasPublishedAt reports whether the listing exposed a publication time.
func (s ArticleStub) HasPublishedAt() bool {
	return !s.PublishedAt.IsZero()
}

// EmbeddingStatus tracks downstream enrichment of a stored record.
type EmbeddingStatus string

const (
	EmbeddingPending EmbeddingStatus = "pending"
	EmbeddingDone    EmbeddingStatus = "done"
)

// DefaultIndustries is assigned when a source does not configure its own.
var DefaultIndustries = []string{"Financial News"}

// ArticleRecord is the unit persisted to the store. URL holds the
// normalized URL and is unique across the store.
type ArticleRecord struct {
	ID              string
	URL             string
	Link            string
	Title           string
	Content         string
	PublishedAt     time.Time
	Source          string
	Industries      []string
	EmbeddingStatus EmbeddingStatus
	CreatedAt       time.Time
}

// InsertOutcome reports what happened to one record of a batch insert.
type InsertOutcome struct {
	URL      string
	Inserted bool
	Err      error
}

// StoreStats is a snapshot of what the store currently holds.
type StoreStats struct {
	Total    int64
	BySource map[string]int64
}
