package ports

import (
	"context"
	"time"

	"NewsHarvester/internal/domain"
)

// ListingSource retrieves and parses every configured listing page.
type ListingSource interface {
	FetchListings(ctx context.Context) []domain.ListingOutcome
}

// PageFetcher retrieves raw page bytes through the chosen strategy.
type PageFetcher interface {
	Fetch(ctx context.Context, via domain.Strategy, url string) ([]byte, error)
}

// ContentFetcher retrieves an article page and returns its extracted body.
type ContentFetcher interface {
	FetchContent(ctx context.Context, via domain.Strategy, url string) (string, error)
}

// StoreGateway is the persistent record store.
type StoreGateway interface {
	AlreadyStored(ctx context.Context, urls []string) (map[string]bool, error)
	InsertBatch(ctx context.Context, records []domain.ArticleRecord) ([]domain.InsertOutcome, error)
	Stats(ctx context.Context) (domain.StoreStats, error)
	Close(ctx context.Context) error
}

// Notifier announces finished runs to Telegram or other channels.
type Notifier interface {
	PublishSummary(ctx context.Context, summary domain.RunSummary) error
}

// Exporter writes a local copy of a run's records.
type Exporter interface {
	Export(ctx context.Context, summary domain.RunSummary, records []domain.ArticleRecord) ([]string, error)
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
