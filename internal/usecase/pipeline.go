package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"NewsHarvester/internal/dedup"
	"NewsHarvester/internal/domain"
	"NewsHarvester/internal/ports"
)

const defaultCommitTimeout = 30 * time.Second

// PipelineConfig holds the tunables of one ingestion run.
type PipelineConfig struct {
	MaxAge           time.Duration
	ConcurrencyLimit int
	PerItemTimeout   time.Duration
	MaxArticles      int
	DedupByTitle     bool
	CommitTimeout    time.Duration
}

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source   ports.ListingSource
	Store    ports.StoreGateway
	Fetcher  ports.ContentFetcher
	Exporter ports.Exporter
	Notifier ports.Notifier
	Logger   *slog.Logger
	Config   PipelineConfig
	Now      func() time.Time
	NewID    func() string
}

// Pipeline implements the article-ingestion workflow.
type Pipeline struct {
	source      ports.ListingSource
	store       ports.StoreGateway
	coordinator *Coordinator
	exporter    ports.Exporter
	notifier    ports.Notifier
	logger      *slog.Logger
	cfg         PipelineConfig
	now         func() time.Time
	newID       func() string
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := deps.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	newID := deps.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	cfg := deps.Config
	if cfg.ConcurrencyLimit < 1 {
		cfg.ConcurrencyLimit = 1
	}
	if cfg.CommitTimeout <= 0 {
		cfg.CommitTimeout = defaultCommitTimeout
	}

	return &Pipeline{
		source:      deps.Source,
		store:       deps.Store,
		coordinator: NewCoordinator(deps.Fetcher, logger.With("component", "coordinator")),
		exporter:    deps.Exporter,
		notifier:    deps.Notifier,
		logger:      logger,
		cfg:         cfg,
		now:         now,
		newID:       newID,
	}
}

// Run executes one ingestion pass and reports what happened. The summary is
// returned from every terminal state; an aborted run never writes to the
// store.
func (p *Pipeline) Run(ctx context.Context) domain.RunSummary {
	summary := domain.RunSummary{
		RunID:     p.newID(),
		Stage:     domain.StageIdle,
		StartedAt: p.now(),
	}
	logger := p.logger.With("run_id", summary.RunID)
	logger.Info("run started")

	committed := p.execute(ctx, logger, &summary)
	summary.FinishedAt = p.now()

	p.afterRun(ctx, logger, summary, committed)
	return summary
}

func (p *Pipeline) execute(ctx context.Context, logger *slog.Logger, summary *domain.RunSummary) []domain.ArticleRecord {
	if p.source == nil || p.store == nil {
		abort(summary, "pipeline is not wired with a listing source and a store")
		return nil
	}

	stubs, ok := p.collectListings(ctx, logger, summary)
	if !ok {
		return nil
	}
	summary.Stage = domain.StageListingFetched

	fresh, ok := p.deduplicate(ctx, logger, stubs, summary)
	if !ok {
		return nil
	}
	summary.Stage = domain.StageDeduped

	if p.cfg.MaxArticles > 0 && len(fresh) > p.cfg.MaxArticles {
		summary.Deferred = len(fresh) - p.cfg.MaxArticles
		fresh = fresh[:p.cfg.MaxArticles]
		logger.Info("article cap reached, deferring the rest", "cap", p.cfg.MaxArticles, "deferred", summary.Deferred)
	}

	results := p.fetchContent(ctx, logger, fresh, summary)
	summary.Stage = domain.StageContentFetched

	records := p.commit(ctx, logger, results, summary)
	summary.Stage = domain.StageCommitted
	return records
}

func (p *Pipeline) collectListings(ctx context.Context, logger *slog.Logger, summary *domain.RunSummary) ([]domain.ArticleStub, bool) {
	outcomes := p.source.FetchListings(ctx)
	if len(outcomes) == 0 {
		abort(summary, "no listing sources configured")
		return nil, false
	}

	now := p.now()
	var stubs []domain.ArticleStub
	for _, outcome := range outcomes {
		if outcome.Failed() {
			summary.SourcesFailed++
			logger.Warn("listing source failed",
				"site", outcome.Site,
				"category", outcome.Category,
				"url", outcome.URL,
				"error", outcome.Err)
			continue
		}
		summary.SourcesSucceeded++
		summary.TotalCandidates += len(outcome.Stubs)

		for _, stub := range outcome.Stubs {
			if p.isStale(stub, now) {
				summary.StaleSkipped++
				continue
			}
			stubs = append(stubs, stub)
		}
		logger.Debug("listing source parsed",
			"site", outcome.Site,
			"category", outcome.Category,
			"via", outcome.FetchedVia.String(),
			"stubs", len(outcome.Stubs))
	}

	if summary.SourcesSucceeded == 0 {
		abort(summary, fmt.Sprintf("all %d listing sources failed", summary.SourcesFailed))
		return nil, false
	}

	logger.Info("listings fetched",
		"sources_ok", summary.SourcesSucceeded,
		"sources_failed", summary.SourcesFailed,
		"candidates", summary.TotalCandidates,
		"stale", summary.StaleSkipped)
	return stubs, true
}

func (p *Pipeline) isStale(stub domain.ArticleStub, now time.Time) bool {
	if p.cfg.MaxAge <= 0 || !stub.HasPublishedAt() {
		return false
	}
	return now.Sub(stub.PublishedAt) > p.cfg.MaxAge
}

func (p *Pipeline) deduplicate(ctx context.Context, logger *slog.Logger, stubs []domain.ArticleStub, summary *domain.RunSummary) ([]domain.ArticleStub, bool) {
	known := map[string]bool{}
	if keys := dedup.Keys(stubs); len(keys) > 0 {
		var err error
		known, err = p.store.AlreadyStored(ctx, keys)
		if err != nil {
			abort(summary, fmt.Sprintf("lookup existing records: %v", err))
			logger.Error("store lookup failed", "error", err)
			return nil, false
		}
	}

	fresh, duplicates := dedup.Partition(stubs, known)
	if p.cfg.DedupByTitle {
		var sameTitle []domain.ArticleStub
		fresh, sameTitle = dedup.PartitionByTitle(fresh)
		duplicates = append(duplicates, sameTitle...)
	}
	summary.DuplicatesSkipped = len(duplicates)

	logger.Info("candidates deduplicated", "new", len(fresh), "duplicates", len(duplicates))
	return fresh, true
}

func (p *Pipeline) fetchContent(ctx context.Context, logger *slog.Logger, fresh []domain.ArticleStub, summary *domain.RunSummary) []domain.TaskResult {
	if len(fresh) == 0 {
		return nil
	}

	tasks := make([]domain.FetchTask, len(fresh))
	for i, stub := range fresh {
		tasks[i] = domain.FetchTask{Stub: stub}
	}

	results := p.coordinator.FetchAll(ctx, tasks, p.cfg.ConcurrencyLimit, p.cfg.PerItemTimeout)
	for _, res := range results {
		if res.Result.Succeeded() {
			summary.FetchSuccesses++
		} else {
			summary.FetchFailures++
		}
	}

	logger.Info("content fetched", "successes", summary.FetchSuccesses, "failures", summary.FetchFailures)
	return results
}

func (p *Pipeline) commit(ctx context.Context, logger *slog.Logger, results []domain.TaskResult, summary *domain.RunSummary) []domain.ArticleRecord {
	records := p.buildRecords(results)
	if len(records) == 0 {
		return nil
	}

	// completed fetches are still committed when the run context is cancelled
	commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.CommitTimeout)
	defer cancel()

	outcomes, err := p.store.InsertBatch(commitCtx, records)
	if err != nil {
		summary.CommitFailures = len(records)
		summary.FailureReason = fmt.Sprintf("insert batch: %v", err)
		logger.Error("batch insert failed", "records", len(records), "error", err)
		return nil
	}

	inserted := make(map[string]bool, len(outcomes))
	for _, outcome := range outcomes {
		if outcome.Inserted {
			inserted[outcome.URL] = true
			continue
		}
		logger.Warn("record not stored", "url", outcome.URL, "error", outcome.Err)
	}

	committed := make([]domain.ArticleRecord, 0, len(inserted))
	for _, record := range records {
		if inserted[record.URL] {
			committed = append(committed, record)
		}
	}
	summary.RecordsCommitted = len(committed)
	summary.CommitFailures = len(records) - len(committed)

	logger.Info("records committed", "committed", summary.RecordsCommitted, "failed", summary.CommitFailures)
	return committed
}

func (p *Pipeline) buildRecords(results []domain.TaskResult) []domain.ArticleRecord {
	createdAt := p.now()
	records := make([]domain.ArticleRecord, 0, len(results))
	for _, res := range results {
		if !res.Result.Succeeded() {
			continue
		}
		stub := res.Task.Stub
		industries := stub.Industries
		if len(industries) == 0 {
			industries = domain.DefaultIndustries
		}
		publishedAt := stub.PublishedAt
		if publishedAt.IsZero() {
			publishedAt = createdAt
		}
		records = append(records, domain.ArticleRecord{
			ID:              p.newID(),
			URL:             dedup.NormalizeURL(stub.URL),
			Link:            stub.URL,
			Title:           stub.Title,
			Content:         res.Result.Content,
			PublishedAt:     publishedAt,
			Source:          stub.SourceLabel,
			Industries:      append([]string(nil), industries...),
			EmbeddingStatus: domain.EmbeddingPending,
			CreatedAt:       createdAt,
		})
	}
	return records
}

func (p *Pipeline) afterRun(ctx context.Context, logger *slog.Logger, summary domain.RunSummary, committed []domain.ArticleRecord) {
	logger.Info("run finished",
		"stage", string(summary.Stage),
		"reason", summary.FailureReason,
		"candidates", summary.TotalCandidates,
		"duplicates", summary.DuplicatesSkipped,
		"fetched", summary.FetchSuccesses,
		"fetch_failures", summary.FetchFailures,
		"committed", summary.RecordsCommitted,
		"duration", summary.Duration())

	bgCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.CommitTimeout)
	defer cancel()

	if p.exporter != nil && len(committed) > 0 {
		paths, err := p.exporter.Export(bgCtx, summary, committed)
		if err != nil {
			logger.Warn("export failed", "error", err)
		} else {
			logger.Info("run exported", "files", paths)
		}
	}

	if p.store != nil && !summary.Aborted() {
		stats, err := p.store.Stats(bgCtx)
		if err != nil {
			logger.Warn("store stats unavailable", "error", err)
		} else {
			logger.Info("store stats", "total", stats.Total, "by_source", stats.BySource)
		}
	}

	if p.notifier != nil {
		if err := p.notifier.PublishSummary(bgCtx, summary); err != nil {
			logger.Warn("notify failed", "error", err)
		}
	}
}

func abort(summary *domain.RunSummary, reason string) {
	summary.Stage = domain.StageAborted
	summary.FailureReason = reason
}
