package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"NewsHarvester/internal/config"
	"NewsHarvester/internal/domain"
	"NewsHarvester/internal/infrastructure/api"
	"NewsHarvester/internal/infrastructure/export"
	"NewsHarvester/internal/infrastructure/extract"
	"NewsHarvester/internal/infrastructure/fetcher"
	"NewsHarvester/internal/infrastructure/parser"
	"NewsHarvester/internal/infrastructure/scheduler"
	"NewsHarvester/internal/infrastructure/storage"
	"NewsHarvester/internal/infrastructure/telegram"
	"NewsHarvester/internal/logging"
	"NewsHarvester/internal/ports"
	"NewsHarvester/internal/scanner"
	"NewsHarvester/internal/usecase"
)

const shutdownTimeout = 15 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	store     ports.StoreGateway
	listing   *fetcher.PageFetcher
	articles  *fetcher.PageFetcher
	pipeline  *usecase.Pipeline
	scheduler *usecase.Scheduler
}

// New validates cfg and builds every adapter the pipeline needs.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := openStore(ctx, cfg.Database, baseLogger)
	if err != nil {
		return nil, err
	}

	a := &Application{cfg: cfg, logger: baseLogger, store: store}
	if err := a.wire(); err != nil {
		_ = a.Close(context.WithoutCancel(ctx))
		return nil, err
	}
	return a, nil
}

func (a *Application) wire() error {
	cfg := a.cfg
	log := a.logger

	listing, err := newPageFetcher(cfg.Fetch, cfg.Fetch.Listing, nil, 0, log.With("component", "listing_fetcher"))
	if err != nil {
		return fmt.Errorf("listing fetcher: %w", err)
	}
	a.listing = listing

	extractor := extract.New(cfg.Extract.Format, cfg.Extract.ContentSelectors)
	articles, err := newPageFetcher(cfg.Fetch, cfg.Fetch.Article, extractor, cfg.Pipeline.MinContentLength, log.With("component", "article_fetcher"))
	if err != nil {
		return fmt.Errorf("article fetcher: %w", err)
	}
	a.articles = articles

	registry := scanner.NewRegistry()
	registry.Register(parser.NewHTMLListingParser(nil))
	registry.Register(parser.NewFeedListingParser())

	source := parser.NewStrategySource(registry, cfg.Sites, listing, cfg.Pipeline.ListingTimeout, log.With("component", "source"))

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.Enabled() {
		notifier = telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID)
	}

	var exporter ports.Exporter
	if cfg.Export.Enabled && !cfg.CI {
		fileExporter, err := export.NewFileExporter(cfg.Export.Dir, cfg.Export.Formats)
		if err != nil {
			return fmt.Errorf("exporter: %w", err)
		}
		exporter = fileExporter
	}

	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Source:   source,
		Store:    a.store,
		Fetcher:  articles,
		Exporter: exporter,
		Notifier: notifier,
		Logger:   log.With("component", "pipeline"),
		Config: usecase.PipelineConfig{
			MaxAge:           cfg.Pipeline.MaxAge,
			ConcurrencyLimit: cfg.Pipeline.ConcurrencyLimit,
			PerItemTimeout:   cfg.Pipeline.PerItemTimeout,
			MaxArticles:      cfg.Pipeline.MaxArticles,
			DedupByTitle:     cfg.Pipeline.DedupByTitle,
		},
	})

	driver := scheduler.NewIntervalScheduler(cfg.Scheduler.Interval, cfg.Scheduler.RunOnStart, cfg.Scheduler.Location())
	a.scheduler = usecase.NewScheduler(driver, a.pipeline, log.With("component", "scheduler"))

	log.Info("application wired",
		"store", cfg.Database.Driver,
		"sites", len(cfg.Sites),
		"listing_strategies", cfg.Fetch.Listing.Primary+"/"+cfg.Fetch.Listing.Fallback,
		"article_strategies", cfg.Fetch.Article.Primary+"/"+cfg.Fetch.Article.Fallback,
		"telegram", notifier != nil,
		"export", exporter != nil,
		"ci", cfg.CI,
	)
	return nil
}

// RunOnce executes a single ingestion run.
func (a *Application) RunOnce(ctx context.Context) (domain.RunSummary, error) {
	return a.scheduler.Trigger(ctx)
}

// Serve runs the pipeline on the configured interval and exposes the status
// API until ctx is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	gin.SetMode(gin.ReleaseMode)
	handler := api.NewHandler(a.scheduler, a.store, a.logger)
	server := &http.Server{
		Addr:              a.cfg.API.Addr,
		Handler:           api.NewServer(handler, a.logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("status api listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err, ok := <-serveErr:
		if ok {
			runErr = fmt.Errorf("status api: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("status api shutdown", "error", err)
	}
	if err := a.scheduler.Stop(shutdownCtx); err != nil {
		a.logger.Warn("scheduler stop", "error", err)
	}

	return runErr
}

// Close releases the store and the fetch strategies.
func (a *Application) Close(ctx context.Context) error {
	var errs []error
	if a.listing != nil {
		errs = append(errs, a.listing.Close())
	}
	if a.articles != nil {
		errs = append(errs, a.articles.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close(ctx))
	}
	return errors.Join(errs...)
}

func newPageFetcher(cfg config.FetchConfig, pair config.StrategyPair, extractor fetcher.ContentExtractor, minContent int, log *slog.Logger) (*fetcher.PageFetcher, error) {
	opts := fetcher.Options{
		UserAgent:     cfg.UserAgent,
		RandomHeaders: cfg.RandomHeaders,
		MaxBodyBytes:  cfg.MaxBodyBytes,
		RespectRobots: cfg.RespectRobots,
		Browser: fetcher.BrowserOptions{
			ControlURL: cfg.Browser.ControlURL,
			Bin:        cfg.Browser.Bin,
			Stealth:    cfg.Browser.Stealth,
		},
		Logger: log,
	}

	primary, err := fetcher.New(pair.Primary, opts)
	if err != nil {
		return nil, err
	}

	var fallback fetcher.Strategy
	if pair.Fallback != "" {
		fallback, err = fetcher.New(pair.Fallback, opts)
		if err != nil {
			return nil, err
		}
	}

	return fetcher.NewPageFetcher(primary, fallback, extractor, minContent, log), nil
}

func openStore(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger) (ports.StoreGateway, error) {
	switch cfg.Driver {
	case "postgres":
		store, err := storage.OpenPostgres(ctx, cfg.DSN, cfg.MaxConns, log)
		if err != nil {
			return nil, err
		}
		if cfg.Migrate {
			if _, err := store.Migrate(); err != nil {
				_ = store.Close(ctx)
				return nil, err
			}
		}
		return store, nil
	case "sqlite":
		store, err := storage.OpenSQLite(ctx, cfg.DSN, log)
		if err != nil {
			return nil, err
		}
		if cfg.Migrate {
			if _, err := store.Migrate(); err != nil {
				_ = store.Close(ctx)
				return nil, err
			}
		}
		return store, nil
	case "mongo":
		return storage.OpenMongo(ctx, cfg.DSN, cfg.Database, cfg.Table, log)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}
