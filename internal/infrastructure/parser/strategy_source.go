package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"NewsHarvester/internal/config"
	"NewsHarvester/internal/domain"
	"NewsHarvester/internal/ports"
	"NewsHarvester/internal/scanner"
)

// ErrNoStubs reports a listing page that yielded no extractable stubs with
// either strategy.
var ErrNoStubs = errors.New("listing page returned no extractable stubs")

// StrategySource implements ListingSource by fetching every configured
// category page and handing it to the site's registered parser.
type StrategySource struct {
	registry *scanner.Registry
	sites    []config.SiteConfig
	fetcher  ports.PageFetcher
	timeout  time.Duration
	logger   *slog.Logger
}

var _ ports.ListingSource = (*StrategySource)(nil)

// NewStrategySource wires the parser registry with config-defined sites.
func NewStrategySource(reg *scanner.Registry, sites []config.SiteConfig, fetcher ports.PageFetcher, timeout time.Duration, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry: reg,
		sites:    sites,
		fetcher:  fetcher,
		timeout:  timeout,
		logger:   log,
	}
}

// FetchListings returns one outcome per configured category. A category
// whose primary fetch errors or yields no stubs is retried once with the
// fallback strategy; a category that still has no stubs is a parse failure.
func (s *StrategySource) FetchListings(ctx context.Context) []domain.ListingOutcome {
	s.debug("fetch listings", "sites", len(s.sites))

	var outcomes []domain.ListingOutcome
	for _, site := range s.sites {
		s.debug("process site", "site", site.Name, "parser", site.Parser, "categories", len(site.Categories))

		parser, err := s.resolve(site.Parser)
		for _, cat := range site.Categories {
			outcome := domain.ListingOutcome{Site: site.Name, Category: cat.Name, URL: cat.URL}
			if err != nil {
				outcome.Err = fmt.Errorf("site %s: %w", site.Name, err)
				outcomes = append(outcomes, outcome)
				continue
			}

			req := scanner.Request{
				SiteName:   site.Name,
				Category:   scanner.Category{Name: cat.Name, URL: cat.URL},
				BaseURL:    site.BaseURL,
				Industries: site.IndustriesOrDefault(),
				Options:    site.Options,
			}
			outcomes = append(outcomes, s.fetchCategory(ctx, parser, req))
		}
	}

	return outcomes
}

func (s *StrategySource) resolve(name string) (scanner.Parser, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("parser registry is not configured")
	}
	return s.registry.Resolve(name)
}

func (s *StrategySource) fetchCategory(ctx context.Context, parser scanner.Parser, req scanner.Request) domain.ListingOutcome {
	outcome := domain.ListingOutcome{Site: req.SiteName, Category: req.Category.Name, URL: req.Category.URL}

	stubs, err := s.attempt(ctx, domain.StrategyPrimary, parser, req)
	if err == nil && len(stubs) > 0 {
		outcome.Stubs = stubs
		outcome.FetchedVia = domain.StrategyPrimary
		return outcome
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		outcome.Err = fmt.Errorf("listing %s: %w", req.Category.URL, ctxErr)
		return outcome
	}

	s.debug("listing primary unusable, trying fallback", "url", req.Category.URL, "stubs", len(stubs), "error", err)

	fallbackStubs, fallbackErr := s.attempt(ctx, domain.StrategyFallback, parser, req)
	switch {
	case fallbackErr == nil && len(fallbackStubs) > 0:
		outcome.Stubs = fallbackStubs
		outcome.FetchedVia = domain.StrategyFallback
	case err != nil && fallbackErr != nil:
		outcome.Err = fmt.Errorf("listing %s: primary: %v; fallback: %w", req.Category.URL, err, fallbackErr)
	default:
		// at least one strategy got the page but neither produced a stub
		outcome.Err = domain.NewError(domain.KindParse, "parse listing", req.Category.URL,
			fmt.Errorf("%w (primary: %s; fallback: %s)", ErrNoStubs, attemptNote(err), attemptNote(fallbackErr)))
	}
	return outcome
}

func attemptNote(err error) string {
	if err != nil {
		return err.Error()
	}
	return "no stubs"
}

func (s *StrategySource) attempt(ctx context.Context, via domain.Strategy, parser scanner.Parser, req scanner.Request) ([]domain.ArticleStub, error) {
	if s.fetcher == nil {
		return nil, fmt.Errorf("page fetcher is not configured")
	}

	attemptCtx := ctx
	cancel := func() {}
	if s.timeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, s.timeout)
	}
	defer cancel()

	raw, err := s.fetcher.Fetch(attemptCtx, via, req.Category.URL)
	if err != nil {
		return nil, err
	}
	stubs, err := parser.Parse(raw, req)
	if err != nil {
		return nil, err
	}
	s.debug("listing parsed", "url", req.Category.URL, "via", via.String(), "stubs", len(stubs))
	return stubs, nil
}

func (s *StrategySource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
