package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"NewsHarvester/internal/domain"
	"NewsHarvester/internal/ports"
)

// ContentExtractor reduces a fetched article page to its main content.
type ContentExtractor interface {
	Extract(raw []byte, pageURL string) (string, error)
}

// PageFetcher routes each request to the primary or fallback strategy and
// classifies failures into domain error kinds.
type PageFetcher struct {
	primary          Strategy
	fallback         Strategy
	extractor        ContentExtractor
	minContentLength int
	logger           *slog.Logger
}

var (
	_ ports.PageFetcher    = (*PageFetcher)(nil)
	_ ports.ContentFetcher = (*PageFetcher)(nil)
)

// NewPageFetcher wires the strategy policy. A nil fallback reuses the
// primary strategy for the second attempt.
func NewPageFetcher(primary, fallback Strategy, extractor ContentExtractor, minContentLength int, logger *slog.Logger) *PageFetcher {
	if fallback == nil {
		fallback = primary
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PageFetcher{
		primary:          primary,
		fallback:         fallback,
		extractor:        extractor,
		minContentLength: minContentLength,
		logger:           logger,
	}
}

// Fetch returns the raw page bytes retrieved through via.
func (f *PageFetcher) Fetch(ctx context.Context, via domain.Strategy, pageURL string) ([]byte, error) {
	s := f.strategy(via)
	if s == nil {
		return nil, domain.NewError(domain.KindNetwork, "fetch", pageURL, fmt.Errorf("no %s strategy configured", via))
	}

	raw, err := s.Retrieve(ctx, pageURL)
	if err != nil {
		return nil, classify(ctx, "fetch "+s.Name(), pageURL, err)
	}
	if len(raw) == 0 {
		return nil, domain.NewError(domain.KindEmptyContent, "fetch "+s.Name(), pageURL, nil)
	}

	f.logger.Debug("page retrieved", "url", pageURL, "strategy", s.Name(), "bytes", len(raw))
	return raw, nil
}

// FetchContent retrieves an article and extracts its body. Content shorter
// than the configured minimum counts as empty.
func (f *PageFetcher) FetchContent(ctx context.Context, via domain.Strategy, pageURL string) (string, error) {
	raw, err := f.Fetch(ctx, via, pageURL)
	if err != nil {
		return "", err
	}

	content := string(raw)
	if f.extractor != nil {
		content, err = f.extractor.Extract(raw, pageURL)
		if err != nil {
			return "", domain.NewError(domain.KindEmptyContent, "extract", pageURL, err)
		}
	}

	content = strings.TrimSpace(content)
	if n := utf8.RuneCountInString(content); n < f.minContentLength || n == 0 {
		return "", domain.NewError(domain.KindEmptyContent, "extract", pageURL,
			fmt.Errorf("content has %d characters, need %d", n, f.minContentLength))
	}
	return content, nil
}

// Close releases strategies holding resources, such as a browser.
func (f *PageFetcher) Close() error {
	var errs []error
	for _, s := range uniqueStrategies(f.primary, f.fallback) {
		if c, ok := s.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (f *PageFetcher) strategy(via domain.Strategy) Strategy {
	if via == domain.StrategyFallback {
		return f.fallback
	}
	return f.primary
}

func uniqueStrategies(list ...Strategy) []Strategy {
	var out []Strategy
	for _, s := range list {
		if s == nil {
			continue
		}
		dup := false
		for _, o := range out {
			if o == s {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, s)
		}
	}
	return out
}

// classify maps a strategy error to a domain error. Deadline expiry and
// network timeouts become KindTimeout, everything else KindNetwork.
func classify(ctx context.Context, op, pageURL string, err error) error {
	var derr *domain.Error
	if errors.As(err, &derr) {
		return err
	}
	kind := domain.KindOf(err)
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		kind = domain.KindTimeout
	}
	return domain.NewError(kind, op, pageURL, err)
}
