package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"NewsHarvester/internal/config"
	"NewsHarvester/internal/domain"
)

const articleBody = `<html><body>
<div class="caas-body">
  <p>Stocks rallied on Tuesday as fresh inflation data came in softer than economists had expected.</p>
  <p>Treasury yields slipped and the dollar weakened against major currencies during the session.</p>
</div>
</body></html>`

func newsServer(t *testing.T, articleHits *atomic.Int32) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/topic/latest-news/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, `<ul>
		  <li class="stream-item story-item"><a href="%[1]s/news/fed-holds.html" aria-label="Fed holds rates steady as inflation cools">x</a></li>
		  <li class="stream-item story-item"><a href="/news/oil-slides.html?utm_source=listing" aria-label="Oil slides as supply outlook improves">x</a></li>
		  <li class="stream-item story-item"><a href="/news/empty.html" aria-label="Story whose page has no real content">x</a></li>
		</ul>`, srv.URL)
	})
	mux.HandleFunc("/news/", func(w http.ResponseWriter, r *http.Request) {
		articleHits.Add(1)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if strings.HasSuffix(r.URL.Path, "empty.html") {
			_, _ = io.WriteString(w, `<html><body><p>Subscribe</p></body></html>`)
			return
		}
		_, _ = io.WriteString(w, articleBody)
	})

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(baseURL string) config.Config {
	return config.Config{
		Logging:  config.LoggingConfig{Level: "error"},
		Database: config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:", Migrate: true},
		Scheduler: config.SchedulerConfig{
			Interval: time.Hour,
		},
		Pipeline: config.PipelineConfig{
			MaxAge:           2 * time.Hour,
			ConcurrencyLimit: 2,
			PerItemTimeout:   5 * time.Second,
			ListingTimeout:   5 * time.Second,
			MinContentLength: 100,
		},
		Fetch: config.FetchConfig{
			Listing:   config.StrategyPair{Primary: "http", Fallback: "http"},
			Article:   config.StrategyPair{Primary: "http", Fallback: "http"},
			UserAgent: "NewsHarvester-test/1.0",
		},
		Extract: config.ExtractConfig{Format: "text", ContentSelectors: []string{".caas-body"}},
		Sites: []config.SiteConfig{
			{
				Name:    "Test Finance",
				Parser:  "html",
				BaseURL: baseURL,
				Categories: []config.CategoryConfig{
					{Name: "latest-news", URL: baseURL + "/topic/latest-news/"},
				},
			},
		},
	}
}

func TestRunOnceCommitsNewArticlesAndSkipsThemNextTime(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := newsServer(t, &hits)
	ctx := context.Background()

	application, err := New(ctx, testConfig(srv.URL), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("new application: %v", err)
	}
	t.Cleanup(func() { _ = application.Close(context.Background()) })

	first, err := application.RunOnce(ctx)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.Stage != domain.StageCommitted {
		t.Fatalf("expected committed stage, got %s (%s)", first.Stage, first.FailureReason)
	}
	if first.TotalCandidates != 3 || first.FetchSuccesses != 2 || first.FetchFailures != 1 {
		t.Fatalf("unexpected fetch counts: %+v", first)
	}
	if first.RecordsCommitted != 2 {
		t.Fatalf("expected 2 committed records, got %d", first.RecordsCommitted)
	}

	hitsAfterFirst := hits.Load()

	second, err := application.RunOnce(ctx)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.RecordsCommitted != 0 || second.DuplicatesSkipped != 2 {
		t.Fatalf("expected stored articles to be skipped, got %+v", second)
	}
	// only the empty story is fetched again, once per strategy
	if delta := hits.Load() - hitsAfterFirst; delta != 2 {
		t.Fatalf("expected 2 article requests on the second run, got %d", delta)
	}

	stats, err := application.store.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 2 || stats.BySource["Test Finance"] != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := testConfig("https://example.com")
	cfg.Database.Driver = "oracle"

	if _, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil))); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestNewRejectsUnknownStrategy(t *testing.T) {
	t.Parallel()

	cfg := testConfig("https://example.com")
	cfg.Fetch.Article.Fallback = "carrier-pigeon"

	if _, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil))); err == nil {
		t.Fatal("expected unknown strategy error")
	}
}
