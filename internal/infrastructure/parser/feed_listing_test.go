package parser

import (
	"errors"
	"testing"
	"time"

	"NewsHarvester/internal/domain"
	"NewsHarvester/internal/scanner"
)

func TestFeedListingParse(t *testing.T) {
	t.Parallel()

	feed := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Markets</title>
  <link>https://news.example.com/</link>
  <item>
    <title>Treasury yields &lt;b&gt;jump&lt;/b&gt; after CPI</title>
    <link>https://news.example.com/markets/yields</link>
    <pubDate>Mon, 04 May 2026 08:15:00 GMT</pubDate>
  </item>
  <item>
    <title>Relative link story</title>
    <link>/markets/relative</link>
  </item>
  <item>
    <title>No link story</title>
  </item>
</channel>
</rss>`

	req := scanner.Request{SiteName: "Example Feed", Category: scanner.Category{URL: "https://news.example.com/rss"}}
	stubs, err := NewFeedListingParser().Parse([]byte(feed), req)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(stubs) != 2 {
		t.Fatalf("expected 2 stubs, got %+v", stubs)
	}
	if stubs[0].Title != "Treasury yields jump after CPI" {
		t.Fatalf("title not sanitized: %q", stubs[0].Title)
	}
	if !stubs[0].PublishedAt.Equal(time.Date(2026, 5, 4, 8, 15, 0, 0, time.UTC)) {
		t.Fatalf("pubDate not parsed: %s", stubs[0].PublishedAt)
	}
	if stubs[1].URL != "https://news.example.com/markets/relative" || !stubs[1].PublishedAt.IsZero() {
		t.Fatalf("relative item mismatch: %+v", stubs[1])
	}
	if stubs[0].SourceLabel != "Example Feed" {
		t.Fatalf("source label missing: %+v", stubs[0])
	}
}

func TestFeedListingRejectsNonFeed(t *testing.T) {
	t.Parallel()

	_, err := NewFeedListingParser().Parse([]byte("<html><body>not a feed</body></html>"), scanner.Request{})
	if !errors.Is(err, domain.ErrParse) {
		t.Fatalf("expected parse error, got %v", err)
	}
}
