package parser

import (
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"NewsHarvester/internal/scanner"
)

var parserNow = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func yahooRequest() scanner.Request {
	return scanner.Request{
		SiteName:   "Yahoo Finance",
		Category:   scanner.Category{Name: "latest-news", URL: "https://finance.yahoo.com/topic/latest-news/"},
		BaseURL:    "https://finance.yahoo.com",
		Industries: []string{"Financial News"},
	}
}

func TestHTMLListingStrictItems(t *testing.T) {
	t.Parallel()

	page := `
	<ul>
	  <li class="stream-item story-item yf-1">
	    <a href="/news/fed-holds-rates-123.html" aria-label="Fed holds rates steady as inflation cools">x</a>
	    <time datetime="2026-05-04T09:30:00Z">30 minutes ago</time>
	  </li>
	  <li class="stream-item story-item ad-item"><a href="https://ads.example.com" aria-label="Buy this amazing product now">ad</a></li>
	  <li class="stream-item story-item"><a href="https://finance.yahoo.com/news/short.html" aria-label="Too short">x</a></li>
	  <li class="stream-item story-item"><a href="/news/oil-slides-456.html"><h3>Oil slides &amp; gold climbs after jobs report</h3></a><span>2 hours ago</span></li>
	  <li class="item other"><a href="/news/loose-789.html" aria-label="Loose item should be ignored when strict matches">x</a></li>
	</ul>`

	stubs, err := NewHTMLListingParser(func() time.Time { return parserNow }).Parse([]byte(page), yahooRequest())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(stubs) != 2 {
		t.Fatalf("expected 2 stubs, got %d: %+v", len(stubs), stubs)
	}

	first := stubs[0]
	if first.URL != "https://finance.yahoo.com/news/fed-holds-rates-123.html" {
		t.Fatalf("relative link not resolved: %s", first.URL)
	}
	if first.Title != "Fed holds rates steady as inflation cools" {
		t.Fatalf("aria-label title not used: %q", first.Title)
	}
	if !first.PublishedAt.Equal(time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)) {
		t.Fatalf("datetime not parsed: %s", first.PublishedAt)
	}
	if first.SourceLabel != "Yahoo Finance" || len(first.Industries) != 1 {
		t.Fatalf("request metadata not carried: %+v", first)
	}

	second := stubs[1]
	if second.Title != "Oil slides & gold climbs after jobs report" {
		t.Fatalf("text title not cleaned: %q", second.Title)
	}
	if !second.PublishedAt.Equal(parserNow.Add(-2 * time.Hour)) {
		t.Fatalf("relative time not parsed: %s", second.PublishedAt)
	}
}

func TestHTMLListingLooseAndAnyLinkTiers(t *testing.T) {
	t.Parallel()

	p := NewHTMLListingParser(func() time.Time { return parserNow })

	loose := `<ul>
	  <li class="news-item"><a href="/a.html">Stocks close higher on tech rally</a></li>
	  <li class="news-item ad-slot"><a href="/ad.html">Sponsored content for you today</a></li>
	  <li><a href="/plain.html">Plain list entry that is not an item</a></li>
	</ul>`
	stubs, err := p.Parse([]byte(loose), yahooRequest())
	if err != nil || len(stubs) != 1 || stubs[0].URL != "https://finance.yahoo.com/a.html" {
		t.Fatalf("loose tier mismatch: %+v %v", stubs, err)
	}

	anyLink := `<ul>
	  <li><a href="https://other.example.com/story">Bank earnings beat estimates</a></li>
	  <li>No link here at all, just text</li>
	  <li><a href="javascript:void(0)">Click here to open the menu</a></li>
	</ul>`
	stubs, err = p.Parse([]byte(anyLink), yahooRequest())
	if err != nil || len(stubs) != 1 || stubs[0].URL != "https://other.example.com/story" {
		t.Fatalf("any-link tier mismatch: %+v %v", stubs, err)
	}
	if !stubs[0].PublishedAt.IsZero() {
		t.Fatalf("unknown time should stay zero, got %s", stubs[0].PublishedAt)
	}
}

func TestHTMLListingCustomSelector(t *testing.T) {
	t.Parallel()

	req := yahooRequest()
	req.Options = map[string]string{"item_selector": "article.card"}
	page := `<div>
	  <article class="card"><a href="/x.html">Chipmakers rally on AI demand</a></article>
	  <li class="stream-item story-item"><a href="/y.html" aria-label="Ignored because selector is custom">y</a></li>
	</div>`

	stubs, err := NewHTMLListingParser(nil).Parse([]byte(page), req)
	if err != nil || len(stubs) != 1 || stubs[0].URL != "https://finance.yahoo.com/x.html" {
		t.Fatalf("custom selector mismatch: %+v %v", stubs, err)
	}
}

func TestHTMLListingMalformedMarkup(t *testing.T) {
	t.Parallel()

	stubs, err := NewHTMLListingParser(nil).Parse([]byte("<ul><li class='stream-item story-item'><a href='/z'>Unclosed tags everywhere here"), yahooRequest())
	if err != nil {
		t.Fatalf("malformed html should not fail: %v", err)
	}
	if len(stubs) != 1 {
		t.Fatalf("expected the item to survive malformed markup, got %+v", stubs)
	}

	stubs, err = NewHTMLListingParser(nil).Parse(nil, yahooRequest())
	if err != nil || len(stubs) != 0 {
		t.Fatalf("empty page should yield no stubs: %+v %v", stubs, err)
	}
}

func TestParseRelativeTime(t *testing.T) {
	t.Parallel()

	cases := map[string]time.Duration{
		"5 minutes ago":                   5 * time.Minute,
		"an hour ago":                     time.Hour,
		"3 hrs ago":                       3 * time.Hour,
		"Reuters - 2 days ago":            48 * time.Hour,
		"after jobs report2 hours ago":    2 * time.Hour,
		"Markets close higher10 mins ago": 10 * time.Minute,
	}
	for text, age := range cases {
		if got := parseRelativeTime(text, parserNow); !got.Equal(parserNow.Add(-age)) {
			t.Fatalf("%q -> %s, want %s", text, got, parserNow.Add(-age))
		}
	}
	for _, text := range []string{"yesterday-ish", "Japan hour ago"} {
		if got := parseRelativeTime(text, parserNow); !got.IsZero() {
			t.Fatalf("%q should give zero time, got %s", text, got)
		}
	}
}

func TestItemTextSeparatesAdjacentElements(t *testing.T) {
	t.Parallel()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<li><a href="/x"><h3>Gold climbs after jobs report</h3></a><span>2 hours ago</span></li>`))
	if err != nil {
		t.Fatal(err)
	}
	got := itemText(doc.Find("li"))
	if got != "Gold climbs after jobs report 2 hours ago" {
		t.Fatalf("unexpected item text %q", got)
	}
}
