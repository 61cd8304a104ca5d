package parser

import (
	"bytes"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"NewsHarvester/internal/domain"
	"NewsHarvester/internal/scanner"
)

const defaultMinTitleLength = 10

var relativeTimeExpr = regexp.MustCompile(`(?i)(\d+|\ban?)\s+(minute|min|hour|hr|day)s?\s+ago\b`)

// HTMLListingParser extracts stubs from news listing pages built as lists
// of story items. Items are chosen by the first selector tier that matches
// anything: strict story stream items, then any non-ad item, then any li
// with a link.
type HTMLListingParser struct {
	now            func() time.Time
	minTitleLength int
}

var _ scanner.Parser = (*HTMLListingParser)(nil)

// NewHTMLListingParser builds the parser; now defaults to time.Now.
func NewHTMLListingParser(now func() time.Time) *HTMLListingParser {
	if now == nil {
		now = time.Now
	}
	return &HTMLListingParser{now: now, minTitleLength: defaultMinTitleLength}
}

// Name identifies the parser inside the registry.
func (p *HTMLListingParser) Name() string {
	return "html"
}

// Parse returns every story item of the page that has a usable link and a
// title of at least ten characters.
func (p *HTMLListingParser) Parse(raw []byte, req scanner.Request) ([]domain.ArticleStub, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, domain.NewError(domain.KindParse, "parse listing", req.Category.URL, err)
	}

	base := parseBase(req.BaseURL, req.Category.URL)
	minTitle := p.minTitleLength
	if v, err := strconv.Atoi(req.Option("min_title_length", "")); err == nil && v > 0 {
		minTitle = v
	}

	stubs := make([]domain.ArticleStub, 0)
	selectItems(doc, req.Option("item_selector", "")).Each(func(_ int, item *goquery.Selection) {
		stub, ok := p.parseItem(item, base, minTitle)
		if !ok {
			return
		}
		stub.SourceLabel = req.SiteName
		stub.Industries = req.Industries
		stubs = append(stubs, stub)
	})

	return stubs, nil
}

func selectItems(doc *goquery.Document, custom string) *goquery.Selection {
	if custom != "" {
		return doc.Find(custom)
	}

	lis := doc.Find("li")
	strict := lis.FilterFunction(func(_ int, s *goquery.Selection) bool {
		classes := classList(s)
		return hasClass(classes, "stream-item") && hasClass(classes, "story-item") && !hasClass(classes, "ad-item")
	})
	if strict.Length() > 0 {
		return strict
	}

	loose := lis.FilterFunction(func(_ int, s *goquery.Selection) bool {
		classes := classList(s)
		return containsClass(classes, "item") && !isAdvert(classes)
	})
	if loose.Length() > 0 {
		return loose
	}

	return lis.FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.Find("a[href]").Length() > 0
	})
}

func (p *HTMLListingParser) parseItem(item *goquery.Selection, base *url.URL, minTitle int) (domain.ArticleStub, bool) {
	link := item.Find("a[aria-label][href]").First()
	if link.Length() == 0 {
		link = item.Find("a[href]").First()
	}
	if link.Length() == 0 {
		return domain.ArticleStub{}, false
	}

	title, _ := link.Attr("aria-label")
	title = cleanTitle(title)
	if title == "" {
		if heading := link.Find("h1, h2, h3, h4").First(); heading.Length() > 0 {
			title = cleanTitle(heading.Text())
		} else {
			title = cleanTitle(link.Text())
		}
	}
	if utf8.RuneCountInString(title) < minTitle {
		return domain.ArticleStub{}, false
	}

	href, _ := link.Attr("href")
	abs, ok := resolveLink(base, href)
	if !ok {
		return domain.ArticleStub{}, false
	}

	return domain.ArticleStub{
		URL:         abs,
		Title:       title,
		PublishedAt: p.publishedAt(item),
	}, true
}

func (p *HTMLListingParser) publishedAt(item *goquery.Selection) time.Time {
	if stamp, ok := item.Find("time[datetime]").First().Attr("datetime"); ok {
		for _, layout := range []string{time.RFC3339, time.RFC3339Nano, "2006-01-02T15:04:05Z0700", "2006-01-02"} {
			if t, err := time.Parse(layout, strings.TrimSpace(stamp)); err == nil {
				return t.UTC()
			}
		}
	}
	return parseRelativeTime(itemText(item), p.now())
}

// itemText joins the item's text nodes with spaces so adjacent elements
// such as a headline and a timestamp span do not run together.
func itemText(item *goquery.Selection) string {
	var parts []string
	item.Find("*").AddBack().Contents().Each(func(_ int, node *goquery.Selection) {
		if goquery.NodeName(node) != "#text" {
			return
		}
		if text := strings.TrimSpace(node.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, " ")
}

// parseRelativeTime understands "5 minutes ago", "an hour ago" and
// "2 days ago". Unknown text yields the zero time.
func parseRelativeTime(text string, now time.Time) time.Time {
	m := relativeTimeExpr.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}
	}

	n := 1
	if v, err := strconv.Atoi(m[1]); err == nil {
		n = v
	}

	var unit time.Duration
	switch strings.ToLower(m[2]) {
	case "minute", "min":
		unit = time.Minute
	case "hour", "hr":
		unit = time.Hour
	default:
		unit = 24 * time.Hour
	}
	return now.Add(-time.Duration(n) * unit).UTC()
}

func classList(s *goquery.Selection) []string {
	cls, _ := s.Attr("class")
	return strings.Fields(cls)
}

func hasClass(classes []string, name string) bool {
	for _, c := range classes {
		if c == name {
			return true
		}
	}
	return false
}

func containsClass(classes []string, fragment string) bool {
	for _, c := range classes {
		if strings.Contains(c, fragment) {
			return true
		}
	}
	return false
}

func isAdvert(classes []string) bool {
	for _, c := range classes {
		if c == "ad" || strings.HasPrefix(c, "ad-") || strings.HasSuffix(c, "-ad") || strings.Contains(c, "-ad-") {
			return true
		}
	}
	return false
}
