package parser

import (
	"bytes"
	"time"

	"github.com/mmcdole/gofeed"

	"NewsHarvester/internal/domain"
	"NewsHarvester/internal/scanner"
)

// FeedListingParser reads RSS, Atom and JSON feeds as listing pages.
type FeedListingParser struct{}

var _ scanner.Parser = (*FeedListingParser)(nil)

// NewFeedListingParser builds the parser.
func NewFeedListingParser() *FeedListingParser {
	return &FeedListingParser{}
}

// Name identifies the parser inside the registry.
func (p *FeedListingParser) Name() string {
	return "feed"
}

// Parse converts feed items into stubs. Items without a usable link are
// skipped.
func (p *FeedListingParser) Parse(raw []byte, req scanner.Request) ([]domain.ArticleStub, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, domain.NewError(domain.KindParse, "parse feed", req.Category.URL, err)
	}

	base := parseBase(req.BaseURL, feed.Link, req.Category.URL)
	stubs := make([]domain.ArticleStub, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		link, ok := resolveLink(base, item.Link)
		if !ok {
			continue
		}
		title := cleanTitle(item.Title)
		if title == "" {
			continue
		}

		var published time.Time
		switch {
		case item.PublishedParsed != nil:
			published = item.PublishedParsed.UTC()
		case item.UpdatedParsed != nil:
			published = item.UpdatedParsed.UTC()
		}

		stubs = append(stubs, domain.ArticleStub{
			URL:         link,
			Title:       title,
			PublishedAt: published,
			SourceLabel: req.SiteName,
			Industries:  req.Industries,
		})
	}

	return stubs, nil
}
