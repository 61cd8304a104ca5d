package extract

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

const minParagraphLength = 10

// Format selects how extracted content is rendered.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
)

// Extractor pulls the main article content out of a page. Configured CSS
// selectors are tried first; readability is used when none of them match.
type Extractor struct {
	format    Format
	selectors []string
	markdown  *converter.Converter
}

// New builds an extractor. Unknown formats fall back to plain text.
func New(format string, selectors []string) *Extractor {
	f := Format(strings.ToLower(strings.TrimSpace(format)))
	if f != FormatMarkdown {
		f = FormatText
	}
	return &Extractor{
		format:    f,
		selectors: selectors,
		markdown: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
			),
		),
	}
}

// Extract returns the rendered main content of raw.
func (e *Extractor) Extract(raw []byte, pageURL string) (string, error) {
	if len(raw) == 0 {
		return "", fmt.Errorf("HTML data is empty")
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("parse page: %w", err)
	}

	for _, sel := range e.selectors {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		html, err := goquery.OuterHtml(node)
		if err != nil {
			continue
		}
		if content, err := e.render(html, pageURL); err == nil && content != "" {
			return content, nil
		}
	}

	parsedURL, _ := url.Parse(pageURL)
	article, err := readability.FromReader(bytes.NewReader(raw), parsedURL)
	if err != nil {
		return "", fmt.Errorf("readability: %w", err)
	}
	if article.Content == "" {
		return "", fmt.Errorf("no content extracted from %s", pageURL)
	}

	return e.render(article.Content, pageURL)
}

func (e *Extractor) render(html, pageURL string) (string, error) {
	if e.format == FormatMarkdown {
		md, err := e.markdown.ConvertString(html, converter.WithDomain(pageURL))
		if err != nil {
			return "", fmt.Errorf("convert markdown: %w", err)
		}
		return strings.TrimSpace(md), nil
	}
	return htmlToText(html)
}

// htmlToText keeps paragraph structure: each paragraph longer than a few
// words becomes one line block. Markup without paragraphs is flattened.
func htmlToText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse content: %w", err)
	}

	doc.Find("script, style, noscript, aside, figure, button").Remove()

	var parts []string
	doc.Find("p, h2, h3, li, blockquote").Each(func(_ int, s *goquery.Selection) {
		if s.ParentsFiltered("p, li, blockquote").Length() > 0 {
			return
		}
		text := normalizeSpace(s.Text())
		if utf8.RuneCountInString(text) <= minParagraphLength {
			return
		}
		if strings.Contains(text, "Read the original article") {
			return
		}
		parts = append(parts, text)
	})
	if len(parts) > 0 {
		return strings.Join(parts, "\n\n"), nil
	}

	return normalizeSpace(doc.Text()), nil
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
