package parser

import (
	"html"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var titlePolicy = bluemonday.StrictPolicy()

// cleanTitle strips any markup left in a listing title and collapses
// whitespace.
func cleanTitle(raw string) string {
	text := html.UnescapeString(titlePolicy.Sanitize(raw))
	return strings.Join(strings.Fields(text), " ")
}

// resolveLink turns href into an absolute http(s) URL using base. It
// returns false for javascript:, mailto: and other non-web links.
func resolveLink(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	if ref.Scheme != "http" && ref.Scheme != "https" {
		return "", false
	}
	if ref.Host == "" {
		return "", false
	}
	return ref.String(), true
}

func parseBase(values ...string) *url.URL {
	for _, v := range values {
		if v == "" {
			continue
		}
		if u, err := url.Parse(v); err == nil && u.Host != "" {
			return u
		}
	}
	return nil
}
