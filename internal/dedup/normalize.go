package dedup

import (
	"net/url"
	"sort"
	"strings"
)

var trackingParams = map[string]bool{
	"guccounter":        true,
	"guce_referrer":     true,
	"guce_referrer_sig": true,
	"fbclid":            true,
	"gclid":             true,
	"ncid":              true,
	"soc_src":           true,
	"soc_trk":           true,
	"tsrc":              true,
	".tsrc":             true,
	"mc_cid":            true,
	"mc_eid":            true,
	"cmpid":             true,
}

func isTrackingParam(key string) bool {
	k := strings.ToLower(key)
	return trackingParams[k] || strings.HasPrefix(k, "utm_")
}

// NormalizeURL returns the identity key of an article URL. Scheme and host
// are lowercased, a leading "www." is dropped, the fragment and tracking
// parameters are removed, remaining parameters are sorted and trailing
// slashes are stripped. Values that do not parse as absolute URLs are
// returned trimmed and otherwise untouched.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return raw
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.TrimPrefix(strings.ToLower(parsed.Host), "www.")
	parsed.Fragment = ""
	parsed.RawFragment = ""
	parsed.Path = strings.TrimRight(parsed.Path, "/")
	parsed.RawPath = ""

	if parsed.RawQuery != "" {
		params := parsed.Query()
		keys := make([]string, 0, len(params))
		for k := range params {
			if isTrackingParam(k) {
				continue
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var buf strings.Builder
		for _, k := range keys {
			vals := params[k]
			sort.Strings(vals)
			for _, v := range vals {
				if buf.Len() > 0 {
					buf.WriteByte('&')
				}
				buf.WriteString(url.QueryEscape(k))
				buf.WriteByte('=')
				buf.WriteString(url.QueryEscape(v))
			}
		}
		parsed.RawQuery = buf.String()
	}
	parsed.ForceQuery = false

	return parsed.String()
}
