package dedup

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"NewsHarvester/internal/domain"
)

// Partition splits stubs into those not yet known and duplicates. A stub
// is a duplicate when its normalized URL is in known or was already seen
// earlier in stubs. Input order is preserved in both outputs and known is
// never modified.
func Partition(stubs []domain.ArticleStub, known map[string]bool) (fresh, duplicates []domain.ArticleStub) {
	seen := make(map[string]struct{}, len(stubs))
	for _, stub := range stubs {
		key := NormalizeURL(stub.URL)
		if _, ok := seen[key]; ok || known[key] {
			duplicates = append(duplicates, stub)
			continue
		}
		seen[key] = struct{}{}
		fresh = append(fresh, stub)
	}
	return fresh, duplicates
}

// Keys returns the distinct normalized URLs of stubs in first-seen order.
func Keys(stubs []domain.ArticleStub) []string {
	seen := make(map[string]struct{}, len(stubs))
	keys := make([]string, 0, len(stubs))
	for _, stub := range stubs {
		key := NormalizeURL(stub.URL)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys
}

// PartitionByTitle drops stubs whose normalized title repeats an earlier
// one in the same slice. Stubs without a title are always kept.
func PartitionByTitle(stubs []domain.ArticleStub) (fresh, duplicates []domain.ArticleStub) {
	seen := make(map[string]struct{}, len(stubs))
	for _, stub := range stubs {
		key := NormalizeTitle(stub.Title)
		if key == "" {
			fresh = append(fresh, stub)
			continue
		}
		if _, ok := seen[key]; ok {
			duplicates = append(duplicates, stub)
			continue
		}
		seen[key] = struct{}{}
		fresh = append(fresh, stub)
	}
	return fresh, duplicates
}

// NormalizeTitle applies Unicode NFC and collapses runs of whitespace.
func NormalizeTitle(title string) string {
	return strings.Join(strings.Fields(norm.NFC.String(title)), " ")
}
