package storage

import (
	"errors"
	"time"

	"NewsHarvester/internal/domain"
)

// ErrAlreadyStored marks a record whose URL is already present.
var ErrAlreadyStored = errors.New("record already stored")

// insertColumns is the column order shared by the SQL stores.
var insertColumns = []string{
	"id", "url", "link", "title", "content", "source",
	"industries", "published_at", "embedding_status", "created_at",
}

// lookupChunk bounds the number of bound parameters per lookup query.
const lookupChunk = 500

func chunks(values []string, size int) [][]string {
	var out [][]string
	for start := 0; start < len(values); start += size {
		end := start + size
		if end > len(values) {
			end = len(values)
		}
		out = append(out, values[start:end])
	}
	return out
}

func storeError(op string, err error) error {
	return domain.NewError(domain.KindStore, op, "", err)
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

func industriesOf(record domain.ArticleRecord) []string {
	if len(record.Industries) == 0 {
		return domain.DefaultIndustries
	}
	return record.Industries
}

func embeddingOf(record domain.ArticleRecord) string {
	if record.EmbeddingStatus == "" {
		return string(domain.EmbeddingPending)
	}
	return string(record.EmbeddingStatus)
}
