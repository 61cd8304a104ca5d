package storage

import (
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"NewsHarvester/internal/domain"
)

func TestOutcomesFromBulkMapsWriteErrorsByIndex(t *testing.T) {
	t.Parallel()

	records := []domain.ArticleRecord{
		testRecord("id-1", "https://example.com/a", "Example"),
		testRecord("id-2", "https://example.com/b", "Example"),
		testRecord("id-3", "https://example.com/c", "Example"),
	}
	bulkErr := mongo.BulkWriteException{
		WriteErrors: []mongo.BulkWriteError{
			{WriteError: mongo.WriteError{Index: 0, Code: duplicateKeyCode, Message: "E11000 duplicate key"}},
			{WriteError: mongo.WriteError{Index: 2, Code: 121, Message: "document failed validation"}},
		},
	}

	outcomes := outcomesFromBulk(records, bulkErr)

	if outcomes[0].Inserted || !errors.Is(outcomes[0].Err, ErrAlreadyStored) {
		t.Fatalf("expected duplicate for first record, got %+v", outcomes[0])
	}
	if !outcomes[1].Inserted || outcomes[1].Err != nil {
		t.Fatalf("expected second record inserted, got %+v", outcomes[1])
	}
	if outcomes[2].Inserted || !errors.Is(outcomes[2].Err, domain.ErrStore) {
		t.Fatalf("expected store error for third record, got %+v", outcomes[2])
	}
}

func TestToMongoRecordOmitsUnknownPublishedAt(t *testing.T) {
	t.Parallel()

	record := testRecord("id-1", "https://example.com/a", "Example")
	record.PublishedAt = time.Time{}
	record.EmbeddingStatus = ""

	doc := toMongoRecord(record)
	if doc.PublishedAt != nil {
		t.Fatalf("expected nil published_at, got %v", doc.PublishedAt)
	}
	if doc.EmbeddingStatus != string(domain.EmbeddingPending) {
		t.Fatalf("expected pending status, got %q", doc.EmbeddingStatus)
	}
	if doc.ID != "id-1" || doc.URL != "https://example.com/a" {
		t.Fatalf("unexpected document: %+v", doc)
	}
}
