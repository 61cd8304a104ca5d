package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"NewsHarvester/internal/domain"
	"NewsHarvester/internal/ports"
)

const duplicateKeyCode = 11000

// MongoStore keeps article records in a Mongo collection with a unique
// index on url.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *slog.Logger
}

var _ ports.StoreGateway = (*MongoStore)(nil)

type mongoRecord struct {
	ID              string     `bson:"_id"`
	URL             string     `bson:"url"`
	Link            string     `bson:"link"`
	Title           string     `bson:"title"`
	Content         string     `bson:"content"`
	Source          string     `bson:"source"`
	Industries      []string   `bson:"industries"`
	PublishedAt     *time.Time `bson:"published_at,omitempty"`
	EmbeddingStatus string     `bson:"embedding_status"`
	CreatedAt       time.Time  `bson:"created_at"`
}

// OpenMongo connects to uri and ensures the url index on database.collection.
func OpenMongo(ctx context.Context, uri, database, collection string, logger *slog.Logger) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	s := &MongoStore{
		client:     client,
		collection: client.Database(database).Collection(collection),
		logger:     logger.With("component", "mongo_store"),
	}

	if err := s.createIndexes(ctx); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, err
	}

	return s, nil
}

func (s *MongoStore) createIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "url", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "source", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	}

	if _, err := s.collection.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("create indexes: %w", err)
	}
	return nil
}

// AlreadyStored returns the subset of urls already present in the store.
func (s *MongoStore) AlreadyStored(ctx context.Context, urls []string) (map[string]bool, error) {
	result := make(map[string]bool)
	for _, chunk := range chunks(urls, lookupChunk) {
		opts := options.Find().SetProjection(bson.M{"url": 1, "_id": 0})

		cursor, err := s.collection.Find(ctx, bson.M{"url": bson.M{"$in": chunk}}, opts)
		if err != nil {
			return nil, storeError("find stored urls", err)
		}

		for cursor.Next(ctx) {
			var doc struct {
				URL string `bson:"url"`
			}
			if err := cursor.Decode(&doc); err != nil {
				_ = cursor.Close(ctx)
				return nil, storeError("decode url", err)
			}
			result[doc.URL] = true
		}

		if err := cursor.Err(); err != nil {
			_ = cursor.Close(ctx)
			return nil, storeError("cursor iteration", err)
		}
		_ = cursor.Close(ctx)
	}

	return result, nil
}

// InsertBatch performs one unordered InsertMany. Write errors are mapped back
// to their records by index; the remaining records are reported inserted.
func (s *MongoStore) InsertBatch(ctx context.Context, records []domain.ArticleRecord) ([]domain.InsertOutcome, error) {
	if len(records) == 0 {
		return nil, nil
	}

	docs := make([]any, 0, len(records))
	for _, record := range records {
		docs = append(docs, toMongoRecord(record))
	}

	_, err := s.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err == nil {
		return insertedOutcomes(records), nil
	}

	var bulkErr mongo.BulkWriteException
	if errors.As(err, &bulkErr) && len(bulkErr.WriteErrors) > 0 {
		return outcomesFromBulk(records, bulkErr), nil
	}

	return nil, storeError("insert many", err)
}

// Stats counts stored records per source.
func (s *MongoStore) Stats(ctx context.Context) (domain.StoreStats, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$source"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}

	cursor, err := s.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return domain.StoreStats{}, storeError("aggregate stats", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Source string `bson:"_id"`
		Count  int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return domain.StoreStats{}, storeError("decode stats", err)
	}

	stats := domain.StoreStats{BySource: make(map[string]int64, len(rows))}
	for _, row := range rows {
		stats.BySource[row.Source] = row.Count
		stats.Total += row.Count
	}
	return stats, nil
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func toMongoRecord(record domain.ArticleRecord) mongoRecord {
	doc := mongoRecord{
		ID:              record.ID,
		URL:             record.URL,
		Link:            record.Link,
		Title:           record.Title,
		Content:         record.Content,
		Source:          record.Source,
		Industries:      industriesOf(record),
		EmbeddingStatus: embeddingOf(record),
		CreatedAt:       record.CreatedAt.UTC(),
	}
	if !record.PublishedAt.IsZero() {
		published := record.PublishedAt.UTC()
		doc.PublishedAt = &published
	}
	return doc
}

func insertedOutcomes(records []domain.ArticleRecord) []domain.InsertOutcome {
	outcomes := make([]domain.InsertOutcome, len(records))
	for i, record := range records {
		outcomes[i] = domain.InsertOutcome{URL: record.URL, Inserted: true}
	}
	return outcomes
}

func outcomesFromBulk(records []domain.ArticleRecord, bulkErr mongo.BulkWriteException) []domain.InsertOutcome {
	outcomes := insertedOutcomes(records)
	for _, writeErr := range bulkErr.WriteErrors {
		if writeErr.Index < 0 || writeErr.Index >= len(outcomes) {
			continue
		}
		outcome := &outcomes[writeErr.Index]
		outcome.Inserted = false
		if writeErr.Code == duplicateKeyCode {
			outcome.Err = ErrAlreadyStored
			continue
		}
		outcome.Err = storeError("insert record", fmt.Errorf("code %d: %s", writeErr.Code, writeErr.Message))
	}
	return outcomes
}
