package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"NewsHarvester/internal/domain"
	"NewsHarvester/internal/ports"
)

// SQLiteStore keeps article records in a local SQLite file. It backs the
// local mode and the store tests.
type SQLiteStore struct {
	db      *sql.DB
	builder sq.StatementBuilderType
	logger  *slog.Logger
}

var _ ports.StoreGateway = (*SQLiteStore)(nil)

// OpenSQLite opens dsn with the modernc driver. SQLite allows one writer, so
// the pool is limited to a single connection.
func OpenSQLite(ctx context.Context, dsn string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &SQLiteStore{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Question),
		logger:  logger.With("component", "sqlite_store"),
	}, nil
}

// Migrate applies the embedded SQLite schema.
func (s *SQLiteStore) Migrate() (MigrationVersion, error) {
	version, err := migrateSQLite(s.db)
	if err != nil {
		return MigrationVersion{}, err
	}
	s.logger.Info("schema migrated", "version", version.Version, "dirty", version.Dirty)
	return version, nil
}

// AlreadyStored returns the subset of urls already present in the store.
func (s *SQLiteStore) AlreadyStored(ctx context.Context, urls []string) (map[string]bool, error) {
	result := make(map[string]bool)
	for _, chunk := range chunks(urls, lookupChunk) {
		query, args, err := s.builder.Select("url").From(tableName).Where(sq.Eq{"url": chunk}).ToSql()
		if err != nil {
			return nil, storeError("build lookup", err)
		}

		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, storeError("query stored urls", err)
		}

		for rows.Next() {
			var url string
			if err := rows.Scan(&url); err != nil {
				_ = rows.Close()
				return nil, storeError("scan url", err)
			}
			result[url] = true
		}

		if rowsErr := rows.Err(); rowsErr != nil {
			_ = rows.Close()
			return nil, storeError("rows iteration", rowsErr)
		}

		if closeErr := rows.Close(); closeErr != nil {
			return nil, storeError("close rows", closeErr)
		}
	}

	return result, nil
}

// InsertBatch writes all records in one transaction. A failing statement
// does not abort a SQLite transaction, so each record gets its own outcome
// and only a failed commit fails the whole batch.
func (s *SQLiteStore) InsertBatch(ctx context.Context, records []domain.ArticleRecord) ([]domain.InsertOutcome, error) {
	if len(records) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeError("begin tx", err)
	}

	outcomes := make([]domain.InsertOutcome, 0, len(records))
	for _, record := range records {
		outcomes = append(outcomes, s.insertOne(ctx, tx, record))
	}

	if err := tx.Commit(); err != nil {
		return nil, storeError("commit tx", err)
	}
	return outcomes, nil
}

func (s *SQLiteStore) insertOne(ctx context.Context, tx *sql.Tx, record domain.ArticleRecord) domain.InsertOutcome {
	industries, err := json.Marshal(industriesOf(record))
	if err != nil {
		return domain.InsertOutcome{URL: record.URL, Err: storeError("encode industries", err)}
	}

	query, args, err := s.builder.
		Insert(tableName).
		Columns(insertColumns...).
		Values(
			record.ID,
			record.URL,
			record.Link,
			record.Title,
			record.Content,
			record.Source,
			string(industries),
			nullableTime(record.PublishedAt),
			embeddingOf(record),
			record.CreatedAt.UTC(),
		).
		Suffix("ON CONFLICT (url) DO NOTHING").
		ToSql()
	if err != nil {
		return domain.InsertOutcome{URL: record.URL, Err: storeError("build insert", err)}
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return domain.InsertOutcome{URL: record.URL, Err: storeError("insert record", err)}
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return domain.InsertOutcome{URL: record.URL, Err: storeError("rows affected", err)}
	}
	return outcomeFor(record.URL, affected)
}

// Stats counts stored records per source.
func (s *SQLiteStore) Stats(ctx context.Context) (domain.StoreStats, error) {
	query, args, err := s.builder.Select("source", "COUNT(*)").From(tableName).GroupBy("source").ToSql()
	if err != nil {
		return domain.StoreStats{}, storeError("build stats", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return domain.StoreStats{}, storeError("query stats", err)
	}
	defer rows.Close()

	stats := domain.StoreStats{BySource: make(map[string]int64)}
	for rows.Next() {
		var (
			source string
			count  int64
		)
		if err := rows.Scan(&source, &count); err != nil {
			return domain.StoreStats{}, storeError("scan stats", err)
		}
		stats.BySource[source] = count
		stats.Total += count
	}

	if err := rows.Err(); err != nil {
		return domain.StoreStats{}, storeError("rows iteration", err)
	}
	return stats, nil
}

// Close closes the database handle.
func (s *SQLiteStore) Close(context.Context) error {
	return s.db.Close()
}
