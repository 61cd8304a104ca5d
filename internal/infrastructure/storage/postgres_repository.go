package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"

	"NewsHarvester/internal/domain"
	"NewsHarvester/internal/ports"
)

// PostgresStore persists article records into Postgres through a pgx pool.
type PostgresStore struct {
	pool    *pgxpool.Pool
	dsn     string
	builder sq.StatementBuilderType
	logger  *slog.Logger
}

var _ ports.StoreGateway = (*PostgresStore)(nil)

// OpenPostgres connects a pool and verifies it with a ping.
func OpenPostgres(ctx context.Context, dsn string, maxConns int32, logger *slog.Logger) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresStore{
		pool:    pool,
		dsn:     dsn,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		logger:  logger.With("component", "postgres_store"),
	}, nil
}

// Migrate applies the embedded schema over a short-lived database/sql handle.
func (s *PostgresStore) Migrate() (MigrationVersion, error) {
	db, err := sql.Open("pgx", s.dsn)
	if err != nil {
		return MigrationVersion{}, fmt.Errorf("open migration connection: %w", err)
	}
	defer db.Close()

	version, err := migratePostgres(db)
	if err != nil {
		return MigrationVersion{}, err
	}
	s.logger.Info("schema migrated", "version", version.Version, "dirty", version.Dirty)
	return version, nil
}

// AlreadyStored returns the subset of urls already present in the store.
func (s *PostgresStore) AlreadyStored(ctx context.Context, urls []string) (map[string]bool, error) {
	result := make(map[string]bool)
	if len(urls) == 0 {
		return result, nil
	}

	query, args, err := s.builder.Select("url").From(tableName).Where("url = ANY(?)", urls).ToSql()
	if err != nil {
		return nil, storeError("build lookup", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storeError("query stored urls", err)
	}
	defer rows.Close()

	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, storeError("scan url", err)
		}
		result[url] = true
	}

	if err := rows.Err(); err != nil {
		return nil, storeError("rows iteration", err)
	}

	return result, nil
}

// InsertBatch queues every record into one pgx batch. The batch is executed
// as a single implicit transaction, so when any statement fails the records
// are replayed one by one to report an outcome per record.
func (s *PostgresStore) InsertBatch(ctx context.Context, records []domain.ArticleRecord) ([]domain.InsertOutcome, error) {
	if len(records) == 0 {
		return nil, nil
	}

	statements := make([]insertStatement, 0, len(records))
	for _, record := range records {
		stmt, err := s.insertStatement(record)
		if err != nil {
			return nil, storeError("build insert", err)
		}
		statements = append(statements, stmt)
	}

	outcomes, err := s.sendBatch(ctx, statements)
	if err == nil {
		return outcomes, nil
	}
	if ctx.Err() != nil {
		return nil, storeError("insert batch", err)
	}

	s.logger.Warn("batch insert failed, retrying per record", "records", len(records), "error", err)
	return s.insertEach(ctx, statements), nil
}

type insertStatement struct {
	url   string
	query string
	args  []any
}

func (s *PostgresStore) insertStatement(record domain.ArticleRecord) (insertStatement, error) {
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
			industriesOf(record),
			nullableTime(record.PublishedAt),
			embeddingOf(record),
			record.CreatedAt.UTC(),
		).
		Suffix("ON CONFLICT (url) DO NOTHING").
		ToSql()
	if err != nil {
		return insertStatement{}, err
	}
	return insertStatement{url: record.URL, query: query, args: args}, nil
}

func (s *PostgresStore) sendBatch(ctx context.Context, statements []insertStatement) ([]domain.InsertOutcome, error) {
	batch := &pgx.Batch{}
	for _, stmt := range statements {
		batch.Queue(stmt.query, stmt.args...)
	}

	br := s.pool.SendBatch(ctx, batch)
	outcomes := make([]domain.InsertOutcome, 0, len(statements))
	for _, stmt := range statements {
		tag, err := br.Exec()
		if err != nil {
			_ = br.Close()
			return nil, fmt.Errorf("exec %s: %w", stmt.url, err)
		}
		outcomes = append(outcomes, outcomeFor(stmt.url, tag.RowsAffected()))
	}

	if err := br.Close(); err != nil {
		return nil, fmt.Errorf("close batch: %w", err)
	}
	return outcomes, nil
}

func (s *PostgresStore) insertEach(ctx context.Context, statements []insertStatement) []domain.InsertOutcome {
	outcomes := make([]domain.InsertOutcome, 0, len(statements))
	for _, stmt := range statements {
		tag, err := s.pool.Exec(ctx, stmt.query, stmt.args...)
		if err != nil {
			outcomes = append(outcomes, domain.InsertOutcome{URL: stmt.url, Err: storeError("insert record", err)})
			continue
		}
		outcomes = append(outcomes, outcomeFor(stmt.url, tag.RowsAffected()))
	}
	return outcomes
}

// Stats counts stored records per source.
func (s *PostgresStore) Stats(ctx context.Context) (domain.StoreStats, error) {
	query, args, err := s.builder.Select("source", "COUNT(*)").From(tableName).GroupBy("source").ToSql()
	if err != nil {
		return domain.StoreStats{}, storeError("build stats", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
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

// Close releases the pool.
func (s *PostgresStore) Close(context.Context) error {
	s.pool.Close()
	return nil
}

func outcomeFor(url string, affected int64) domain.InsertOutcome {
	if affected == 0 {
		return domain.InsertOutcome{URL: url, Err: ErrAlreadyStored}
	}
	return domain.InsertOutcome{URL: url, Inserted: true}
}
