package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"NewsHarvester/internal/domain"
)

func sampleRun() (domain.RunSummary, []domain.ArticleRecord) {
	finished := time.Date(2026, 5, 4, 13, 45, 10, 0, time.UTC)
	summary := domain.RunSummary{
		RunID:            "run-1",
		Stage:            domain.StageCommitted,
		TotalCandidates:  3,
		FetchSuccesses:   2,
		RecordsCommitted: 2,
		StartedAt:        finished.Add(-time.Minute),
		FinishedAt:       finished,
	}
	records := []domain.ArticleRecord{
		{
			ID:              "id-1",
			URL:             "https://finance.yahoo.com/news/fed-holds",
			Link:            "https://finance.yahoo.com/news/fed-holds/?utm_source=x",
			Title:           "Fed holds rates <steady>",
			Content:         "The central bank left rates unchanged, \"as expected\".",
			PublishedAt:     finished.Add(-time.Hour),
			Source:          "Yahoo Finance",
			Industries:      []string{"Financial News", "Macro"},
			EmbeddingStatus: domain.EmbeddingPending,
			CreatedAt:       finished,
		},
		{
			ID:              "id-2",
			URL:             "https://finance.yahoo.com/news/oil",
			Link:            "https://finance.yahoo.com/news/oil",
			Title:           "Oil slips on supply outlook",
			Content:         "Crude fell,\nwith Brent down 1%.",
			Source:          "Yahoo Finance",
			Industries:      []string{"Financial News"},
			EmbeddingStatus: domain.EmbeddingPending,
			CreatedAt:       finished,
		},
	}
	return summary, records
}

func TestFileExporterWritesJSONAndCSV(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "exports")
	exporter, err := NewFileExporter(dir, []string{"json", "CSV"})
	if err != nil {
		t.Fatalf("new exporter: %v", err)
	}

	summary, records := sampleRun()
	paths, err := exporter.Export(context.Background(), summary, records)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 files, got %v", paths)
	}
	if filepath.Base(paths[0]) != "news_20260504_134510.json" {
		t.Fatalf("unexpected json file name %q", paths[0])
	}

	raw, err := os.ReadFile(paths[0])
	if err != nil {
		t.Fatalf("read json: %v", err)
	}
	var doc jsonDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if doc.Summary.RunID != "run-1" || doc.Summary.RecordsCommitted != 2 {
		t.Fatalf("unexpected summary: %+v", doc.Summary)
	}
	if len(doc.Articles) != 2 || doc.Articles[0].Title != "Fed holds rates <steady>" {
		t.Fatalf("unexpected articles: %+v", doc.Articles)
	}
	if doc.Articles[1].PublishedAt != nil {
		t.Fatalf("expected unknown publish time to be omitted, got %v", doc.Articles[1].PublishedAt)
	}

	f, err := os.Open(paths[1])
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
	if rows[1][7] != "Financial News;Macro" {
		t.Fatalf("unexpected industries column %q", rows[1][7])
	}
	if rows[2][8] != "Crude fell,\nwith Brent down 1%." {
		t.Fatalf("content not preserved: %q", rows[2][8])
	}
}

func TestFileExporterSkipsEmptyRuns(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	exporter, err := NewFileExporter(dir, []string{"json"})
	if err != nil {
		t.Fatalf("new exporter: %v", err)
	}

	paths, err := exporter.Export(context.Background(), domain.RunSummary{}, nil)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(paths) != 0 {
		t.Fatalf("expected no files, got %v", paths)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("expected empty dir, got %d entries", len(entries))
	}
}

func TestNewFileExporterRejectsUnknownFormat(t *testing.T) {
	t.Parallel()

	if _, err := NewFileExporter(t.TempDir(), []string{"xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
	if _, err := NewFileExporter(" ", []string{"json"}); err == nil {
		t.Fatal("expected error for empty dir")
	}
}
