package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"NewsHarvester/internal/domain"
	"NewsHarvester/internal/ports"
)

const (
	FormatJSON = "json"
	FormatCSV  = "csv"

	filePrefix      = "news"
	timestampLayout = "20060102_150405"
)

// FileExporter writes a local backup of each run's committed records.
type FileExporter struct {
	dir     string
	formats []string
}

var _ ports.Exporter = (*FileExporter)(nil)

// NewFileExporter validates formats and returns an exporter writing to dir.
func NewFileExporter(dir string, formats []string) (*FileExporter, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("export dir is empty")
	}

	normalized := make([]string, 0, len(formats))
	for _, format := range formats {
		format = strings.ToLower(strings.TrimSpace(format))
		switch format {
		case FormatJSON, FormatCSV:
			normalized = append(normalized, format)
		default:
			return nil, fmt.Errorf("unknown export format %q", format)
		}
	}

	return &FileExporter{dir: dir, formats: normalized}, nil
}

type jsonSummary struct {
	RunID             string    `json:"run_id"`
	Stage             string    `json:"stage"`
	FailureReason     string    `json:"failure_reason,omitempty"`
	SourcesSucceeded  int       `json:"sources_succeeded"`
	SourcesFailed     int       `json:"sources_failed"`
	TotalCandidates   int       `json:"total_candidates"`
	StaleSkipped      int       `json:"stale_skipped"`
	DuplicatesSkipped int       `json:"duplicates_skipped"`
	Deferred          int       `json:"deferred"`
	FetchSuccesses    int       `json:"fetch_successes"`
	FetchFailures     int       `json:"fetch_failures"`
	RecordsCommitted  int       `json:"records_committed"`
	CommitFailures    int       `json:"commit_failures"`
	StartedAt         time.Time `json:"started_at"`
	FinishedAt        time.Time `json:"finished_at"`
}

type jsonArticle struct {
	ID              string     `json:"id"`
	URL             string     `json:"url"`
	Link            string     `json:"link"`
	Title           string     `json:"title"`
	Source          string     `json:"source"`
	PublishedAt     *time.Time `json:"published_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	Industries      []string   `json:"industries"`
	EmbeddingStatus string     `json:"embedding_status"`
	Content         string     `json:"content"`
}

type jsonDocument struct {
	Summary  jsonSummary   `json:"summary"`
	Articles []jsonArticle `json:"articles"`
}

var csvHeader = []string{"id", "title", "link", "url", "source", "published_at", "created_at", "industries", "content"}

// Export writes one file per configured format and returns the paths
// written. Runs without records produce no files.
func (e *FileExporter) Export(ctx context.Context, summary domain.RunSummary, records []domain.ArticleRecord) ([]string, error) {
	if len(records) == 0 || len(e.formats) == 0 {
		return nil, nil
	}

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}

	stamp := summary.FinishedAt
	if stamp.IsZero() {
		stamp = time.Now()
	}
	base := filepath.Join(e.dir, fmt.Sprintf("%s_%s", filePrefix, stamp.Format(timestampLayout)))

	paths := make([]string, 0, len(e.formats))
	for _, format := range e.formats {
		if err := ctx.Err(); err != nil {
			return paths, err
		}

		path := base + "." + format
		var err error
		switch format {
		case FormatJSON:
			err = writeJSON(path, summary, records)
		case FormatCSV:
			err = writeCSV(path, records)
		}
		if err != nil {
			return paths, fmt.Errorf("write %s export: %w", format, err)
		}
		paths = append(paths, path)
	}

	return paths, nil
}

func writeJSON(path string, summary domain.RunSummary, records []domain.ArticleRecord) error {
	doc := jsonDocument{
		Summary:  toJSONSummary(summary),
		Articles: make([]jsonArticle, 0, len(records)),
	}
	for _, record := range records {
		doc.Articles = append(doc.Articles, toJSONArticle(record))
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func writeCSV(path string, records []domain.ArticleRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		_ = f.Close()
		return err
	}
	for _, record := range records {
		row := []string{
			record.ID,
			record.Title,
			record.Link,
			record.URL,
			record.Source,
			formatTime(record.PublishedAt),
			formatTime(record.CreatedAt),
			strings.Join(record.Industries, ";"),
			record.Content,
		}
		if err := w.Write(row); err != nil {
			_ = f.Close()
			return err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func toJSONSummary(s domain.RunSummary) jsonSummary {
	return jsonSummary{
		RunID:             s.RunID,
		Stage:             string(s.Stage),
		FailureReason:     s.FailureReason,
		SourcesSucceeded:  s.SourcesSucceeded,
		SourcesFailed:     s.SourcesFailed,
		TotalCandidates:   s.TotalCandidates,
		StaleSkipped:      s.StaleSkipped,
		DuplicatesSkipped: s.DuplicatesSkipped,
		Deferred:          s.Deferred,
		FetchSuccesses:    s.FetchSuccesses,
		FetchFailures:     s.FetchFailures,
		RecordsCommitted:  s.RecordsCommitted,
		CommitFailures:    s.CommitFailures,
		StartedAt:         s.StartedAt,
		FinishedAt:        s.FinishedAt,
	}
}

func toJSONArticle(r domain.ArticleRecord) jsonArticle {
	article := jsonArticle{
		ID:              r.ID,
		URL:             r.URL,
		Link:            r.Link,
		Title:           r.Title,
		Source:          r.Source,
		CreatedAt:       r.CreatedAt,
		Industries:      r.Industries,
		EmbeddingStatus: string(r.EmbeddingStatus),
		Content:         r.Content,
	}
	if !r.PublishedAt.IsZero() {
		published := r.PublishedAt
		article.PublishedAt = &published
	}
	return article
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
