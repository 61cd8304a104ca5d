package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"NewsHarvester/internal/domain"
	"NewsHarvester/internal/ports"
)

const defaultAPIBase = "https://api.telegram.org"

// Notifier sends run summaries to a Telegram chat via bot API.
type Notifier struct {
	botToken string
	chatID   string
	apiBase  string
	client   *http.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier.
func NewNotifier(botToken, chatID string) *Notifier {
	return &Notifier{
		botToken: botToken,
		chatID:   chatID,
		apiBase:  defaultAPIBase,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// WithAPIBase points the notifier at another Bot API host.
func (n *Notifier) WithAPIBase(base string) *Notifier {
	n.apiBase = strings.TrimSuffix(base, "/")
	return n
}

// PublishSummary posts a Markdown report of a finished run.
func (n *Notifier) PublishSummary(ctx context.Context, summary domain.RunSummary) error {
	return n.send(ctx, FormatSummary(summary))
}

func (n *Notifier) send(ctx context.Context, text string) error {
	if n.botToken == "" || n.chatID == "" || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", text)
	form.Set("parse_mode", "Markdown")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}

	return nil
}

// FormatSummary renders a RunSummary as a short Markdown message.
func FormatSummary(s domain.RunSummary) string {
	var b strings.Builder
	if s.Aborted() {
		fmt.Fprintf(&b, "*News harvest aborted*\n")
		fmt.Fprintf(&b, "Reason: %s\n", s.FailureReason)
	} else {
		fmt.Fprintf(&b, "*News harvest finished*\n")
	}
	fmt.Fprintf(&b, "Sources: %d ok, %d failed\n", s.SourcesSucceeded, s.SourcesFailed)
	fmt.Fprintf(&b, "Candidates: %d (stale %d, duplicates %d)\n", s.TotalCandidates, s.StaleSkipped, s.DuplicatesSkipped)
	if !s.Aborted() {
		fmt.Fprintf(&b, "Fetched: %d ok, %d failed\n", s.FetchSuccesses, s.FetchFailures)
		fmt.Fprintf(&b, "Committed: %d", s.RecordsCommitted)
		if s.CommitFailures > 0 {
			fmt.Fprintf(&b, " (%d rejected)", s.CommitFailures)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Took %s", s.Duration().Round(time.Second))
	return b.String()
}
