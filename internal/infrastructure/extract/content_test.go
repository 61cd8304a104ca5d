package extract

import (
	"strings"
	"testing"
)

const articlePage = `<!DOCTYPE html>
<html><head><title>Fed holds rates</title></head>
<body>
  <nav><a href="/">Home</a><a href="/markets">Markets</a></nav>
  <div data-testid="caas-body" class="caas-body">
    <p class="yf-1">The Federal Reserve left interest rates unchanged on Wednesday, citing cooling inflation.</p>
    <p>Ok.</p>
    <p>Officials signalled that cuts could come later this year if the labour market softens further.</p>
    <script>var tracking = true;</script>
    <p>Read the original article on Example Wire.</p>
  </div>
  <footer>Copyright</footer>
</body></html>`

func TestExtractUsesConfiguredSelector(t *testing.T) {
	t.Parallel()

	e := New("text", []string{`div[data-testid="caas-body"]`})
	content, err := e.Extract([]byte(articlePage), "https://finance.yahoo.com/news/fed.html")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	paragraphs := strings.Split(content, "\n\n")
	if len(paragraphs) != 2 {
		t.Fatalf("expected 2 paragraphs, got %d: %q", len(paragraphs), content)
	}
	if !strings.HasPrefix(paragraphs[0], "The Federal Reserve left") {
		t.Fatalf("unexpected first paragraph %q", paragraphs[0])
	}
	if strings.Contains(content, "tracking") || strings.Contains(content, "Home") {
		t.Fatalf("boilerplate leaked into content: %q", content)
	}
}

func TestExtractFallsBackToReadability(t *testing.T) {
	t.Parallel()

	body := strings.Repeat("<p>Global markets rallied today as investors weighed new economic data from several regions, pushing indexes higher.</p>", 6)
	page := `<html><head><title>Markets</title></head><body><header>Site header</header><article>` + body + `</article></body></html>`

	content, err := New("text", []string{".does-not-exist"}).Extract([]byte(page), "https://example.com/markets")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !strings.Contains(content, "Global markets rallied") {
		t.Fatalf("readability content missing: %q", content)
	}
}

func TestExtractMarkdown(t *testing.T) {
	t.Parallel()

	page := `<html><body><div class="story"><h2>Outlook</h2><p>Analysts expect <strong>strong</strong> earnings this quarter across the sector.</p></div></body></html>`
	content, err := New("markdown", []string{".story"}).Extract([]byte(page), "https://example.com/a")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !strings.Contains(content, "## Outlook") || !strings.Contains(content, "**strong**") {
		t.Fatalf("unexpected markdown %q", content)
	}
}

func TestExtractEmpty(t *testing.T) {
	t.Parallel()

	if _, err := New("text", nil).Extract(nil, "https://example.com"); err == nil {
		t.Fatalf("expected error for empty input")
	}
}
