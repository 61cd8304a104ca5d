package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/net/html/charset"
)

const defaultMaxBodyBytes = 5 << 20

// HTTPStrategy fetches pages with a plain net/http client. Response bodies
// are decoded to UTF-8 and capped at maxBody bytes.
type HTTPStrategy struct {
	client        *http.Client
	userAgent     string
	randomHeaders bool
	maxBody       int64
}

// NewHTTPStrategy wires an HTTP client; timeouts come from the request
// context, so the default client has none of its own.
func NewHTTPStrategy(client *http.Client, userAgent string, randomHeaders bool, maxBody int64) *HTTPStrategy {
	if client == nil {
		client = &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConnsPerHost: 8,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	return &HTTPStrategy{client: client, userAgent: userAgent, randomHeaders: randomHeaders, maxBody: maxBody}
}

// Name identifies the strategy in logs.
func (s *HTTPStrategy) Name() string {
	return "http"
}

// Retrieve performs a GET and returns the decoded body of a 200 response.
func (s *HTTPStrategy) Retrieve(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	ua := s.userAgent
	if s.randomHeaders || ua == "" {
		ua = randomUserAgent()
	}
	browserHeaders(req.Header, ua)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	body := io.LimitReader(resp.Body, s.maxBody)
	utf8Reader, err := charset.NewReader(body, resp.Header.Get("Content-Type"))
	if err != nil {
		utf8Reader = body
	}

	data, err := io.ReadAll(utf8Reader)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return data, nil
}

// StatusError reports a non-200 response.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %s", e.Status)
}
