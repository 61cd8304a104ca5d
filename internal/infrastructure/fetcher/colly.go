package fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/gocolly/colly"
	"github.com/gocolly/colly/extensions"
)

const defaultCollyTimeout = 30 * time.Second

// CollyStrategy fetches pages through a gocolly collector with a random
// user agent per request. A fresh collector is built per call so concurrent
// fetches never share callbacks.
type CollyStrategy struct {
	userAgent   string
	randomAgent bool
	maxBody     int64
}

// NewCollyStrategy builds the crawler strategy.
func NewCollyStrategy(userAgent string, randomAgent bool, maxBody int64) *CollyStrategy {
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	return &CollyStrategy{userAgent: userAgent, randomAgent: randomAgent, maxBody: maxBody}
}

// Name identifies the strategy in logs.
func (s *CollyStrategy) Name() string {
	return "colly"
}

type collyResult struct {
	body []byte
	err  error
}

// Retrieve visits pageURL. The collector has no context support, so the
// request timeout is derived from the context deadline and the call
// returns as soon as the context ends.
func (s *CollyStrategy) Retrieve(ctx context.Context, pageURL string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := colly.NewCollector(
		colly.UserAgent(s.userAgent),
		colly.AllowURLRevisit(),
	)
	c.MaxBodySize = int(s.maxBody)
	if s.randomAgent || s.userAgent == "" {
		extensions.RandomUserAgent(c)
	}

	timeout := defaultCollyTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return nil, context.DeadlineExceeded
		}
	}
	c.SetRequestTimeout(timeout)

	var body []byte
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
	})

	done := make(chan collyResult, 1)
	go func() {
		err := c.Visit(pageURL)
		if err != nil {
			done <- collyResult{err: fmt.Errorf("colly visit: %w", err)}
			return
		}
		done <- collyResult{body: body}
	}()

	select {
	case res := <-done:
		return res.body, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
