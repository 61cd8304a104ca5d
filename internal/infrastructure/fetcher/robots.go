package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"
)

// ErrDisallowed is returned for URLs excluded by the host's robots.txt.
var ErrDisallowed = errors.New("disallowed by robots.txt")

// RobotsGuard checks robots.txt before delegating to the wrapped strategy.
// Rules are fetched once per host; hosts whose robots.txt cannot be read
// are treated as allowing everything.
type RobotsGuard struct {
	next      Strategy
	client    *http.Client
	userAgent string

	mu     sync.Mutex
	groups map[string]*robotstxt.Group
}

// NewRobotsGuard wraps next.
func NewRobotsGuard(next Strategy, client *http.Client, userAgent string) *RobotsGuard {
	if client == nil {
		client = http.DefaultClient
	}
	if userAgent == "" {
		userAgent = "*"
	}
	return &RobotsGuard{next: next, client: client, userAgent: userAgent, groups: map[string]*robotstxt.Group{}}
}

// Name reports the wrapped strategy's name.
func (g *RobotsGuard) Name() string {
	return g.next.Name()
}

// Retrieve delegates when robots.txt allows the path.
func (g *RobotsGuard) Retrieve(ctx context.Context, pageURL string) ([]byte, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}

	group := g.group(ctx, u)
	if group != nil && !group.Test(u.RequestURI()) {
		return nil, fmt.Errorf("%s: %w", pageURL, ErrDisallowed)
	}
	return g.next.Retrieve(ctx, pageURL)
}

// Close closes the wrapped strategy when it holds resources.
func (g *RobotsGuard) Close() error {
	if c, ok := g.next.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

func (g *RobotsGuard) group(ctx context.Context, u *url.URL) *robotstxt.Group {
	host := u.Scheme + "://" + u.Host

	g.mu.Lock()
	group, ok := g.groups[host]
	g.mu.Unlock()
	if ok {
		return group
	}

	group = g.load(ctx, host)
	if ctx.Err() != nil {
		return group
	}

	g.mu.Lock()
	g.groups[host] = group
	g.mu.Unlock()
	return group
}

func (g *RobotsGuard) load(ctx context.Context, host string) *robotstxt.Group {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, host+"/robots.txt", nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil
	}
	return data.FindGroup(g.userAgent)
}
