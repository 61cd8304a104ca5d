package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// Strategy retrieves the raw bytes of one page.
type Strategy interface {
	Name() string
	Retrieve(ctx context.Context, url string) ([]byte, error)
}

// Options are shared by every strategy built through New.
type Options struct {
	UserAgent     string
	RandomHeaders bool
	MaxBodyBytes  int64
	RespectRobots bool
	Browser       BrowserOptions
	Client        *http.Client
	Logger        *slog.Logger
}

// New builds the strategy registered under name: "http", "colly" or
// "browser". With RespectRobots the strategy is wrapped in a robots.txt
// guard.
func New(name string, opts Options) (Strategy, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	var s Strategy
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "http", "":
		s = NewHTTPStrategy(opts.Client, opts.UserAgent, opts.RandomHeaders, opts.MaxBodyBytes)
	case "colly":
		s = NewCollyStrategy(opts.UserAgent, opts.RandomHeaders, opts.MaxBodyBytes)
	case "browser":
		s = NewBrowserStrategy(opts.Browser, opts.Logger.With("strategy", "browser"))
	default:
		return nil, fmt.Errorf("unknown fetch strategy %q", name)
	}

	if opts.RespectRobots {
		s = NewRobotsGuard(s, opts.Client, opts.UserAgent)
	}
	return s, nil
}
