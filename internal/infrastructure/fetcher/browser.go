package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// BrowserOptions configures the headless browser strategy.
type BrowserOptions struct {
	ControlURL string
	Bin        string
	Stealth    bool
}

// BrowserStrategy renders pages in headless Chrome through rod. The
// browser is started lazily on the first request and shared by all tabs.
type BrowserStrategy struct {
	opts   BrowserOptions
	logger *slog.Logger

	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
}

// NewBrowserStrategy builds the strategy without starting a browser.
func NewBrowserStrategy(opts BrowserOptions, logger *slog.Logger) *BrowserStrategy {
	if logger == nil {
		logger = slog.Default()
	}
	return &BrowserStrategy{opts: opts, logger: logger}
}

// Name identifies the strategy in logs.
func (s *BrowserStrategy) Name() string {
	return "browser"
}

// Retrieve opens a tab, waits for the load event and returns the rendered
// document HTML.
func (s *BrowserStrategy) Retrieve(ctx context.Context, pageURL string) ([]byte, error) {
	b, err := s.connect()
	if err != nil {
		return nil, err
	}

	var page *rod.Page
	if s.opts.Stealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}
	defer page.Close()

	p := page.Context(ctx)
	if err := p.Navigate(pageURL); err != nil {
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := p.WaitLoad(); err != nil {
		return nil, fmt.Errorf("browser: wait load %s: %w", pageURL, err)
	}

	html, err := p.HTML()
	if err != nil {
		return nil, fmt.Errorf("browser: read DOM: %w", err)
	}
	return []byte(html), nil
}

func (s *BrowserStrategy) connect() (*rod.Browser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser != nil {
		return s.browser, nil
	}

	wsURL := s.opts.ControlURL
	if wsURL == "" {
		l := launcher.New().Headless(true).Set("disable-blink-features", "AutomationControlled")
		if s.opts.Bin != "" {
			l = l.Bin(s.opts.Bin)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		s.lnch = l
		s.logger.Info("launched local chrome", "url", wsURL)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		if s.lnch != nil {
			s.lnch.Cleanup()
			s.lnch = nil
		}
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	s.browser = b
	return b, nil
}

// Close shuts the browser down if it was started.
func (s *BrowserStrategy) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.browser != nil {
		err = s.browser.Close()
		s.browser = nil
	}
	if s.lnch != nil {
		s.lnch.Cleanup()
		s.lnch = nil
	}
	return err
}
