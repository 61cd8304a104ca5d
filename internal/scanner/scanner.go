package scanner

import (
	"fmt"
	"sort"

	"NewsHarvester/internal/domain"
)

// Category describes a concrete listing endpoint provided by config.
type Category struct {
	Name string
	URL  string
}

// Request carries everything a parser needs to interpret one listing page.
type Request struct {
	SiteName   string
	Category   Category
	BaseURL    string
	Industries []string
	Options    map[string]string
}

// Option returns a parser option or def when it is not set.
func (r Request) Option(key, def string) string {
	if v, ok := r.Options[key]; ok && v != "" {
		return v
	}
	return def
}

// Parser turns the raw bytes of one listing page into article stubs. It
// must tolerate malformed markup and return an empty slice rather than an
// error when nothing recognisable is found.
type Parser interface {
	Name() string
	Parse(raw []byte, req Request) ([]domain.ArticleStub, error)
}

// Registry keeps a mapping from parser names to their implementations.
type Registry struct {
	parsers map[string]Parser
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{parsers: map[string]Parser{}}
}

// Register adds or replaces a parser implementation.
func (r *Registry) Register(parser Parser) {
	if r.parsers == nil {
		r.parsers = map[string]Parser{}
	}
	r.parsers[parser.Name()] = parser
}

// Resolve returns a parser by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Parser, error) {
	if parser, ok := r.parsers[name]; ok {
		return parser, nil
	}
	return nil, fmt.Errorf("parser %q is not registered (known: %v)", name, r.Names())
}

// Names lists registered parsers in lexical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.parsers))
	for name := range r.parsers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
