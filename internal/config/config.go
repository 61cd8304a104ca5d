package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"NewsHarvester/internal/domain"
)

const (
	defaultTimezone   = "UTC"
	configPathEnv     = "NEWSHARVEST_CONFIG"
	databaseDSNEnv    = "DATABASE_DSN"
	databaseDriverEnv = "DATABASE_DRIVER"
	databaseTableEnv  = "DATABASE_TABLE"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	maxAgeEnv         = "NEWSHARVEST_MAX_AGE"
	maxHoursEnv       = "INPUT_MAX_HOURS"
	logLevelEnv       = "LOG_LEVEL"
)

var ciIndicators = []string{"GITHUB_ACTIONS", "CI", "CONTINUOUS_INTEGRATION", "GITLAB_CI", "JENKINS_URL"}

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Database      DatabaseConfig     `yaml:"database"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Pipeline      PipelineConfig     `yaml:"pipeline"`
	Fetch         FetchConfig        `yaml:"fetch"`
	Extract       ExtractConfig      `yaml:"extract"`
	Notifications NotificationConfig `yaml:"notifications"`
	Export        ExportConfig       `yaml:"export"`
	API           APIConfig          `yaml:"api"`
	Sites         []SiteConfig       `yaml:"sites"`
	CI            bool               `yaml:"-"`
}

// LoggingConfig selects the slog level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DatabaseConfig describes the record store. Driver is one of postgres,
// sqlite or mongo. Database and Table name the Mongo database and
// collection; the SQL schema is fixed by the embedded migrations.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	DSN      string `yaml:"dsn"`
	Database string `yaml:"database"`
	Table    string `yaml:"table"`
	MaxConns int32  `yaml:"maxConns"`
	Migrate  bool   `yaml:"migrate"`
}

// SchedulerConfig defines how often the pipeline runs in serve mode.
type SchedulerConfig struct {
	Interval   time.Duration  `yaml:"interval"`
	RunOnStart bool           `yaml:"runOnStart"`
	Timezone   string         `yaml:"timezone"`
	location   *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// PipelineConfig bounds a single ingestion run.
type PipelineConfig struct {
	MaxAge           time.Duration `yaml:"maxAge"`
	ConcurrencyLimit int           `yaml:"concurrencyLimit"`
	PerItemTimeout   time.Duration `yaml:"perItemTimeout"`
	ListingTimeout   time.Duration `yaml:"listingTimeout"`
	MinContentLength int           `yaml:"minContentLength"`
	MaxArticles      int           `yaml:"maxArticles"`
	DedupByTitle     bool          `yaml:"dedupByTitle"`
}

// StrategyPair names the primary and fallback retrieval strategies.
type StrategyPair struct {
	Primary  string `yaml:"primary"`
	Fallback string `yaml:"fallback"`
}

// FetchConfig configures page retrieval.
type FetchConfig struct {
	Listing       StrategyPair  `yaml:"listing"`
	Article       StrategyPair  `yaml:"article"`
	UserAgent     string        `yaml:"userAgent"`
	RandomHeaders bool          `yaml:"randomHeaders"`
	RespectRobots bool          `yaml:"respectRobots"`
	MaxBodyBytes  int64         `yaml:"maxBodyBytes"`
	Browser       BrowserConfig `yaml:"browser"`
}

// BrowserConfig configures the headless browser strategy. With an empty
// ControlURL a local browser is launched on first use.
type BrowserConfig struct {
	ControlURL string `yaml:"controlUrl"`
	Bin        string `yaml:"bin"`
	Stealth    bool   `yaml:"stealth"`
}

// ExtractConfig controls how article bodies are reduced to content.
type ExtractConfig struct {
	Format           string   `yaml:"format"`
	ContentSelectors []string `yaml:"contentSelectors"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// Enabled reports whether both credentials are present.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// ExportConfig controls the local JSON/CSV copy of each run.
type ExportConfig struct {
	Enabled bool     `yaml:"enabled"`
	Dir     string   `yaml:"dir"`
	Formats []string `yaml:"formats"`
}

// APIConfig configures the status API used in serve mode.
type APIConfig struct {
	Addr string `yaml:"addr"`
}

// SiteConfig describes a single site with its listing parser.
type SiteConfig struct {
	Name       string            `yaml:"name"`
	Parser     string            `yaml:"parser"`
	BaseURL    string            `yaml:"baseUrl"`
	Industries []string          `yaml:"industries"`
	Categories []CategoryConfig  `yaml:"categories"`
	Options    map[string]string `yaml:"options"`
}

// IndustriesOrDefault returns the configured industries or the default tag.
func (s SiteConfig) IndustriesOrDefault() []string {
	if len(s.Industries) > 0 {
		return s.Industries
	}
	return domain.DefaultIndustries
}

// CategoryConfig holds one concrete listing page to crawl.
type CategoryConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Load reads YAML configuration from path (or NEWSHARVEST_CONFIG when path
// is empty) over the defaults and applies environment overrides. Unreadable
// files are reported and ignored.
func Load(path string) Config {
	cfg := defaultConfig()
	cfg.CI = detectCI()
	if cfg.CI {
		cfg.applyCIProfile()
	}

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else if err := yaml.Unmarshal(raw, &cfg); err != nil {
			log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			cfg = defaultConfig()
			cfg.CI = detectCI()
			if cfg.CI {
				cfg.applyCIProfile()
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if len(cfg.Sites) == 0 {
		cfg.Sites = defaultConfig().Sites
	}
	if cfg.CI {
		cfg.Export.Enabled = false
	}

	return cfg
}

// Validate reports settings the application cannot run with.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite", "mongo":
	default:
		return fmt.Errorf("config: unknown database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("config: database dsn is empty")
	}
	if c.Pipeline.ConcurrencyLimit < 1 {
		return fmt.Errorf("config: pipeline.concurrencyLimit must be at least 1")
	}
	if c.Pipeline.PerItemTimeout <= 0 {
		return fmt.Errorf("config: pipeline.perItemTimeout must be positive")
	}
	for _, site := range c.Sites {
		if site.Name == "" || site.Parser == "" {
			return fmt.Errorf("config: every site needs a name and a parser")
		}
		if len(site.Categories) == 0 {
			return fmt.Errorf("config: site %s has no categories", site.Name)
		}
	}
	return nil
}

func detectCI() bool {
	for _, name := range ciIndicators {
		if v := os.Getenv(name); v != "" && v != "false" && v != "0" {
			return true
		}
	}
	return false
}

func (c *Config) applyCIProfile() {
	c.Pipeline.ConcurrencyLimit = 3
	c.Pipeline.PerItemTimeout = 20 * time.Second
	c.Pipeline.ListingTimeout = 60 * time.Second
	c.Export.Enabled = false
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(databaseDriverEnv); v != "" {
		c.Database.Driver = strings.ToLower(v)
	}

	if v := os.Getenv(databaseTableEnv); v != "" {
		c.Database.Table = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(maxHoursEnv); v != "" {
		if hours, err := strconv.Atoi(v); err == nil && hours > 0 {
			c.Pipeline.MaxAge = time.Duration(hours) * time.Hour
		} else {
			log.Printf("config: ignoring %s=%q", maxHoursEnv, v)
		}
	}

	if v := os.Getenv(maxAgeEnv); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			c.Pipeline.MaxAge = d
		} else {
			log.Printf("config: ignoring %s=%q", maxAgeEnv, v)
		}
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Database: DatabaseConfig{
			Driver:   "sqlite",
			DSN:      "file:newsharvest.db?_pragma=busy_timeout(5000)",
			Database: "newsharvest",
			Table:    "news_items",
			MaxConns: 4,
			Migrate:  true,
		},
		Scheduler: SchedulerConfig{Interval: time.Hour, RunOnStart: true, Timezone: defaultTimezone, location: tz},
		Pipeline: PipelineConfig{
			MaxAge:           2 * time.Hour,
			ConcurrencyLimit: 5,
			PerItemTimeout:   15 * time.Second,
			ListingTimeout:   45 * time.Second,
			MinContentLength: 100,
		},
		Fetch: FetchConfig{
			Listing:       StrategyPair{Primary: "http", Fallback: "colly"},
			Article:       StrategyPair{Primary: "http", Fallback: "colly"},
			UserAgent:     "NewsHarvester/1.0",
			RandomHeaders: true,
			MaxBodyBytes:  5 << 20,
			Browser:       BrowserConfig{Stealth: true},
		},
		Extract: ExtractConfig{
			Format: "text",
			ContentSelectors: []string{
				`div[data-testid="caas-body"]`,
				".caas-body",
				".atoms-wrapper",
			},
		},
		Export: ExportConfig{Enabled: true, Dir: "exports", Formats: []string{"json", "csv"}},
		API:    APIConfig{Addr: ":8080"},
		Sites: []SiteConfig{
			{
				Name:       "Yahoo Finance",
				Parser:     "html",
				BaseURL:    "https://finance.yahoo.com",
				Industries: []string{"Financial News"},
				Categories: []CategoryConfig{
					{Name: "latest-news", URL: "https://finance.yahoo.com/topic/latest-news/"},
					{Name: "news", URL: "https://finance.yahoo.com/news/"},
					{Name: "tech", URL: "https://finance.yahoo.com/topic/tech/"},
				},
			},
		},
	}
}
