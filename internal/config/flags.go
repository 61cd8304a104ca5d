package config

import (
	"errors"
	"fmt"

	"github.com/jessevdk/go-flags"
)

// Options are the command-line switches. Non-zero values override the
// loaded configuration.
type Options struct {
	ConfigPath  string `short:"c" long:"config" env:"NEWSHARVEST_CONFIG" description:"Path to the YAML configuration file"`
	Serve       bool   `long:"serve" description:"Run on the configured interval and expose the status API"`
	LogLevel    string `long:"log-level" description:"Log level (debug, info, warn, error)"`
	MaxArticles int    `long:"max-articles" description:"Fetch at most this many new articles per run (0 = no cap)"`
	ExportDir   string `long:"export-dir" description:"Directory for the local JSON/CSV export"`
}

// ParseFlags parses args. ok is false when help was requested.
func ParseFlags(args []string) (opts Options, ok bool, err error) {
	parser := flags.NewParser(&opts, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return Options{}, false, nil
		}
		return Options{}, false, fmt.Errorf("failed to parse flags: %w", err)
	}

	return opts, true, nil
}

// Apply overrides cfg with the switches that were set.
func (o Options) Apply(cfg *Config) {
	if o.LogLevel != "" {
		cfg.Logging.Level = o.LogLevel
	}
	if o.MaxArticles > 0 {
		cfg.Pipeline.MaxArticles = o.MaxArticles
	}
	if o.ExportDir != "" {
		cfg.Export.Dir = o.ExportDir
	}
}
