package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"NewsHarvester/internal/app"
	"NewsHarvester/internal/config"
	"NewsHarvester/internal/logging"
)

func main() {
	opts, ok, err := config.ParseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	if !ok {
		return
	}

	os.Exit(run(opts))
}

func run(opts config.Options) int {
	cfg := config.Load(opts.ConfigPath)
	opts.Apply(&cfg)
	logger := logging.NewWithFormat(os.Stdout, cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("application setup failed", "error", err)
		return 1
	}
	defer func() {
		if err := application.Close(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("application close", "error", err)
		}
	}()

	if opts.Serve {
		if err := application.Serve(ctx); err != nil {
			logger.Error("application stopped", "error", err)
			return 1
		}
		return 0
	}

	summary, err := application.RunOnce(ctx)
	if err != nil {
		logger.Error("run failed", "error", err)
		return 1
	}
	if summary.Aborted() {
		logger.Error("run aborted", "run_id", summary.RunID, "reason", summary.FailureReason)
		return 1
	}
	return 0
}
