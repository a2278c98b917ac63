// Command server runs the mylist task manager.
//
// Configuration is read from mylist.toml (or the file named by
// MYLIST_CONFIG), created with defaults on first launch. Environment
// variables override individual keys; see package config.
package main

import (
	"log/slog"
	"os"

	"github.com/sakif/mylist/internal/config"
	"github.com/sakif/mylist/internal/server"
)

func main() {
	// Bootstrap logger until the configured level is known.
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	path := os.Getenv("MYLIST_CONFIG")
	if path == "" {
		path = config.DefaultConfigFileName
	}

	cfg, err := config.LoadOrCreate(path)
	if err != nil {
		logger.Error("failed to load config", slog.String("path", path), slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		logger.Error("invalid environment override", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", slog.String("path", path), slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until the server is shut down (Ctrl+C or SIGTERM).
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
