// chronicle-mcp serves the archive over the Model Context Protocol on
// stdin/stdout. All diagnostics go to stderr; the process exits when stdin
// closes.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/chronicle-ai/chronicle/config"
	chroniclelogger "github.com/chronicle-ai/chronicle/logger"
	"github.com/chronicle-ai/chronicle/mcpserver"
	"github.com/chronicle-ai/chronicle/migrations"
	"github.com/chronicle-ai/chronicle/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger, err := chroniclelogger.InitStderr()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	cfg, err := config.Load(config.GetConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := store.Connect(ctx, cfg.Database.URL, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	if err := migrations.Run(cfg.Database.URL, logger); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	archiveStore := store.New(pool, cfg.Embedding.Dim, logger)
	srv := mcpserver.New(archiveStore, logger)
	return srv.Serve(ctx)
}
