// chronicled is the archive daemon: it migrates the database and runs the
// salience decay scheduler until it receives SIGINT or SIGTERM.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chronicle-ai/chronicle/config"
	"github.com/chronicle-ai/chronicle/decay"
	"github.com/chronicle-ai/chronicle/embedding"
	"github.com/chronicle-ai/chronicle/embedding/ollama"
	chroniclelogger "github.com/chronicle-ai/chronicle/logger"
	"github.com/chronicle-ai/chronicle/migrations"
	"github.com/chronicle-ai/chronicle/runtime"
	"github.com/chronicle-ai/chronicle/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		logFile  = flag.String("logfile", "", "Path to log file. If not set, logs to stdout")
		pretty   = flag.Bool("pretty", false, "Use pretty console output (only valid when logfile is not set)")
		backfill = flag.Bool("backfill-embeddings", false, "Embed items missing a vector, then exit")
	)
	flag.Parse()

	if *logFile != "" && *pretty {
		return fmt.Errorf("--logfile and --pretty are mutually exclusive")
	}

	logger, err := chroniclelogger.InitWithOptions(*logFile, *pretty, false)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	cfg, err := config.Load(config.GetConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Info().
		Int64("decay_interval_ms", cfg.Decay.IntervalMS).
		Int("decay_batch_size", cfg.Decay.BatchSize).
		Msg("chronicled starting")

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

	if *backfill {
		embedder, err := ollama.NewEmbedder(cfg.Embedding.OllamaModel)
		if err != nil {
			return fmt.Errorf("failed to create ollama embedder: %w", err)
		}
		embedded, failed, err := embedding.Backfill(ctx, archiveStore, embedder, cfg.Embedding.Dim, logger)
		if err != nil {
			return fmt.Errorf("backfill failed: %w", err)
		}
		logger.Info().Int("embedded", embedded).Int("failed", failed).Msg("Backfill finished")
		if failed > 0 {
			return fmt.Errorf("backfill completed with %d failures", failed)
		}
		return nil
	}

	opts := []runtime.Option{
		runtime.WithInterval(time.Duration(cfg.Decay.IntervalMS) * time.Millisecond),
		runtime.WithBatchSize(cfg.Decay.BatchSize),
	}
	if cfg.Decay.ContextOverride != "" {
		envCtx, ok := decay.ContextByName(cfg.Decay.ContextOverride)
		if !ok {
			return fmt.Errorf("unknown decay context override %q", cfg.Decay.ContextOverride)
		}
		opts = append(opts, runtime.WithContextOverride(envCtx))
	}
	scheduler := runtime.NewScheduler(archiveStore, logger, opts...)
	scheduler.Start(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	cancel()
	scheduler.Stop()
	logger.Info().Msg("chronicled shutdown complete")
	return nil
}
