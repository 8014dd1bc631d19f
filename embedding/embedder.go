// Package embedding backfills vectors for items imported without one. The
// search path never embeds; it only consumes vectors that already exist.
package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/chronicle-ai/chronicle/store"
)

// Embedder is a pluggable interface for getting embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Backfill embeds every item lacking a vector and writes the results back.
// Items whose embedding comes back with the wrong dimension are skipped and
// counted as failures. Returns (embedded, failed).
func Backfill(ctx context.Context, st *store.Store, embedder Embedder, dim int, logger zerolog.Logger) (int, int, error) {
	logger = logger.With().Str("component", "embedding_backfill").Logger()

	items, err := st.LoadItems(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("load items: %w", err)
	}

	embedded, failed := 0, 0
	for _, item := range items {
		if item.Embedding != nil {
			continue
		}
		vec, err := embedder.Embed(ctx, embeddingText(item))
		if err != nil {
			logger.Error().Str("id", item.ID).Err(err).Msg("Embedding failed")
			failed++
			continue
		}
		if len(vec) != dim {
			logger.Error().
				Str("id", item.ID).
				Int("got", len(vec)).
				Int("want", dim).
				Msg("Embedding dimension mismatch, skipping")
			failed++
			continue
		}
		item.Embedding = vec
		if err := st.UpsertItems(ctx, []*store.Item{item}); err != nil {
			logger.Error().Str("id", item.ID).Err(err).Msg("Failed to persist embedding")
			failed++
			continue
		}
		embedded++
	}

	logger.Info().
		Int("embedded", embedded).
		Int("failed", failed).
		Msg("Backfill complete")
	return embedded, failed, nil
}

// embeddingText is the canonical text an item is embedded from.
func embeddingText(item *store.Item) string {
	parts := []string{item.Title, item.Summary}
	if item.Content != "" {
		parts = append(parts, item.Content)
	}
	return strings.TrimSpace(strings.Join(parts, "\n\n"))
}
