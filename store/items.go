package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
	"github.com/samber/lo"

	"github.com/chronicle-ai/chronicle/decay"
)

// UpsertItems inserts or updates a batch of items in a single transaction,
// keyed by id. Updates refresh the content columns and updated_at but
// preserve created_at, recall_count, last_accessed_at, and decay_metadata.
func (s *Store) UpsertItems(ctx context.Context, items []*Item) error {
	s.logger.Debug().
		Str("method", "UpsertItems").
		Int("count", len(items)).
		Msg("called")

	now := nowMillis()
	for _, item := range items {
		if item.ID == "" {
			return validationErrorf("id", "item id is empty")
		}
		if item.Embedding != nil && len(item.Embedding) != s.embeddingDim {
			return validationErrorf("embedding", "dimension %d does not match deployment dimension %d",
				len(item.Embedding), s.embeddingDim)
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		s.logger.Error().Str("method", "UpsertItems").Err(err).Msg("Failed to begin transaction")
		return classify(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, item := range items {
		createdAt := item.CreatedAt
		if createdAt == 0 {
			createdAt = now
		}
		lastAccessed := item.LastAccessedAt
		if lastAccessed == 0 {
			lastAccessed = createdAt
		}
		salience := item.Salience
		if salience == 0 {
			salience = DefaultSalience
		}
		salience = decay.Clamp(salience, item.MemoryTypeName())
		kind := item.Kind
		if kind == "" {
			kind = KindChat
		}

		var embedding any
		if item.Embedding != nil {
			embedding = pgvector.NewVector(item.Embedding)
		}
		var memoryType any
		if item.MemoryType != nil {
			memoryType = string(*item.MemoryType)
		}
		assets := item.Assets
		if assets == nil {
			assets = []string{}
		}

		query := StatementBuilder().
			Insert("chats").
			Columns("id", "kind", "title", "summary", "content", "tags", "source",
				"file_name", "assets", "created_at", "updated_at", "embedding",
				"memory_type", "salience", "recall_count", "last_accessed_at",
				"decay_metadata").
			Values(item.ID, string(kind), item.Title, item.Summary, item.Content,
				lo.Uniq(item.Tags), item.Source, item.FileName, assets,
				createdAt, now, embedding, memoryType, salience,
				item.RecallCount, lastAccessed, item.DecayMetadata).
			Suffix(`ON CONFLICT (id) DO UPDATE SET
				kind = EXCLUDED.kind,
				title = EXCLUDED.title,
				summary = EXCLUDED.summary,
				content = EXCLUDED.content,
				tags = EXCLUDED.tags,
				source = EXCLUDED.source,
				file_name = EXCLUDED.file_name,
				assets = EXCLUDED.assets,
				embedding = EXCLUDED.embedding,
				memory_type = EXCLUDED.memory_type,
				salience = EXCLUDED.salience,
				updated_at = EXCLUDED.updated_at`)

		queryStr, args, err := query.ToSql()
		if err != nil {
			return fmt.Errorf("build upsert query: %w", err)
		}
		if _, err := tx.Exec(ctx, queryStr, args...); err != nil {
			s.logger.Error().
				Str("method", "UpsertItems").
				Str("id", item.ID).
				Err(err).
				Msg("Failed to upsert item")
			return classify(err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		s.logger.Error().Str("method", "UpsertItems").Err(err).Msg("Transaction commit failed")
		return classify(err)
	}
	s.logger.Info().
		Str("method", "UpsertItems").
		Int("count", len(items)).
		Msg("Items upserted")
	return nil
}

// LoadItems returns all items, newest first.
func (s *Store) LoadItems(ctx context.Context) ([]*Item, error) {
	return s.queryItems(ctx, StatementBuilder().
		Select(selectItemColumns()...).
		From("chats").
		OrderBy("created_at DESC"))
}

// GetItem fetches a single item by id. Returns ErrNotFound when absent.
func (s *Store) GetItem(ctx context.Context, id string) (*Item, error) {
	items, err := s.queryItems(ctx, StatementBuilder().
		Select(selectItemColumns()...).
		From("chats").
		Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: item %q", ErrNotFound, id)
	}
	return items[0], nil
}

// DeleteItem removes an item; links and facts cascade. Deleting an absent id
// is a no-op.
func (s *Store) DeleteItem(ctx context.Context, id string) error {
	s.logger.Debug().Str("method", "DeleteItem").Str("id", id).Msg("called")

	queryStr, args, err := StatementBuilder().
		Delete("chats").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete query: %w", err)
	}
	tag, err := s.pool.Exec(ctx, queryStr, args...)
	if err != nil {
		s.logger.Error().Str("method", "DeleteItem").Str("id", id).Err(err).Msg("Failed to delete item")
		return classify(err)
	}
	s.logger.Info().
		Str("method", "DeleteItem").
		Str("id", id).
		Int64("rows", tag.RowsAffected()).
		Msg("Item deleted")
	return nil
}

// BoostSalience applies a read-path rehearsal to an item: salience rises by
// 0.05 (capped at 1), recall_count increments, and last_accessed_at resets.
// Live facts of the chat get a smaller 0.03 bump and an access refresh.
func (s *Store) BoostSalience(ctx context.Context, id string) error {
	s.logger.Debug().Str("method", "BoostSalience").Str("id", id).Msg("called")
	now := nowMillis()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return classify(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
UPDATE chats
SET salience = LEAST(salience + 0.05, 1.0),
    recall_count = recall_count + 1,
    last_accessed_at = $1
WHERE id = $2`, now, id)
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: item %q", ErrNotFound, id)
	}

	if _, err := tx.Exec(ctx, `
UPDATE facts
SET salience = LEAST(salience + 0.03, 1.0),
    last_accessed_at = $1
WHERE chat_id = $2 AND valid_to IS NULL`, now, id); err != nil {
		return classify(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return classify(err)
	}
	s.logger.Info().Str("method", "BoostSalience").Str("id", id).Msg("Salience boosted")
	return nil
}

// TrackView records a view without the salience bump: recall_count
// increments and last_accessed_at resets.
func (s *Store) TrackView(ctx context.Context, id string) error {
	s.logger.Debug().Str("method", "TrackView").Str("id", id).Msg("called")

	tag, err := s.pool.Exec(ctx, `
UPDATE chats
SET recall_count = recall_count + 1,
    last_accessed_at = $1
WHERE id = $2`, nowMillis(), id)
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: item %q", ErrNotFound, id)
	}
	return nil
}

// UpdateMemoryType reclassifies an item's decay profile.
func (s *Store) UpdateMemoryType(ctx context.Context, id string, memoryType MemoryType) error {
	s.logger.Debug().
		Str("method", "UpdateMemoryType").
		Str("id", id).
		Str("memory_type", string(memoryType)).
		Msg("called")

	if !ValidMemoryType(memoryType) {
		return validationErrorf("memory_type", "unknown memory type %q", memoryType)
	}
	tag, err := s.pool.Exec(ctx, `
UPDATE chats SET memory_type = $1, updated_at = $2 WHERE id = $3`,
		string(memoryType), nowMillis(), id)
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: item %q", ErrNotFound, id)
	}
	return nil
}

// keywordSearchLimit caps KeywordSearch result sets.
const keywordSearchLimit = 10

// KeywordSearch finds items whose title, summary, or any tag contains the
// pattern, case-insensitively. Up to ten results, newest first.
func (s *Store) KeywordSearch(ctx context.Context, pattern string, filters SearchFilters) ([]*Item, error) {
	s.logger.Debug().
		Str("method", "KeywordSearch").
		Str("pattern", pattern).
		Msg("called")

	like := "%" + pattern + "%"
	query := StatementBuilder().
		Select(selectItemColumns()...).
		From("chats").
		Where(sq.Or{
			sq.ILike{"title": like},
			sq.ILike{"summary": like},
			sq.Expr("EXISTS (SELECT 1 FROM unnest(tags) AS tag WHERE tag ILIKE ?)", like),
		}).
		OrderBy("created_at DESC").
		Limit(keywordSearchLimit)
	query = applySearchFilters(query, filters)

	return s.queryItems(ctx, query)
}

// ListTags returns every distinct tag across the archive, sorted ascending.
func (s *Store) ListTags(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
SELECT DISTINCT unnest(tags) AS tag FROM chats ORDER BY tag ASC`)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, classify(err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return tags, nil
}

// ListRecent returns the most recently created count items.
func (s *Store) ListRecent(ctx context.Context, count int) ([]*Item, error) {
	if count < 1 {
		count = 1
	}
	return s.queryItems(ctx, StatementBuilder().
		Select(selectItemColumns()...).
		From("chats").
		OrderBy("created_at DESC").
		Limit(uint64(count)))
}

// applySearchFilters adds the shared memory_type / min_salience / exclude_id
// filters to a chats query.
func applySearchFilters(query sq.SelectBuilder, filters SearchFilters) sq.SelectBuilder {
	if filters.MemoryType != nil {
		query = query.Where(sq.Eq{"memory_type": string(*filters.MemoryType)})
	}
	if filters.MinSalience != nil {
		query = query.Where(sq.GtOrEq{"salience": *filters.MinSalience})
	}
	if filters.ExcludeID != nil {
		query = query.Where(sq.NotEq{"id": *filters.ExcludeID})
	}
	return query
}

func (s *Store) queryItems(ctx context.Context, query sq.SelectBuilder) ([]*Item, error) {
	queryStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	rows, err := s.pool.Query(ctx, queryStr, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, classify(err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return items, nil
}

func scanItem(rows pgx.Rows) (*Item, error) {
	var (
		item       Item
		kind       string
		memoryType *string
		embedding  *pgvector.Vector
	)
	if err := rows.Scan(&item.ID, &kind, &item.Title, &item.Summary, &item.Content,
		&item.Tags, &item.Source, &item.FileName, &item.Assets, &item.CreatedAt,
		&item.UpdatedAt, &embedding, &memoryType, &item.Salience,
		&item.RecallCount, &item.LastAccessedAt, &item.DecayMetadata); err != nil {
		return nil, err
	}
	item.Kind = Kind(kind)
	if memoryType != nil {
		mt := MemoryType(*memoryType)
		item.MemoryType = &mt
	}
	if embedding != nil {
		item.Embedding = embedding.Slice()
	}
	return &item, nil
}
