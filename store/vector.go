package store

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"
)

// VectorKNN returns up to k items with a non-null embedding ordered by
// ascending cosine distance from the query vector. Ties are broken by id so
// results are deterministic.
func (s *Store) VectorKNN(ctx context.Context, queryVec []float32, k int, filters SearchFilters) ([]ScoredItem, error) {
	s.logger.Debug().
		Str("method", "VectorKNN").
		Int("k", k).
		Int("dim", len(queryVec)).
		Msg("called")

	if len(queryVec) != s.embeddingDim {
		return nil, validationErrorf("query_vec", "dimension %d does not match deployment dimension %d",
			len(queryVec), s.embeddingDim)
	}
	if k < 1 {
		k = 1
	}

	vec := pgvector.NewVector(queryVec)
	query := StatementBuilder().
		Select(selectItemColumns()...).
		Column("embedding <=> ? AS distance", vec).
		From("chats").
		Where("embedding IS NOT NULL").
		OrderByClause("embedding <=> ?, id ASC", vec).
		Limit(uint64(k))
	query = applySearchFilters(query, filters)

	queryStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build knn query: %w", err)
	}
	rows, err := s.pool.Query(ctx, queryStr, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var results []ScoredItem
	for rows.Next() {
		var (
			item       Item
			kind       string
			memoryType *string
			embedding  *pgvector.Vector
			distance   float64
		)
		if err := rows.Scan(&item.ID, &kind, &item.Title, &item.Summary, &item.Content,
			&item.Tags, &item.Source, &item.FileName, &item.Assets, &item.CreatedAt,
			&item.UpdatedAt, &embedding, &memoryType, &item.Salience,
			&item.RecallCount, &item.LastAccessedAt, &item.DecayMetadata,
			&distance); err != nil {
			return nil, classify(err)
		}
		item.Kind = Kind(kind)
		if memoryType != nil {
			mt := MemoryType(*memoryType)
			item.MemoryType = &mt
		}
		if embedding != nil {
			item.Embedding = embedding.Slice()
		}
		results = append(results, ScoredItem{Item: &item, Distance: distance})
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}

	s.logger.Info().
		Str("method", "VectorKNN").
		Int("results", len(results)).
		Msg("KNN query completed")
	return results, nil
}
