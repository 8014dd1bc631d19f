package store

import (
	"context"
	"fmt"
)

// decayEligibleMinSalience excludes rows already resting near the floor from
// decay scans.
const decayEligibleMinSalience = 0.1

// ListDecayCandidates returns one cursor page of rows eligible for decay:
// salience above the scan threshold and either never decayed or last decayed
// more than reprocessIntervalMS ago. Rows are ordered by id so the caller
// can resume with the last id as the next cursor. Facts report the default
// memory type.
func (s *Store) ListDecayCandidates(ctx context.Context, table DecayTable, cursor string, limit int, now, reprocessIntervalMS int64) ([]DecayCandidate, error) {
	var query string
	switch table {
	case DecayTableChats:
		query = `
SELECT id, salience, COALESCE(memory_type, 'default'), recall_count, last_accessed_at, decay_metadata
FROM chats
WHERE salience > $1
  AND (decay_metadata->>'last_decay_run' IS NULL
       OR $2 - (decay_metadata->>'last_decay_run')::bigint > $3)
  AND id > $4
ORDER BY id ASC
LIMIT $5`
	case DecayTableFacts:
		query = `
SELECT id::text, salience, 'default', recall_count, last_accessed_at, decay_metadata
FROM facts
WHERE salience > $1
  AND valid_to IS NULL
  AND (decay_metadata->>'last_decay_run' IS NULL
       OR $2 - (decay_metadata->>'last_decay_run')::bigint > $3)
  AND id::text > $4
ORDER BY id::text ASC
LIMIT $5`
	default:
		return nil, validationErrorf("table", "unknown decay table %q", table)
	}

	rows, err := s.pool.Query(ctx, query,
		decayEligibleMinSalience, now, reprocessIntervalMS, cursor, limit)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var candidates []DecayCandidate
	for rows.Next() {
		var c DecayCandidate
		if err := rows.Scan(&c.ID, &c.Salience, &c.MemoryType, &c.RecallCount,
			&c.LastAccessedAt, &c.Metadata); err != nil {
			return nil, classify(err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return candidates, nil
}

// UpdateDecay persists the result of one decay application: the new
// salience and the refreshed decay metadata (history already trimmed by the
// caller via DecayMetadata.Append).
func (s *Store) UpdateDecay(ctx context.Context, table DecayTable, id string, salience float64, meta DecayMetadata) error {
	var query string
	switch table {
	case DecayTableChats:
		query = `UPDATE chats SET salience = $1, decay_metadata = $2 WHERE id = $3`
	case DecayTableFacts:
		query = `UPDATE facts SET salience = $1, decay_metadata = $2 WHERE id::text = $3`
	default:
		return validationErrorf("table", "unknown decay table %q", table)
	}

	tag, err := s.pool.Exec(ctx, query, salience, meta, id)
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s row %q", ErrNotFound, table, id)
	}
	return nil
}

// LiveSalienceValues returns the salience of every item and every live fact,
// for the entropy measure.
func (s *Store) LiveSalienceValues(ctx context.Context) ([]float64, error) {
	rows, err := s.pool.Query(ctx, `
SELECT salience FROM chats
UNION ALL
SELECT salience FROM facts WHERE valid_to IS NULL`)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var values []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, classify(err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return values, nil
}

// InsertDecayMetric appends one run metric row.
func (s *Store) InsertDecayMetric(ctx context.Context, m DecayRunMetric) error {
	queryStr, args, err := StatementBuilder().
		Insert("salience_decay_metrics").
		Columns("run_timestamp", "items_processed", "items_decayed",
			"error_count", "average_decay_amount", "memory_entropy",
			"environmental_context", "processing_duration_ms").
		Values(m.RunTimestamp, m.ItemsProcessed, m.ItemsDecayed, m.ErrorCount,
			m.AverageDecayAmount, m.MemoryEntropy, m.EnvironmentalContext,
			m.ProcessingDurationMS).
		ToSql()
	if err != nil {
		return fmt.Errorf("build metric insert: %w", err)
	}
	if _, err := s.pool.Exec(ctx, queryStr, args...); err != nil {
		return classify(err)
	}
	return nil
}

// RecentDecayMetrics returns the newest limit run metrics.
func (s *Store) RecentDecayMetrics(ctx context.Context, limit int) ([]DecayRunMetric, error) {
	if limit < 1 {
		limit = 1
	}
	rows, err := s.pool.Query(ctx, `
SELECT run_timestamp, items_processed, items_decayed, error_count,
       average_decay_amount, memory_entropy, environmental_context,
       processing_duration_ms
FROM salience_decay_metrics
ORDER BY run_timestamp DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var metrics []DecayRunMetric
	for rows.Next() {
		var m DecayRunMetric
		if err := rows.Scan(&m.RunTimestamp, &m.ItemsProcessed, &m.ItemsDecayed,
			&m.ErrorCount, &m.AverageDecayAmount, &m.MemoryEntropy,
			&m.EnvironmentalContext, &m.ProcessingDurationMS); err != nil {
			return nil, classify(err)
		}
		metrics = append(metrics, m)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return metrics, nil
}

// PruneDecayMetrics deletes metric rows older than before (ms). Metric
// retention is at least a week; the scheduler prunes with a 7-day horizon.
func (s *Store) PruneDecayMetrics(ctx context.Context, before int64) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
DELETE FROM salience_decay_metrics WHERE run_timestamp < $1`, before)
	if err != nil {
		return 0, classify(err)
	}
	return tag.RowsAffected(), nil
}
