package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

// factDefaultSalience is assigned to newly extracted facts.
const factDefaultSalience = 0.5

// SaveFacts persists a batch of extracted facts for a chat in one
// transaction. For each triple, any live fact with the same subject and
// predicate but a different object is closed by setting valid_to, then the
// new fact is inserted as the live row. An extracted triple identical to the
// current live fact is silently ignored.
func (s *Store) SaveFacts(ctx context.Context, chatID string, extracted []ExtractedFact) error {
	s.logger.Debug().
		Str("method", "SaveFacts").
		Str("chat_id", chatID).
		Int("count", len(extracted)).
		Msg("called")

	if chatID == "" {
		return validationErrorf("chat_id", "chat id is empty")
	}

	now := nowMillis()
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		s.logger.Error().Str("method", "SaveFacts").Err(err).Msg("Failed to begin transaction")
		return classify(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	inserted := 0
	for _, f := range extracted {
		if f.Subject == "" || f.Predicate == "" {
			return validationErrorf("subject/predicate", "fact fields are empty")
		}

		// Re-extraction of the current live triple is a no-op.
		var exists bool
		if err := tx.QueryRow(ctx, `
SELECT EXISTS (
    SELECT 1 FROM facts
    WHERE subject = $1 AND predicate = $2 AND object = $3 AND valid_to IS NULL
)`, f.Subject, f.Predicate, f.Object).Scan(&exists); err != nil {
			return classify(err)
		}
		if exists {
			s.logger.Debug().
				Str("method", "SaveFacts").
				Str("subject", f.Subject).
				Str("predicate", f.Predicate).
				Msg("Duplicate live fact, skipping")
			continue
		}

		// Temporal supersession: the prior live fact keeps its row but is
		// closed at the moment the replacement arrives.
		if _, err := tx.Exec(ctx, `
UPDATE facts SET valid_to = $1
WHERE subject = $2 AND predicate = $3 AND valid_to IS NULL`,
			now, f.Subject, f.Predicate); err != nil {
			return classify(err)
		}

		queryStr, args, err := StatementBuilder().
			Insert("facts").
			Columns("id", "chat_id", "subject", "predicate", "object",
				"confidence", "salience", "valid_from", "created_at",
				"last_accessed_at", "recall_count", "decay_metadata").
			Values(uuid.NewString(), chatID, f.Subject, f.Predicate, f.Object,
				f.Confidence, factDefaultSalience, now, now, now, 0,
				DecayMetadata{}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build fact insert: %w", err)
		}
		if _, err := tx.Exec(ctx, queryStr, args...); err != nil {
			s.logger.Error().
				Str("method", "SaveFacts").
				Str("subject", f.Subject).
				Str("predicate", f.Predicate).
				Err(err).
				Msg("Failed to insert fact")
			return classify(err)
		}
		inserted++
	}

	if err := tx.Commit(ctx); err != nil {
		s.logger.Error().Str("method", "SaveFacts").Err(err).Msg("Transaction commit failed")
		return classify(err)
	}
	s.logger.Info().
		Str("method", "SaveFacts").
		Str("chat_id", chatID).
		Int("extracted", len(extracted)).
		Int("inserted", inserted).
		Msg("Facts saved")
	return nil
}

// LoadFacts returns the chat's live facts ordered by salience then recency.
func (s *Store) LoadFacts(ctx context.Context, chatID string) ([]*Fact, error) {
	return s.queryFacts(ctx, StatementBuilder().
		Select(selectFactColumns()...).
		From("facts").
		Where(sq.Eq{"chat_id": chatID}).
		Where("valid_to IS NULL").
		OrderBy("salience DESC", "created_at DESC"))
}

// LoadFactHistory returns every fact ever recorded for a chat, superseded
// rows included, in validity order.
func (s *Store) LoadFactHistory(ctx context.Context, chatID string) ([]*Fact, error) {
	return s.queryFacts(ctx, StatementBuilder().
		Select(selectFactColumns()...).
		From("facts").
		Where(sq.Eq{"chat_id": chatID}).
		OrderBy("valid_from ASC", "created_at ASC"))
}

func (s *Store) queryFacts(ctx context.Context, query sq.SelectBuilder) ([]*Fact, error) {
	queryStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	rows, err := s.pool.Query(ctx, queryStr, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var facts []*Fact
	for rows.Next() {
		var f Fact
		if err := rows.Scan(&f.ID, &f.ChatID, &f.Subject, &f.Predicate, &f.Object,
			&f.Confidence, &f.Salience, &f.ValidFrom, &f.ValidTo, &f.CreatedAt,
			&f.LastAccessedAt, &f.RecallCount, &f.DecayMetadata); err != nil {
			return nil, classify(err)
		}
		facts = append(facts, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return facts, nil
}
