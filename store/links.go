package store

import (
	"context"
	"fmt"
)

// AddLink records an edge between two items. One direction is stored;
// re-adding an existing edge is a no-op.
func (s *Store) AddLink(ctx context.Context, fromID, toID string, linkType *string) error {
	s.logger.Debug().
		Str("method", "AddLink").
		Str("from", fromID).
		Str("to", toID).
		Msg("called")

	if fromID == "" || toID == "" {
		return validationErrorf("from/to", "link endpoints are empty")
	}
	if fromID == toID {
		return validationErrorf("to", "cannot link an item to itself")
	}

	_, err := s.pool.Exec(ctx, `
INSERT INTO links (from_id, to_id, link_type, created_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (from_id, to_id) DO NOTHING`,
		fromID, toID, linkType, nowMillis())
	if err != nil {
		s.logger.Error().Str("method", "AddLink").Err(err).Msg("Failed to insert link")
		return classify(err)
	}
	return nil
}

// RemoveLink deletes the edge between two items in either direction.
func (s *Store) RemoveLink(ctx context.Context, a, b string) error {
	s.logger.Debug().
		Str("method", "RemoveLink").
		Str("a", a).
		Str("b", b).
		Msg("called")

	_, err := s.pool.Exec(ctx, `
DELETE FROM links
WHERE (from_id = $1 AND to_id = $2) OR (from_id = $2 AND to_id = $1)`, a, b)
	if err != nil {
		return classify(err)
	}
	return nil
}

// LoadLinks returns every link in the archive.
func (s *Store) LoadLinks(ctx context.Context) ([]*Link, error) {
	rows, err := s.pool.Query(ctx, `
SELECT from_id, to_id, link_type, created_at FROM links ORDER BY created_at ASC`)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var links []*Link
	for rows.Next() {
		var l Link
		if err := rows.Scan(&l.FromID, &l.ToID, &l.Type, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan link: %w", classify(err))
		}
		links = append(links, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return links, nil
}
