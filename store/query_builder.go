package store

import (
	sq "github.com/Masterminds/squirrel"
)

// StatementBuilder returns a Squirrel StatementBuilder configured for
// Postgres ($n placeholders).
func StatementBuilder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

// selectItemColumns is the standard column list for chats SELECT queries.
func selectItemColumns() []string {
	return []string{
		"id", "kind", "title", "summary", "content", "tags", "source",
		"file_name", "assets", "created_at", "updated_at", "embedding",
		"memory_type", "salience", "recall_count", "last_accessed_at",
		"decay_metadata",
	}
}

// selectFactColumns is the standard column list for facts SELECT queries.
func selectFactColumns() []string {
	return []string{
		"id", "chat_id", "subject", "predicate", "object", "confidence",
		"salience", "valid_from", "valid_to", "created_at",
		"last_accessed_at", "recall_count", "decay_metadata",
	}
}
