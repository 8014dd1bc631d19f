package store

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/rs/zerolog"

	"github.com/chronicle-ai/chronicle/migrations"
)

func TestDecayMetadataAppendTrims(t *testing.T) {
	var meta DecayMetadata
	for i := 0; i < 15; i++ {
		meta.Append(DecayHistoryEntry{Timestamp: int64(i)})
	}
	if len(meta.History) != 10 {
		t.Fatalf("expected history capped at 10, got %d", len(meta.History))
	}
	if meta.History[0].Timestamp != 5 || meta.History[9].Timestamp != 14 {
		t.Errorf("expected oldest entries dropped, got span [%d, %d]",
			meta.History[0].Timestamp, meta.History[9].Timestamp)
	}
	if meta.LastDecayRun == nil || *meta.LastDecayRun != 14 {
		t.Error("expected LastDecayRun to track the newest entry")
	}
}

func TestValidMemoryType(t *testing.T) {
	for _, mt := range []MemoryType{MemoryTypeEpisodic, MemoryTypeSemantic,
		MemoryTypeProcedural, MemoryTypeEmotional, MemoryTypeDefault} {
		if !ValidMemoryType(mt) {
			t.Errorf("expected %q to be valid", mt)
		}
	}
	if ValidMemoryType("nostalgic") {
		t.Error("expected unknown type to be invalid")
	}
	if ValidMemoryType("") {
		t.Error("expected empty type to be invalid")
	}
}

func TestItemMemoryTypeName(t *testing.T) {
	item := &Item{}
	if got := item.MemoryTypeName(); got != "default" {
		t.Errorf("expected default for untyped item, got %q", got)
	}
	episodic := MemoryTypeEpisodic
	item.MemoryType = &episodic
	if got := item.MemoryTypeName(); got != "episodic" {
		t.Errorf("expected episodic, got %q", got)
	}
}

// setupTestStore connects to the database named by
// CHRONICLE_TEST_DATABASE_URL, runs migrations, and starts from empty
// tables. Tests are skipped when the variable is unset.
func setupTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("CHRONICLE_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("CHRONICLE_TEST_DATABASE_URL not set; skipping database tests")
	}

	if err := migrations.Run(url, zerolog.Nop()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	ctx := context.Background()
	pool, err := Connect(ctx, url, zerolog.Nop())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	if _, err := pool.Exec(ctx, `
TRUNCATE salience_decay_metrics, links, facts, chats`); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	return New(pool, 1024, zerolog.Nop())
}

func testItem(id string) *Item {
	return &Item{
		ID:      id,
		Kind:    KindChat,
		Title:   "title " + id,
		Summary: "summary " + id,
		Content: "content " + id,
		Tags:    []string{"test"},
		Source:  "Manual",
	}
}

func TestSaveFactsSupersession(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	if err := s.UpsertItems(ctx, []*Item{testItem("chat-1")}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if err := s.SaveFacts(ctx, "chat-1", []ExtractedFact{
		{Subject: "Alice", Predicate: "lives_in", Object: "Paris", Confidence: 0.9},
	}); err != nil {
		t.Fatalf("save first fact: %v", err)
	}
	if err := s.SaveFacts(ctx, "chat-1", []ExtractedFact{
		{Subject: "Alice", Predicate: "lives_in", Object: "Berlin", Confidence: 0.95},
	}); err != nil {
		t.Fatalf("save superseding fact: %v", err)
	}

	live, err := s.LoadFacts(ctx, "chat-1")
	if err != nil {
		t.Fatalf("load facts: %v", err)
	}
	if len(live) != 1 || live[0].Object != "Berlin" {
		t.Fatalf("expected only Berlin live, got %+v", live)
	}
	if live[0].Salience != 0.5 {
		t.Errorf("expected default fact salience 0.5, got %f", live[0].Salience)
	}

	history, err := s.LoadFactHistory(ctx, "chat-1")
	if err != nil {
		t.Fatalf("load history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected the Paris row retained, got %d rows", len(history))
	}
	var closedSeen bool
	for _, f := range history {
		if f.Object == "Paris" {
			if f.ValidTo == nil {
				t.Error("expected Paris fact closed with valid_to set")
			}
			closedSeen = true
		}
	}
	if !closedSeen {
		t.Error("Paris row missing from history")
	}
}

func TestSaveFactsDuplicateIgnored(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	if err := s.UpsertItems(ctx, []*Item{testItem("chat-1")}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	fact := ExtractedFact{Subject: "Bob", Predicate: "works_at", Object: "Acme", Confidence: 0.8}
	if err := s.SaveFacts(ctx, "chat-1", []ExtractedFact{fact}); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := s.SaveFacts(ctx, "chat-1", []ExtractedFact{fact}); err != nil {
		t.Fatalf("duplicate save should be silent: %v", err)
	}

	history, err := s.LoadFactHistory(ctx, "chat-1")
	if err != nil {
		t.Fatalf("load history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected a single row after duplicate save, got %d", len(history))
	}
}

func TestBoostSalienceRehearsal(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	item := testItem("chat-1")
	item.Salience = 0.20
	if err := s.UpsertItems(ctx, []*Item{item}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	before := nowMillis()
	if err := s.BoostSalience(ctx, "chat-1"); err != nil {
		t.Fatalf("boost: %v", err)
	}

	got, err := s.GetItem(ctx, "chat-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Salience < 0.249 || got.Salience > 0.251 {
		t.Errorf("expected salience 0.25 after boost, got %f", got.Salience)
	}
	if got.RecallCount != 1 {
		t.Errorf("expected recall count 1, got %d", got.RecallCount)
	}
	if got.LastAccessedAt < before {
		t.Errorf("expected last_accessed_at refreshed, got %d < %d", got.LastAccessedAt, before)
	}
}

func TestBoostSalienceCapsAtOne(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	item := testItem("chat-1")
	item.Salience = 0.98
	if err := s.UpsertItems(ctx, []*Item{item}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.BoostSalience(ctx, "chat-1"); err != nil {
		t.Fatalf("boost: %v", err)
	}
	got, err := s.GetItem(ctx, "chat-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Salience > 1.0 {
		t.Errorf("salience exceeded 1.0: %f", got.Salience)
	}
}

func TestBoostSalienceMissingItem(t *testing.T) {
	s := setupTestStore(t)
	if err := s.BoostSalience(context.Background(), "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpsertPreservesDecayColumns(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	item := testItem("chat-1")
	if err := s.UpsertItems(ctx, []*Item{item}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.BoostSalience(ctx, "chat-1"); err != nil {
		t.Fatalf("boost: %v", err)
	}
	boosted, err := s.GetItem(ctx, "chat-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	update := testItem("chat-1")
	update.Title = "edited title"
	update.Salience = boosted.Salience
	if err := s.UpsertItems(ctx, []*Item{update}); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := s.GetItem(ctx, "chat-1")
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if got.Title != "edited title" {
		t.Errorf("title not updated: %q", got.Title)
	}
	if got.RecallCount != boosted.RecallCount {
		t.Errorf("recall count lost on update: %d != %d", got.RecallCount, boosted.RecallCount)
	}
	if got.LastAccessedAt != boosted.LastAccessedAt {
		t.Error("last_accessed_at lost on update")
	}
	if got.CreatedAt != boosted.CreatedAt {
		t.Error("created_at changed on update")
	}
}

func TestDeleteItemCascades(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	if err := s.UpsertItems(ctx, []*Item{testItem("chat-1"), testItem("chat-2")}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.SaveFacts(ctx, "chat-1", []ExtractedFact{
		{Subject: "Carol", Predicate: "uses", Object: "Go", Confidence: 1},
	}); err != nil {
		t.Fatalf("save facts: %v", err)
	}
	if err := s.AddLink(ctx, "chat-1", "chat-2", nil); err != nil {
		t.Fatalf("add link: %v", err)
	}

	if err := s.DeleteItem(ctx, "chat-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	facts, err := s.LoadFactHistory(ctx, "chat-1")
	if err != nil {
		t.Fatalf("load facts: %v", err)
	}
	if len(facts) != 0 {
		t.Errorf("expected facts cascaded, got %d", len(facts))
	}
	links, err := s.LoadLinks(ctx)
	if err != nil {
		t.Fatalf("load links: %v", err)
	}
	if len(links) != 0 {
		t.Errorf("expected links cascaded, got %d", len(links))
	}

	// Deleting an absent id is a no-op.
	if err := s.DeleteItem(ctx, "chat-1"); err != nil {
		t.Errorf("second delete should be a no-op, got %v", err)
	}
}

func TestRemoveLinkIsSymmetric(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	if err := s.UpsertItems(ctx, []*Item{testItem("chat-1"), testItem("chat-2")}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.AddLink(ctx, "chat-1", "chat-2", nil); err != nil {
		t.Fatalf("add link: %v", err)
	}
	if err := s.RemoveLink(ctx, "chat-2", "chat-1"); err != nil {
		t.Fatalf("remove reversed link: %v", err)
	}
	links, err := s.LoadLinks(ctx)
	if err != nil {
		t.Fatalf("load links: %v", err)
	}
	if len(links) != 0 {
		t.Errorf("expected symmetric removal, got %d links", len(links))
	}
}

func TestKeywordSearchMatchesTags(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	tagged := testItem("chat-1")
	tagged.Tags = []string{"Gardening", "spring"}
	other := testItem("chat-2")
	other.Tags = []string{"cooking"}
	if err := s.UpsertItems(ctx, []*Item{tagged, other}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	results, err := s.KeywordSearch(ctx, "garden", SearchFilters{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "chat-1" {
		t.Fatalf("expected case-insensitive tag match on chat-1, got %+v", results)
	}
}

func TestUpsertRejectsWrongDimension(t *testing.T) {
	s := setupTestStore(t)

	item := testItem("chat-1")
	item.Embedding = make([]float32, 8)
	err := s.UpsertItems(context.Background(), []*Item{item})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for wrong dimension, got %v", err)
	}
}
