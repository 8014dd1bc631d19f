package store

// Kind distinguishes imported conversations from hand-written notes.
type Kind string

const (
	KindChat Kind = "chat"
	KindNote Kind = "note"
)

// MemoryType classifies how an item's salience decays. The zero value means
// the item has no explicit type and decays with the default profile.
type MemoryType string

const (
	MemoryTypeEpisodic   MemoryType = "episodic"
	MemoryTypeSemantic   MemoryType = "semantic"
	MemoryTypeProcedural MemoryType = "procedural"
	MemoryTypeEmotional  MemoryType = "emotional"
	MemoryTypeDefault    MemoryType = "default"
)

// ValidMemoryType reports whether t is one of the known memory types.
func ValidMemoryType(t MemoryType) bool {
	switch t {
	case MemoryTypeEpisodic, MemoryTypeSemantic, MemoryTypeProcedural,
		MemoryTypeEmotional, MemoryTypeDefault:
		return true
	}
	return false
}

// DefaultSalience is assigned to items persisted without a salience value.
const DefaultSalience = 0.4

// decayHistoryLimit bounds the decay history FIFO persisted per row.
const decayHistoryLimit = 10

// DecayHistoryEntry is one audit record of a decay application.
type DecayHistoryEntry struct {
	Timestamp        int64   `json:"timestamp"`
	PreviousSalience float64 `json:"previous_salience"`
	NewSalience      float64 `json:"new_salience"`
	HoursSinceAccess float64 `json:"hours_since_access"`
	LTPFactor        float64 `json:"ltp_factor"`
	RecallBoost      float64 `json:"recall_boost"`
	EnvMultiplier    float64 `json:"env_multiplier"`
	Ebbinghaus       float64 `json:"ebbinghaus_modifier"`
}

// DecayMetadata is the per-row decay bookkeeping persisted as JSONB.
type DecayMetadata struct {
	LastDecayRun *int64              `json:"last_decay_run,omitempty"`
	History      []DecayHistoryEntry `json:"history,omitempty"`
}

// Append records a history entry, truncating to the newest decayHistoryLimit
// entries so row sizes stay bounded.
func (m *DecayMetadata) Append(entry DecayHistoryEntry) {
	m.History = append(m.History, entry)
	if len(m.History) > decayHistoryLimit {
		m.History = m.History[len(m.History)-decayHistoryLimit:]
	}
	m.LastDecayRun = &entry.Timestamp
}

// Item is a single archived conversation or note. Timestamps are epoch
// milliseconds.
type Item struct {
	ID             string        `json:"id"`
	Kind           Kind          `json:"kind"`
	Title          string        `json:"title"`
	Summary        string        `json:"summary"`
	Content        string        `json:"content"`
	Tags           []string      `json:"tags"`
	Source         string        `json:"source"`
	FileName       *string       `json:"file_name,omitempty"`
	Assets         []string      `json:"assets,omitempty"`
	CreatedAt      int64         `json:"created_at"`
	UpdatedAt      int64         `json:"updated_at"`
	Embedding      []float32     `json:"embedding,omitempty"` // nil = no vector
	MemoryType     *MemoryType   `json:"memory_type,omitempty"`
	Salience       float64       `json:"salience"`
	RecallCount    int           `json:"recall_count"`
	LastAccessedAt int64         `json:"last_accessed_at"`
	DecayMetadata  DecayMetadata `json:"decay_metadata"`
}

// MemoryTypeName returns the item's memory type label, or the default label
// when unset.
func (i *Item) MemoryTypeName() string {
	if i.MemoryType == nil {
		return string(MemoryTypeDefault)
	}
	return string(*i.MemoryType)
}

// Fact is a temporal (subject, predicate, object) triple extracted from an
// item. A nil ValidTo marks the fact as currently valid; superseded facts
// keep their row with ValidTo set.
type Fact struct {
	ID             string        `json:"id"`
	ChatID         string        `json:"chat_id"`
	Subject        string        `json:"subject"`
	Predicate      string        `json:"predicate"`
	Object         string        `json:"object"`
	Confidence     float64       `json:"confidence"`
	Salience       float64       `json:"salience"`
	ValidFrom      int64         `json:"valid_from"`
	ValidTo        *int64        `json:"valid_to,omitempty"`
	CreatedAt      int64         `json:"created_at"`
	LastAccessedAt int64         `json:"last_accessed_at"`
	RecallCount    int           `json:"recall_count"`
	DecayMetadata  DecayMetadata `json:"decay_metadata"`
}

// ExtractedFact is the shape an extraction collaborator hands to SaveFacts.
type ExtractedFact struct {
	Subject    string  `json:"subject"`
	Predicate  string  `json:"predicate"`
	Object     string  `json:"object"`
	Confidence float64 `json:"confidence"`
}

// Link is a manual edge between two items. One direction is stored;
// removal treats (a, b) and (b, a) as the same edge.
type Link struct {
	FromID    string  `json:"from_id"`
	ToID      string  `json:"to_id"`
	Type      *string `json:"type,omitempty"`
	CreatedAt int64   `json:"created_at"`
}

// DecayRunMetric is one append-only record of a completed decay cycle.
type DecayRunMetric struct {
	RunTimestamp         int64   `json:"run_timestamp"`
	ItemsProcessed       int     `json:"items_processed"`
	ItemsDecayed         int     `json:"items_decayed"`
	ErrorCount           int     `json:"error_count"`
	AverageDecayAmount   float64 `json:"average_decay_amount"`
	MemoryEntropy        float64 `json:"memory_entropy"`
	EnvironmentalContext string  `json:"environmental_context"`
	ProcessingDurationMS int64   `json:"processing_duration_ms"`
}

// SearchFilters narrow keyword and vector searches.
type SearchFilters struct {
	MemoryType  *MemoryType
	MinSalience *float64
	ExcludeID   *string
}

// ScoredItem pairs an item with its cosine distance from a query vector.
type ScoredItem struct {
	Item     *Item
	Distance float64
}

// DecayTable names the two tables the decay scheduler sweeps.
type DecayTable string

const (
	DecayTableChats DecayTable = "chats"
	DecayTableFacts DecayTable = "facts"
)

// DecayCandidate is one row eligible for a decay application.
type DecayCandidate struct {
	ID             string
	Salience       float64
	MemoryType     string
	RecallCount    int
	LastAccessedAt int64
	Metadata       DecayMetadata
}
