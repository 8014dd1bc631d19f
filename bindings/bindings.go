// Package bindings is the narrow host surface a presentation layer consumes.
// It wraps the store and the decay scheduler behind the operations the UI
// calls, and owns no domain logic of its own.
package bindings

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/chronicle-ai/chronicle/runtime"
	"github.com/chronicle-ai/chronicle/store"
)

// recentRunsLimit is how many decay runs GetDecayMetrics reports.
const recentRunsLimit = 20

// DecayMetrics is the combined decay observability payload.
type DecayMetrics struct {
	ServiceMetrics runtime.Metrics        `json:"service_metrics"`
	RecentRuns     []store.DecayRunMetric `json:"recent_runs"`
}

// TriggerResult reports a manually requested decay cycle.
type TriggerResult struct {
	Success bool                 `json:"success"`
	Result  *runtime.CycleResult `json:"result,omitempty"`
	Error   string               `json:"error,omitempty"`
}

// Service exposes the host API. Write operations report success as a bool
// and log failures; read operations return explicit errors.
type Service struct {
	store     *store.Store
	scheduler *runtime.Scheduler
	logger    zerolog.Logger
}

// New creates the host bindings over a store and scheduler.
func New(st *store.Store, scheduler *runtime.Scheduler, logger zerolog.Logger) *Service {
	return &Service{
		store:     st,
		scheduler: scheduler,
		logger:    logger.With().Str("component", "bindings").Logger(),
	}
}

// LoadDatabase returns all items, newest first.
func (s *Service) LoadDatabase(ctx context.Context) ([]*store.Item, error) {
	return s.store.LoadItems(ctx)
}

// SaveDatabase bulk-upserts the given items.
func (s *Service) SaveDatabase(ctx context.Context, items []*store.Item) bool {
	if err := s.store.UpsertItems(ctx, items); err != nil {
		s.logger.Error().Err(err).Msg("SaveDatabase failed")
		return false
	}
	return true
}

// SaveFacts persists extracted facts for a chat.
func (s *Service) SaveFacts(ctx context.Context, chatID string, facts []store.ExtractedFact) bool {
	if err := s.store.SaveFacts(ctx, chatID, facts); err != nil {
		s.logger.Error().Str("chat_id", chatID).Err(err).Msg("SaveFacts failed")
		return false
	}
	return true
}

// LoadFacts returns the live facts for a chat.
func (s *Service) LoadFacts(ctx context.Context, chatID string) ([]*store.Fact, error) {
	return s.store.LoadFacts(ctx, chatID)
}

// BoostSalience applies a read-path rehearsal to a chat.
func (s *Service) BoostSalience(ctx context.Context, chatID string) bool {
	if err := s.store.BoostSalience(ctx, chatID); err != nil {
		s.logger.Error().Str("chat_id", chatID).Err(err).Msg("BoostSalience failed")
		return false
	}
	return true
}

// TrackChatView records a view without a salience bump.
func (s *Service) TrackChatView(ctx context.Context, chatID string) bool {
	if err := s.store.TrackView(ctx, chatID); err != nil {
		s.logger.Error().Str("chat_id", chatID).Err(err).Msg("TrackChatView failed")
		return false
	}
	return true
}

// UpdateMemoryType reclassifies a chat's decay profile.
func (s *Service) UpdateMemoryType(ctx context.Context, chatID string, memoryType store.MemoryType) bool {
	if err := s.store.UpdateMemoryType(ctx, chatID, memoryType); err != nil {
		s.logger.Error().
			Str("chat_id", chatID).
			Str("memory_type", string(memoryType)).
			Err(err).
			Msg("UpdateMemoryType failed")
		return false
	}
	return true
}

// AddLink records an edge between two items.
func (s *Service) AddLink(ctx context.Context, from, to string, linkType *string) bool {
	if err := s.store.AddLink(ctx, from, to, linkType); err != nil {
		s.logger.Error().Str("from", from).Str("to", to).Err(err).Msg("AddLink failed")
		return false
	}
	return true
}

// RemoveLink deletes the edge between two items in either direction.
func (s *Service) RemoveLink(ctx context.Context, from, to string) bool {
	if err := s.store.RemoveLink(ctx, from, to); err != nil {
		s.logger.Error().Str("from", from).Str("to", to).Err(err).Msg("RemoveLink failed")
		return false
	}
	return true
}

// LoadLinks returns every link in the archive.
func (s *Service) LoadLinks(ctx context.Context) ([]*store.Link, error) {
	return s.store.LoadLinks(ctx)
}

// GetDecayMetrics returns the scheduler snapshot plus recent run metrics.
func (s *Service) GetDecayMetrics(ctx context.Context) (*DecayMetrics, error) {
	runs, err := s.store.RecentDecayMetrics(ctx, recentRunsLimit)
	if err != nil {
		return nil, err
	}
	return &DecayMetrics{
		ServiceMetrics: s.scheduler.Snapshot(),
		RecentRuns:     runs,
	}, nil
}

// TriggerDecayCycle runs one manual decay cycle. A cycle already in flight
// is reported as a refusal, not a failure of the running cycle.
func (s *Service) TriggerDecayCycle(ctx context.Context) *TriggerResult {
	result, err := s.scheduler.RunCycle(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("TriggerDecayCycle refused")
		return &TriggerResult{Success: false, Error: err.Error()}
	}
	return &TriggerResult{Success: true, Result: result}
}
