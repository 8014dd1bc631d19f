// Package runtime hosts the long-running decay scheduler: a periodic worker
// that sweeps items and facts in cursor-paginated batches, applies the decay
// engine, and records run metrics.
package runtime

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/chronicle-ai/chronicle/decay"
	"github.com/chronicle-ai/chronicle/similarity"
	"github.com/chronicle-ai/chronicle/store"
)

const (
	// DefaultInterval is the scheduler period and doubles as the minimum
	// time between decay applications to the same row.
	DefaultInterval = 15 * time.Minute
	// DefaultBatchSize is the cursor page size for decay scans.
	DefaultBatchSize = 100
	// batchPause yields between batches so a long sweep does not saturate
	// the pool.
	batchPause = 100 * time.Millisecond
	// metricRetention is how long decay run metrics are kept.
	metricRetention = 7 * 24 * time.Hour
	// entropyWindowSize bounds the in-memory ring of recent entropy samples.
	entropyWindowSize = 100
)

// ErrCycleRunning is returned when a cycle is requested while another is in
// flight.
var ErrCycleRunning = errors.New("decay cycle already in flight")

// DecayStore is the slice of the store the scheduler needs.
type DecayStore interface {
	ListDecayCandidates(ctx context.Context, table store.DecayTable, cursor string, limit int, now, reprocessIntervalMS int64) ([]store.DecayCandidate, error)
	UpdateDecay(ctx context.Context, table store.DecayTable, id string, salience float64, meta store.DecayMetadata) error
	LiveSalienceValues(ctx context.Context) ([]float64, error)
	InsertDecayMetric(ctx context.Context, m store.DecayRunMetric) error
	PruneDecayMetrics(ctx context.Context, before int64) (int64, error)
	TrackView(ctx context.Context, id string) error
}

// CycleResult summarises one decay cycle.
type CycleResult struct {
	Processed  int      `json:"processed"`
	Decayed    int      `json:"decayed"`
	Entropy    float64  `json:"entropy"`
	DurationMS int64    `json:"duration_ms"`
	Batches    int      `json:"batches"`
	Errors     []string `json:"errors,omitempty"`
}

// Metrics is a snapshot of the scheduler's in-memory state.
type Metrics struct {
	Running          bool      `json:"running"`
	CyclesCompleted  int       `json:"cycles_completed"`
	LastRunTimestamp int64     `json:"last_run_timestamp"`
	LastEntropy      float64   `json:"last_entropy"`
	EntropyWindow    []float64 `json:"entropy_window"`
	IntervalMS       int64     `json:"interval_ms"`
	BatchSize        int       `json:"batch_size"`
}

// Scheduler periodically applies salience decay across the archive. At most
// one cycle runs at a time; overlapping ticks are refused.
type Scheduler struct {
	store           DecayStore
	interval        time.Duration
	batchSize       int
	contextOverride *decay.Context
	logger          zerolog.Logger

	cron    *cron.Cron
	running atomic.Bool
	wg      sync.WaitGroup

	mu              sync.Mutex
	cyclesCompleted int
	lastRun         int64
	entropyWindow   []float64

	// test seams
	now   func() time.Time
	sleep func(time.Duration)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithInterval overrides the scheduler period (and the per-row reprocess
// guard, which stays coupled to it).
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithBatchSize overrides the cursor page size.
func WithBatchSize(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithContextOverride pins the environmental context instead of deriving it
// from the wall clock.
func WithContextOverride(c decay.Context) Option {
	return func(s *Scheduler) { s.contextOverride = &c }
}

// NewScheduler creates a decay scheduler over the given store.
func NewScheduler(decayStore DecayStore, logger zerolog.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:     decayStore,
		interval:  DefaultInterval,
		batchSize: DefaultBatchSize,
		logger:    logger.With().Str("component", "decay_scheduler").Logger(),
		now:       time.Now,
		sleep:     time.Sleep,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the cycle runner: one immediate cycle, then one per
// interval. Calling Start twice is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	if s.cron != nil {
		s.logger.Warn().Msg("Scheduler already started")
		return
	}
	s.logger.Info().
		Dur("interval", s.interval).
		Int("batch_size", s.batchSize).
		Msg("Starting decay scheduler")

	s.cron = cron.New()
	s.cron.Schedule(cron.Every(s.interval), cron.FuncJob(func() {
		s.runScheduled(ctx)
	}))

	// First sweep fires immediately rather than waiting a full interval.
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runScheduled(ctx)
	}()

	s.cron.Start()
}

// Stop cancels the ticker and waits for any in-flight cycle to settle.
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.wg.Wait()
	s.cron = nil
	s.logger.Info().Msg("Decay scheduler stopped")
}

// OnAccess refreshes a chat's access bookkeeping from the read path.
func (s *Scheduler) OnAccess(ctx context.Context, id string) error {
	return s.store.TrackView(ctx, id)
}

// runScheduled is the cron entry point. A refused tick is logged at warn
// and dropped.
func (s *Scheduler) runScheduled(ctx context.Context) {
	if _, err := s.RunCycle(ctx); err != nil {
		if errors.Is(err, ErrCycleRunning) {
			s.logger.Warn().Msg("Previous decay cycle still running, skipping tick")
			return
		}
		s.logger.Error().Err(err).Msg("Decay cycle failed")
	}
}

// RunCycle executes one decay sweep. It refuses to overlap a running cycle.
func (s *Scheduler) RunCycle(ctx context.Context) (*CycleResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrCycleRunning
	}
	s.wg.Add(1)
	defer func() {
		s.running.Store(false)
		s.wg.Done()
	}()
	return s.cycle(ctx), nil
}

func (s *Scheduler) cycle(ctx context.Context) *CycleResult {
	start := s.now()
	startMS := start.UnixMilli()
	env := s.currentContext(start)

	s.logger.Info().
		Str("context", env.Name).
		Msg("Decay cycle starting")

	result := &CycleResult{}
	var totalDecayAmount float64

	for _, table := range []store.DecayTable{store.DecayTableChats, store.DecayTableFacts} {
		s.sweepTable(ctx, table, startMS, env, result, &totalDecayAmount)
	}

	entropy := 0.0
	values, err := s.store.LiveSalienceValues(ctx)
	if err != nil {
		result.Errors = append(result.Errors, "salience snapshot: "+err.Error())
	} else {
		entropy = similarity.Entropy(values)
	}
	result.Entropy = entropy
	result.DurationMS = s.now().Sub(start).Milliseconds()

	avgDecay := 0.0
	if result.Decayed > 0 {
		avgDecay = totalDecayAmount / float64(result.Decayed)
	}
	metric := store.DecayRunMetric{
		RunTimestamp:         startMS,
		ItemsProcessed:       result.Processed,
		ItemsDecayed:         result.Decayed,
		ErrorCount:           len(result.Errors),
		AverageDecayAmount:   avgDecay,
		MemoryEntropy:        entropy,
		EnvironmentalContext: env.Name,
		ProcessingDurationMS: result.DurationMS,
	}
	if err := s.store.InsertDecayMetric(ctx, metric); err != nil {
		s.logger.Error().Err(err).Msg("Failed to record decay metric")
		result.Errors = append(result.Errors, "record metric: "+err.Error())
	}
	if _, err := s.store.PruneDecayMetrics(ctx, startMS-metricRetention.Milliseconds()); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to prune old decay metrics")
	}

	s.mu.Lock()
	s.cyclesCompleted++
	s.lastRun = startMS
	s.entropyWindow = append(s.entropyWindow, entropy)
	if len(s.entropyWindow) > entropyWindowSize {
		s.entropyWindow = s.entropyWindow[len(s.entropyWindow)-entropyWindowSize:]
	}
	s.mu.Unlock()

	s.logger.Info().
		Int("processed", result.Processed).
		Int("decayed", result.Decayed).
		Int("batches", result.Batches).
		Int("errors", len(result.Errors)).
		Float64("entropy", entropy).
		Int64("duration_ms", result.DurationMS).
		Msg("Decay cycle complete")
	return result
}

// sweepTable walks one table in cursor pages, applying the decay engine to
// each eligible row. Batch failures are recorded and the sweep moves on.
func (s *Scheduler) sweepTable(ctx context.Context, table store.DecayTable, nowMS int64, env decay.Context, result *CycleResult, totalDecayAmount *float64) {
	cursor := ""
	for {
		batch, err := s.store.ListDecayCandidates(ctx, table, cursor, s.batchSize, nowMS, s.interval.Milliseconds())
		if err != nil {
			s.logger.Error().
				Str("table", string(table)).
				Str("cursor", cursor).
				Err(err).
				Msg("Decay batch scan failed")
			result.Errors = append(result.Errors, string(table)+" scan: "+err.Error())
			return
		}
		if len(batch) == 0 {
			return
		}
		result.Batches++

		for _, candidate := range batch {
			hours := float64(nowMS-candidate.LastAccessedAt) / 3_600_000.0
			newSalience, amount, mods := decay.Compute(
				candidate.Salience, hours, candidate.MemoryType,
				candidate.RecallCount, env)
			result.Processed++

			if newSalience >= candidate.Salience {
				continue
			}

			meta := candidate.Metadata
			meta.Append(store.DecayHistoryEntry{
				Timestamp:        nowMS,
				PreviousSalience: candidate.Salience,
				NewSalience:      newSalience,
				HoursSinceAccess: hours,
				LTPFactor:        mods.LTPFactor,
				RecallBoost:      mods.RecallBoost,
				EnvMultiplier:    mods.EnvMultiplier,
				Ebbinghaus:       mods.Ebbinghaus,
			})
			if err := s.store.UpdateDecay(ctx, table, candidate.ID, newSalience, meta); err != nil {
				s.logger.Error().
					Str("table", string(table)).
					Str("id", candidate.ID).
					Err(err).
					Msg("Failed to persist decay update")
				result.Errors = append(result.Errors, string(table)+" update "+candidate.ID+": "+err.Error())
				continue
			}
			result.Decayed++
			*totalDecayAmount += amount
		}

		if len(batch) < s.batchSize {
			return
		}
		cursor = batch[len(batch)-1].ID
		s.sleep(batchPause)
	}
}

func (s *Scheduler) currentContext(t time.Time) decay.Context {
	if s.contextOverride != nil {
		return *s.contextOverride
	}
	return decay.ContextAt(t)
}

// Snapshot returns the scheduler's in-memory metrics.
func (s *Scheduler) Snapshot() Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	window := make([]float64, len(s.entropyWindow))
	copy(window, s.entropyWindow)
	var lastEntropy float64
	if len(window) > 0 {
		lastEntropy = window[len(window)-1]
	}
	return Metrics{
		Running:          s.running.Load(),
		CyclesCompleted:  s.cyclesCompleted,
		LastRunTimestamp: s.lastRun,
		LastEntropy:      lastEntropy,
		EntropyWindow:    window,
		IntervalMS:       s.interval.Milliseconds(),
		BatchSize:        s.batchSize,
	}
}
