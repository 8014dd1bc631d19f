package bindings

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/chronicle-ai/chronicle/runtime"
	"github.com/chronicle-ai/chronicle/store"
)

// noopDecayStore satisfies runtime.DecayStore with an empty archive.
type noopDecayStore struct {
	metrics []store.DecayRunMetric
}

func (n *noopDecayStore) ListDecayCandidates(ctx context.Context, table store.DecayTable, cursor string, limit int, now, reprocessIntervalMS int64) ([]store.DecayCandidate, error) {
	return nil, nil
}

func (n *noopDecayStore) UpdateDecay(ctx context.Context, table store.DecayTable, id string, salience float64, meta store.DecayMetadata) error {
	return nil
}

func (n *noopDecayStore) LiveSalienceValues(ctx context.Context) ([]float64, error) {
	return nil, nil
}

func (n *noopDecayStore) InsertDecayMetric(ctx context.Context, m store.DecayRunMetric) error {
	n.metrics = append(n.metrics, m)
	return nil
}

func (n *noopDecayStore) PruneDecayMetrics(ctx context.Context, before int64) (int64, error) {
	return 0, nil
}

func (n *noopDecayStore) TrackView(ctx context.Context, id string) error { return nil }

func TestTriggerDecayCycle(t *testing.T) {
	fake := &noopDecayStore{}
	scheduler := runtime.NewScheduler(fake, zerolog.Nop(),
		runtime.WithInterval(time.Minute))
	svc := New(nil, scheduler, zerolog.Nop())

	result := svc.TriggerDecayCycle(context.Background())
	if !result.Success {
		t.Fatalf("expected success, got error %q", result.Error)
	}
	if result.Result == nil {
		t.Fatal("expected a cycle result")
	}
	if result.Result.Processed != 0 {
		t.Errorf("expected empty archive to process 0 rows, got %d", result.Result.Processed)
	}
	if len(fake.metrics) != 1 {
		t.Errorf("expected one metric recorded, got %d", len(fake.metrics))
	}
}
