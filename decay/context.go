package decay

import "time"

// Context is the environmental context a decay cycle runs under. The
// multiplier divides the effective half-life: values below 1 slow decay,
// values above 1 speed it up.
type Context struct {
	Name            string
	DecayMultiplier float64
}

var (
	ContextFocusedLearning = Context{Name: "focused_learning", DecayMultiplier: 0.5}
	ContextHighActivity    = Context{Name: "high_activity", DecayMultiplier: 0.7}
	ContextRestPeriod      = Context{Name: "rest_period", DecayMultiplier: 1.3}
	// ContextLowActivity is never selected by the clock; it is only reachable
	// through an explicit override.
	ContextLowActivity = Context{Name: "low_activity", DecayMultiplier: 1.0}
)

// ContextByName resolves a context label, for configuration overrides.
// Returns false for unknown labels.
func ContextByName(name string) (Context, bool) {
	switch name {
	case ContextFocusedLearning.Name:
		return ContextFocusedLearning, true
	case ContextHighActivity.Name:
		return ContextHighActivity, true
	case ContextRestPeriod.Name:
		return ContextRestPeriod, true
	case ContextLowActivity.Name:
		return ContextLowActivity, true
	}
	return Context{}, false
}

// ContextAt selects the environmental context for a local wall-clock time.
// 09:00-17:59 is focused learning, 18:00-22:59 high activity, and the
// remaining night hours are the rest period. Daylight transitions are not
// handled specially; the local hour at the moment of the call decides.
func ContextAt(t time.Time) Context {
	switch hour := t.Hour(); {
	case hour >= 9 && hour < 18:
		return ContextFocusedLearning
	case hour >= 18 && hour < 23:
		return ContextHighActivity
	default:
		return ContextRestPeriod
	}
}
