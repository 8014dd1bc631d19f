// Package decay implements the salience decay model: exponential half-life
// decay blended with an Ebbinghaus forgetting curve, modified by long-term
// potentiation, recall history, and environmental context. All functions are
// pure and deterministic given their inputs.
package decay

import "math"

const (
	// minAgeHours guards against rehearsal races: items accessed within the
	// last 15 minutes are left untouched.
	minAgeHours = 0.25

	// recallBoostPerRecall and recallBoostCap bound how much recall history
	// can extend the effective half-life.
	recallBoostPerRecall = 0.02
	recallBoostCap       = 0.30

	// Ebbinghaus curve constants. The curve flattens around 24 hours and
	// asymptotically approaches a 15% retention ratio.
	ebbinghausFlatteningHours = 24.0
	ebbinghausAsymptote       = 0.15
	ebbinghausSpan            = 0.85
	ebbinghausSteepness       = 1.5

	// modifierMin is the lowest retention ratio a single decay application
	// can produce.
	modifierMin = 0.15
)

// Modifiers records the intermediate factors of one decay computation, for
// audit logging and decay history entries.
type Modifiers struct {
	LTPFactor     float64 `json:"ltp_factor"`
	RecallBoost   float64 `json:"recall_boost"`
	EnvMultiplier float64 `json:"env_multiplier"`
	Ebbinghaus    float64 `json:"ebbinghaus_modifier"`
}

// Compute applies one decay step to a memory's salience.
//
// Given the current salience, the hours elapsed since the memory was last
// accessed, its memory type, its recall count, and the environmental context,
// it returns the new salience, the decay amount (current - new, never
// negative), and the modifier breakdown.
//
// The effective half-life is H_base * ltp * (1 + recallBoost) / envMultiplier.
// The raw half-life ratio is blended with the Ebbinghaus forgetting curve,
// weighted toward the curve for young memories and toward plain exponential
// decay as hours/24 grows. The result is clamped to the type's floor.
func Compute(salience, hoursSinceAccess float64, memoryType string, recallCount int, env Context) (float64, float64, Modifiers) {
	if hoursSinceAccess < minAgeHours {
		return salience, 0, Modifiers{
			LTPFactor:     resistance(salience),
			RecallBoost:   recallBoost(recallCount),
			EnvMultiplier: env.DecayMultiplier,
			Ebbinghaus:    1,
		}
	}

	params := ParamsFor(memoryType)
	ltp := resistance(salience)
	boost := recallBoost(recallCount)

	halfLife := params.BaseHalfLifeHours * ltp * (1 + boost) / env.DecayMultiplier
	base := math.Pow(0.5, hoursSinceAccess/halfLife)

	tau := hoursSinceAccess / ebbinghausFlatteningHours
	forget := ebbinghausAsymptote + ebbinghausSpan*math.Exp(-ebbinghausSteepness*tau)
	weight := math.Exp(-tau)
	modifier := math.Max(base*(1-weight)+forget*weight, modifierMin)

	newSalience := math.Max(salience*modifier, params.Floor)
	amount := salience - newSalience
	if amount < 0 {
		amount = 0
	}

	return newSalience, amount, Modifiers{
		LTPFactor:     ltp,
		RecallBoost:   boost,
		EnvMultiplier: env.DecayMultiplier,
		Ebbinghaus:    modifier,
	}
}

func recallBoost(recallCount int) float64 {
	return math.Min(float64(recallCount)*recallBoostPerRecall, recallBoostCap)
}

// Clamp bounds a salience value to [Floor(memoryType), 1].
func Clamp(salience float64, memoryType string) float64 {
	floor := Floor(memoryType)
	switch {
	case salience < floor:
		return floor
	case salience > 1:
		return 1
	default:
		return salience
	}
}
