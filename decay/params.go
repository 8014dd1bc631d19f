package decay

// Memory type labels shared with the store schema. Unknown labels fall back
// to the default profile.
const (
	TypeEpisodic   = "episodic"
	TypeSemantic   = "semantic"
	TypeProcedural = "procedural"
	TypeEmotional  = "emotional"
	TypeDefault    = "default"
)

// Params are the per-memory-type decay constants.
type Params struct {
	// BaseHalfLifeHours is the unmodified half-life H_base.
	BaseHalfLifeHours float64
	// Floor is the minimum salience a memory of this type can decay to.
	Floor float64
	// BoostMultiplier scales rehearsal boosts for this type.
	BoostMultiplier float64
}

var paramsByType = map[string]Params{
	TypeEpisodic:   {BaseHalfLifeHours: 24, Floor: 0.10, BoostMultiplier: 1.20},
	TypeSemantic:   {BaseHalfLifeHours: 168, Floor: 0.15, BoostMultiplier: 1.00},
	TypeProcedural: {BaseHalfLifeHours: 720, Floor: 0.20, BoostMultiplier: 0.90},
	TypeEmotional:  {BaseHalfLifeHours: 48, Floor: 0.12, BoostMultiplier: 1.30},
	TypeDefault:    {BaseHalfLifeHours: 72, Floor: 0.10, BoostMultiplier: 1.00},
}

// ParamsFor returns the decay parameters for a memory type.
func ParamsFor(memoryType string) Params {
	if p, ok := paramsByType[memoryType]; ok {
		return p
	}
	return paramsByType[TypeDefault]
}

// Floor returns the salience floor for a memory type.
func Floor(memoryType string) float64 {
	return ParamsFor(memoryType).Floor
}

// resistance maps current salience to a long-term-potentiation factor.
// Bands are upper-inclusive: a salience sitting exactly on a bound gets the
// smaller factor.
func resistance(salience float64) float64 {
	switch {
	case salience <= 0.2:
		return 0.50
	case salience <= 0.4:
		return 0.75
	case salience <= 0.6:
		return 1.00
	case salience <= 0.8:
		return 1.50
	default:
		return 2.00
	}
}
