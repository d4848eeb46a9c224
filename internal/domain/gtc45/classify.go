package gtc45

// ProbabilityLevel interprets an NP value.
type ProbabilityLevel string

const (
	ProbabilityUndefined ProbabilityLevel = ""
	ProbabilityLow       ProbabilityLevel = "low"
	ProbabilityMedium    ProbabilityLevel = "medium"
	ProbabilityHigh      ProbabilityLevel = "high"
	ProbabilityVeryHigh  ProbabilityLevel = "very_high"
)

// InterpretProbability maps NP to its band: >=24 very high, >=10 high,
// >=4 medium, else low.
func InterpretProbability(np int, ok bool) ProbabilityLevel {
	if !ok {
		return ProbabilityUndefined
	}
	switch {
	case np >= 24:
		return ProbabilityVeryHigh
	case np >= 10:
		return ProbabilityHigh
	case np >= 4:
		return ProbabilityMedium
	default:
		return ProbabilityLow
	}
}

// RiskLevel is the four-band GTC-45 risk classification.
type RiskLevel string

const (
	LevelUndefined  RiskLevel = ""
	LevelLow        RiskLevel = "low"
	LevelMedium     RiskLevel = "medium"
	LevelMediumHigh RiskLevel = "medium_high"
	LevelHigh       RiskLevel = "high"
)

// Levels lists the defined levels from most to least severe.
var Levels = []RiskLevel{LevelHigh, LevelMediumHigh, LevelMedium, LevelLow}

// Color is the traffic-light color attached to a risk level.
type Color string

const (
	ColorUndefined Color = ""
	ColorRed       Color = "red"
	ColorOrange    Color = "orange"
	ColorYellow    Color = "yellow"
	ColorGreen     Color = "green"
)

// Acceptability states whether a risk may be tolerated.
type Acceptability string

const (
	AcceptabilityUndefined Acceptability = ""
	NotAcceptable          Acceptability = "not_acceptable"
	AcceptableWithControls Acceptability = "acceptable_with_controls"
	Acceptable             Acceptability = "acceptable"
)

// LevelFor maps an NR value to its band: >=600 high, >=150 medium-high,
// >=40 medium, else low.
func LevelFor(nr int, ok bool) RiskLevel {
	if !ok {
		return LevelUndefined
	}
	switch {
	case nr >= 600:
		return LevelHigh
	case nr >= 150:
		return LevelMediumHigh
	case nr >= 40:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Label returns a human readable name of the level.
func (l RiskLevel) Label() string {
	switch l {
	case LevelHigh:
		return "high"
	case LevelMediumHigh:
		return "medium-high"
	case LevelMedium:
		return "medium"
	case LevelLow:
		return "low"
	}
	return "undefined"
}

func (l RiskLevel) Color() Color {
	switch l {
	case LevelHigh:
		return ColorRed
	case LevelMediumHigh:
		return ColorOrange
	case LevelMedium:
		return ColorYellow
	case LevelLow:
		return ColorGreen
	}
	return ColorUndefined
}

// Action is the required action for the level.
func (l RiskLevel) Action() string {
	switch l {
	case LevelHigh:
		return "critical situation - immediate correction"
	case LevelMediumHigh:
		return "correct urgently"
	case LevelMedium:
		return "improve if possible"
	case LevelLow:
		return "maintain current controls"
	}
	return ""
}

func (l RiskLevel) Acceptability() Acceptability {
	switch l {
	case LevelHigh, LevelMediumHigh:
		return NotAcceptable
	case LevelMedium:
		return AcceptableWithControls
	case LevelLow:
		return Acceptable
	}
	return AcceptabilityUndefined
}

// InterventionLevel returns the GTC-45 intervention band I..IV.
func (l RiskLevel) InterventionLevel() string {
	switch l {
	case LevelHigh:
		return "I"
	case LevelMediumHigh:
		return "II"
	case LevelMedium:
		return "III"
	case LevelLow:
		return "IV"
	}
	return ""
}

// Classification bundles every value derived from an ND/NE/NC triple.
type Classification struct {
	Defined           bool             `json:"defined"`
	Probability       *int             `json:"np,omitempty"`
	Risk              *int             `json:"nr,omitempty"`
	ProbabilityLevel  ProbabilityLevel `json:"probability_interpretation,omitempty"`
	Level             RiskLevel        `json:"risk_level,omitempty"`
	Color             Color            `json:"color,omitempty"`
	Action            string           `json:"action,omitempty"`
	Acceptability     Acceptability    `json:"acceptability,omitempty"`
	InterventionLevel string           `json:"intervention_level,omitempty"`
}

// Classify derives the full classification. Missing or invalid inputs give
// an undefined result; NP is still reported when only NC is unusable.
func Classify(nd, ne, nc *int) Classification {
	var c Classification
	np, npOK := Probability(nd, ne)
	if npOK {
		c.Probability = &np
		c.ProbabilityLevel = InterpretProbability(np, true)
	}
	nr, nrOK := Risk(nd, ne, nc)
	if !nrOK {
		return c
	}
	level := LevelFor(nr, true)
	c.Defined = true
	c.Risk = &nr
	c.Level = level
	c.Color = level.Color()
	c.Action = level.Action()
	c.Acceptability = level.Acceptability()
	c.InterventionLevel = level.InterventionLevel()
	return c
}
