package game

import "math"

// Outcome is the judgement given to a single note.
type Outcome uint8

const (
	Perfect Outcome = iota
	Great
	Good
	Miss
)

// Outcomes lists every outcome in ascending window order.
var Outcomes = [...]Outcome{Perfect, Great, Good, Miss}

func (o Outcome) String() string {
	switch o {
	case Perfect:
		return "perfect"
	case Great:
		return "great"
	case Good:
		return "good"
	case Miss:
		return "miss"
	}
	return "unknown"
}

// Bands holds the tolerance windows in seconds. They must ascend.
type Bands struct {
	Perfect float64 `yaml:"perfect"`
	Great   float64 `yaml:"great"`
	Good    float64 `yaml:"good"`
}

// DefaultBands are the windows used when a variant does not set its own.
var DefaultBands = Bands{Perfect: 0.05, Great: 0.10, Good: 0.20}

type judgement struct {
	Window  float64
	Outcome Outcome
}

// Classify maps an absolute timing error to an outcome. Each window is
// scaled by leniency and checked in ascending order, the first match wins.
func (b Bands) Classify(delta, leniency float64) Outcome {
	delta = math.Abs(delta)
	for _, j := range [...]judgement{
		{b.Perfect, Perfect},
		{b.Great, Great},
		{b.Good, Good},
	} {
		if delta <= j.Window*leniency {
			return j.Outcome
		}
	}
	return Miss
}

// Valid reports whether the windows are positive and strictly ascending.
func (b Bands) Valid() bool {
	return b.Perfect > 0 && b.Perfect < b.Great && b.Great < b.Good
}
