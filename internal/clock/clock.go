// Package clock defines the audio hardware clock every timing component
// reads from.
package clock

import "time"

// Clock is a monotonic audio output clock in seconds. Readings are only
// comparable with other readings from the same instance and need not
// start at zero.
type Clock interface {
	Now() float64
}

// Func adapts a plain function to a Clock.
type Func func() float64

func (f Func) Now() float64 { return f() }

// Wall returns a Clock backed by the monotonic system clock, counting from
// the moment it is created.
func Wall() Clock {
	start := time.Now()
	return Func(func() float64 { return time.Since(start).Seconds() })
}

// Manual is a clock that only moves when told to.
type Manual struct {
	t float64
}

func NewManual(start float64) *Manual {
	return &Manual{t: start}
}

func (m *Manual) Now() float64 { return m.t }

// Advance moves the clock forward by d seconds. Negative values are ignored.
func (m *Manual) Advance(d float64) {
	if d > 0 {
		m.t += d
	}
}

// Set moves the clock to t if t is not in the past.
func (m *Manual) Set(t float64) {
	if t > m.t {
		m.t = t
	}
}
