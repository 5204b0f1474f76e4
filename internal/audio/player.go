// Package audio is the playback side of the engine: a beep mixer that
// doubles as the hardware clock, voices that can be started at an exact
// clock time, and the clips they play.
package audio

import "errors"

var ErrDeviceUnavailable = errors.New("audio device unavailable")

// Player schedules clips against its own output clock.
type Player interface {
	// Now is the output clock in seconds.
	Now() float64

	// Schedule starts clip at clock time at, offset seconds into the clip.
	// A time in the past starts immediately.
	Schedule(clip *Clip, at, offset float64) (Voice, error)
}

// Voice is one scheduled playback of a clip.
type Voice interface {
	// Level is the RMS amplitude of the last window seconds this voice
	// produced, 0 before it starts.
	Level(window float64) float64

	// Done reports whether the clip played to its end.
	Done() bool

	// Stop silences the voice. Stopped voices never report Done.
	Stop()
}
