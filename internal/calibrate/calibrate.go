// Package calibrate measures how late the audio device is and how late the
// player is. Both calibrations are resumable state machines advanced by the
// host's update loop; nothing here blocks or starts a goroutine.
package calibrate

import "errors"

var (
	ErrUndetected       = errors.New("calibration tone was not detected")
	ErrInsufficientTaps = errors.New("not enough taps to calibrate")
	ErrCancelled        = errors.New("calibration cancelled")
	ErrNotFinished      = errors.New("calibration has not finished")
)

// MinTaps is the fewest taps an offset calibration can be computed from.
const MinTaps = 3

type Status uint8

const (
	Idle Status = iota
	Running
	Done
	Failed
	Cancelled
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Done:
		return "done"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	}
	return "unknown"
}

// Finished reports whether the calibration will not change any more.
func (s Status) Finished() bool {
	return s == Done || s == Failed || s == Cancelled
}

// Result is the pair of corrections a song transport is built with.
type Result struct {
	OutputLatency float64 // Seconds from scheduling audio to hearing it, never negative
	UserOffset    float64 // Signed seconds the player taps late on average
}
