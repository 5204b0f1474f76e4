package game

import "fmt"

// NoteEntry is a single lyric token placed on the song timeline.
type NoteEntry struct {
	Token string  // The text shown on the note
	Time  float64 // Seconds into the song the note should be hit
	End   float64 // Seconds into the song the token stops being sung
}

func (e NoteEntry) String() string {
	return fmt.Sprintf("%q@%.3fs", e.Token, e.Time)
}

// NoteState is the lifecycle of a spawned note. Transitions only move
// forward: Traveling -> InZone -> Resolved | MissedByTimeout.
type NoteState uint8

const (
	Traveling NoteState = iota
	InZone
	Resolved
	MissedByTimeout
)

func (s NoteState) String() string {
	switch s {
	case Traveling:
		return "traveling"
	case InZone:
		return "in-zone"
	case Resolved:
		return "resolved"
	case MissedByTimeout:
		return "missed-by-timeout"
	}
	return "unknown"
}

// Terminal reports whether no further transition is possible.
func (s NoteState) Terminal() bool {
	return s == Resolved || s == MissedByTimeout
}
