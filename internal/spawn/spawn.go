// Package spawn decides when each note of a timeline appears on screen.
package spawn

import (
	"git.lost.host/meutraa/tapsync/internal/game"
	"git.lost.host/meutraa/tapsync/internal/transport"
)

// Event asks for a note to be put on screen now.
type Event struct {
	Index           int // Position of the entry in the timeline
	Entry           game.NoteEntry
	ArrivalDeadline float64 // Song time the note reaches the target
}

// Scheduler walks a timeline with a single cursor. A note is due once the
// song position reaches its time minus the travel duration.
type Scheduler struct {
	timeline *game.Timeline
	travel   float64
	cursor   int
}

func NewScheduler(timeline *game.Timeline, travelDuration float64) *Scheduler {
	return &Scheduler{timeline: timeline, travel: travelDuration}
}

// Tick returns every note due at snap, in timeline order. Nothing spawns
// while the song is frozen; the cursor is kept.
func (s *Scheduler) Tick(snap transport.Snapshot) []Event {
	if snap.Frozen {
		return nil
	}
	var events []Event
	for s.cursor < s.timeline.Len() {
		e := s.timeline.At(s.cursor)
		if snap.Position < e.Time-s.travel {
			break
		}
		events = append(events, Event{Index: s.cursor, Entry: e, ArrivalDeadline: e.Time})
		s.cursor++
	}
	return events
}

// Cursor is the index of the next entry to spawn.
func (s *Scheduler) Cursor() int {
	return s.cursor
}

// Done reports whether every entry has been spawned.
func (s *Scheduler) Done() bool {
	return s.cursor >= s.timeline.Len()
}

// Next returns the song time the next entry will spawn at.
func (s *Scheduler) Next() (float64, bool) {
	if s.Done() {
		return 0, false
	}
	return s.timeline.At(s.cursor).Time - s.travel, true
}
