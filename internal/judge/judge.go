// Package judge tracks a single spawned note from spawn to its judgement.
package judge

import (
	"math"

	"git.lost.host/meutraa/tapsync/internal/game"
	"git.lost.host/meutraa/tapsync/internal/transport"
)

// Config is shared by every note of a round.
type Config struct {
	TravelDuration float64    // Seconds from spawn to the target
	LingerGrace    float64    // Song seconds a note waits at the target before it is missed
	Bands          game.Bands // Timing windows
	Leniency       float64    // Multiplier applied to every window
	Spawn          game.Point // Where notes appear
	Target         game.Point // Where notes should be hit
	ZoneRadius     float64    // Distance from Target that counts as in the zone
}

// Judgement is the final result of one note.
type Judgement struct {
	Index         int
	Entry         game.NoteEntry
	Outcome       game.Outcome
	Delta         float64 // Song position minus the note time when judged
	Timeout       bool    // No input arrived before the grace period ended
	WrongPosition bool    // Tapped outside the target zone
}

// Note is the judgement state machine of one spawned note. Its position is
// a pure function of song position, so it is only ever asked about a
// snapshot, never told time has passed.
type Note struct {
	Index           int
	Entry           game.NoteEntry
	ArrivalDeadline float64

	cfg        *Config
	state      game.NoteState
	lingering  bool
	judgement  Judgement
	resolvedAt float64
}

func NewNote(index int, entry game.NoteEntry, arrivalDeadline float64, cfg *Config) *Note {
	return &Note{
		Index:           index,
		Entry:           entry,
		ArrivalDeadline: arrivalDeadline,
		cfg:             cfg,
		state:           game.Traveling,
	}
}

// Progress is how far along its path the note is, from 0 at spawn to 1 at
// the target.
func (n *Note) Progress(pos float64) float64 {
	if n.cfg.TravelDuration <= 0 {
		if pos >= n.ArrivalDeadline {
			return 1
		}
		return 0
	}
	p := (pos - (n.ArrivalDeadline - n.cfg.TravelDuration)) / n.cfg.TravelDuration
	return math.Max(0, math.Min(1, p))
}

// Position is where the note is drawn at song position pos.
func (n *Note) Position(pos float64) game.Point {
	return n.cfg.Spawn.Lerp(n.cfg.Target, n.Progress(pos))
}

func (n *Note) inZone(pos float64) bool {
	return n.Position(pos).Distance(n.cfg.Target) < n.cfg.ZoneRadius
}

func (n *Note) State() game.NoteState {
	return n.state
}

// Lingering reports whether the note has arrived and its grace timer runs.
func (n *Note) Lingering() bool {
	return n.lingering
}

// Judgement is only meaningful once the note is terminal.
func (n *Note) Judgement() (Judgement, bool) {
	return n.judgement, n.state.Terminal()
}

// Tick advances the zone gate and the grace timer. It returns the
// judgement when the note times out.
func (n *Note) Tick(snap transport.Snapshot) (Judgement, bool) {
	if n.state.Terminal() || snap.Frozen {
		return Judgement{}, false
	}
	pos := snap.Position
	if n.state == game.Traveling && n.inZone(pos) {
		n.state = game.InZone
	}
	if !n.lingering && n.Progress(pos) >= 1 {
		n.lingering = true
	}
	if n.lingering && pos >= n.ArrivalDeadline+n.cfg.LingerGrace {
		n.resolve(game.MissedByTimeout, game.Miss, pos)
		n.judgement.Timeout = true
		return n.judgement, true
	}
	return Judgement{}, false
}

// Input judges a tap on this note. Taps on a terminal note or while the
// song is frozen are ignored.
func (n *Note) Input(snap transport.Snapshot) (Judgement, bool) {
	if n.state.Terminal() || snap.Frozen {
		return Judgement{}, false
	}
	pos := snap.Position
	if !n.inZone(pos) {
		n.resolve(game.Resolved, game.Miss, pos)
		n.judgement.WrongPosition = true
		return n.judgement, true
	}
	n.state = game.InZone
	n.resolve(game.Resolved, n.cfg.Bands.Classify(pos-n.Entry.Time, n.cfg.Leniency), pos)
	return n.judgement, true
}

func (n *Note) resolve(state game.NoteState, outcome game.Outcome, pos float64) {
	n.state = state
	n.resolvedAt = pos
	n.judgement = Judgement{
		Index:   n.Index,
		Entry:   n.Entry,
		Outcome: outcome,
		Delta:   pos - n.Entry.Time,
	}
}

// Expired reports whether a terminal note has been on screen for delay
// song seconds since it was judged.
func (n *Note) Expired(pos, delay float64) bool {
	return n.state.Terminal() && pos >= n.resolvedAt+delay
}

// DistanceTo is the on-screen distance from the note to p.
func (n *Note) DistanceTo(pos float64, p game.Point) float64 {
	return n.Position(pos).Distance(p)
}
