// Package transport maps the audio output clock to a song position.
//
// The song position is never stored. It is always derived from the anchor
// (scheduled start clock, output latency, user offset) and a fresh clock
// reading, and every operation that moves the anchor re-derives it from a
// known song position so repeated pause/resume cycles cannot drift.
package transport

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"git.lost.host/meutraa/tapsync/internal/audio"
)

var ErrNotStarted = errors.New("transport not started")

type State uint8

const (
	Idle State = iota
	Scheduled
	Playing
	Paused
	Frozen
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Scheduled:
		return "scheduled"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Frozen:
		return "frozen"
	}
	return "unknown"
}

// Snapshot is the single view of song time shared by every component for
// the duration of one tick.
type Snapshot struct {
	Clock    float64 // Hardware clock reading the snapshot was taken at
	Position float64 // Song position in seconds, never negative
	Frozen   bool    // Paused or frozen; gameplay must not advance
	State    State
}

type anchor struct {
	scheduledStart float64
	outputLatency  float64
	userOffset     float64
	frozen         bool
	freezePosition float64
}

// Transport plays one clip and reports where in it the player is.
type Transport struct {
	player audio.Player
	clip   *audio.Clip
	log    *slog.Logger

	state State
	a     anchor
	voice audio.Voice
}

// New creates a transport for clip. The calibration values are fixed for
// the run; only the user offset may be changed later through Realign.
func New(player audio.Player, clip *audio.Clip, outputLatency, userOffset float64, log *slog.Logger) *Transport {
	if nil == log {
		log = slog.Default()
	}
	return &Transport{
		player: player,
		clip:   clip,
		log:    log,
		a: anchor{
			outputLatency: math.Max(0, outputLatency),
			userOffset:    userOffset,
		},
	}
}

// Start schedules the clip leadSeconds from now.
func (t *Transport) Start(leadSeconds float64) error {
	if nil == t.clip {
		return audio.ErrNoClip
	}
	start := t.player.Now() + leadSeconds
	v, err := t.player.Schedule(t.clip, start, 0)
	if nil != err {
		return fmt.Errorf("unable to start song: %w", err)
	}
	t.voice = v
	t.a.scheduledStart = start
	t.a.frozen = false
	t.state = Scheduled
	t.log.Info("song scheduled", "clip", t.clip.Name, "start", start,
		"latency", t.a.outputLatency, "offset", t.a.userOffset)
	return nil
}

// State reports the transport state, moving Scheduled to Playing once the
// scheduled start has been reached.
func (t *Transport) State() State {
	if t.state == Scheduled && t.player.Now() >= t.a.scheduledStart {
		t.state = Playing
	}
	return t.state
}

func (t *Transport) IsFrozen() bool {
	return t.a.frozen
}

// Position is the song position right now.
func (t *Transport) Position() float64 {
	if t.a.frozen {
		return t.a.freezePosition
	}
	return t.PositionAt(t.player.Now())
}

// PositionAt converts a clock reading to song time using the current
// anchor, ignoring freeze.
func (t *Transport) PositionAt(clock float64) float64 {
	return math.Max(0, clock-t.a.scheduledStart-t.a.outputLatency-t.a.userOffset)
}

// Snapshot reads the clock once and returns a consistent view of song time.
func (t *Transport) Snapshot() Snapshot {
	now := t.player.Now()
	state := t.State()
	pos := t.a.freezePosition
	if !t.a.frozen {
		pos = t.PositionAt(now)
	}
	return Snapshot{Clock: now, Position: pos, Frozen: t.a.frozen, State: state}
}

// Pause holds the song position and silences the song.
func (t *Transport) Pause() {
	t.hold(Paused)
}

// Freeze holds the song position like Pause. It is used when gameplay is
// suspended by the game itself rather than the player.
func (t *Transport) Freeze() {
	t.hold(Frozen)
}

func (t *Transport) hold(s State) {
	switch t.State() {
	case Scheduled, Playing:
	case Paused, Frozen:
		t.state = s
		return
	default:
		return
	}
	t.a.freezePosition = t.Position()
	t.a.frozen = true
	t.state = s
	if nil != t.voice {
		t.voice.Stop()
		t.voice = nil
	}
	t.log.Debug("song held", "state", s, "position", t.a.freezePosition)
}

// Resume continues exactly where the song was held.
func (t *Transport) Resume() error {
	if t.state != Paused && t.state != Frozen {
		return nil
	}
	now := t.player.Now()
	t.a.scheduledStart = now - t.a.freezePosition - t.a.outputLatency - t.a.userOffset
	if err := t.reschedule(now); nil != err {
		return err
	}
	t.a.frozen = false
	t.state = Scheduled
	t.State()
	t.log.Debug("song resumed", "position", t.a.freezePosition)
	return nil
}

// Realign changes the user offset without moving the song position. Only
// the relation between audio and song time changes, so the song voice is
// restarted to match the new anchor.
func (t *Transport) Realign(userOffset float64) error {
	if userOffset == t.a.userOffset {
		return nil
	}
	if t.a.frozen || t.state == Idle {
		t.a.userOffset = userOffset
		return nil
	}
	now := t.player.Now()
	// Unclamped so a realign during pre-roll keeps the remaining lead.
	pos := now - t.a.scheduledStart - t.a.outputLatency - t.a.userOffset
	t.a.userOffset = userOffset
	t.a.scheduledStart = now - pos - t.a.outputLatency - t.a.userOffset
	if nil != t.voice {
		t.voice.Stop()
		t.voice = nil
	}
	if err := t.reschedule(now); nil != err {
		return err
	}
	t.log.Info("offset realigned", "offset", userOffset, "position", pos)
	return nil
}

// reschedule starts the clip so that the sample for clip time c is output
// at scheduledStart+c.
func (t *Transport) reschedule(now float64) error {
	at, offset := t.a.scheduledStart, 0.0
	if at < now {
		at, offset = now, now-t.a.scheduledStart
	}
	if offset >= t.clip.Duration() {
		return nil
	}
	v, err := t.player.Schedule(t.clip, at, offset)
	if nil != err {
		return fmt.Errorf("unable to reschedule song: %w", err)
	}
	t.voice = v
	return nil
}

// Ended reports whether the song has been heard to its end.
func (t *Transport) Ended() bool {
	if t.State() != Playing {
		return false
	}
	if nil != t.voice && t.voice.Done() {
		return true
	}
	return t.Position() >= t.clip.Duration()
}

// Stop silences the song and returns the transport to idle.
func (t *Transport) Stop() {
	if nil != t.voice {
		t.voice.Stop()
		t.voice = nil
	}
	t.state = Idle
	t.a.frozen = false
}

func (t *Transport) UserOffset() float64 {
	return t.a.userOffset
}

func (t *Transport) OutputLatency() float64 {
	return t.a.outputLatency
}
