// Package round runs one play of a song: calibration, countdown, and the
// per tick spawn and judge pump.
package round

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"git.lost.host/meutraa/tapsync/internal/audio"
	"git.lost.host/meutraa/tapsync/internal/calibrate"
	"git.lost.host/meutraa/tapsync/internal/config"
	"git.lost.host/meutraa/tapsync/internal/game"
	"git.lost.host/meutraa/tapsync/internal/judge"
	"git.lost.host/meutraa/tapsync/internal/observe"
	"git.lost.host/meutraa/tapsync/internal/parser"
	"git.lost.host/meutraa/tapsync/internal/score"
	"git.lost.host/meutraa/tapsync/internal/spawn"
	"git.lost.host/meutraa/tapsync/internal/store"
	"git.lost.host/meutraa/tapsync/internal/transport"
)

var (
	// ErrAborted wraps every error that ends a round early.
	ErrAborted    = errors.New("round aborted")
	ErrStopped    = errors.New("round stopped")
	ErrNotPlaying = errors.New("round is not playing")
)

type Phase uint8

const (
	Idle Phase = iota
	CalibratingLatency
	CalibratingOffset
	Countdown
	Playing
	Complete
	Aborted
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case CalibratingLatency:
		return "calibrating latency"
	case CalibratingOffset:
		return "calibrating offset"
	case Countdown:
		return "countdown"
	case Playing:
		return "playing"
	case Complete:
		return "complete"
	case Aborted:
		return "aborted"
	}
	return "unknown"
}

// Finished reports whether the round needs no more ticks.
func (p Phase) Finished() bool {
	return p == Complete || p == Aborted
}

// Options wires a controller to its collaborators. Store, Scorer, Metrics
// and Log may be nil.
type Options struct {
	Player   audio.Player
	Store    store.Store
	Scorer   score.Scorer
	Metrics  *observe.Metrics
	Log      *slog.Logger
	Timeline *game.Timeline
	Variant  config.Variant

	Song  *audio.Clip
	Tone  *audio.Clip // Played once to measure output latency
	Click *audio.Clip // Metronome for the offset calibration

	// Recalibrate runs the offset calibration even if an offset was saved.
	Recalibrate bool
	// UserOffset, when set, is used instead of any saved or measured offset.
	UserOffset *float64

	OnPhase     func(Phase)
	OnSpawn     func(*judge.Note)
	OnJudgement func(judge.Judgement)
}

// Controller is the round state machine. All methods must be called from
// the goroutine that calls Tick.
type Controller struct {
	o   Options
	cfg *judge.Config

	phase Phase
	err   error

	latency      *calibrate.LatencyCalibrator
	offset       *calibrate.OffsetCalibrator
	result       calibrate.Result
	savedOffset  float64
	hasSaved     bool
	countdownEnd float64

	transport *transport.Transport
	scheduler *spawn.Scheduler
	snap      transport.Snapshot
	notes     []*judge.Note
	taps      []game.TapEvent
	summary   score.Summary
}

func New(o Options) *Controller {
	if nil == o.Log {
		o.Log = slog.Default()
	}
	if nil == o.Scorer {
		o.Scorer = &score.DefaultScorer{}
	}
	if nil == o.Metrics {
		o.Metrics = observe.DefaultMetrics()
	}
	return &Controller{o: o, cfg: o.Variant.Judge()}
}

func (c *Controller) Phase() Phase {
	return c.phase
}

// Err is why the round was aborted, or nil.
func (c *Controller) Err() error {
	return c.err
}

// Calibration is the latency and offset the song is played with.
func (c *Controller) Calibration() calibrate.Result {
	return c.result
}

// Snapshot is the song time used by the most recent tick.
func (c *Controller) Snapshot() transport.Snapshot {
	return c.snap
}

// Notes returns the notes currently on screen, oldest first.
func (c *Controller) Notes() []*judge.Note {
	return append([]*judge.Note(nil), c.notes...)
}

// Summary is only complete once the phase is Complete.
func (c *Controller) Summary() score.Summary {
	return c.summary
}

// CountdownRemaining is the clock time left before the song is started.
func (c *Controller) CountdownRemaining() float64 {
	if c.phase != Countdown {
		return 0
	}
	return max(0, c.countdownEnd-c.o.Player.Now())
}

// Transport exposes the song transport once the song has started.
func (c *Controller) Transport() *transport.Transport {
	return c.transport
}

func (c *Controller) setPhase(p Phase) {
	if c.phase == p {
		return
	}
	c.o.Log.Info("round phase", "from", c.phase, "to", p)
	c.phase = p
	if nil != c.o.OnPhase {
		c.o.OnPhase(p)
	}
}

// Start begins a new round, stopping the current one first. A round with
// no song or no timeline is aborted straight away.
func (c *Controller) Start(ctx context.Context) error {
	if c.phase != Idle && !c.phase.Finished() {
		c.Stop(ctx)
	}
	c.reset()

	if c.o.Timeline.Len() == 0 {
		return c.abort(ctx, parser.ErrEmptyTimeline)
	}
	if nil == c.o.Song || nil == c.o.Tone {
		return c.abort(ctx, audio.ErrNoClip)
	}

	c.loadSavedOffset()

	c.latency = calibrate.NewLatencyCalibrator(c.o.Player, c.o.Variant.Latency, c.o.Log)
	if err := c.latency.Begin(c.o.Tone); nil != err {
		return c.abort(ctx, err)
	}
	c.setPhase(CalibratingLatency)
	return nil
}

func (c *Controller) reset() {
	c.err = nil
	c.latency, c.offset = nil, nil
	c.result = calibrate.Result{}
	c.transport, c.scheduler = nil, nil
	c.snap = transport.Snapshot{}
	c.notes, c.taps = nil, nil
	c.summary = score.Summary{}
	c.o.Scorer.Reset()
	c.phase = Idle
}

func (c *Controller) loadSavedOffset() {
	c.savedOffset, c.hasSaved = 0, false
	if nil == c.o.Store {
		return
	}
	offset, err := c.o.Store.LoadUserOffset()
	switch {
	case nil == err:
		c.savedOffset, c.hasSaved = offset, true
	case errors.Is(err, store.ErrNotFound):
	default:
		c.o.Log.Warn("unable to load user offset", "err", err)
	}
}

// Tap queues a tap for the next tick. Taps outside the offset calibration
// and the song are dropped.
func (c *Controller) Tap(ev game.TapEvent) {
	if c.phase != CalibratingOffset && c.phase != Playing {
		return
	}
	c.taps = append(c.taps, ev)
}

// Tick advances whichever phase is active by one step.
func (c *Controller) Tick(ctx context.Context) error {
	if err := ctx.Err(); nil != err {
		if !c.phase.Finished() && c.phase != Idle {
			c.Stop(ctx)
		}
		return err
	}
	switch c.phase {
	case CalibratingLatency:
		return c.tickLatency(ctx)
	case CalibratingOffset:
		return c.tickOffset(ctx)
	case Countdown:
		return c.tickCountdown(ctx)
	case Playing:
		c.tickPlaying(ctx)
	}
	return nil
}

func (c *Controller) tickLatency(ctx context.Context) error {
	if !c.latency.Tick().Finished() {
		return nil
	}
	latency, err := c.latency.Result()
	if nil != err {
		// Undetected is the only way a started latency calibration fails.
		c.o.Log.Warn("output latency not detected, using default",
			"default", c.o.Variant.DefaultLatency, "err", err)
		c.o.Metrics.RecordCalibrationFailure(ctx, "latency")
		latency = c.o.Variant.DefaultLatency
	}
	c.result.OutputLatency = max(0, latency)
	c.o.Metrics.RecordOutputLatency(ctx, c.result.OutputLatency)

	switch {
	case nil != c.o.UserOffset:
		c.result.UserOffset = *c.o.UserOffset
	case c.hasSaved && !c.o.Recalibrate:
		c.result.UserOffset = c.savedOffset
	default:
		var saver calibrate.OffsetSaver
		if nil != c.o.Store {
			saver = c.o.Store
		}
		c.offset = calibrate.NewOffsetCalibrator(c.o.Player, c.o.Variant.Offset, saver, c.o.Log)
		if err := c.offset.Begin(c.o.Click, c.result.OutputLatency); nil != err {
			return c.abort(ctx, err)
		}
		c.setPhase(CalibratingOffset)
		return nil
	}
	c.beginCountdown(ctx)
	return nil
}

func (c *Controller) tickOffset(ctx context.Context) error {
	for _, tap := range c.taps {
		c.offset.Tap(tap.Clock)
	}
	c.taps = c.taps[:0]
	if !c.offset.Tick().Finished() {
		return nil
	}
	offset, err := c.offset.Result()
	if nil != err {
		// The previous offset is kept rather than overwritten.
		offset = 0
		if c.hasSaved {
			offset = c.savedOffset
		}
		c.o.Log.Warn("user offset not calibrated, keeping previous", "offset", offset, "err", err)
		c.o.Metrics.RecordCalibrationFailure(ctx, "offset")
	}
	c.result.UserOffset = offset
	c.beginCountdown(ctx)
	return nil
}

func (c *Controller) beginCountdown(ctx context.Context) {
	c.o.Metrics.RecordUserOffset(ctx, c.result.UserOffset)
	c.countdownEnd = c.o.Player.Now() + c.o.Variant.Countdown
	c.taps = c.taps[:0]
	c.setPhase(Countdown)
}

func (c *Controller) tickCountdown(ctx context.Context) error {
	if c.o.Player.Now() < c.countdownEnd {
		return nil
	}
	c.transport = transport.New(c.o.Player, c.o.Song, c.result.OutputLatency, c.result.UserOffset, c.o.Log)
	if err := c.transport.Start(c.o.Variant.StartLead); nil != err {
		return c.abort(ctx, err)
	}
	c.scheduler = spawn.NewScheduler(c.o.Timeline, c.o.Variant.TravelDuration)
	c.snap = c.transport.Snapshot()
	c.setPhase(Playing)
	return nil
}

// tickPlaying reads the song position once and hands the same snapshot to
// the scheduler and to every note.
func (c *Controller) tickPlaying(ctx context.Context) {
	c.snap = c.transport.Snapshot()
	if c.snap.Frozen {
		c.taps = c.taps[:0]
		return
	}

	for _, ev := range c.scheduler.Tick(c.snap) {
		n := judge.NewNote(ev.Index, ev.Entry, ev.ArrivalDeadline, c.cfg)
		c.notes = append(c.notes, n)
		if nil != c.o.OnSpawn {
			c.o.OnSpawn(n)
		}
	}

	for _, tap := range c.taps {
		n := c.route(tap)
		if nil == n {
			c.o.Log.Debug("stray tap", "x", tap.Position.X, "y", tap.Position.Y, "position", c.snap.Position)
			continue
		}
		if j, ok := n.Input(c.snap); ok {
			c.record(ctx, j)
		}
	}
	c.taps = c.taps[:0]

	for _, n := range c.notes {
		if j, ok := n.Tick(c.snap); ok {
			c.record(ctx, j)
		}
	}

	live := c.notes[:0]
	for _, n := range c.notes {
		if !n.Expired(c.snap.Position, c.o.Variant.CleanupDelay) {
			live = append(live, n)
		}
	}
	clear(c.notes[len(live):])
	c.notes = live

	if c.scheduler.Done() && c.transport.Ended() && c.unresolved() == 0 {
		c.complete(ctx)
	}
}

// route finds the unresolved note nearest to the tap, within HitRadius.
func (c *Controller) route(tap game.TapEvent) *judge.Note {
	var best *judge.Note
	bestDistance := c.o.Variant.HitRadius
	for _, n := range c.notes {
		if n.State().Terminal() {
			continue
		}
		if d := n.DistanceTo(c.snap.Position, tap.Position); d <= bestDistance {
			best, bestDistance = n, d
		}
	}
	return best
}

func (c *Controller) unresolved() int {
	count := 0
	for _, n := range c.notes {
		if !n.State().Terminal() {
			count++
		}
	}
	return count
}

func (c *Controller) record(ctx context.Context, j judge.Judgement) {
	c.o.Scorer.Record(j)
	c.o.Metrics.RecordJudgement(ctx, j.Outcome.String(), c.o.Variant.Name)
	c.o.Log.Debug("judged", "token", j.Entry.Token, "outcome", j.Outcome, "delta", j.Delta,
		"timeout", j.Timeout, "wrong_position", j.WrongPosition)
	if nil != c.o.OnJudgement {
		c.o.OnJudgement(j)
	}
}

func (c *Controller) complete(ctx context.Context) {
	c.transport.Stop()
	c.summary = c.o.Scorer.Summary()
	if nil != c.o.Store {
		r := &store.Round{
			Sum:           store.HashTimeline(c.o.Timeline),
			Variant:       c.o.Variant.Name,
			Leniency:      c.o.Variant.Leniency,
			OutputLatency: c.result.OutputLatency,
			UserOffset:    c.transport.UserOffset(),
			Summary:       c.summary,
			Judgements:    c.o.Scorer.Judgements(),
		}
		if err := c.o.Store.SaveRound(r); nil != err {
			c.o.Log.Error("unable to save round", "err", err)
		}
	}
	c.o.Metrics.RecordRound(ctx, "complete")
	c.o.Log.Info("round complete", "accuracy", c.summary.Accuracy,
		"mean", c.summary.Mean, "stdev", c.summary.Stdev, "judged", c.summary.Total)
	c.setPhase(Complete)
}

// cancel stops every outstanding calibration, grace timer and voice.
func (c *Controller) cancel() {
	if nil != c.latency {
		c.latency.Cancel()
	}
	if nil != c.offset {
		c.offset.Cancel()
	}
	if nil != c.transport {
		c.transport.Stop()
	}
	c.notes, c.taps = nil, nil
}

func (c *Controller) abort(ctx context.Context, err error) error {
	c.cancel()
	c.err = fmt.Errorf("%w: %w", ErrAborted, err)
	c.o.Metrics.RecordRound(ctx, "aborted")
	c.o.Log.Error("round aborted", "phase", c.phase, "err", err)
	c.setPhase(Aborted)
	return c.err
}

// Stop ends the round. Nothing started by the round fires afterwards.
func (c *Controller) Stop(ctx context.Context) {
	if c.phase == Idle || c.phase.Finished() {
		return
	}
	c.cancel()
	c.err = ErrStopped
	c.o.Metrics.RecordRound(ctx, "stopped")
	c.setPhase(Aborted)
}

// Pause holds the song. Spawning and judging stop until Resume.
func (c *Controller) Pause() error {
	if c.phase != Playing {
		return ErrNotPlaying
	}
	c.transport.Pause()
	return nil
}

// Freeze holds the song like Pause, for holds the game decides on.
func (c *Controller) Freeze() error {
	if c.phase != Playing {
		return ErrNotPlaying
	}
	c.transport.Freeze()
	return nil
}

func (c *Controller) Resume() error {
	if c.phase != Playing {
		return ErrNotPlaying
	}
	if err := c.transport.Resume(); nil != err {
		return fmt.Errorf("unable to resume: %w", err)
	}
	return nil
}

// Realign moves the user offset during play and saves it.
func (c *Controller) Realign(userOffset float64) error {
	if c.phase != Playing {
		return ErrNotPlaying
	}
	if err := c.transport.Realign(userOffset); nil != err {
		return fmt.Errorf("unable to realign: %w", err)
	}
	c.result.UserOffset = userOffset
	if nil != c.o.Store {
		if err := c.o.Store.SaveUserOffset(userOffset); nil != err {
			c.o.Log.Error("unable to save user offset", "err", err)
		}
	}
	return nil
}
