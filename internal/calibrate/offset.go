package calibrate

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"git.lost.host/meutraa/tapsync/internal/audio"
)

type OffsetConfig struct {
	TapCount int     `yaml:"tap_count"`
	Interval float64 `yaml:"interval"` // Seconds between clicks
	PreRoll  float64 `yaml:"pre_roll"` // Seconds before the first click
	Min      float64 `yaml:"min"`      // Offsets are clamped to [Min, Max]
	Max      float64 `yaml:"max"`
	Timeout  float64 `yaml:"timeout"` // Seconds after the last click to keep waiting for taps
}

var DefaultOffsetConfig = OffsetConfig{
	TapCount: 8,
	Interval: 0.75,
	PreRoll:  0.5,
	Min:      -0.3,
	Max:      0.3,
	Timeout:  1.0,
}

// OffsetSaver persists a successfully measured user offset.
type OffsetSaver interface {
	SaveUserOffset(offset float64) error
}

// OffsetCalibrator plays a row of metronome clicks and measures how far
// from each click the player taps.
type OffsetCalibrator struct {
	player audio.Player
	cfg    OffsetConfig
	saver  OffsetSaver
	log    *slog.Logger

	status  Status
	latency float64
	clicks  []float64
	voices  []audio.Voice
	next    int
	samples []float64
	offset  float64
	err     error
}

// NewOffsetCalibrator creates a calibrator. saver may be nil.
func NewOffsetCalibrator(player audio.Player, cfg OffsetConfig, saver OffsetSaver, log *slog.Logger) *OffsetCalibrator {
	if nil == log {
		log = slog.Default()
	}
	return &OffsetCalibrator{player: player, cfg: cfg, saver: saver, log: log}
}

// Begin schedules every click up front.
func (c *OffsetCalibrator) Begin(click *audio.Clip, outputLatency float64) error {
	if c.cfg.TapCount < MinTaps {
		return fmt.Errorf("tap count %v is below the minimum of %v", c.cfg.TapCount, MinTaps)
	}
	first := c.player.Now() + c.cfg.PreRoll
	c.clicks = make([]float64, c.cfg.TapCount)
	c.voices = c.voices[:0]
	for i := range c.clicks {
		c.clicks[i] = first + float64(i)*c.cfg.Interval
		v, err := c.player.Schedule(click, c.clicks[i], 0)
		if nil != err {
			c.stopClicks()
			return fmt.Errorf("unable to schedule calibration click: %w", err)
		}
		c.voices = append(c.voices, v)
	}
	c.latency = math.Max(0, outputLatency)
	c.next = 0
	c.samples = c.samples[:0]
	c.status = Running
	return nil
}

// Clicks returns the clock times the clicks were scheduled for.
func (c *OffsetCalibrator) Clicks() []float64 {
	return append([]float64(nil), c.clicks...)
}

// Tap records a player tap at the given clock time and reports whether it
// was matched to a click. Each click is consumed at most once. A tap more
// than half an interval before the next click belongs to a click that is
// already consumed, or to the pre-roll, and is ignored. A tap more than
// half an interval after it means that click was skipped.
func (c *OffsetCalibrator) Tap(at float64) bool {
	if c.status != Running {
		return false
	}
	half := c.cfg.Interval / 2
	for c.next < len(c.clicks) && at > c.clicks[c.next]+c.latency+half {
		c.log.Debug("calibration click skipped", "index", c.next)
		c.next++
	}
	if c.next >= len(c.clicks) {
		return false
	}
	expected := c.clicks[c.next] + c.latency
	if at < expected-half {
		return false
	}
	c.samples = append(c.samples, at-expected)
	c.next++
	return true
}

// Tick finishes the calibration once every click is consumed or the tap
// window after the last click has passed.
func (c *OffsetCalibrator) Tick() Status {
	if c.status != Running {
		return c.status
	}
	last := c.clicks[len(c.clicks)-1] + c.latency
	if c.next < len(c.clicks) && c.player.Now() <= last+c.cfg.Timeout {
		return c.status
	}
	c.finish()
	return c.status
}

func (c *OffsetCalibrator) finish() {
	c.stopClicks()
	offset, err := averageWithoutExtremes(c.samples)
	if nil != err {
		c.status = Failed
		c.err = err
		c.log.Warn("user offset not calibrated", "taps", len(c.samples), "err", err)
		return
	}
	c.offset = math.Min(c.cfg.Max, math.Max(c.cfg.Min, offset))
	c.status = Done
	c.log.Info("user offset measured", "offset", c.offset, "raw", offset, "taps", len(c.samples))
	if nil != c.saver {
		if err := c.saver.SaveUserOffset(c.offset); nil != err {
			c.log.Error("unable to save user offset", "err", err)
		}
	}
}

func (c *OffsetCalibrator) stopClicks() {
	for _, v := range c.voices {
		v.Stop()
	}
	c.voices = c.voices[:0]
}

func (c *OffsetCalibrator) Cancel() {
	if c.status == Running || c.status == Idle {
		c.stopClicks()
		c.status = Cancelled
	}
}

func (c *OffsetCalibrator) Status() Status {
	return c.status
}

// Samples returns the raw offsets collected so far, in tap order.
func (c *OffsetCalibrator) Samples() []float64 {
	return append([]float64(nil), c.samples...)
}

func (c *OffsetCalibrator) Result() (float64, error) {
	switch c.status {
	case Done:
		return c.offset, nil
	case Failed:
		return 0, c.err
	case Cancelled:
		return 0, ErrCancelled
	}
	return 0, ErrNotFinished
}

// averageWithoutExtremes drops exactly one lowest and one highest sample
// and averages the rest.
func averageWithoutExtremes(samples []float64) (float64, error) {
	if len(samples) < MinTaps {
		return 0, fmt.Errorf("%w: got %v, need %v", ErrInsufficientTaps, len(samples), MinTaps)
	}
	s := append([]float64(nil), samples...)
	sort.Float64s(s)
	s = s[1 : len(s)-1]
	sum := 0.0
	for _, v := range s {
		sum += v
	}
	return sum / float64(len(s)), nil
}
