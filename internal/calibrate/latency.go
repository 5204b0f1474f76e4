package calibrate

import (
	"fmt"
	"log/slog"
	"math"

	"git.lost.host/meutraa/tapsync/internal/audio"
)

type LatencyConfig struct {
	Lead      float64 `yaml:"lead"`      // Seconds between scheduling the tone and its start
	Threshold float64 `yaml:"threshold"` // RMS level that counts as sound, full scale is 1
	Window    float64 `yaml:"window"`    // Seconds of output the RMS is taken over
	Timeout   float64 `yaml:"timeout"`   // Seconds after the scheduled start to give up
	MaxTicks  int     `yaml:"max_ticks"` // Ticks to give up after, in case the clock stalls
}

var DefaultLatencyConfig = LatencyConfig{
	Lead:      0.2,
	Threshold: 0.001,
	Window:    0.01,
	Timeout:   1.5,
	MaxTicks:  1200,
}

// LatencyCalibrator schedules a tone at a known clock time and polls the
// tone's output level once per tick until it is heard.
type LatencyCalibrator struct {
	player audio.Player
	cfg    LatencyConfig
	log    *slog.Logger

	status    Status
	voice     audio.Voice
	scheduled float64
	ticks     int
	latency   float64
}

func NewLatencyCalibrator(player audio.Player, cfg LatencyConfig, log *slog.Logger) *LatencyCalibrator {
	if nil == log {
		log = slog.Default()
	}
	return &LatencyCalibrator{player: player, cfg: cfg, log: log}
}

// Begin schedules the test tone. An error means no audio device is usable.
func (c *LatencyCalibrator) Begin(tone *audio.Clip) error {
	t0 := c.player.Now()
	c.scheduled = t0 + c.cfg.Lead
	v, err := c.player.Schedule(tone, c.scheduled, 0)
	if nil != err {
		return fmt.Errorf("unable to schedule calibration tone: %w", err)
	}
	c.voice = v
	c.ticks = 0
	c.status = Running
	return nil
}

// Tick takes one level sample.
func (c *LatencyCalibrator) Tick() Status {
	if c.status != Running {
		return c.status
	}
	c.ticks++
	now := c.player.Now()
	if c.voice.Level(c.cfg.Window) > c.cfg.Threshold {
		c.latency = math.Max(0, now-c.scheduled)
		c.finish(Done)
		c.log.Info("output latency measured", "latency", c.latency, "ticks", c.ticks)
		return c.status
	}
	if now-c.scheduled > c.cfg.Timeout || (c.cfg.MaxTicks > 0 && c.ticks >= c.cfg.MaxTicks) {
		c.finish(Failed)
		c.log.Warn("calibration tone not detected", "waited", now-c.scheduled, "ticks", c.ticks)
	}
	return c.status
}

func (c *LatencyCalibrator) finish(s Status) {
	c.status = s
	if nil != c.voice {
		c.voice.Stop()
		c.voice = nil
	}
}

// Cancel stops a running measurement. A cancelled calibrator never
// reports a result.
func (c *LatencyCalibrator) Cancel() {
	if c.status == Running || c.status == Idle {
		c.finish(Cancelled)
	}
}

func (c *LatencyCalibrator) Status() Status {
	return c.status
}

// Result is the measured latency. ErrUndetected means the caller should
// fall back to its default.
func (c *LatencyCalibrator) Result() (float64, error) {
	switch c.status {
	case Done:
		return c.latency, nil
	case Failed:
		return 0, ErrUndetected
	case Cancelled:
		return 0, ErrCancelled
	}
	return 0, ErrNotFinished
}
