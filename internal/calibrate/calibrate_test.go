package calibrate

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"

	"git.lost.host/meutraa/tapsync/internal/audio"
	"git.lost.host/meutraa/tapsync/internal/audio/mock"
	"github.com/faiface/beep"
)

var format = beep.Format{SampleRate: 1000, NumChannels: 2, Precision: 2}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func tone() *audio.Clip {
	return audio.Tone(format, 440, 1, 0.5)
}

func click() *audio.Clip {
	return audio.Click(format, 1000, 0.05, 0.8, 60)
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

type memorySaver struct {
	saved []float64
}

func (m *memorySaver) SaveUserOffset(offset float64) error {
	m.saved = append(m.saved, offset)
	return nil
}

func TestLatencyDetected(t *testing.T) {
	p := mock.NewPlayer(50)
	p.Delay = 0.08
	c := NewLatencyCalibrator(p, DefaultLatencyConfig, quiet())
	if err := c.Begin(tone()); nil != err {
		t.Fatal(err)
	}
	if v := p.Last(); !near(v.At, 50.2) {
		t.Fatalf("expected tone at 50.2, got %v", v.At)
	}
	ticks := 0
	for c.Tick() == Running {
		p.Clock.Advance(0.01)
		ticks++
		if ticks > 1000 {
			t.Fatal("calibration never finished")
		}
	}
	latency, err := c.Result()
	if nil != err {
		t.Fatal(err)
	}
	if latency < 0.08-1e-6 || latency > 0.09+1e-6 {
		t.Fatalf("expected latency near 0.08, got %v", latency)
	}
	if !p.Last().Stopped {
		t.Fatal("tone should be stopped once detected")
	}
}

func TestLatencyNeverNegative(t *testing.T) {
	p := mock.NewPlayer(0)
	p.Delay = -0.1
	c := NewLatencyCalibrator(p, DefaultLatencyConfig, quiet())
	if err := c.Begin(tone()); nil != err {
		t.Fatal(err)
	}
	p.Clock.Advance(0.15)
	if c.Tick() != Done {
		t.Fatal("expected detection")
	}
	if l, _ := c.Result(); l != 0 {
		t.Fatalf("expected clamp to 0, got %v", l)
	}
}

func TestLatencyUndetected(t *testing.T) {
	p := mock.NewPlayer(0)
	p.Level = 0.0005
	cfg := DefaultLatencyConfig
	cfg.Timeout = 0.5
	c := NewLatencyCalibrator(p, cfg, quiet())
	if err := c.Begin(tone()); nil != err {
		t.Fatal(err)
	}
	for i := 0; i < 100 && c.Tick() == Running; i++ {
		p.Clock.Advance(0.01)
	}
	if c.Status() != Failed {
		t.Fatalf("expected failure, got %v", c.Status())
	}
	if p.Clock.Now() < 0.7-1e-9 {
		t.Fatalf("gave up too early at %v", p.Clock.Now())
	}
	if _, err := c.Result(); !errors.Is(err, ErrUndetected) {
		t.Fatalf("expected ErrUndetected, got %v", err)
	}
}

func TestLatencyGivesUpWhenClockStalls(t *testing.T) {
	p := mock.NewPlayer(0)
	p.Level = 0
	cfg := DefaultLatencyConfig
	cfg.MaxTicks = 10
	c := NewLatencyCalibrator(p, cfg, quiet())
	if err := c.Begin(tone()); nil != err {
		t.Fatal(err)
	}
	for i := 0; i < 9; i++ {
		if c.Tick() != Running {
			t.Fatalf("finished after %v ticks", i+1)
		}
	}
	if c.Tick() != Failed {
		t.Fatal("expected failure after the tick budget")
	}
}

func TestLatencyDeviceUnavailable(t *testing.T) {
	p := mock.NewPlayer(0)
	p.Err = audio.ErrDeviceUnavailable
	c := NewLatencyCalibrator(p, DefaultLatencyConfig, quiet())
	if err := c.Begin(tone()); !errors.Is(err, audio.ErrDeviceUnavailable) {
		t.Fatalf("expected device error, got %v", err)
	}
}

func TestLatencyCancel(t *testing.T) {
	p := mock.NewPlayer(0)
	c := NewLatencyCalibrator(p, DefaultLatencyConfig, quiet())
	if err := c.Begin(tone()); nil != err {
		t.Fatal(err)
	}
	c.Tick()
	c.Cancel()
	p.Clock.Advance(1)
	if c.Tick() != Cancelled {
		t.Fatal("cancelled calibration must stay cancelled")
	}
	if _, err := c.Result(); !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if !p.Last().Stopped {
		t.Fatal("tone should be stopped on cancel")
	}
}

func offsetCalibrator(t *testing.T, p *mock.Player, cfg OffsetConfig, saver OffsetSaver, latency float64) *OffsetCalibrator {
	t.Helper()
	c := NewOffsetCalibrator(p, cfg, saver, quiet())
	if err := c.Begin(click(), latency); nil != err {
		t.Fatal(err)
	}
	return c
}

func TestOffsetDropsOneMinimumAndOneMaximum(t *testing.T) {
	p := mock.NewPlayer(10)
	cfg := OffsetConfig{TapCount: 5, Interval: 2.5, PreRoll: 0.5, Min: -2, Max: 2, Timeout: 1}
	saver := &memorySaver{}
	c := offsetCalibrator(t, p, cfg, saver, 0.05)
	clicks := c.Clicks()
	if len(clicks) != 5 || !near(clicks[0], 10.5) || !near(clicks[4], 20.5) {
		t.Fatalf("unexpected click schedule %v", clicks)
	}
	for i, ms := range []float64{10, 20, 1000, -900, 30} {
		at := clicks[i] + 0.05 + ms/1000
		p.Clock.Set(at)
		if !c.Tap(at) {
			t.Fatalf("tap %v at %v rejected", i, at)
		}
		if i < 4 && c.Tick() != Running {
			t.Fatalf("finished early after tap %v", i)
		}
	}
	if c.Tick() != Done {
		t.Fatalf("expected done, got %v", c.Status())
	}
	offset, err := c.Result()
	if nil != err {
		t.Fatal(err)
	}
	if math.Abs(offset-0.020) > 1e-9 {
		t.Fatalf("expected 20ms, got %v", offset)
	}
	if len(saver.saved) != 1 || saver.saved[0] != offset {
		t.Fatalf("expected the offset to be saved once, got %v", saver.saved)
	}
	for _, v := range p.Voices {
		if !v.Stopped {
			t.Fatal("clicks should be stopped when calibration finishes")
		}
	}
}

func TestOffsetIsClamped(t *testing.T) {
	p := mock.NewPlayer(0)
	cfg := OffsetConfig{TapCount: 3, Interval: 1, PreRoll: 0.5, Min: -0.1, Max: 0.1, Timeout: 1}
	c := offsetCalibrator(t, p, cfg, nil, 0)
	for _, at := range c.Clicks() {
		c.Tap(at + 0.3)
	}
	c.Tick()
	if offset, err := c.Result(); nil != err || offset != 0.1 {
		t.Fatalf("expected clamp to 0.1, got %v %v", offset, err)
	}
}

func TestOffsetRejectsDuplicateAndEarlyTaps(t *testing.T) {
	p := mock.NewPlayer(0)
	cfg := OffsetConfig{TapCount: 4, Interval: 1, PreRoll: 1, Min: -1, Max: 1, Timeout: 1}
	c := offsetCalibrator(t, p, cfg, nil, 0)
	clicks := c.Clicks()
	if c.Tap(0.2) {
		t.Fatal("tap during pre-roll should be ignored")
	}
	if !c.Tap(clicks[0] + 0.02) {
		t.Fatal("first tap rejected")
	}
	if c.Tap(clicks[0] + 0.06) {
		t.Fatal("second tap for the same click should be rejected")
	}
	if !c.Tap(clicks[1] - 0.01) {
		t.Fatal("early tap for the next click rejected")
	}
	samples := c.Samples()
	if len(samples) != 2 || !near(samples[0], 0.02) || !near(samples[1], -0.01) {
		t.Fatalf("unexpected samples %v", samples)
	}
}

func TestOffsetSkipsMissedClicks(t *testing.T) {
	p := mock.NewPlayer(0)
	cfg := OffsetConfig{TapCount: 4, Interval: 1, PreRoll: 0.5, Min: -1, Max: 1, Timeout: 1}
	c := offsetCalibrator(t, p, cfg, nil, 0)
	clicks := c.Clicks()
	c.Tap(clicks[0] + 0.01)
	if !c.Tap(clicks[2] + 0.03) {
		t.Fatal("tap after a missed click rejected")
	}
	if c.Tap(clicks[3] + 0.9) {
		t.Fatal("tap past the last click should be ignored")
	}
	if samples := c.Samples(); len(samples) != 2 || !near(samples[1], 0.03) {
		t.Fatalf("unexpected samples %v", samples)
	}
	if c.Tick() != Failed {
		t.Fatal("all clicks consumed with two samples should fail")
	}
}

func TestOffsetInsufficientTapsKeepsPrevious(t *testing.T) {
	p := mock.NewPlayer(0)
	cfg := OffsetConfig{TapCount: 6, Interval: 0.5, PreRoll: 0.5, Min: -1, Max: 1, Timeout: 0.5}
	saver := &memorySaver{}
	c := offsetCalibrator(t, p, cfg, saver, 0.02)
	clicks := c.Clicks()
	c.Tap(clicks[0] + 0.04)
	c.Tap(clicks[1] + 0.03)
	p.Clock.Set(clicks[5] + 0.02 + 0.4)
	if c.Tick() != Running {
		t.Fatal("should wait for the tap window after the last click")
	}
	p.Clock.Set(clicks[5] + 0.02 + 0.6)
	if c.Tick() != Failed {
		t.Fatal("expected failure after the tap window")
	}
	if _, err := c.Result(); !errors.Is(err, ErrInsufficientTaps) {
		t.Fatalf("expected ErrInsufficientTaps, got %v", err)
	}
	if len(saver.saved) != 0 {
		t.Fatal("a failed calibration must not be saved")
	}
}

func TestOffsetCancel(t *testing.T) {
	p := mock.NewPlayer(0)
	saver := &memorySaver{}
	c := offsetCalibrator(t, p, DefaultOffsetConfig, saver, 0)
	c.Cancel()
	if c.Tap(c.Clicks()[0]) {
		t.Fatal("tap accepted after cancel")
	}
	p.Clock.Advance(100)
	if c.Tick() != Cancelled || len(saver.saved) != 0 {
		t.Fatal("cancelled calibration must not complete")
	}
	if len(p.Live()) != 0 {
		t.Fatal("clicks should be stopped on cancel")
	}
}

func TestOffsetRequiresMinimumTapCount(t *testing.T) {
	c := NewOffsetCalibrator(mock.NewPlayer(0), OffsetConfig{TapCount: 2, Interval: 1}, nil, quiet())
	if err := c.Begin(click(), 0); nil == err {
		t.Fatal("expected an error for two taps")
	}
}
