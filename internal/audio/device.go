package audio

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
)

// tapLength is how much output history each voice keeps for Level.
const tapLength = 250 * time.Millisecond

// Device mixes every scheduled voice into a single stream played by the
// speaker. The number of samples the speaker has pulled is the output
// clock, so it advances with the sound card rather than the frame rate.
type Device struct {
	mu     sync.Mutex
	rate   beep.SampleRate
	pos    int
	voices []*voice
	open   bool
	mix    [][2]float64
	log    *slog.Logger
}

func NewDevice(rate beep.SampleRate, log *slog.Logger) *Device {
	if nil == log {
		log = slog.Default()
	}
	return &Device{rate: rate, log: log}
}

// Open starts the speaker with the given buffer length and attaches the
// mixer to it.
func (d *Device) Open(buffer time.Duration) error {
	if err := speaker.Init(d.rate, d.rate.N(buffer)); nil != err {
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	d.mu.Lock()
	d.open = true
	d.mu.Unlock()
	speaker.Play(d)
	d.log.Info("audio device open", "rate", int(d.rate), "buffer", buffer)
	return nil
}

func (d *Device) SampleRate() beep.SampleRate {
	return d.rate
}

// Format is the format synthesized clips should be made in.
func (d *Device) Format() beep.Format {
	return beep.Format{SampleRate: d.rate, NumChannels: 2, Precision: 2}
}

// Now returns the number of seconds of audio handed to the speaker.
func (d *Device) Now() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rate.D(d.pos).Seconds()
}

func (d *Device) Schedule(clip *Clip, at, offset float64) (Voice, error) {
	if nil == clip {
		return nil, ErrNoClip
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return nil, ErrDeviceUnavailable
	}
	start := d.rate.N(seconds(at))
	if start < d.pos {
		start = d.pos
	}
	v := &voice{
		dev:   d,
		start: start,
		s:     clip.streamer(offset, d.rate),
		tap:   newTap(d.rate.N(tapLength)),
	}
	d.voices = append(d.voices, v)
	d.log.Debug("voice scheduled", "clip", clip.Name, "at", at, "offset", offset)
	return v, nil
}

// Stream implements beep.Streamer. It never runs dry; silence is produced
// when nothing is scheduled so the clock keeps moving.
func (d *Device) Stream(samples [][2]float64) (int, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i := range samples {
		samples[i] = [2]float64{}
	}
	if len(d.mix) < len(samples) {
		d.mix = make([][2]float64, len(samples))
	}

	live := d.voices[:0]
	for _, v := range d.voices {
		if v.stopped {
			continue
		}
		skip := v.start - d.pos
		if skip >= len(samples) {
			live = append(live, v)
			continue
		}
		if skip < 0 {
			skip = 0
		}
		buf := d.mix[:len(samples)-skip]
		n, ok := v.s.Stream(buf)
		for i := 0; i < n; i++ {
			samples[skip+i][0] += buf[i][0]
			samples[skip+i][1] += buf[i][1]
		}
		v.tap.write(buf[:n])
		if !ok || n < len(buf) {
			v.done = true
			continue
		}
		live = append(live, v)
	}
	// Clear the tail so finished voices can be collected.
	for i := len(live); i < len(d.voices); i++ {
		d.voices[i] = nil
	}
	d.voices = live
	d.pos += len(samples)
	return len(samples), true
}

func (d *Device) Err() error {
	return nil
}

type voice struct {
	dev     *Device
	start   int
	s       beep.Streamer
	tap     *tap
	stopped bool
	done    bool
}

func (v *voice) Level(window float64) float64 {
	v.dev.mu.Lock()
	defer v.dev.mu.Unlock()
	return v.tap.rms(v.dev.rate.N(seconds(window)))
}

func (v *voice) Done() bool {
	v.dev.mu.Lock()
	defer v.dev.mu.Unlock()
	return v.done
}

func (v *voice) Stop() {
	v.dev.mu.Lock()
	defer v.dev.mu.Unlock()
	v.stopped = true
}
