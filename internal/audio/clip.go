package audio

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/vorbis"
	"github.com/faiface/beep/wav"
)

var ErrNoClip = errors.New("no audio clip")

// Clip is fully decoded audio held in memory so it can be started at any
// offset, any number of times.
type Clip struct {
	Name string
	buf  *beep.Buffer
}

// NewClip drains s into a new clip.
func NewClip(name string, format beep.Format, s beep.Streamer) *Clip {
	buf := beep.NewBuffer(format)
	buf.Append(s)
	return &Clip{Name: name, buf: buf}
}

func (c *Clip) Format() beep.Format {
	return c.buf.Format()
}

// Len is the clip length in samples at its own sample rate.
func (c *Clip) Len() int {
	return c.buf.Len()
}

// Duration is the clip length in seconds.
func (c *Clip) Duration() float64 {
	return c.buf.Format().SampleRate.D(c.buf.Len()).Seconds()
}

// streamer returns a streamer that starts offset seconds into the clip,
// resampled to rate if needed.
func (c *Clip) streamer(offset float64, rate beep.SampleRate) beep.Streamer {
	src := c.buf.Format().SampleRate
	from := src.N(seconds(offset))
	if from < 0 {
		from = 0
	}
	if from > c.buf.Len() {
		from = c.buf.Len()
	}
	var s beep.Streamer = c.buf.Streamer(from, c.buf.Len())
	if src != rate {
		s = beep.Resample(4, src, rate, s)
	}
	return s
}

// LoadClip decodes an mp3, ogg or wav file.
func LoadClip(path string) (*Clip, error) {
	f, err := os.Open(path)
	if nil != err {
		return nil, fmt.Errorf("%w: %v", ErrNoClip, err)
	}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	case ".ogg":
		streamer, format, err = vorbis.Decode(f)
	case ".wav":
		streamer, format, err = wav.Decode(f)
	default:
		f.Close()
		return nil, fmt.Errorf("%w: unsupported file type %q", ErrNoClip, filepath.Ext(path))
	}
	if nil != err {
		f.Close()
		return nil, fmt.Errorf("unable to decode %v: %w", path, err)
	}
	defer streamer.Close()

	return NewClip(filepath.Base(path), format, streamer), nil
}

// Tone is a sine wave at freq Hz.
func Tone(format beep.Format, freq, duration, volume float64) *Clip {
	n := format.SampleRate.N(seconds(duration))
	rate := float64(format.SampleRate)
	i := 0
	return NewClip("tone", format, beep.Take(n, beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		for j := range samples {
			v := math.Sin(2*math.Pi*freq*float64(i)/rate) * volume
			samples[j] = [2]float64{v, v}
			i++
		}
		return len(samples), true
	})))
}

// Click is a short metronome tick with an exponential decay.
func Click(format beep.Format, freq, duration, volume, decay float64) *Clip {
	n := format.SampleRate.N(seconds(duration))
	rate := float64(format.SampleRate)
	i := 0
	return NewClip("click", format, beep.Take(n, beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		for j := range samples {
			t := float64(i) / rate
			v := math.Sin(2*math.Pi*freq*t) * volume * math.Exp(-t*decay)
			samples[j] = [2]float64{v, v}
			i++
		}
		return len(samples), true
	})))
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
