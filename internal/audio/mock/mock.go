// Package mock provides a scripted audio.Player driven by a manual clock.
package mock

import (
	"git.lost.host/meutraa/tapsync/internal/audio"
	"git.lost.host/meutraa/tapsync/internal/clock"
)

// Player records every schedule call. Voices become audible Delay seconds
// after their scheduled time, at Level loudness.
type Player struct {
	Clock  *clock.Manual
	Delay  float64
	Level  float64
	Err    error
	Voices []*Voice
}

func NewPlayer(start float64) *Player {
	return &Player{Clock: clock.NewManual(start), Level: 0.5}
}

func (p *Player) Now() float64 {
	return p.Clock.Now()
}

func (p *Player) Schedule(clip *audio.Clip, at, offset float64) (audio.Voice, error) {
	if nil != p.Err {
		return nil, p.Err
	}
	if nil == clip {
		return nil, audio.ErrNoClip
	}
	if at < p.Now() {
		at = p.Now()
	}
	v := &Voice{Clip: clip, At: at, Offset: offset, p: p}
	p.Voices = append(p.Voices, v)
	return v, nil
}

// Last returns the most recently scheduled voice.
func (p *Player) Last() *Voice {
	if len(p.Voices) == 0 {
		return nil
	}
	return p.Voices[len(p.Voices)-1]
}

// Live returns voices that have not been stopped.
func (p *Player) Live() []*Voice {
	var live []*Voice
	for _, v := range p.Voices {
		if !v.Stopped {
			live = append(live, v)
		}
	}
	return live
}

type Voice struct {
	Clip    *audio.Clip
	At      float64
	Offset  float64
	Stopped bool

	p *Player
}

func (v *Voice) Level(window float64) float64 {
	if v.Stopped || v.Done() {
		return 0
	}
	if v.p.Now() < v.At+v.p.Delay {
		return 0
	}
	return v.p.Level
}

func (v *Voice) Done() bool {
	if v.Stopped {
		return false
	}
	return v.p.Now() >= v.At+v.Clip.Duration()-v.Offset
}

func (v *Voice) Stop() {
	v.Stopped = true
}
