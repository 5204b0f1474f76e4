package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"git.lost.host/meutraa/tapsync/internal/audio"
	"git.lost.host/meutraa/tapsync/internal/config"
	"git.lost.host/meutraa/tapsync/internal/game"
	"git.lost.host/meutraa/tapsync/internal/input"
	"git.lost.host/meutraa/tapsync/internal/judge"
	"git.lost.host/meutraa/tapsync/internal/render"
	"git.lost.host/meutraa/tapsync/internal/round"
	"git.lost.host/meutraa/tapsync/internal/theme"
)

// offsetStep is how far one +/- press moves the user offset.
const offsetStep = 0.005

// judgementFrames is how long the last judgement stays on screen.
const judgementFrames = 90

type Position struct {
	X, Y int
}

type Program struct {
	Renderer render.Renderer
	Theme    theme.Theme
	Round    *round.Controller
	Variant  config.Variant
	Log      *slog.Logger

	FramePeriod time.Duration

	width, height int
	sideCol       int
	lastErr       error
	quit          bool
}

func (p *Program) Resize() {
	p.width, p.height = p.Renderer.Size()
	p.sideCol = 2
}

// screen maps a point in screen fractions to a terminal cell.
func (p *Program) screen(pt game.Point) Position {
	return Position{
		X: 1 + int(math.Round(pt.X*float64(p.width-1))),
		Y: 1 + int(math.Round(pt.Y*float64(p.height-1))),
	}
}

// Run draws frames and pumps the round until the player quits or ctx is
// done. Key events arrive on events from the input goroutine.
func (p *Program) Run(ctx context.Context, events <-chan input.Event) error {
	if err := p.Renderer.Init(); nil != err {
		return err
	}
	defer func() {
		// Restore the terminal state
		if err := p.Renderer.Deinit(); nil != err {
			p.Log.Error("unable to restore terminal", "err", err)
		}
	}()

	if err := p.Round.Start(ctx); nil != err {
		p.lastErr = err
	}

	err := p.Renderer.RenderLoop(ctx, p.FramePeriod, func(now time.Time) bool {
		p.Resize()
		if !p.Update(ctx, events) {
			return false
		}
		p.Render()
		return true
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Update applies queued key events and ticks the round once.
func (p *Program) Update(ctx context.Context, events <-chan input.Event) bool {
	for drained := false; !drained; {
		select {
		case ev, ok := <-events:
			if !ok {
				return false
			}
			p.apply(ctx, ev)
		default:
			drained = true
		}
	}
	if p.quit {
		return false
	}
	if err := p.Round.Tick(ctx); nil != err {
		if nil != ctx.Err() {
			return false
		}
		p.lastErr = err
	}
	return true
}

func (p *Program) apply(ctx context.Context, ev input.Event) {
	var err error
	switch ev.Action {
	case input.Tap:
		p.Round.Tap(game.TapEvent{Position: p.Variant.Target, Clock: ev.Clock})
	case input.Pause:
		if nil != p.Round.Transport() && p.Round.Transport().IsFrozen() {
			err = p.Round.Resume()
		} else {
			err = p.Round.Pause()
		}
	case input.Freeze:
		if nil != p.Round.Transport() && p.Round.Transport().IsFrozen() {
			err = p.Round.Resume()
		} else {
			err = p.Round.Freeze()
		}
	case input.OffsetUp:
		err = p.Round.Realign(p.Round.Calibration().UserOffset + offsetStep)
	case input.OffsetDown:
		err = p.Round.Realign(p.Round.Calibration().UserOffset - offsetStep)
	case input.Retry:
		if p.Round.Phase().Finished() {
			p.lastErr = p.Round.Start(ctx)
		}
	case input.Quit:
		p.quit = true
	}
	if nil != err && !errors.Is(err, round.ErrNotPlaying) {
		p.Log.Warn("command failed", "action", ev.Action, "err", err)
	}
}

func (p *Program) Render() {
	p.RenderStatic()
	switch p.Round.Phase() {
	case round.CalibratingLatency:
		p.centre("measuring audio latency...")
	case round.CalibratingOffset:
		p.centre("tap space on every click")
	case round.Countdown:
		p.centre(fmt.Sprintf("%v", int(math.Ceil(p.Round.CountdownRemaining()))))
	case round.Playing:
		p.RenderGame()
	case round.Complete:
		p.RenderSummary()
	case round.Aborted:
		p.centre(fmt.Sprintf("%v  (r to retry, q to quit)", p.lastErr))
	}
}

func (p *Program) centre(message string) {
	col := max(1, p.width/2-len(message)/2)
	p.Renderer.Fill(p.height/2, col, message)
}

// RenderStatic draws the target and the calibration in use.
func (p *Program) RenderStatic() {
	target := p.screen(p.Variant.Target)
	p.Renderer.Fill(target.Y, target.X, p.Theme.RenderTarget(1))

	cal := p.Round.Calibration()
	p.Renderer.Fill(2, p.sideCol, fmt.Sprintf("    Variant:  %v", p.Variant.Name))
	p.Renderer.Fill(3, p.sideCol, fmt.Sprintf("    Latency:  %6.1fms", cal.OutputLatency*1000))
	p.Renderer.Fill(4, p.sideCol, fmt.Sprintf("     Offset:  %+6.1fms", cal.UserOffset*1000))
}

func (p *Program) RenderGame() {
	snap := p.Round.Snapshot()
	for _, n := range p.Round.Notes() {
		pos := p.screen(n.Position(snap.Position))
		j, judged := n.Judgement()
		outcome := game.Miss
		if judged {
			outcome = j.Outcome
		}
		p.Renderer.Fill(pos.Y, pos.X, p.Theme.RenderNote(n.Entry.Token, n.State(), outcome))
	}
	if snap.Frozen {
		p.centre(snap.State.String())
	}
	p.Renderer.Fill(5, p.sideCol, fmt.Sprintf("   Position:  %6.2fs", snap.Position))
}

// Judged is the round's judgement hook.
func (p *Program) Judged(j judge.Judgement) {
	target := p.screen(p.Variant.Target)
	p.Renderer.AddDecoration(target.X, min(p.height, target.Y+2), p.Theme.RenderJudgement(j), judgementFrames)
}

func (p *Program) RenderSummary() {
	sum := p.Round.Summary()
	p.Renderer.Fill(10, p.sideCol, fmt.Sprintf("   Accuracy:  %6.2f%%", sum.Accuracy))
	p.Renderer.Fill(11, p.sideCol, fmt.Sprintf("      Stdev:  %6.1fms", sum.Stdev*1000))
	p.Renderer.Fill(12, p.sideCol, fmt.Sprintf("       Mean:  %+6.1fms", sum.Mean*1000))
	p.Renderer.Fill(13, p.sideCol, fmt.Sprintf("      Total:  %6v", sum.Total))
	for i, o := range game.Outcomes {
		p.Renderer.Fill(15+i, p.sideCol, fmt.Sprintf("%11v:  %6v", o, sum.Count(o)))
	}
	p.centre("r to retry, q to quit")
}

// tone and click are the calibration sounds at the device format.
func tone(d *audio.Device) *audio.Clip {
	return audio.Tone(d.Format(), 880, 0.5, 0.5)
}

func click(d *audio.Device) *audio.Clip {
	return audio.Click(d.Format(), 1500, 0.06, 0.8, 60)
}
