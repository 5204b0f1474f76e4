package theme

import (
	"fmt"
	"image/color"
	"math"
	"strings"

	"git.lost.host/meutraa/tapsync/internal/game"
	"git.lost.host/meutraa/tapsync/internal/judge"
)

type DefaultTheme struct {
}

func (t *DefaultTheme) RenderNote(token string, state game.NoteState, outcome game.Outcome) string {
	switch state {
	case game.InZone:
		return paint(zoneColor, "["+token+"]")
	case game.Resolved, game.MissedByTimeout:
		return paint(OutcomeColor(outcome), token)
	}
	return paint(travelColor, token)
}

func (t *DefaultTheme) RenderTarget(width int) string {
	if width < 1 {
		width = 1
	}
	return paint(targetColor, strings.Repeat(targetSym, width))
}

// RenderJudgement shows the outcome and how early (-) or late (+) it was.
func (t *DefaultTheme) RenderJudgement(j judge.Judgement) string {
	name := j.Outcome.String()
	switch {
	case j.Timeout:
		return paint(OutcomeColor(j.Outcome), name)
	case j.WrongPosition:
		return paint(OutcomeColor(j.Outcome), name+" (position)")
	}
	ms := int(math.Round(j.Delta * 1000))
	return paint(OutcomeColor(j.Outcome), fmt.Sprintf("%v %+dms", name, ms))
}

const (
	targetSym = "│"
)

var (
	travelColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	zoneColor   = color.RGBA{R: 236, G: 195, B: 0, A: 255}
	targetColor = color.RGBA{R: 106, G: 106, B: 106, A: 255}

	outcomeColors = [len(game.Outcomes)]color.RGBA{
		game.Perfect: {R: 0, G: 236, B: 128, A: 255},
		game.Great:   {R: 0, G: 118, B: 236, A: 255},
		game.Good:    {R: 106, G: 0, B: 236, A: 255},
		game.Miss:    {R: 236, G: 30, B: 0, A: 255},
	}
)

func OutcomeColor(o game.Outcome) color.RGBA {
	if int(o) >= len(outcomeColors) {
		return travelColor
	}
	return outcomeColors[o]
}

func paint(c color.RGBA, s string) string {
	return fmt.Sprintf("\033[38;2;%v;%v;%vm%v\033[0m", c.R, c.G, c.B, s)
}
