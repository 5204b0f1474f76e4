package theme

import (
	"strings"
	"testing"

	"git.lost.host/meutraa/tapsync/internal/game"
	"git.lost.host/meutraa/tapsync/internal/judge"
)

func TestRenderNote(t *testing.T) {
	th := &DefaultTheme{}
	tests := []struct {
		state   game.NoteState
		outcome game.Outcome
		want    string
	}{
		{game.Traveling, game.Miss, "\033[38;2;255;255;255mlu\033[0m"},
		{game.InZone, game.Miss, "\033[38;2;236;195;0m[lu]\033[0m"},
		{game.Resolved, game.Perfect, "\033[38;2;0;236;128mlu\033[0m"},
		{game.MissedByTimeout, game.Miss, "\033[38;2;236;30;0mlu\033[0m"},
	}
	for _, test := range tests {
		if got := th.RenderNote("lu", test.state, test.outcome); got != test.want {
			t.Logf("%v: got %q, want %q", test.state, got, test.want)
			t.Fail()
		}
	}
}

func TestRenderJudgement(t *testing.T) {
	th := &DefaultTheme{}
	tests := []struct {
		j    judge.Judgement
		want string
	}{
		{judge.Judgement{Outcome: game.Great, Delta: -0.0724}, "great -72ms"},
		{judge.Judgement{Outcome: game.Perfect, Delta: 0.004}, "perfect +4ms"},
		{judge.Judgement{Outcome: game.Miss, Delta: 0.2, Timeout: true}, "miss\033"},
		{judge.Judgement{Outcome: game.Miss, WrongPosition: true}, "miss (position)"},
	}
	for _, test := range tests {
		if got := th.RenderJudgement(test.j); !strings.Contains(got, test.want) {
			t.Logf("got %q, want it to contain %q", got, test.want)
			t.Fail()
		}
	}
}

func TestRenderTarget(t *testing.T) {
	th := &DefaultTheme{}
	if got := th.RenderTarget(0); strings.Count(got, targetSym) != 1 {
		t.Log("target should be at least one cell wide", got)
		t.Fail()
	}
}
