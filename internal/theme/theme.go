// Package theme decides how notes, the target and judgements look.
package theme

import (
	"git.lost.host/meutraa/tapsync/internal/game"
	"git.lost.host/meutraa/tapsync/internal/judge"
)

type Theme interface {
	RenderNote(token string, state game.NoteState, outcome game.Outcome) string
	RenderTarget(width int) string
	RenderJudgement(j judge.Judgement) string
}
