package score

import (
	"git.lost.host/meutraa/tapsync/internal/game"
	"git.lost.host/meutraa/tapsync/internal/judge"
)

// Scorer receives every judgement of a round.
type Scorer interface {
	Record(j judge.Judgement)
	Summary() Summary
	Judgements() []judge.Judgement
	Reset()
}

type Summary struct {
	Counts     [len(game.Outcomes)]int
	Total      int
	Hits       int     // Judgements from a tap, including timing misses
	TotalError float64 // Sum of absolute timing error of hits, in seconds
	Mean       float64 // Mean signed timing error of hits, in seconds
	Stdev      float64
	Accuracy   float64 // 0 to 100
}

func (s Summary) Count(o game.Outcome) int {
	return s.Counts[o]
}
