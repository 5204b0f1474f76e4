// Package score tallies judgements into the numbers shown after a round.
package score

import (
	"math"

	"git.lost.host/meutraa/tapsync/internal/game"
	"git.lost.host/meutraa/tapsync/internal/judge"
)

// weights of each outcome towards accuracy.
var weights = [len(game.Outcomes)]float64{
	game.Perfect: 1,
	game.Great:   0.75,
	game.Good:    0.4,
	game.Miss:    0,
}

type DefaultScorer struct {
	judgements []judge.Judgement
}

func (s *DefaultScorer) Record(j judge.Judgement) {
	s.judgements = append(s.judgements, j)
}

func (s *DefaultScorer) Judgements() []judge.Judgement {
	return append([]judge.Judgement(nil), s.judgements...)
}

func (s *DefaultScorer) Reset() {
	s.judgements = s.judgements[:0]
}

func (s *DefaultScorer) Summary() Summary {
	return Summarize(s.judgements)
}

// Summarize computes a summary. Timeouts and wrong position taps have no
// meaningful timing error and are left out of the error statistics.
func Summarize(judgements []judge.Judgement) Summary {
	var sum Summary
	var sumOfDistance, weighted float64
	for _, j := range judgements {
		sum.Counts[j.Outcome]++
		sum.Total++
		weighted += weights[j.Outcome]
		if j.Timeout || j.WrongPosition {
			continue
		}
		sum.Hits++
		sum.TotalError += math.Abs(j.Delta)
		sumOfDistance += j.Delta
	}
	if sum.Total > 0 {
		sum.Accuracy = 100 * weighted / float64(sum.Total)
	}
	if sum.Hits == 0 {
		return sum
	}
	sum.Mean = sumOfDistance / float64(sum.Hits)
	if sum.Hits > 1 {
		for _, j := range judgements {
			if j.Timeout || j.WrongPosition {
				continue
			}
			xi := j.Delta - sum.Mean
			sum.Stdev += xi * xi
		}
		sum.Stdev /= float64(sum.Hits - 1)
		sum.Stdev = math.Sqrt(sum.Stdev)
	}
	return sum
}
