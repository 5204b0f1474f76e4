// Package store persists calibration and round history in SQLite.
package store

import (
	"errors"
	"time"

	"git.lost.host/meutraa/tapsync/internal/game"
	"git.lost.host/meutraa/tapsync/internal/judge"
	"git.lost.host/meutraa/tapsync/internal/score"
)

var ErrNotFound = errors.New("not found")

type Store interface {
	// LoadUserOffset returns the last saved user offset or ErrNotFound.
	LoadUserOffset() (float64, error)
	SaveUserOffset(offset float64) error

	// SaveRound records a finished round.
	SaveRound(r *Round) error
	// LoadRounds returns every round played on the timeline, oldest first.
	LoadRounds(timeline *game.Timeline) ([]Round, error)

	Close() error
}

type Round struct {
	Sum           string // Timeline hash
	Variant       string
	Leniency      float64
	OutputLatency float64
	UserOffset    float64
	Summary       score.Summary
	Judgements    []judge.Judgement
	PlayedAt      time.Time
}
