package parser

import "git.lost.host/meutraa/tapsync/internal/game"

type Parser interface {
	Parse(file string) (*game.Timeline, error)
}
