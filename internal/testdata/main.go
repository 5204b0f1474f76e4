// Package testdata holds a short lyric timeline shared by tests.
package testdata

import "git.lost.host/meutraa/tapsync/internal/game"

// Timeline is the YAML form of GetTimeline.
const Timeline = `
tokens:
  - {token: "ha", start: 1.0, end: 1.3}
  - {token: "ne", start: 1.5, end: 1.8}
  - {token: "ul", start: 2.0, end: 2.4}
  - {token: "bo", start: 3.0, end: 3.2}
  - {token: "da", start: 3.0, end: 3.4}
  - {token: "ga", start: 4.5, end: 5.0}
`

const TimelineLen = 6

func GetTimeline() *game.Timeline {
	return game.NewTimeline([]game.NoteEntry{
		{Token: "ha", Time: 1.0, End: 1.3},
		{Token: "ne", Time: 1.5, End: 1.8},
		{Token: "ul", Time: 2.0, End: 2.4},
		{Token: "bo", Time: 3.0, End: 3.2},
		{Token: "da", Time: 3.0, End: 3.4},
		{Token: "ga", Time: 4.5, End: 5.0},
	})
}
