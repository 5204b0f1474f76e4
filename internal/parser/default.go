// Package parser loads lyric timelines. A timeline file is YAML (or JSON)
// holding a list of {token, start, end} records, either at the top level
// or under a "tokens" key.
package parser

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"git.lost.host/meutraa/tapsync/internal/game"
	"gopkg.in/yaml.v3"
)

var ErrEmptyTimeline = errors.New("timeline has no usable entries")

type record struct {
	Token string   `yaml:"token"`
	Start *float64 `yaml:"start"`
	End   *float64 `yaml:"end"`
}

type document struct {
	Tokens []record `yaml:"tokens"`
}

type DefaultParser struct {
	Log *slog.Logger
}

func (p *DefaultParser) logger() *slog.Logger {
	if nil == p.Log {
		return slog.Default()
	}
	return p.Log
}

func (p *DefaultParser) Parse(file string) (*game.Timeline, error) {
	f, err := os.Open(file)
	if nil != err {
		return nil, fmt.Errorf("unable to open timeline: %w", err)
	}
	defer f.Close()

	t, err := p.ParseReader(f)
	if nil != err {
		return nil, fmt.Errorf("unable to parse %v: %w", file, err)
	}
	return t, nil
}

// ParseReader decodes a timeline. Malformed records are skipped with a
// warning; only a timeline with nothing usable is an error.
func (p *DefaultParser) ParseReader(r io.Reader) (*game.Timeline, error) {
	var root yaml.Node
	if err := yaml.NewDecoder(r).Decode(&root); nil != err {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyTimeline
		}
		return nil, fmt.Errorf("unable to decode yaml: %w", err)
	}

	var records []record
	body := &root
	if body.Kind == yaml.DocumentNode && len(body.Content) > 0 {
		body = body.Content[0]
	}
	switch body.Kind {
	case yaml.SequenceNode:
		if err := body.Decode(&records); nil != err {
			return nil, fmt.Errorf("unable to decode tokens: %w", err)
		}
	case yaml.MappingNode:
		var doc document
		if err := body.Decode(&doc); nil != err {
			return nil, fmt.Errorf("unable to decode tokens: %w", err)
		}
		records = doc.Tokens
	default:
		return nil, ErrEmptyTimeline
	}

	log := p.logger()
	entries := make([]game.NoteEntry, 0, len(records))
	for i, r := range records {
		token := strings.TrimSpace(r.Token)
		switch {
		case token == "":
			log.Warn("skipping timeline entry", "index", i, "reason", "empty token")
			continue
		case nil == r.Start:
			log.Warn("skipping timeline entry", "index", i, "token", token, "reason", "missing start")
			continue
		case *r.Start < 0:
			log.Warn("skipping timeline entry", "index", i, "token", token, "reason", "negative start")
			continue
		}
		end := *r.Start
		if nil != r.End {
			end = *r.End
		}
		if end < *r.Start {
			log.Warn("skipping timeline entry", "index", i, "token", token, "reason", "end before start")
			continue
		}
		entries = append(entries, game.NoteEntry{Token: token, Time: *r.Start, End: end})
	}
	if len(entries) == 0 {
		return nil, ErrEmptyTimeline
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Time < entries[j].Time
	})
	return game.NewTimeline(entries), nil
}
