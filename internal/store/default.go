package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"git.lost.host/meutraa/tapsync/internal/game"
	"git.lost.host/meutraa/tapsync/internal/judge"
	"git.lost.host/meutraa/tapsync/internal/score"
	_ "github.com/mattn/go-sqlite3"
)

const userOffsetKey = "user_offset"

type DefaultStore struct {
	db  *sql.DB
	log *slog.Logger
}

// JudgementsCompact groups the judgement deltas of one outcome so a round
// stores as a small JSON document.
type JudgementsCompact struct {
	Outcome  game.Outcome `json:"o"`
	Indexes  []int        `json:"i"`
	Deltas   []float64    `json:"d"`
	Timeouts []int        `json:"t,omitempty"`
	Wrong    []int        `json:"w,omitempty"`
}

func compactJudgements(judgements []judge.Judgement) []JudgementsCompact {
	js := make([]JudgementsCompact, len(game.Outcomes))
	for i, o := range game.Outcomes {
		js[i].Outcome = o
		js[i].Indexes = []int{}
		js[i].Deltas = []float64{}
	}
	for _, j := range judgements {
		c := &js[j.Outcome]
		switch {
		case j.Timeout:
			c.Timeouts = append(c.Timeouts, j.Index)
		case j.WrongPosition:
			c.Wrong = append(c.Wrong, j.Index)
		default:
			c.Indexes = append(c.Indexes, j.Index)
			c.Deltas = append(c.Deltas, j.Delta)
		}
	}
	return js
}

// uncompactJudgements restores judgements against their timeline. Entries
// whose index is outside the timeline keep only their index.
func uncompactJudgements(js []JudgementsCompact, timeline *game.Timeline) []judge.Judgement {
	entry := func(i int) game.NoteEntry {
		if i >= 0 && i < timeline.Len() {
			return timeline.At(i)
		}
		return game.NoteEntry{}
	}
	out := []judge.Judgement{}
	for _, c := range js {
		for k, i := range c.Indexes {
			j := judge.Judgement{Index: i, Entry: entry(i), Outcome: c.Outcome}
			if k < len(c.Deltas) {
				j.Delta = c.Deltas[k]
			}
			out = append(out, j)
		}
		for _, i := range c.Timeouts {
			out = append(out, judge.Judgement{Index: i, Entry: entry(i), Outcome: c.Outcome, Timeout: true})
		}
		for _, i := range c.Wrong {
			out = append(out, judge.Judgement{Index: i, Entry: entry(i), Outcome: c.Outcome, WrongPosition: true})
		}
	}
	return out
}

// Open opens or creates the database at path.
func Open(path string, log *slog.Logger) (*DefaultStore, error) {
	if nil == log {
		log = slog.Default()
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("unable to open %v: %w", path, err)
	}

	initStatement := `
	create table if not exists settings
	  (
		  key text not null primary key,
		  value text not null
	  );
	create table if not exists rounds
	  (
		  id integer not null primary key,
		  sum text not null,
		  variant text,
		  leniency real,
		  output_latency real,
		  user_offset real,
		  accuracy real,
		  played_at integer,
		  judgements blob
	  );
	create index if not exists rounds_sum on rounds(sum);
	`
	if _, err = db.Exec(initStatement); nil != err {
		db.Close()
		return nil, fmt.Errorf("unable to create tables: %w", err)
	}

	return &DefaultStore{db: db, log: log}, nil
}

func (s *DefaultStore) Close() error {
	if nil != s.db {
		return s.db.Close()
	}
	return nil
}

// HashTimeline identifies a timeline by its tokens and times.
func HashTimeline(t *game.Timeline) string {
	h := sha256.New()
	for _, e := range t.Entries() {
		h.Write([]byte(e.Token))
		h.Write([]byte{0})
		h.Write([]byte(strconv.FormatFloat(e.Time, 'f', 6, 64)))
		h.Write([]byte{0})
	}
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

func (s *DefaultStore) LoadUserOffset() (float64, error) {
	var value string
	err := s.db.QueryRow("select value from settings where key = ?", userOffsetKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if nil != err {
		return 0, fmt.Errorf("unable to load user offset: %w", err)
	}
	offset, err := strconv.ParseFloat(value, 64)
	if nil != err {
		return 0, fmt.Errorf("unable to parse user offset %q: %w", value, err)
	}
	return offset, nil
}

func (s *DefaultStore) SaveUserOffset(offset float64) error {
	_, err := s.db.Exec(
		"insert into settings(key, value) values(?, ?) on conflict(key) do update set value = excluded.value",
		userOffsetKey, strconv.FormatFloat(offset, 'g', -1, 64),
	)
	if nil != err {
		return fmt.Errorf("unable to save user offset: %w", err)
	}
	return nil
}

func (s *DefaultStore) SaveRound(r *Round) error {
	data, err := json.Marshal(compactJudgements(r.Judgements))
	if nil != err {
		return fmt.Errorf("unable to marshal judgements: %w", err)
	}
	playedAt := r.PlayedAt
	if playedAt.IsZero() {
		playedAt = time.Now()
	}
	_, err = s.db.Exec(
		"insert into rounds(sum, variant, leniency, output_latency, user_offset, accuracy, played_at, judgements) values(?, ?, ?, ?, ?, ?, ?, ?)",
		r.Sum, r.Variant, r.Leniency, r.OutputLatency, r.UserOffset, r.Summary.Accuracy, playedAt.Unix(), data,
	)
	if nil != err {
		return fmt.Errorf("unable to save round: %w", err)
	}
	return nil
}

func (s *DefaultStore) LoadRounds(timeline *game.Timeline) ([]Round, error) {
	sum := HashTimeline(timeline)
	rows, err := s.db.Query(
		"select variant, leniency, output_latency, user_offset, played_at, judgements from rounds where sum = ? order by id",
		sum,
	)
	if nil != err {
		return nil, fmt.Errorf("unable to load rounds: %w", err)
	}
	defer rows.Close()

	rounds := []Round{}
	for rows.Next() {
		r := Round{Sum: sum}
		var playedAt int64
		var data []byte
		if err := rows.Scan(&r.Variant, &r.Leniency, &r.OutputLatency, &r.UserOffset, &playedAt, &data); nil != err {
			return nil, fmt.Errorf("unable to read round: %w", err)
		}
		var js []JudgementsCompact
		if err := json.Unmarshal(data, &js); nil != err {
			s.log.Warn("unable to unmarshal round judgements", "err", err)
			continue
		}
		r.PlayedAt = time.Unix(playedAt, 0)
		r.Judgements = uncompactJudgements(js, timeline)
		r.Summary = score.Summarize(r.Judgements)
		rounds = append(rounds, r)
	}
	return rounds, rows.Err()
}
