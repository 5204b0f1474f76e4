package spawn

import (
	"testing"

	"git.lost.host/meutraa/tapsync/internal/game"
	"git.lost.host/meutraa/tapsync/internal/transport"
)

func timeline(times ...float64) *game.Timeline {
	entries := make([]game.NoteEntry, len(times))
	for i, t := range times {
		entries[i] = game.NoteEntry{Token: string(rune('a' + i)), Time: t}
	}
	return game.NewTimeline(entries)
}

func at(pos float64) transport.Snapshot {
	return transport.Snapshot{Position: pos, State: transport.Playing}
}

func TestEqualTimesSpawnTogetherInOrder(t *testing.T) {
	s := NewScheduler(timeline(1.0, 1.0, 2.0), 0.5)
	if ev := s.Tick(at(0.49)); len(ev) != 0 {
		t.Fatalf("expected nothing before 0.5, got %v", ev)
	}
	ev := s.Tick(at(0.5))
	if len(ev) != 2 {
		t.Fatalf("expected two spawns, got %v", ev)
	}
	if ev[0].Index != 0 || ev[1].Index != 1 || ev[0].Entry.Token != "a" || ev[1].Entry.Token != "b" {
		t.Fatalf("expected timeline order, got %v", ev)
	}
	if ev[0].ArrivalDeadline != 1.0 {
		t.Fatalf("expected deadline 1.0, got %v", ev[0].ArrivalDeadline)
	}
	if s.Cursor() != 2 || s.Done() {
		t.Fatal("the 2.0 entry must not spawn yet")
	}
}

func TestNeverRespawns(t *testing.T) {
	s := NewScheduler(timeline(1.0, 2.0), 0.5)
	total := 0
	for pos := 0.0; pos < 5; pos += 0.1 {
		total += len(s.Tick(at(pos)))
	}
	if total != 2 || !s.Done() {
		t.Fatalf("expected each entry once, got %v", total)
	}
	if _, ok := s.Next(); ok {
		t.Fatal("no next entry expected")
	}
}

func TestLateTickCatchesUp(t *testing.T) {
	s := NewScheduler(timeline(1, 2, 3, 10), 1)
	if ev := s.Tick(at(5)); len(ev) != 3 {
		t.Fatalf("expected three spawns, got %v", ev)
	}
	if next, ok := s.Next(); !ok || next != 9 {
		t.Fatalf("expected next spawn at 9, got %v", next)
	}
}

func TestFrozenSuspendsSpawning(t *testing.T) {
	s := NewScheduler(timeline(1.0), 0.5)
	frozen := at(3)
	frozen.Frozen = true
	if ev := s.Tick(frozen); len(ev) != 0 {
		t.Fatalf("expected nothing while frozen, got %v", ev)
	}
	if s.Cursor() != 0 {
		t.Fatal("cursor moved while frozen")
	}
	if ev := s.Tick(at(3)); len(ev) != 1 {
		t.Fatalf("expected spawn after unfreeze, got %v", ev)
	}
}

func TestEmptyTimeline(t *testing.T) {
	s := NewScheduler(game.NewTimeline(nil), 0.5)
	if !s.Done() || len(s.Tick(at(1))) != 0 {
		t.Fatal("empty timeline should be done immediately")
	}
}
