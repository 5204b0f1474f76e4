package clock

import "testing"

func TestManualNeverGoesBackwards(t *testing.T) {
	m := NewManual(10)
	m.Advance(-1)
	m.Set(5)
	if m.Now() != 10 {
		t.Fatalf("expected 10, got %v", m.Now())
	}
	m.Advance(0.5)
	m.Set(12)
	if m.Now() != 12 {
		t.Fatalf("expected 12, got %v", m.Now())
	}
}

func TestWallIsMonotonic(t *testing.T) {
	c := Wall()
	a := c.Now()
	b := c.Now()
	if b < a {
		t.Fatalf("wall clock went backwards: %v then %v", a, b)
	}
}
