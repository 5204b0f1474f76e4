package game

import "math"

// Point is an on-screen position in renderer units.
type Point struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

func (p Point) Distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Lerp returns the point t of the way from p to q.
func (p Point) Lerp(q Point, t float64) Point {
	return Point{X: p.X + (q.X-p.X)*t, Y: p.Y + (q.Y-p.Y)*t}
}

// TapEvent is a single discrete player input.
type TapEvent struct {
	Position Point
	Clock    float64 // Hardware clock reading when the tap was received
}
