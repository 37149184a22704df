// Package core holds the domain types shared by the simulation, its storage
// backends and the streaming protocol.
package core

import (
	"fmt"
	"math"
)

// Position is a tile coordinate on the battle grid.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Offset returns p shifted by dx, dy.
func (p Position) Offset(dx, dy int) Position {
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// Bearing returns the heading in degrees from one tile to another.
// 0 points along +Y, 90 along +X.
func Bearing(from, to Position) float64 {
	dx := float64(to.X - from.X)
	dy := float64(to.Y - from.Y)
	return NormalizeAngle(math.Atan2(dx, dy) * 180 / math.Pi)
}

// NormalizeAngle wraps an angle in degrees to [0, 360).
func NormalizeAngle(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	if deg >= 360 {
		deg = 0
	}
	return deg
}

// ShortestRotation returns the signed rotation in degrees, in (-180, 180],
// that turns a heading of from into a heading of to.
func ShortestRotation(from, to float64) float64 {
	delta := math.Mod(NormalizeAngle(to)-NormalizeAngle(from), 360)
	if delta > 180 {
		delta -= 360
	}
	if delta <= -180 {
		delta += 360
	}
	return delta
}

// SameHeading reports whether two headings are equal within a small tolerance.
func SameHeading(a, b float64) bool {
	return math.Abs(ShortestRotation(a, b)) < headingEpsilon
}

const headingEpsilon = 1e-6
