package grid

import "github.com/OCAP2/tactical/pkg/core"

// Line returns the tiles crossed by a straight line from a to b, a excluded
// and b included, using Bresenham's algorithm.
func Line(a, b core.Position) []core.Position {
	if a == b {
		return nil
	}
	x0, y0 := a.X, a.Y
	dx := abs(b.X - x0)
	dy := abs(b.Y - y0)
	sx, sy := sign(b.X-x0), sign(b.Y-y0)
	err := dx - dy

	tiles := make([]core.Position, 0, max(dx, dy))
	for x0 != b.X || y0 != b.Y {
		e2 := err * 2
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
		tiles = append(tiles, core.Position{X: x0, Y: y0})
	}
	return tiles
}

// FirstObstacle walks the line of sight from observer to target, summing tile
// opacity. It returns the first tile where the sum reaches OpacityLimit.
// The line is traced from the observer, so past a wall corner one side may
// see the other without being seen.
func (g *Grid) FirstObstacle(observer, target core.Position) (core.Position, bool) {
	opacity := 0
	for _, p := range Line(observer, target) {
		opacity += g.At(p).Opacity
		if opacity >= OpacityLimit {
			return p, true
		}
	}
	return core.Position{}, false
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
