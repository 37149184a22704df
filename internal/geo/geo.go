// Package geo converts tile positions to and from the geometry types stored
// in spatial columns. Tiles are stored as plain XY points, one unit per tile.
package geo

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/OCAP2/tactical/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// PositionFromString parses "x,y" into a tile position. Integral floats such
// as "3.00" are accepted, fractions are not.
func PositionFromString(coords string) (core.Position, error) {
	split := strings.Split(strings.Trim(strings.TrimSpace(coords), "[]"), ",")
	if len(split) != 2 {
		return core.Position{}, ErrInvalidCoordinates
	}
	x, err := parseTile(split[0])
	if err != nil {
		return core.Position{}, err
	}
	y, err := parseTile(split[1])
	if err != nil {
		return core.Position{}, err
	}
	return core.Position{X: x, Y: y}, nil
}

func parseTile(s string) (int, error) {
	s = strings.TrimSpace(s)
	if v, err := strconv.Atoi(s); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, ErrInvalidCoordinates
	}
	return int(f), nil
}

// PointFromPosition creates a point for the given tile.
func PointFromPosition(p core.Position) geom.Point {
	return geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: float64(p.X), Y: float64(p.Y)},
		Type: geom.DimXY,
	})
}

// PositionFromPoint returns the tile a point lies on. Empty points are invalid.
func PositionFromPoint(pt geom.Point) (core.Position, error) {
	xy, ok := pt.XY()
	if !ok {
		return core.Position{}, ErrInvalidCoordinates
	}
	return core.Position{X: int(math.Floor(xy.X)), Y: int(math.Floor(xy.Y))}, nil
}
