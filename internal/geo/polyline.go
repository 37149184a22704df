package geo

import (
	"fmt"

	"github.com/OCAP2/tactical/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// PathToLineString builds a line string through the given tiles.
// Paths of fewer than two tiles give an empty line string.
func PathToLineString(path []core.Position) geom.LineString {
	if len(path) < 2 {
		return geom.LineString{}
	}
	flat := make([]float64, 0, len(path)*2)
	for _, p := range path {
		flat = append(flat, float64(p.X), float64(p.Y))
	}
	return geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
}

// LineStringToPath returns the tiles of a line string in order.
func LineStringToPath(ls geom.LineString) ([]core.Position, error) {
	seq := ls.Coordinates()
	n := seq.Length()
	if n == 0 {
		return nil, nil
	}
	if n < 2 {
		return nil, fmt.Errorf("line string must have at least 2 points, got %d", n)
	}
	path := make([]core.Position, n)
	for i := 0; i < n; i++ {
		xy := seq.GetXY(i)
		path[i] = core.Position{X: int(xy.X), Y: int(xy.Y)}
	}
	return path, nil
}
