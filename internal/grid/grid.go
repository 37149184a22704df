// Package grid holds the battle map: tile terrain, path finding and line of sight.
package grid

import (
	"fmt"

	"github.com/OCAP2/tactical/pkg/core"
)

// OpacityLimit is the accumulated opacity at which a line of sight is blocked.
const OpacityLimit = 100

// Terrain describes one kind of tile.
type Terrain struct {
	Name     string  `json:"name" mapstructure:"name"`
	Walkable bool    `json:"walkable" mapstructure:"walkable"`
	Cost     float64 `json:"cost" mapstructure:"cost"`
	Opacity  int     `json:"opacity" mapstructure:"opacity"`
}

// Legend maps the characters of a map row to terrain.
type Legend map[rune]Terrain

// DefaultLegend covers the terrain used by the bundled scenarios.
var DefaultLegend = Legend{
	'.': {Name: "ground", Walkable: true, Cost: 1},
	',': {Name: "grass", Walkable: true, Cost: 1, Opacity: 10},
	'T': {Name: "trees", Walkable: true, Cost: 2, Opacity: 40},
	'h': {Name: "hedge", Walkable: true, Cost: 3, Opacity: 60},
	'#': {Name: "wall", Walkable: false, Cost: 1, Opacity: OpacityLimit},
	'~': {Name: "water", Walkable: false, Cost: 1},
}

// Grid is an immutable tile map. Row i of the source holds the tiles with Y == i.
type Grid struct {
	width, height int
	tiles         []Terrain
}

// New returns an open grid of the given size.
func New(width, height int) *Grid {
	if width <= 0 {
		width = 1
	}
	if height <= 0 {
		height = 1
	}
	g := &Grid{width: width, height: height, tiles: make([]Terrain, width*height)}
	for i := range g.tiles {
		g.tiles[i] = DefaultLegend['.']
	}
	return g
}

// Parse builds a grid from text rows. All rows must have the same length.
func Parse(rows []string, legend Legend) (*Grid, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("error parsing map: no rows")
	}
	if legend == nil {
		legend = DefaultLegend
	}

	width := len([]rune(rows[0]))
	if width == 0 {
		return nil, fmt.Errorf("error parsing map: empty row 0")
	}
	g := &Grid{width: width, height: len(rows), tiles: make([]Terrain, 0, width*len(rows))}
	for y, row := range rows {
		runes := []rune(row)
		if len(runes) != width {
			return nil, fmt.Errorf("error parsing map: row %d has %d tiles, expected %d", y, len(runes), width)
		}
		for x, r := range runes {
			terrain, ok := legend[r]
			if !ok {
				return nil, fmt.Errorf("error parsing map: unknown tile %q at (%d,%d)", r, x, y)
			}
			if terrain.Cost < 1 {
				terrain.Cost = 1
			}
			g.tiles = append(g.tiles, terrain)
		}
	}
	return g, nil
}

func (g *Grid) Width() int  { return g.width }
func (g *Grid) Height() int { return g.height }

// InBounds reports whether p lies on the grid.
func (g *Grid) InBounds(p core.Position) bool {
	return g != nil && p.X >= 0 && p.Y >= 0 && p.X < g.width && p.Y < g.height
}

func (g *Grid) index(p core.Position) int {
	return p.Y*g.width + p.X
}

// At returns the terrain of a tile. Tiles off the grid are unwalkable and opaque.
func (g *Grid) At(p core.Position) Terrain {
	if !g.InBounds(p) {
		return Terrain{Name: "void", Opacity: OpacityLimit}
	}
	return g.tiles[g.index(p)]
}

// Walkable reports whether an entity can stand on p.
func (g *Grid) Walkable(p core.Position) bool {
	return g.At(p).Walkable
}
