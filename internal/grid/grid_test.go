package grid

import (
	"testing"

	"github.com/OCAP2/tactical/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, rows ...string) *Grid {
	t.Helper()
	g, err := Parse(rows, nil)
	require.NoError(t, err)
	return g
}

func assertConnected(t *testing.T, g *Grid, path []core.Position) {
	t.Helper()
	for i := 1; i < len(path); i++ {
		dx := abs(path[i].X - path[i-1].X)
		dy := abs(path[i].Y - path[i-1].Y)
		assert.LessOrEqual(t, dx, 1, "step %d", i)
		assert.LessOrEqual(t, dy, 1, "step %d", i)
		assert.True(t, g.Walkable(path[i]), "step %d on %s", i, path[i])
	}
}

func TestParse(t *testing.T) {
	g := mustParse(t,
		".T#",
		"h~,",
	)
	assert.Equal(t, 3, g.Width())
	assert.Equal(t, 2, g.Height())
	assert.Equal(t, "trees", g.At(core.Position{X: 1, Y: 0}).Name)
	assert.Equal(t, "water", g.At(core.Position{X: 1, Y: 1}).Name)
	assert.False(t, g.Walkable(core.Position{X: 2, Y: 0}))
	assert.False(t, g.Walkable(core.Position{X: 5, Y: 5}))
	assert.Equal(t, OpacityLimit, g.At(core.Position{X: -1, Y: 0}).Opacity)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse(nil, nil)
	assert.Error(t, err)

	_, err = Parse([]string{"...", ".."}, nil)
	assert.ErrorContains(t, err, "row 1 has 2 tiles")

	_, err = Parse([]string{".?."}, nil)
	assert.ErrorContains(t, err, "unknown tile")
}

func TestFindPath_AroundWall(t *testing.T) {
	g := mustParse(t,
		".....",
		".###.",
		".....",
	)

	path, err := g.FindPath(core.Position{X: 0, Y: 1}, core.Position{X: 4, Y: 1})
	require.NoError(t, err)
	assert.Len(t, path, 7)
	assert.Equal(t, core.Position{X: 0, Y: 1}, path[0])
	assert.Equal(t, core.Position{X: 4, Y: 1}, path[len(path)-1])
	assertConnected(t, g, path)
}

func TestFindPath_PrefersCheapTerrain(t *testing.T) {
	g := mustParse(t,
		".TTT.",
		".....",
	)

	path, err := g.FindPath(core.Position{X: 0, Y: 0}, core.Position{X: 4, Y: 0})
	require.NoError(t, err)
	assertConnected(t, g, path)
	for _, p := range path {
		assert.NotEqual(t, "trees", g.At(p).Name, "path crosses trees at %s", p)
	}
}

func TestFindPath_SameTile(t *testing.T) {
	g := New(3, 3)
	path, err := g.FindPath(core.Position{X: 1, Y: 1}, core.Position{X: 1, Y: 1})
	require.NoError(t, err)
	assert.Equal(t, []core.Position{{X: 1, Y: 1}}, path)
}

func TestFindPath_NoPath(t *testing.T) {
	g := mustParse(t,
		"..#..",
		"..#..",
		"..#..",
	)

	tests := []struct {
		name string
		to   core.Position
	}{
		{"walled off", core.Position{X: 4, Y: 0}},
		{"target is a wall", core.Position{X: 2, Y: 1}},
		{"target off grid", core.Position{X: 9, Y: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, err := g.FindPath(core.Position{X: 0, Y: 0}, tt.to)
			assert.ErrorIs(t, err, ErrNoPathFound)
			assert.Nil(t, path)
		})
	}
}

func TestFindPath_Diagonal(t *testing.T) {
	g := New(3, 3)
	path, err := g.FindPath(core.Position{X: 0, Y: 0}, core.Position{X: 2, Y: 2})
	require.NoError(t, err)
	assert.Equal(t, []core.Position{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 2}}, path)
}

func TestFindPath_NoCornerCutting(t *testing.T) {
	g := mustParse(t,
		".#",
		"..",
	)
	path, err := g.FindPath(core.Position{X: 0, Y: 0}, core.Position{X: 1, Y: 1})
	require.NoError(t, err)
	assert.Equal(t, []core.Position{{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}}, path)
}

func TestLine(t *testing.T) {
	assert.Nil(t, Line(core.Position{X: 1, Y: 1}, core.Position{X: 1, Y: 1}))
	assert.Equal(t,
		[]core.Position{{X: 1, Y: 0}, {X: 2, Y: 0}, {X: 3, Y: 0}},
		Line(core.Position{X: 0, Y: 0}, core.Position{X: 3, Y: 0}))
	assert.Equal(t,
		[]core.Position{{X: 1, Y: 1}, {X: 2, Y: 2}},
		Line(core.Position{X: 0, Y: 0}, core.Position{X: 2, Y: 2}))
	assert.Equal(t,
		[]core.Position{{X: 2, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 0}},
		Line(core.Position{X: 3, Y: 0}, core.Position{X: 0, Y: 0}))
}

func TestFirstObstacle(t *testing.T) {
	g := mustParse(t,
		".TTT.",
		"..#..",
		"hh...",
	)

	// two tree tiles are not enough to block the view
	_, blocked := g.FirstObstacle(core.Position{X: 0, Y: 0}, core.Position{X: 2, Y: 0})
	assert.False(t, blocked)

	obstacle, blocked := g.FirstObstacle(core.Position{X: 0, Y: 0}, core.Position{X: 4, Y: 0})
	assert.True(t, blocked)
	assert.Equal(t, core.Position{X: 3, Y: 0}, obstacle)

	obstacle, blocked = g.FirstObstacle(core.Position{X: 0, Y: 1}, core.Position{X: 4, Y: 1})
	assert.True(t, blocked)
	assert.Equal(t, core.Position{X: 2, Y: 1}, obstacle)

	// the observer's own tile does not count, the target's does
	_, blocked = g.FirstObstacle(core.Position{X: 0, Y: 2}, core.Position{X: 2, Y: 2})
	assert.False(t, blocked)
	obstacle, blocked = g.FirstObstacle(core.Position{X: 2, Y: 2}, core.Position{X: 0, Y: 2})
	assert.True(t, blocked)
	assert.Equal(t, core.Position{X: 0, Y: 2}, obstacle)
}

func TestFirstObstacle_TracedFromObserver(t *testing.T) {
	g := mustParse(t,
		"...",
		"#..",
		"...",
	)

	obstacle, blocked := g.FirstObstacle(core.Position{X: 0, Y: 2}, core.Position{X: 1, Y: 0})
	assert.True(t, blocked)
	assert.Equal(t, core.Position{X: 0, Y: 1}, obstacle)

	_, blocked = g.FirstObstacle(core.Position{X: 1, Y: 0}, core.Position{X: 0, Y: 2})
	assert.False(t, blocked)
}
