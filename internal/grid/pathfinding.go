package grid

import (
	"container/heap"
	"errors"
	"fmt"
	"math"

	"github.com/OCAP2/tactical/pkg/core"
)

// ErrNoPathFound is returned when two tiles are not connected.
var ErrNoPathFound = errors.New("no path found")

type neighbor struct {
	dx, dy   int
	cost     float64
	diagonal bool
}

var neighborOffsets = [...]neighbor{
	{dx: 0, dy: -1, cost: 1},
	{dx: 1, dy: 0, cost: 1},
	{dx: 0, dy: 1, cost: 1},
	{dx: -1, dy: 0, cost: 1},
	{dx: 1, dy: -1, cost: math.Sqrt2, diagonal: true},
	{dx: 1, dy: 1, cost: math.Sqrt2, diagonal: true},
	{dx: -1, dy: 1, cost: math.Sqrt2, diagonal: true},
	{dx: -1, dy: -1, cost: math.Sqrt2, diagonal: true},
}

// octile distance, admissible because tile costs are at least 1
func heuristic(a, b core.Position) float64 {
	dx := math.Abs(float64(a.X - b.X))
	dy := math.Abs(float64(a.Y - b.Y))
	if dx > dy {
		return dx + (math.Sqrt2-1)*dy
	}
	return dy + (math.Sqrt2-1)*dx
}

// canTraverseDiagonal refuses to cut the corner of an unwalkable tile.
func (g *Grid) canTraverseDiagonal(from core.Position, step neighbor) bool {
	if !step.diagonal {
		return true
	}
	return g.Walkable(from.Offset(step.dx, 0)) && g.Walkable(from.Offset(0, step.dy))
}

type pathNode struct {
	pos    core.Position
	g      float64
	f      float64
	index  int
	parent *pathNode
}

type pathQueue []*pathNode

func (pq pathQueue) Len() int { return len(pq) }

func (pq pathQueue) Less(i, j int) bool { return pq[i].f < pq[j].f }

func (pq pathQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *pathQueue) Push(x any) {
	item := x.(*pathNode)
	item.index = len(*pq)
	*pq = append(*pq, item)
}

func (pq *pathQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[:n-1]
	return item
}

// FindPath returns the cheapest 8-connected path from start to end, both included.
func (g *Grid) FindPath(start, end core.Position) ([]core.Position, error) {
	if !g.InBounds(start) || !g.InBounds(end) || !g.Walkable(end) {
		return nil, fmt.Errorf("from %s to %s: %w", start, end, ErrNoPathFound)
	}
	if start == end {
		return []core.Position{start}, nil
	}

	open := &pathQueue{}
	heap.Init(open)
	heap.Push(open, &pathNode{pos: start, f: heuristic(start, end)})
	gScore := map[core.Position]float64{start: 0}
	closed := make(map[core.Position]struct{})

	for open.Len() > 0 {
		current := heap.Pop(open).(*pathNode)
		if _, seen := closed[current.pos]; seen {
			continue
		}
		closed[current.pos] = struct{}{}
		if current.pos == end {
			return reconstructPath(current), nil
		}

		for _, step := range neighborOffsets {
			next := current.pos.Offset(step.dx, step.dy)
			if !g.Walkable(next) || !g.canTraverseDiagonal(current.pos, step) {
				continue
			}
			if _, seen := closed[next]; seen {
				continue
			}
			tentative := current.g + step.cost*g.At(next).Cost
			if prev, ok := gScore[next]; ok && tentative >= prev {
				continue
			}
			gScore[next] = tentative
			heap.Push(open, &pathNode{
				pos:    next,
				g:      tentative,
				f:      tentative + heuristic(next, end),
				parent: current,
			})
		}
	}
	return nil, fmt.Errorf("from %s to %s: %w", start, end, ErrNoPathFound)
}

func reconstructPath(end *pathNode) []core.Position {
	path := make([]core.Position, 0)
	for node := end; node != nil; node = node.parent {
		path = append(path, node.pos)
	}
	for i := 0; i < len(path)/2; i++ {
		j := len(path) - 1 - i
		path[i], path[j] = path[j], path[i]
	}
	return path
}
