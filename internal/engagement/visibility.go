// Package engagement keeps track of which hostiles each entity can see and
// resolves who fires at whom.
package engagement

import (
	"slices"

	"github.com/OCAP2/tactical/pkg/core"
)

// Resolver finds the first tile blocking the line of sight between two tiles.
type Resolver interface {
	FirstObstacle(observer, target core.Position) (core.Position, bool)
}

// VisibilityDelta lists the changes to an observer's visible opponent set.
type VisibilityDelta struct {
	ObserverID core.EntityID
	New        []core.EntityID
	Lost       []core.EntityID
}

// Empty reports whether nothing changed.
func (d VisibilityDelta) Empty() bool {
	return len(d.New) == 0 && len(d.Lost) == 0
}

// RunVisibility compares what observer can see among candidates with what it
// saw before. Candidates that are dead, friendly or the observer itself are
// ignored. observer is not modified.
func RunVisibility(observer *core.Entity, candidates []core.Snapshot, resolver Resolver) VisibilityDelta {
	delta := VisibilityDelta{ObserverID: observer.ID}
	if !observer.Alive {
		return delta
	}

	visible := make(map[core.EntityID]struct{}, len(candidates))
	for _, c := range candidates {
		if !c.Alive || c.ID == observer.ID || c.Side == observer.Side {
			continue
		}
		if _, blocked := resolver.FirstObstacle(observer.Position, c.Position); blocked {
			continue
		}
		visible[c.ID] = struct{}{}
		if !observer.Sees(c.ID) {
			delta.New = append(delta.New, c.ID)
		}
	}

	for _, id := range observer.VisibleOpponents() {
		if _, ok := visible[id]; !ok {
			delta.Lost = append(delta.Lost, id)
		}
	}

	slices.Sort(delta.New)
	return delta
}

// ApplyVisibility updates the observer's visible set and returns one event per change.
func ApplyVisibility(observer *core.Entity, delta VisibilityDelta) []core.Event {
	if delta.Empty() {
		return nil
	}
	events := make([]core.Event, 0, len(delta.New)+len(delta.Lost))
	for _, id := range delta.New {
		observer.AddVisible(id)
		events = append(events, &core.NewVisibleOpponent{ObserverID: observer.ID, ObservedID: id})
	}
	for _, id := range delta.Lost {
		observer.RemoveVisible(id)
		events = append(events, &core.NoLongerVisibleOpponent{ObserverID: observer.ID, ObservedID: id})
	}
	return events
}
