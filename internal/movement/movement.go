// Package movement turns a move order into tile-by-tile rotations and slides.
//
// Every tick the driver calls Decide, which only reads the entity, and then
// Apply, which writes the decision back and returns the resulting events.
package movement

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/OCAP2/tactical/pkg/core"
)

// ErrOffPath is returned when an entity is not standing on its cached path.
var ErrOffPath = errors.New("entity is not on its path")

// PathFinder computes the tiles between two positions, both included.
type PathFinder interface {
	FindPath(start, end core.Position) ([]core.Position, error)
}

// Mover runs the movement state machine for both variants.
type Mover struct {
	finder PathFinder
	logger *slog.Logger
}

// NewMover creates a Mover. A nil logger discards output.
func NewMover(finder PathFinder, logger *slog.Logger) *Mover {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Mover{finder: finder, logger: logger}
}

// Step decides and applies in one call. On error the entity is left untouched.
func (m *Mover) Step(e *core.Entity, now time.Time) ([]core.Event, error) {
	sig, err := m.Decide(e, now)
	if err != nil {
		return nil, err
	}
	return m.Apply(e, sig, now), nil
}

// Decide works out what e should do at now. It does not modify e.
func (m *Mover) Decide(e *core.Entity, now time.Time) (Signal, error) {
	if e == nil || !e.Alive || e.Intention == nil {
		return Signal{}, nil
	}
	in := e.Intention
	sig := Signal{Kind: in.Kind}

	path := in.Path
	if len(path) == 0 {
		found, err := m.finder.FindPath(e.Position, in.To)
		if err != nil {
			return Signal{}, fmt.Errorf("entity %d: %w", e.ID, err)
		}
		// path finders may leave out the start tile
		if len(found) == 0 || found[0] != e.Position {
			found = append([]core.Position{e.Position}, found...)
		}
		m.logger.Debug("path computed", "entity", e.ID, "to", in.To, "tiles", len(found))
		sig.Path = found
		path = found
	}

	index := slices.Index(path, e.Position)
	if index < 0 {
		return Signal{}, fmt.Errorf("entity %d at %s: %w", e.ID, e.Position, ErrOffPath)
	}
	if index == len(path)-1 {
		return finishMove(sig, in), nil
	}

	current := e.Position
	next := path[index+1]

	if e.MovingTo != nil && *e.MovingTo == next {
		elapsed := now.Sub(e.MoveStartedAt)
		if elapsed < e.MoveDuration {
			sig.Slide = &Slide{
				To:       next,
				Duration: remaining(e.MoveDuration, elapsed),
				Continue: true,
				Heading:  e.Direction,
			}
			return sig, nil
		}

		index++
		if index == len(path)-1 {
			return finishMove(sig, in), nil
		}
		finished := next
		sig.TileFinished = &finished
		current = next
		next = path[index+1]
	}

	heading := core.Bearing(current, next)

	// a rotation finishing this tick lets the slide start in the same tick
	if e.Variant == core.VariantRotating && !decideRotation(e, &sig, heading, now) {
		return sig, nil
	}

	sig.Slide = &Slide{
		To:       next,
		Duration: e.Profile.TileDuration(in.Kind),
		Heading:  heading,
	}
	return sig, nil
}

// decideRotation fills the rotation part of sig. It reports whether the
// entity faces heading by now and may start sliding.
func decideRotation(e *core.Entity, sig *Signal, heading float64, now time.Time) bool {
	if e.RotatingTo != nil && core.SameHeading(*e.RotatingTo, heading) {
		target := *e.RotatingTo
		elapsed := now.Sub(e.RotationStartedAt)
		if elapsed < e.RotationDuration {
			progress := float64(elapsed) / float64(e.RotationDuration)
			direction := e.Direction + core.ShortestRotation(e.Direction, target)*progress
			left := core.ShortestRotation(direction, target)
			sig.Rotate = &Rotation{
				Relative:  left,
				Absolute:  target,
				Duration:  e.Profile.RotationDuration(left),
				Continue:  true,
				Direction: core.NormalizeAngle(direction),
			}
			return false
		}
		sig.RotationFinished = &target
		return true
	}

	if !core.SameHeading(e.Direction, heading) {
		relative := core.ShortestRotation(e.Direction, heading)
		sig.Rotate = &Rotation{
			Relative:  relative,
			Absolute:  heading,
			Duration:  e.Profile.RotationDuration(relative),
			Direction: e.Direction,
		}
		return false
	}
	return true
}

func finishMove(sig Signal, in *core.MoveIntention) Signal {
	to := in.To
	sig.TileFinished = nil
	sig.MoveFinished = &to
	return sig
}

// Apply writes sig to e and returns the events describing the change.
// Finish events always come before start and continue events.
func (m *Mover) Apply(e *core.Entity, sig Signal, now time.Time) []core.Event {
	if e == nil || !e.Alive || e.Intention == nil {
		return nil
	}
	var events []core.Event

	if sig.Path != nil {
		e.Intention.Path = sig.Path
	}

	if sig.TileFinished != nil {
		e.Position = *sig.TileFinished
		e.ClearSlide()
		events = append(events, &core.FinishTileMove{
			SubjectID: e.ID,
			MoveTo:    *sig.TileFinished,
			OrderKind: sig.Kind,
		})
	}

	if sig.MoveFinished != nil {
		e.Position = *sig.MoveFinished
		e.Transition.Reset()
		e.Intention = nil
		m.logger.Debug("move finished", "entity", e.ID, "position", e.Position)
		return append(events, &core.FinishMove{
			SubjectID: e.ID,
			MoveTo:    *sig.MoveFinished,
			OrderKind: sig.Kind,
		})
	}

	if sig.RotationFinished != nil {
		e.Direction = core.NormalizeAngle(*sig.RotationFinished)
		e.ClearRotation()
		events = append(events, &core.FinishRotation{
			SubjectID:        e.ID,
			RotationAbsolute: *sig.RotationFinished,
			OrderKind:        sig.Kind,
		})
	}

	if r := sig.Rotate; r != nil {
		target := r.Absolute
		e.RotatingTo = &target
		e.RotationStartedAt = now
		e.RotationDuration = r.Duration
		if r.Continue {
			e.Direction = r.Direction
			events = append(events, &core.ContinueRotation{
				SubjectID:      e.ID,
				RotateRelative: r.Relative,
				RotateAbsolute: r.Absolute,
				Duration:       r.Duration,
				OrderKind:      sig.Kind,
			})
		} else {
			events = append(events, &core.StartRotation{
				SubjectID:      e.ID,
				RotateRelative: r.Relative,
				RotateAbsolute: r.Absolute,
				Duration:       r.Duration,
				OrderKind:      sig.Kind,
			})
		}
	}

	if s := sig.Slide; s != nil {
		to := s.To
		e.MovingTo = &to
		e.MoveStartedAt = now
		e.MoveDuration = s.Duration
		if s.Continue {
			events = append(events, &core.ContinueTileMove{
				SubjectID: e.ID,
				MoveTo:    s.To,
				Duration:  s.Duration,
				OrderKind: sig.Kind,
			})
		} else {
			if e.Variant == core.VariantSimple {
				e.Direction = s.Heading
			}
			events = append(events, &core.StartTileMove{
				SubjectID: e.ID,
				MoveTo:    s.To,
				Duration:  s.Duration,
				OrderKind: sig.Kind,
			})
		}
	}

	return events
}
