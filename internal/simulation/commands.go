package simulation

import (
	"errors"
	"fmt"
	"time"

	"github.com/OCAP2/tactical/pkg/core"
)

var (
	// ErrUnknownEntity is returned when a command names an entity that was never spawned.
	ErrUnknownEntity = errors.New("unknown entity")
	// ErrEntityDead is returned when a command targets a dead entity.
	ErrEntityDead = errors.New("entity is dead")
	// ErrDuplicateEntity is returned when an id is spawned twice.
	ErrDuplicateEntity = errors.New("entity already exists")
	// ErrInvalidPosition is returned for tiles off the map or not walkable.
	ErrInvalidPosition = errors.New("invalid position")
)

// Command changes the world. Commands are queued from any goroutine and
// applied by the simulation loop at the start of the next tick.
type Command interface {
	Apply(w *World, now time.Time) ([]core.Event, error)
}

// Spawn adds a new entity to the battle.
type Spawn struct {
	ID        core.EntityID
	Name      string
	Kind      core.Kind
	Side      core.Side
	Position  core.Position
	Direction float64
}

func (c Spawn) Apply(w *World, now time.Time) ([]core.Event, error) {
	e := core.NewEntity(c.ID, c.Name, c.Kind, c.Side, c.Position, w.settings.Profile(c.Kind))
	e.Direction = core.NormalizeAngle(c.Direction)
	if err := w.Add(e); err != nil {
		return nil, err
	}
	return []core.Event{spawnedEvent(e)}, nil
}

func spawnedEvent(e *core.Entity) *core.Spawned {
	return &core.Spawned{
		EntityID:  e.ID,
		Name:      e.Name,
		Kind:      e.Kind,
		Side:      e.Side,
		Position:  e.Position,
		Direction: e.Direction,
		Weapon:    e.WeaponType,
	}
}

// Move gives an entity a new move order, replacing the current one.
type Move struct {
	ID   core.EntityID
	To   core.Position
	Kind core.OrderKind
}

func (c Move) Apply(w *World, now time.Time) ([]core.Event, error) {
	e, err := w.living(c.ID)
	if err != nil {
		return nil, err
	}
	if !w.grid.Walkable(c.To) {
		return nil, fmt.Errorf("move %d to %s: %w", c.ID, c.To, ErrInvalidPosition)
	}
	in, err := core.NewMoveIntention(c.To, c.Kind, now)
	if err != nil {
		return nil, err
	}
	e.SetIntention(in)
	return nil, nil
}

// Stop drops the current order of an entity.
type Stop struct {
	ID core.EntityID
}

func (c Stop) Apply(w *World, now time.Time) ([]core.Event, error) {
	e, err := w.living(c.ID)
	if err != nil {
		return nil, err
	}
	e.SetIntention(nil)
	return nil, nil
}

// SetCombatMode changes the posture of an entity.
type SetCombatMode struct {
	ID   core.EntityID
	Mode core.CombatMode
}

func (c SetCombatMode) Apply(w *World, now time.Time) ([]core.Event, error) {
	e, err := w.living(c.ID)
	if err != nil {
		return nil, err
	}
	e.CombatMode = c.Mode
	return nil, nil
}
