// pkg/core/events.go
package core

import (
	"fmt"
	"time"
)

// EventType names a domain event on the wire and in storage.
type EventType string

const (
	EventStartRotation           EventType = "start_rotation"
	EventContinueRotation        EventType = "continue_rotation"
	EventFinishRotation          EventType = "finish_rotation"
	EventStartTileMove           EventType = "start_tile_move"
	EventContinueTileMove        EventType = "continue_tile_move"
	EventFinishTileMove          EventType = "finish_tile_move"
	EventFinishMove              EventType = "finish_move"
	EventNewVisibleOpponent      EventType = "new_visible_opponent"
	EventNoLongerVisibleOpponent EventType = "no_longer_visible_opponent"
	EventFire                    EventType = "fire"
	EventDie                     EventType = "die"
	EventSpawned                 EventType = "entity_spawned"
)

// Event is a change produced by one simulation tick.
type Event interface {
	Type() EventType
	// Subject is the entity the event is about: the mover, observer or shooter.
	Subject() EntityID
	Stamp(tick uint64, at time.Time)
	Meta() Header
}

// Header carries the tick an event was produced in.
type Header struct {
	Tick uint64    `json:"tick"`
	Time time.Time `json:"time"`
}

func (h *Header) Stamp(tick uint64, at time.Time) {
	h.Tick = tick
	h.Time = at
}

func (h *Header) Meta() Header { return *h }

// StartRotation is emitted when an entity begins turning toward its next tile.
type StartRotation struct {
	Header
	SubjectID      EntityID      `json:"subjectId"`
	RotateRelative float64       `json:"rotateRelative"`
	RotateAbsolute float64       `json:"rotateAbsolute"`
	Duration       time.Duration `json:"duration"`
	OrderKind      OrderKind     `json:"orderKind"`
}

func (e *StartRotation) Type() EventType   { return EventStartRotation }
func (e *StartRotation) Subject() EntityID { return e.SubjectID }

// ContinueRotation is emitted for every tick a rotation is still in flight.
// RotateRelative and Duration are what is left to do.
type ContinueRotation struct {
	Header
	SubjectID      EntityID      `json:"subjectId"`
	RotateRelative float64       `json:"rotateRelative"`
	RotateAbsolute float64       `json:"rotateAbsolute"`
	Duration       time.Duration `json:"duration"`
	OrderKind      OrderKind     `json:"orderKind"`
}

func (e *ContinueRotation) Type() EventType   { return EventContinueRotation }
func (e *ContinueRotation) Subject() EntityID { return e.SubjectID }

// FinishRotation is emitted when an entity faces RotationAbsolute.
type FinishRotation struct {
	Header
	SubjectID        EntityID  `json:"subjectId"`
	RotationAbsolute float64   `json:"rotationAbsolute"`
	OrderKind        OrderKind `json:"orderKind"`
}

func (e *FinishRotation) Type() EventType   { return EventFinishRotation }
func (e *FinishRotation) Subject() EntityID { return e.SubjectID }

// StartTileMove is emitted when an entity begins sliding to an adjacent tile.
type StartTileMove struct {
	Header
	SubjectID EntityID      `json:"subjectId"`
	MoveTo    Position      `json:"moveTo"`
	Duration  time.Duration `json:"duration"`
	OrderKind OrderKind     `json:"orderKind"`
}

func (e *StartTileMove) Type() EventType   { return EventStartTileMove }
func (e *StartTileMove) Subject() EntityID { return e.SubjectID }

// ContinueTileMove is emitted for every tick a slide is still in flight.
type ContinueTileMove struct {
	Header
	SubjectID EntityID      `json:"subjectId"`
	MoveTo    Position      `json:"moveTo"`
	Duration  time.Duration `json:"duration"`
	OrderKind OrderKind     `json:"orderKind"`
}

func (e *ContinueTileMove) Type() EventType   { return EventContinueTileMove }
func (e *ContinueTileMove) Subject() EntityID { return e.SubjectID }

// FinishTileMove is emitted when an entity arrives on an intermediate tile.
type FinishTileMove struct {
	Header
	SubjectID EntityID  `json:"subjectId"`
	MoveTo    Position  `json:"moveTo"`
	OrderKind OrderKind `json:"orderKind"`
}

func (e *FinishTileMove) Type() EventType   { return EventFinishTileMove }
func (e *FinishTileMove) Subject() EntityID { return e.SubjectID }

// FinishMove is emitted once when an entity reaches the order destination.
type FinishMove struct {
	Header
	SubjectID EntityID  `json:"subjectId"`
	MoveTo    Position  `json:"moveTo"`
	OrderKind OrderKind `json:"orderKind"`
}

func (e *FinishMove) Type() EventType   { return EventFinishMove }
func (e *FinishMove) Subject() EntityID { return e.SubjectID }

// NewVisibleOpponent is emitted when an observer gains line of sight on a hostile.
type NewVisibleOpponent struct {
	Header
	ObserverID EntityID `json:"observerId"`
	ObservedID EntityID `json:"observedId"`
}

func (e *NewVisibleOpponent) Type() EventType   { return EventNewVisibleOpponent }
func (e *NewVisibleOpponent) Subject() EntityID { return e.ObserverID }

// NoLongerVisibleOpponent is emitted when an observer loses line of sight on a hostile.
type NoLongerVisibleOpponent struct {
	Header
	ObserverID EntityID `json:"observerId"`
	ObservedID EntityID `json:"observedId"`
}

func (e *NoLongerVisibleOpponent) Type() EventType   { return EventNoLongerVisibleOpponent }
func (e *NoLongerVisibleOpponent) Subject() EntityID { return e.ObserverID }

// Fire represents a weapon being fired at a tile.
type Fire struct {
	Header
	ShooterID      EntityID `json:"shooterId"`
	TargetID       EntityID `json:"targetId"`
	TargetPosition Position `json:"targetPosition"`
	WeaponType     string   `json:"weaponType"`
}

func (e *Fire) Type() EventType   { return EventFire }
func (e *Fire) Subject() EntityID { return e.ShooterID }

// Die represents an entity being killed.
type Die struct {
	Header
	ShooterID EntityID `json:"shooterId"`
	VictimID  EntityID `json:"victimId"`
}

func (e *Die) Type() EventType   { return EventDie }
func (e *Die) Subject() EntityID { return e.ShooterID }

// Spawned is emitted when an entity enters the battle.
type Spawned struct {
	Header
	EntityID  EntityID `json:"entityId"`
	Name      string   `json:"name"`
	Kind      Kind     `json:"kind"`
	Side      Side     `json:"side"`
	Position  Position `json:"position"`
	Direction float64  `json:"direction"`
	Weapon    string   `json:"weapon"`
}

func (e *Spawned) Type() EventType   { return EventSpawned }
func (e *Spawned) Subject() EntityID { return e.EntityID }

// NewEvent returns an empty event of type t, ready to be decoded into.
func NewEvent(t EventType) (Event, error) {
	switch t {
	case EventStartRotation:
		return &StartRotation{}, nil
	case EventContinueRotation:
		return &ContinueRotation{}, nil
	case EventFinishRotation:
		return &FinishRotation{}, nil
	case EventStartTileMove:
		return &StartTileMove{}, nil
	case EventContinueTileMove:
		return &ContinueTileMove{}, nil
	case EventFinishTileMove:
		return &FinishTileMove{}, nil
	case EventFinishMove:
		return &FinishMove{}, nil
	case EventNewVisibleOpponent:
		return &NewVisibleOpponent{}, nil
	case EventNoLongerVisibleOpponent:
		return &NoLongerVisibleOpponent{}, nil
	case EventFire:
		return &Fire{}, nil
	case EventDie:
		return &Die{}, nil
	case EventSpawned:
		return &Spawned{}, nil
	}
	return nil, fmt.Errorf("unknown event type: %q", t)
}
