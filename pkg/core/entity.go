package core

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"
)

// EntityID identifies a combat unit for the lifetime of a battle.
type EntityID uint16

// Side groups entities into factions. Entities of different sides are hostile.
type Side uint8

const (
	SideAllies Side = iota + 1
	SideAxis
)

func (s Side) String() string {
	switch s {
	case SideAllies:
		return "allies"
	case SideAxis:
		return "axis"
	}
	return fmt.Sprintf("Side(%d)", uint8(s))
}

// ParseSide converts a side name to a Side.
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "allies", "us", "west":
		return SideAllies, nil
	case "axis", "de", "east":
		return SideAxis, nil
	}
	return 0, fmt.Errorf("unknown side: %q", s)
}

func (s Side) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Side) UnmarshalText(b []byte) error {
	parsed, err := ParseSide(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Kind is the type of combat unit.
type Kind uint8

const (
	KindSoldier Kind = iota + 1
	KindVehicle
)

func (k Kind) String() string {
	switch k {
	case KindSoldier:
		return "soldier"
	case KindVehicle:
		return "vehicle"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// ParseKind converts a unit type name to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "soldier", "man", "infantry":
		return KindSoldier, nil
	case "vehicle", "tank":
		return KindVehicle, nil
	}
	return 0, fmt.Errorf("unknown entity kind: %q", s)
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// CombatMode is the posture an entity was ordered into.
type CombatMode uint8

const (
	CombatModeDefense CombatMode = iota
	CombatModeHide
	CombatModeEngage
)

func (m CombatMode) String() string {
	switch m {
	case CombatModeDefense:
		return "defense"
	case CombatModeHide:
		return "hide"
	case CombatModeEngage:
		return "engage"
	}
	return fmt.Sprintf("CombatMode(%d)", uint8(m))
}

// ParseCombatMode converts a combat mode name to a CombatMode.
func ParseCombatMode(s string) (CombatMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "defense", "defend":
		return CombatModeDefense, nil
	case "hide":
		return CombatModeHide, nil
	case "engage":
		return CombatModeEngage, nil
	}
	return 0, fmt.Errorf("unknown combat mode: %q", s)
}

// MovementVariant selects how an entity follows its path.
type MovementVariant uint8

const (
	// VariantSimple slides straight to the next tile and only turns visually.
	VariantSimple MovementVariant = iota
	// VariantRotating must face the next tile before sliding toward it.
	VariantRotating
)

// MovementProfile holds the per-entity timing constants.
// Tile durations are scaled by Coefficient, rotation is not.
type MovementProfile struct {
	Walk              time.Duration `json:"walk"`
	Run               time.Duration `json:"run"`
	Crawl             time.Duration `json:"crawl"`
	RotationPerDegree time.Duration `json:"rotationPerDegree"`
	Coefficient       float64       `json:"coefficient"`
}

// TileDuration returns the time needed to slide one tile at the given pace.
func (p MovementProfile) TileDuration(kind OrderKind) time.Duration {
	var base time.Duration
	switch kind {
	case OrderWalk:
		base = p.Walk
	case OrderRun:
		base = p.Run
	case OrderCrawl:
		base = p.Crawl
	default:
		panic(fmt.Sprintf("core: %v: %d", ErrUnknownOrderKind, uint8(kind)))
	}
	coeff := p.Coefficient
	if coeff <= 0 {
		coeff = 1
	}
	return time.Duration(float64(base) * coeff)
}

// RotationDuration returns the time needed to turn by the given angle.
func (p MovementProfile) RotationDuration(degrees float64) time.Duration {
	return time.Duration(math.Abs(degrees) * float64(p.RotationPerDegree))
}

// Transition is the in-flight rotation or slide of an entity.
// A nil MovingTo or RotatingTo means nothing of that sort is in flight.
type Transition struct {
	MovingTo          *Position     `json:"movingTo,omitempty"`
	MoveStartedAt     time.Time     `json:"moveStartedAt"`
	MoveDuration      time.Duration `json:"moveDuration"`
	RotatingTo        *float64      `json:"rotatingTo,omitempty"`
	RotationStartedAt time.Time     `json:"rotationStartedAt"`
	RotationDuration  time.Duration `json:"rotationDuration"`
}

// Sliding reports whether a tile slide is in flight.
func (t *Transition) Sliding() bool { return t.MovingTo != nil }

// Rotating reports whether a rotation is in flight.
func (t *Transition) Rotating() bool { return t.RotatingTo != nil }

func (t *Transition) ClearSlide() {
	t.MovingTo = nil
	t.MoveStartedAt = time.Time{}
	t.MoveDuration = 0
}

func (t *Transition) ClearRotation() {
	t.RotatingTo = nil
	t.RotationStartedAt = time.Time{}
	t.RotationDuration = 0
}

// Reset clears every in-flight transition.
func (t *Transition) Reset() {
	t.ClearSlide()
	t.ClearRotation()
}

// Entity is a combat unit owned by the simulation loop.
type Entity struct {
	ID         EntityID        `json:"id"`
	Name       string          `json:"name"`
	Kind       Kind            `json:"kind"`
	Side       Side            `json:"side"`
	Position   Position        `json:"position"`
	Direction  float64         `json:"direction"`
	Alive      bool            `json:"alive"`
	CombatMode CombatMode      `json:"combatMode"`
	WeaponType string          `json:"weaponType"`
	Profile    MovementProfile `json:"profile"`
	Variant    MovementVariant `json:"variant"`
	Intention  *MoveIntention  `json:"intention,omitempty"`
	Transition

	visible map[EntityID]struct{}
}

// NewEntity creates a live entity. Vehicles rotate before moving, soldiers do not.
func NewEntity(id EntityID, name string, kind Kind, side Side, pos Position, profile MovementProfile) *Entity {
	e := &Entity{
		ID:         id,
		Name:       name,
		Kind:       kind,
		Side:       side,
		Position:   pos,
		Alive:      true,
		CombatMode: CombatModeDefense,
		Profile:    profile,
		WeaponType: "rifle",
		visible:    make(map[EntityID]struct{}),
	}
	if kind == KindVehicle {
		e.Variant = VariantRotating
		e.WeaponType = "cannon"
	}
	return e
}

// SetIntention replaces the current order. Any in-flight transition is dropped.
func (e *Entity) SetIntention(in *MoveIntention) {
	e.Intention = in
	e.Transition.Reset()
}

// Kill marks the entity dead and drops its order.
func (e *Entity) Kill() {
	e.Alive = false
	e.Intention = nil
	e.Transition.Reset()
}

// HostileTo reports whether other belongs to an opposing side.
func (e *Entity) HostileTo(other *Entity) bool {
	return e.Side != other.Side
}

// Sees reports whether id is in the visible opponent set.
func (e *Entity) Sees(id EntityID) bool {
	_, ok := e.visible[id]
	return ok
}

// AddVisible adds id to the visible opponent set.
func (e *Entity) AddVisible(id EntityID) {
	if e.visible == nil {
		e.visible = make(map[EntityID]struct{})
	}
	e.visible[id] = struct{}{}
}

// RemoveVisible removes id from the visible opponent set.
func (e *Entity) RemoveVisible(id EntityID) {
	delete(e.visible, id)
}

// VisibleOpponents returns the visible opponent ids in ascending order.
func (e *Entity) VisibleOpponents() []EntityID {
	ids := make([]EntityID, 0, len(e.visible))
	for id := range e.visible {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Snapshot is the read-only view of an entity other entities see during a tick.
type Snapshot struct {
	ID       EntityID `json:"id"`
	Kind     Kind     `json:"kind"`
	Side     Side     `json:"side"`
	Position Position `json:"position"`
	Alive    bool     `json:"alive"`
}

func (e *Entity) Snapshot() Snapshot {
	return Snapshot{ID: e.ID, Kind: e.Kind, Side: e.Side, Position: e.Position, Alive: e.Alive}
}
