// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/OCAP2/tactical/internal/geo"
	"github.com/OCAP2/tactical/internal/model"
	"github.com/OCAP2/tactical/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
)

// sideCountsToJSON converts a per-side tally to datatypes.JSON for DB storage.
func sideCountsToJSON(counts map[core.Side]int) datatypes.JSON {
	if len(counts) == 0 {
		return datatypes.JSON("{}")
	}
	data, _ := json.Marshal(counts)
	return datatypes.JSON(data)
}

// CoreToBattle converts a core.Battle to a GORM model.Battle.
func CoreToBattle(b core.Battle) model.Battle {
	m := model.Battle{
		Name:       b.Name,
		MapName:    b.MapName,
		Width:      b.Width,
		Height:     b.Height,
		Tag:        b.Tag,
		Seed:       b.Seed,
		TickRateMs: float32(b.TickRate.Seconds() * 1000),
		StartTime:  b.StartTime,
		Survivors:  datatypes.JSON("{}"),
		Casualties: datatypes.JSON("{}"),
	}
	m.ID = b.ID
	return m
}

// ApplySummary copies the end-of-battle figures onto m.
func ApplySummary(m *model.Battle, s core.BattleSummary) {
	m.EndTime = sql.NullTime{Time: s.EndTime, Valid: !s.EndTime.IsZero()}
	m.Ticks = s.Ticks
	m.EventCount = s.Events
	m.Reason = s.Reason
	m.Survivors = sideCountsToJSON(s.Survivors)
	m.Casualties = sideCountsToJSON(s.Casualties)
}

// CoreToEntity converts a spawn event to a GORM model.Entity.
// core.Spawned.EntityID maps to GORM Entity.ObjectID.
func CoreToEntity(s core.Spawned) model.Entity {
	return model.Entity{
		ObjectID:      uint16(s.EntityID),
		SpawnTick:     s.Tick,
		SpawnTime:     s.Time,
		Name:          s.Name,
		Kind:          s.Kind.String(),
		Side:          s.Side.String(),
		Weapon:        s.Weapon,
		SpawnPosition: geo.PointFromPosition(s.Position),
		Direction:     float32(s.Direction),
		Alive:         true,
	}
}

// eventTarget returns the other entity an event refers to.
func eventTarget(e core.Event) (core.EntityID, bool) {
	switch ev := e.(type) {
	case *core.Fire:
		return ev.TargetID, true
	case *core.Die:
		return ev.VictimID, true
	case *core.NewVisibleOpponent:
		return ev.ObservedID, true
	case *core.NoLongerVisibleOpponent:
		return ev.ObservedID, true
	}
	return 0, false
}

// EventPosition returns the tile an event points at.
func EventPosition(e core.Event) (core.Position, bool) {
	switch ev := e.(type) {
	case *core.StartTileMove:
		return ev.MoveTo, true
	case *core.ContinueTileMove:
		return ev.MoveTo, true
	case *core.FinishTileMove:
		return ev.MoveTo, true
	case *core.FinishMove:
		return ev.MoveTo, true
	case *core.Fire:
		return ev.TargetPosition, true
	case *core.Spawned:
		return ev.Position, true
	}
	return core.Position{}, false
}

// CoreToEvent converts any core event to a GORM model.Event. The full event
// is kept in Payload.
func CoreToEvent(e core.Event) (model.Event, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return model.Event{}, fmt.Errorf("failed to marshal %s event: %w", e.Type(), err)
	}

	meta := e.Meta()
	m := model.Event{
		Time:      meta.Time,
		Tick:      meta.Tick,
		Type:      string(e.Type()),
		SubjectID: uint16(e.Subject()),
		Position:  geom.Point{},
		Payload:   datatypes.JSON(payload),
	}
	if target, ok := eventTarget(e); ok {
		m.TargetID = sql.NullInt32{Int32: int32(target), Valid: true}
	}
	if pos, ok := EventPosition(e); ok {
		m.Position = geo.PointFromPosition(pos)
	}
	return m, nil
}

// CoreToStepStat converts a loop sample to a GORM model.StepStat.
func CoreToStepStat(s core.StepSample) model.StepStat {
	return model.StepStat{
		Time:       s.Time,
		Tick:       s.Tick,
		StepMs:     float32(s.Step.Seconds() * 1000),
		Entities:   s.Entities,
		Alive:      s.Alive,
		Pending:    s.Pending,
		Dropped:    s.Dropped,
		EventCount: s.Events,
	}
}
