package convert

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/OCAP2/tactical/internal/geo"
	"github.com/OCAP2/tactical/internal/model"
	"github.com/OCAP2/tactical/pkg/core"
)

func sideCountsFromJSON(data []byte) map[core.Side]int {
	counts := make(map[core.Side]int)
	if len(data) > 0 {
		_ = json.Unmarshal(data, &counts)
	}
	return counts
}

// BattleToCore converts a GORM Battle to a core.Battle.
func BattleToCore(m model.Battle) core.Battle {
	return core.Battle{
		ID:        m.ID,
		Name:      m.Name,
		MapName:   m.MapName,
		Width:     m.Width,
		Height:    m.Height,
		StartTime: m.StartTime,
		TickRate:  time.Duration(float64(m.TickRateMs) * float64(time.Millisecond)),
		Seed:      m.Seed,
		Tag:       m.Tag,
	}
}

// SummaryToCore extracts the end-of-battle figures from a GORM Battle.
func SummaryToCore(m model.Battle) core.BattleSummary {
	s := core.BattleSummary{
		Ticks:      m.Ticks,
		Events:     m.EventCount,
		Reason:     m.Reason,
		Survivors:  sideCountsFromJSON(m.Survivors),
		Casualties: sideCountsFromJSON(m.Casualties),
	}
	if m.EndTime.Valid {
		s.EndTime = m.EndTime.Time
		s.Duration = m.EndTime.Time.Sub(m.StartTime)
	}
	return s
}

// EntityToCore converts a GORM Entity back to its spawn event.
// GORM Entity.ObjectID maps to core Spawned.EntityID.
func EntityToCore(m model.Entity) (core.Spawned, error) {
	kind, err := core.ParseKind(m.Kind)
	if err != nil {
		return core.Spawned{}, err
	}
	side, err := core.ParseSide(m.Side)
	if err != nil {
		return core.Spawned{}, err
	}
	pos, err := geo.PositionFromPoint(m.SpawnPosition)
	if err != nil {
		return core.Spawned{}, fmt.Errorf("entity %d spawn position: %w", m.ObjectID, err)
	}

	s := core.Spawned{
		EntityID:  core.EntityID(m.ObjectID),
		Name:      m.Name,
		Kind:      kind,
		Side:      side,
		Position:  pos,
		Direction: float64(m.Direction),
		Weapon:    m.Weapon,
	}
	s.Stamp(m.SpawnTick, m.SpawnTime)
	return s, nil
}

// TrackToCore returns the tiles an entity stood on.
func TrackToCore(m model.Entity) ([]core.Position, error) {
	return geo.LineStringToPath(m.Track)
}

// EventToCore decodes the payload of a GORM Event.
func EventToCore(m model.Event) (core.Event, error) {
	ev, err := core.NewEvent(core.EventType(m.Type))
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(m.Payload, ev); err != nil {
		return nil, fmt.Errorf("failed to decode %s event %d: %w", m.Type, m.ID, err)
	}
	ev.Stamp(m.Tick, m.Time)
	return ev, nil
}
