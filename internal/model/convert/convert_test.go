package convert

import (
	"database/sql"
	"testing"
	"time"

	"github.com/OCAP2/tactical/internal/geo"
	"github.com/OCAP2/tactical/internal/model"
	"github.com/OCAP2/tactical/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2024, 6, 6, 6, 30, 0, 0, time.UTC)

func TestBattleRoundTrip(t *testing.T) {
	b := core.Battle{
		ID:        3,
		Name:      "Hill 112",
		MapName:   "normandy",
		Width:     40,
		Height:    30,
		StartTime: start,
		TickRate:  100 * time.Millisecond,
		Seed:      9,
		Tag:       "Skirmish",
	}

	m := CoreToBattle(b)
	assert.Equal(t, uint(3), m.ID)
	assert.Equal(t, float32(100), m.TickRateMs)
	assert.False(t, m.EndTime.Valid)

	assert.Equal(t, b, BattleToCore(m))
}

func TestApplySummary(t *testing.T) {
	m := CoreToBattle(core.Battle{Name: "Hill 112", StartTime: start})
	ApplySummary(&m, core.BattleSummary{
		EndTime:    start.Add(90 * time.Second),
		Ticks:      900,
		Events:     1234,
		Survivors:  map[core.Side]int{core.SideAllies: 3},
		Casualties: map[core.Side]int{core.SideAllies: 1, core.SideAxis: 4},
		Reason:     "decided",
	})

	assert.True(t, m.EndTime.Valid)
	assert.JSONEq(t, `{"allies":3}`, string(m.Survivors))
	assert.JSONEq(t, `{"allies":1,"axis":4}`, string(m.Casualties))

	s := SummaryToCore(m)
	assert.Equal(t, uint64(900), s.Ticks)
	assert.Equal(t, uint64(1234), s.Events)
	assert.Equal(t, 90*time.Second, s.Duration)
	assert.Equal(t, 4, s.Casualties[core.SideAxis])
	assert.Equal(t, 3, s.Survivors[core.SideAllies])
	assert.Equal(t, "decided", s.Reason)
}

func TestEntityRoundTrip(t *testing.T) {
	spawned := core.Spawned{
		EntityID:  12,
		Name:      "Miller",
		Kind:      core.KindVehicle,
		Side:      core.SideAxis,
		Position:  core.Position{X: 4, Y: 7},
		Direction: 90,
		Weapon:    "cannon",
	}
	spawned.Stamp(5, start)

	m := CoreToEntity(spawned)
	assert.Equal(t, uint16(12), m.ObjectID)
	assert.Equal(t, "vehicle", m.Kind)
	assert.Equal(t, "axis", m.Side)
	assert.True(t, m.Alive)

	back, err := EntityToCore(m)
	require.NoError(t, err)
	assert.Equal(t, spawned, back)
}

func TestEntityToCore_Invalid(t *testing.T) {
	valid := CoreToEntity(core.Spawned{EntityID: 1, Kind: core.KindSoldier, Side: core.SideAllies})

	badKind := valid
	badKind.Kind = "horse"
	_, err := EntityToCore(badKind)
	assert.Error(t, err)

	noPosition := valid
	noPosition.SpawnPosition = model.Entity{}.SpawnPosition
	_, err = EntityToCore(noPosition)
	assert.Error(t, err)
}

func TestTrackToCore(t *testing.T) {
	path := []core.Position{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 1}}
	m := model.Entity{Track: geo.PathToLineString(path)}

	got, err := TrackToCore(m)
	require.NoError(t, err)
	assert.Equal(t, path, got)

	got, err = TrackToCore(model.Entity{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCoreToEvent(t *testing.T) {
	fire := &core.Fire{ShooterID: 1, TargetID: 2, TargetPosition: core.Position{X: 5, Y: 6}, WeaponType: "rifle"}
	fire.Stamp(11, start)

	m, err := CoreToEvent(fire)
	require.NoError(t, err)
	assert.Equal(t, "fire", m.Type)
	assert.Equal(t, uint64(11), m.Tick)
	assert.Equal(t, start, m.Time)
	assert.Equal(t, uint16(1), m.SubjectID)
	assert.Equal(t, sql.NullInt32{Int32: 2, Valid: true}, m.TargetID)

	pos, err := geo.PositionFromPoint(m.Position)
	require.NoError(t, err)
	assert.Equal(t, core.Position{X: 5, Y: 6}, pos)

	back, err := EventToCore(m)
	require.NoError(t, err)
	assert.Equal(t, fire, back)
}

func TestCoreToEvent_NoTargetNoPosition(t *testing.T) {
	rot := &core.FinishRotation{SubjectID: 4, RotationAbsolute: 45, OrderKind: core.OrderWalk}
	rot.Stamp(2, start)

	m, err := CoreToEvent(rot)
	require.NoError(t, err)
	assert.False(t, m.TargetID.Valid)
	assert.True(t, m.Position.IsEmpty())

	back, err := EventToCore(m)
	require.NoError(t, err)
	assert.Equal(t, rot, back)
}

func TestEventToCore_UnknownType(t *testing.T) {
	_, err := EventToCore(model.Event{Type: "teleport", Payload: []byte(`{}`)})
	assert.Error(t, err)
}

func TestCoreToStepStat(t *testing.T) {
	m := CoreToStepStat(core.StepSample{
		Time:    start,
		Tick:    40,
		Step:    1500 * time.Microsecond,
		Alive:   6,
		Pending: 2,
		Events:  77,
	})
	assert.Equal(t, float32(1.5), m.StepMs)
	assert.Equal(t, uint64(40), m.Tick)
	assert.Equal(t, 6, m.Alive)
	assert.Equal(t, uint64(77), m.EventCount)
}
