package simulation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/tactical/internal/channel"
	"github.com/OCAP2/tactical/internal/clock"
	"github.com/OCAP2/tactical/internal/grid"
	"github.com/OCAP2/tactical/internal/queue"
	"github.com/OCAP2/tactical/pkg/core"
)

var epoch = time.Date(2024, 6, 6, 6, 30, 0, 0, time.UTC)

func testSettings() Settings {
	s := DefaultSettings()
	s.LookAroundFrequency = 0
	s.EngageFrequency = 0
	s.KillProbability = 1
	s.Seed = 7
	return s
}

func newWorld(t *testing.T, rows []string, s Settings) *World {
	t.Helper()
	g, err := grid.Parse(rows, nil)
	require.NoError(t, err)
	w, err := NewWorld(g, s, nil)
	require.NoError(t, err)
	return w
}

func countTypes(events []core.Event) map[core.EventType]int {
	out := map[core.EventType]int{}
	for _, ev := range events {
		out[ev.Type()]++
	}
	return out
}

func TestWorld_SpawnThroughInbox(t *testing.T) {
	w := newWorld(t, []string{"....."}, testSettings())

	require.NoError(t, w.Submit(Spawn{ID: 1, Name: "Miller", Kind: core.KindSoldier, Side: core.SideAllies, Direction: 450}))
	_, ok := w.Entity(1)
	assert.False(t, ok, "commands wait for the next tick")

	events := w.Step(epoch)
	require.Len(t, events, 1)
	spawned, ok := events[0].(*core.Spawned)
	require.True(t, ok)
	assert.Equal(t, core.EntityID(1), spawned.EntityID)
	assert.Equal(t, "rifle", spawned.Weapon)
	assert.InDelta(t, 90, spawned.Direction, 1e-9)
	assert.Equal(t, core.Header{Tick: 1, Time: epoch}, spawned.Meta())

	e, ok := w.Entity(1)
	require.True(t, ok)
	assert.Equal(t, DefaultProfiles[core.KindSoldier], e.Profile)
	assert.Equal(t, uint64(1), w.Tick())
}

func TestWorld_RejectedCommands(t *testing.T) {
	w := newWorld(t, []string{"..#.."}, testSettings())

	require.NoError(t, w.Submit(Spawn{ID: 1, Kind: core.KindSoldier, Side: core.SideAllies}))
	require.NoError(t, w.Submit(Spawn{ID: 1, Kind: core.KindSoldier, Side: core.SideAxis}))
	require.NoError(t, w.Submit(Spawn{ID: 2, Kind: core.KindSoldier, Side: core.SideAxis, Position: core.Position{X: 2}}))
	require.NoError(t, w.Submit(Move{ID: 9, To: core.Position{X: 1}, Kind: core.OrderWalk}))
	require.NoError(t, w.Submit(Move{ID: 1, To: core.Position{X: 2}, Kind: core.OrderWalk}))

	events := w.Step(epoch)
	assert.Equal(t, map[core.EventType]int{core.EventSpawned: 1}, countTypes(events))
	assert.Len(t, w.Entities(), 1)

	e, _ := w.Entity(1)
	assert.Equal(t, core.SideAllies, e.Side)
	assert.Nil(t, e.Intention)
}

func TestCommands_Errors(t *testing.T) {
	w := newWorld(t, []string{"....."}, testSettings())
	require.NoError(t, w.Add(core.NewEntity(1, "a", core.KindSoldier, core.SideAllies, core.Position{}, w.settings.Profile(core.KindSoldier))))

	_, err := Spawn{ID: 1}.Apply(w, epoch)
	assert.ErrorIs(t, err, ErrDuplicateEntity)

	_, err = Stop{ID: 5}.Apply(w, epoch)
	assert.ErrorIs(t, err, ErrUnknownEntity)

	_, err = Move{ID: 1, To: core.Position{X: 9}, Kind: core.OrderRun}.Apply(w, epoch)
	assert.ErrorIs(t, err, ErrInvalidPosition)

	_, err = Move{ID: 1, To: core.Position{X: 3}}.Apply(w, epoch)
	assert.ErrorIs(t, err, core.ErrUnknownOrderKind)

	e, _ := w.Entity(1)
	e.Kill()
	_, err = SetCombatMode{ID: 1, Mode: core.CombatModeHide}.Apply(w, epoch)
	assert.ErrorIs(t, err, ErrEntityDead)
}

func TestWorld_StopAndCombatMode(t *testing.T) {
	w := newWorld(t, []string{"....."}, testSettings())
	require.NoError(t, w.Submit(Spawn{ID: 1, Kind: core.KindSoldier, Side: core.SideAllies}))
	require.NoError(t, w.Submit(Move{ID: 1, To: core.Position{X: 4}, Kind: core.OrderRun}))
	events := w.Step(epoch)
	assert.Equal(t, 1, countTypes(events)[core.EventStartTileMove])

	e, _ := w.Entity(1)
	require.True(t, e.Sliding())

	require.NoError(t, w.Submit(Stop{ID: 1}))
	require.NoError(t, w.Submit(SetCombatMode{ID: 1, Mode: core.CombatModeEngage}))
	events = w.Step(epoch.Add(time.Second))
	assert.Empty(t, events)
	assert.Nil(t, e.Intention)
	assert.False(t, e.Sliding())
	assert.Equal(t, core.Position{}, e.Position)
	assert.Equal(t, core.CombatModeEngage, e.CombatMode)
}

func TestWorld_NoPathAbandonsOrder(t *testing.T) {
	w := newWorld(t, []string{
		"..#..",
		"..#..",
		"..#..",
	}, testSettings())
	require.NoError(t, w.Submit(Spawn{ID: 1, Kind: core.KindSoldier, Side: core.SideAllies}))
	require.NoError(t, w.Submit(Move{ID: 1, To: core.Position{X: 4, Y: 1}, Kind: core.OrderWalk}))

	events := w.Step(epoch)
	assert.Equal(t, map[core.EventType]int{core.EventSpawned: 1}, countTypes(events))

	e, _ := w.Entity(1)
	assert.Nil(t, e.Intention)
	assert.Equal(t, core.Position{}, e.Position)
}

func TestWorld_KillResolvedOnce(t *testing.T) {
	w := newWorld(t, []string{
		".....",
		".....",
		".....",
	}, testSettings())
	require.NoError(t, w.Submit(Spawn{ID: 1, Kind: core.KindSoldier, Side: core.SideAllies, Position: core.Position{X: 0, Y: 0}}))
	require.NoError(t, w.Submit(Spawn{ID: 2, Kind: core.KindSoldier, Side: core.SideAllies, Position: core.Position{X: 0, Y: 2}}))
	require.NoError(t, w.Submit(Spawn{ID: 3, Kind: core.KindSoldier, Side: core.SideAxis, Position: core.Position{X: 3, Y: 1}}))

	events := w.Step(epoch)
	types := countTypes(events)
	assert.Equal(t, 3, types[core.EventSpawned])
	assert.Equal(t, 4, types[core.EventNewVisibleOpponent])
	assert.Equal(t, 2, types[core.EventFire], "the second shooter still fires at the start-of-tick target")
	assert.Equal(t, 1, types[core.EventDie])

	victim, _ := w.Entity(3)
	assert.False(t, victim.Alive)

	// visibility runs before engagement, so nothing else happens in tick 1
	last := events[len(events)-1]
	assert.Equal(t, core.EventFire, last.Type())

	st := w.Status()
	assert.Equal(t, uint64(1), st.Kills)
	assert.Equal(t, map[core.Side]int{core.SideAllies: 2}, st.Alive)
	assert.Equal(t, 2, st.AliveTotal())

	// the dead opponent drops out of sight next tick and nobody fires
	events = w.Step(epoch.Add(100 * time.Millisecond))
	assert.Equal(t, map[core.EventType]int{core.EventNoLongerVisibleOpponent: 2}, countTypes(events))

	sum := w.Summary(epoch.Add(time.Second), ReasonDecided)
	assert.Equal(t, uint64(2), sum.Ticks)
	assert.Equal(t, 2, sum.Survivors[core.SideAllies])
	assert.Equal(t, 1, sum.Casualties[core.SideAxis])
}

func TestWorld_ArrivalSeenNextTick(t *testing.T) {
	s := testSettings()
	s.KillProbability = 0
	w := newWorld(t, []string{
		"...",
		"#..",
		"...",
	}, s)
	require.NoError(t, w.Submit(Spawn{ID: 1, Kind: core.KindSoldier, Side: core.SideAllies, Position: core.Position{X: 1, Y: 0}}))
	require.NoError(t, w.Submit(Spawn{ID: 2, Kind: core.KindSoldier, Side: core.SideAxis, Position: core.Position{X: 0, Y: 2}}))
	w.Step(epoch)
	require.NoError(t, w.Submit(Move{ID: 1, To: core.Position{X: 2, Y: 0}, Kind: core.OrderWalk}))

	seenBy2 := func(events []core.Event) bool {
		for _, ev := range events {
			if v, ok := ev.(*core.NewVisibleOpponent); ok && v.ObserverID == 2 && v.ObservedID == 1 {
				return true
			}
		}
		return false
	}

	// the wall hides (1,0) from (0,2) but not (2,0)
	now := epoch
	arrived := false
	for i := 0; i < 600 && !arrived; i++ {
		now = now.Add(100 * time.Millisecond)
		events := w.Step(now)
		mover, _ := w.Entity(1)
		arrived = mover.Position == core.Position{X: 2, Y: 0}
		assert.False(t, seenBy2(events), "tick %d", w.Tick())
	}
	require.True(t, arrived, "entity 1 never reached (2,0)")

	events := w.Step(now.Add(100 * time.Millisecond))
	assert.True(t, seenBy2(events), "the arrival shows up the tick after it happens")
}

func TestWorld_EventsAreStamped(t *testing.T) {
	w := newWorld(t, []string{"....."}, testSettings())
	require.NoError(t, w.Submit(Spawn{ID: 1, Kind: core.KindSoldier, Side: core.SideAllies}))
	w.Step(epoch)
	require.NoError(t, w.Submit(Move{ID: 1, To: core.Position{X: 2}, Kind: core.OrderWalk}))

	at := epoch.Add(time.Second)
	events := w.Step(at)
	require.NotEmpty(t, events)
	for _, ev := range events {
		assert.Equal(t, uint64(2), ev.Meta().Tick)
		assert.Equal(t, at, ev.Meta().Time)
	}
}

func TestWorld_InboxFull(t *testing.T) {
	s := testSettings()
	s.InboxSize = 1
	w := newWorld(t, []string{"..."}, s)

	require.NoError(t, w.Submit(Stop{ID: 1}))
	err := w.Submit(Stop{ID: 2})
	assert.ErrorIs(t, err, queue.ErrFull)
	assert.Equal(t, 1, w.Status().Pending)
	assert.Equal(t, uint64(1), w.Status().Dropped)
}

func TestDriver_Accelerated(t *testing.T) {
	s := testSettings()
	s.Mode = clock.Accelerated
	s.TickRate = 500 * time.Millisecond
	w := newWorld(t, []string{"....."}, s)
	require.NoError(t, w.Submit(Spawn{ID: 1, Kind: core.KindSoldier, Side: core.SideAllies}))
	require.NoError(t, w.Submit(Move{ID: 1, To: core.Position{X: 2}, Kind: core.OrderWalk}))

	hub := channel.NewHub[Batch](256)
	sub := hub.Subscribe()
	d := NewDriver(w, hub, nil)

	reason, err := d.Run(context.Background(), epoch, 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, ReasonDuration, reason)
	assert.Equal(t, uint64(20), w.Tick())
	hub.Close()

	types := map[core.EventType]int{}
	var lastTick uint64
	for b := range sub.Receive() {
		assert.Greater(t, b.Tick, lastTick)
		lastTick = b.Tick
		for _, ev := range b.Events {
			types[ev.Type()]++
		}
	}
	assert.Equal(t, 1, types[core.EventSpawned])
	assert.Equal(t, 2, types[core.EventStartTileMove])
	assert.Equal(t, 1, types[core.EventFinishTileMove])
	assert.Equal(t, 1, types[core.EventFinishMove])

	e, _ := w.Entity(1)
	assert.Equal(t, core.Position{X: 2}, e.Position)
	assert.Nil(t, e.Intention)
}

func TestDriver_StopWhenDecided(t *testing.T) {
	s := testSettings()
	s.Mode = clock.Accelerated
	w := newWorld(t, []string{"....."}, s)
	require.NoError(t, w.Submit(Spawn{ID: 1, Kind: core.KindSoldier, Side: core.SideAllies}))
	require.NoError(t, w.Submit(Spawn{ID: 2, Kind: core.KindSoldier, Side: core.SideAxis, Position: core.Position{X: 4}}))

	d := NewDriver(w, nil, nil)
	d.StopWhenDecided = true
	reason, err := d.Run(context.Background(), epoch, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, ReasonDecided, reason)
	assert.Equal(t, uint64(1), w.Tick())
}

func TestDriver_Canceled(t *testing.T) {
	w := newWorld(t, []string{"."}, testSettings())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reason, err := NewDriver(w, nil, nil).Run(ctx, epoch, 0)
	require.NoError(t, err)
	assert.Equal(t, ReasonCanceled, reason)
}

func TestSettings_Profile(t *testing.T) {
	s := DefaultSettings()
	assert.Equal(t, 3.0, s.Profile(core.KindVehicle).Coefficient)

	custom := core.MovementProfile{Walk: time.Second, Coefficient: 2}
	s.Profiles = map[core.Kind]core.MovementProfile{core.KindSoldier: custom}
	assert.Equal(t, custom, s.Profile(core.KindSoldier))
	assert.Equal(t, DefaultProfiles[core.KindVehicle], s.Profile(core.KindVehicle))
}
