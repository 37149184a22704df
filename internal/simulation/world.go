// Package simulation runs the per-tick loop that moves entities, updates what
// they can see and resolves fire between them.
package simulation

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/OCAP2/tactical/internal/engagement"
	"github.com/OCAP2/tactical/internal/grid"
	"github.com/OCAP2/tactical/internal/movement"
	"github.com/OCAP2/tactical/internal/queue"
	"github.com/OCAP2/tactical/pkg/core"
)

// World owns every entity of a battle. Step and the entity accessors must
// only be called from the simulation goroutine; Submit and Status are safe
// from anywhere.
type World struct {
	grid     *grid.Grid
	settings Settings
	mover    *movement.Mover
	logger   *slog.Logger

	entities map[core.EntityID]*core.Entity
	order    []core.EntityID
	inbox    *queue.Queue[Command]
	look     *engagement.Throttle
	engage   *engagement.Throttle
	rng      *rand.Rand
	tick     uint64

	mu     sync.RWMutex
	status Status

	ticks    metric.Int64Counter
	emitted  metric.Int64Counter
	kills    metric.Int64Counter
	stepTime metric.Float64Histogram
}

// NewWorld creates an empty world on g. A nil logger discards output.
// Uses the global OTel meter for metrics (no-op if not configured).
func NewWorld(g *grid.Grid, settings Settings, logger *slog.Logger) (*World, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	w := &World{
		grid:     g,
		settings: settings,
		mover:    movement.NewMover(g, logger),
		logger:   logger,
		entities: make(map[core.EntityID]*core.Entity),
		inbox:    queue.New[Command](settings.InboxSize),
		look:     engagement.NewThrottle(settings.LookAroundFrequency),
		engage:   engagement.NewThrottle(settings.EngageFrequency),
		rng:      rand.New(rand.NewPCG(settings.Seed, settings.Seed^0x9e3779b97f4a7c15)),
		status:   Status{Alive: map[core.Side]int{}},
	}

	m := meter()
	var err error

	w.ticks, err = m.Int64Counter(
		"simulation.ticks",
		metric.WithDescription("Total ticks simulated"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating ticks counter: %w", err)
	}

	w.emitted, err = m.Int64Counter(
		"simulation.events",
		metric.WithDescription("Total domain events emitted"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating events counter: %w", err)
	}

	w.kills, err = m.Int64Counter(
		"simulation.kills",
		metric.WithDescription("Total entities killed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating kills counter: %w", err)
	}

	w.stepTime, err = m.Float64Histogram(
		"simulation.step.duration",
		metric.WithDescription("Time spent computing one tick"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating step histogram: %w", err)
	}

	return w, nil
}

// Grid returns the map the world runs on.
func (w *World) Grid() *grid.Grid { return w.grid }

// Settings returns the settings the world was created with.
func (w *World) Settings() Settings { return w.settings }

// Add places e in the world. Spawn positions must be walkable.
func (w *World) Add(e *core.Entity) error {
	if _, ok := w.entities[e.ID]; ok {
		return fmt.Errorf("spawn %d: %w", e.ID, ErrDuplicateEntity)
	}
	if !w.grid.Walkable(e.Position) {
		return fmt.Errorf("spawn %d at %s: %w", e.ID, e.Position, ErrInvalidPosition)
	}
	w.entities[e.ID] = e
	w.order = append(w.order, e.ID)
	return nil
}

// Entity returns the live entity with the given id.
func (w *World) Entity(id core.EntityID) (*core.Entity, bool) {
	e, ok := w.entities[id]
	return e, ok
}

// Entities returns all entities in spawn order.
func (w *World) Entities() []*core.Entity {
	out := make([]*core.Entity, 0, len(w.order))
	for _, id := range w.order {
		out = append(out, w.entities[id])
	}
	return out
}

// Tick returns the number of completed ticks.
func (w *World) Tick() uint64 { return w.tick }

func (w *World) living(id core.EntityID) (*core.Entity, error) {
	e, ok := w.entities[id]
	if !ok {
		return nil, fmt.Errorf("entity %d: %w", id, ErrUnknownEntity)
	}
	if !e.Alive {
		return nil, fmt.Errorf("entity %d: %w", id, ErrEntityDead)
	}
	return e, nil
}

// Submit queues cmd for the next tick.
func (w *World) Submit(cmd Command) error {
	if err := w.inbox.Push(cmd); err != nil {
		return fmt.Errorf("submitting %T: %w", cmd, err)
	}
	return nil
}

// Step advances the world by one tick at now and returns the events it
// produced, in processing order, stamped with the tick number.
func (w *World) Step(now time.Time) []core.Event {
	started := time.Now()
	w.tick++

	events := w.applyCommands(now)

	// others are seen where they stood when the tick began
	snapshot := w.snapshot()
	events = append(events, w.moveAll(now)...)
	events = append(events, w.lookAround(snapshot, now)...)
	events = append(events, w.fireAll(snapshot, now)...)

	var kills int64
	for _, ev := range events {
		ev.Stamp(w.tick, now)
		if ev.Type() == core.EventDie {
			kills++
		}
	}

	elapsed := time.Since(started)
	ctx := context.Background()
	w.ticks.Add(ctx, 1)
	w.emitted.Add(ctx, int64(len(events)))
	if kills > 0 {
		w.kills.Add(ctx, kills)
	}
	w.stepTime.Record(ctx, float64(elapsed.Microseconds())/1000,
		metric.WithAttributes(attribute.Int("entities", len(w.order))))

	w.updateStatus(now, elapsed, uint64(len(events)), uint64(kills))
	return events
}

func (w *World) applyCommands(now time.Time) []core.Event {
	var events []core.Event
	for _, cmd := range w.inbox.Drain() {
		evs, err := cmd.Apply(w, now)
		if err != nil {
			w.logger.Warn("command rejected", "command", fmt.Sprintf("%T", cmd), "error", err)
			continue
		}
		events = append(events, evs...)
	}
	return events
}

func (w *World) moveAll(now time.Time) []core.Event {
	var events []core.Event
	for _, id := range w.order {
		e := w.entities[id]
		if !e.Alive || e.Intention == nil {
			continue
		}
		evs, err := w.mover.Step(e, now)
		if err != nil {
			w.logger.Warn("move order abandoned", "entity", e.ID, "to", e.Intention.To, "error", err)
			e.SetIntention(nil)
			continue
		}
		events = append(events, evs...)
	}
	return events
}

func (w *World) snapshot() []core.Snapshot {
	out := make([]core.Snapshot, 0, len(w.order))
	for _, id := range w.order {
		out = append(out, w.entities[id].Snapshot())
	}
	return out
}

func (w *World) lookAround(snapshot []core.Snapshot, now time.Time) []core.Event {
	var events []core.Event
	for _, id := range w.order {
		e := w.entities[id]
		if !e.Alive || !w.look.Ready(id, now) {
			continue
		}
		w.look.Mark(id, now)
		delta := engagement.RunVisibility(e, snapshot, w.grid)
		events = append(events, engagement.ApplyVisibility(e, delta)...)
	}
	return events
}

// fireAll resolves one shot per ready entity. Targets are taken from the
// start-of-tick snapshot; whether a victim is still alive is read live.
func (w *World) fireAll(snapshot []core.Snapshot, now time.Time) []core.Event {
	byID := make(map[core.EntityID]core.Snapshot, len(snapshot))
	for _, s := range snapshot {
		byID[s.ID] = s
	}

	var events []core.Event
	for _, id := range w.order {
		e := w.entities[id]
		if !e.Alive || !w.engage.Ready(id, now) {
			continue
		}
		visible := make([]core.Snapshot, 0)
		for _, target := range e.VisibleOpponents() {
			if s, ok := byID[target]; ok && s.Alive {
				visible = append(visible, s)
			}
		}
		outcome, ok := engagement.RunEngagement(e, visible, w.rng, w.settings.KillProbability)
		if !ok {
			continue
		}
		w.engage.Mark(id, now)
		evs := engagement.ApplyEngagement(outcome, w)
		for _, ev := range evs {
			if die, ok := ev.(*core.Die); ok {
				w.logger.Info("entity killed", "shooter", die.ShooterID, "victim", die.VictimID)
				w.look.Forget(die.VictimID)
				w.engage.Forget(die.VictimID)
			}
		}
		events = append(events, evs...)
	}
	return events
}

// Summary reports survivors and casualties per side at end.
func (w *World) Summary(end time.Time, reason string) *core.BattleSummary {
	st := w.Status()
	s := &core.BattleSummary{
		EndTime:    end,
		Ticks:      w.tick,
		Events:     st.Events,
		Survivors:  map[core.Side]int{},
		Casualties: map[core.Side]int{},
		Reason:     reason,
	}
	for _, id := range w.order {
		e := w.entities[id]
		if e.Alive {
			s.Survivors[e.Side]++
		} else {
			s.Casualties[e.Side]++
		}
	}
	return s
}
