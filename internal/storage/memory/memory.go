// Package memory keeps a battle in memory and exports it as a JSON replay
// when the battle ends.
package memory

import (
	"log/slog"
	"sync"

	"github.com/OCAP2/tactical/internal/config"
	"github.com/OCAP2/tactical/internal/storage"
	"github.com/OCAP2/tactical/pkg/core"
)

// TrackPoint is a tile an entity arrived on.
type TrackPoint struct {
	Tick      uint64
	Position  core.Position
	Direction float64
}

// EntityRecord groups an entity with everything it did
type EntityRecord struct {
	Entity    core.Spawned
	Direction float64
	Track     []TrackPoint
	Fired     []core.Fire
	Death     *core.Die
}

// Alive reports whether the entity has not been killed.
func (r *EntityRecord) Alive() bool { return r.Death == nil }

// Backend stores battle data in memory and exports to JSON
type Backend struct {
	cfg     config.MemoryConfig
	battle  *core.Battle
	summary *core.BattleSummary

	entities map[core.EntityID]*EntityRecord
	order    []core.EntityID
	events   []core.Event

	lastExportPath string
	mu             sync.RWMutex
	logger         *slog.Logger
}

// New creates a new memory backend
func New(cfg config.MemoryConfig, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		cfg:      cfg,
		entities: make(map[core.EntityID]*EntityRecord),
		logger:   logger,
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartBattle begins recording a new battle
func (b *Backend) StartBattle(battle *core.Battle) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.battle = battle
	b.summary = nil
	b.entities = make(map[core.EntityID]*EntityRecord)
	b.order = nil
	b.events = nil
	b.lastExportPath = ""
	return nil
}

// EndBattle finalizes and exports the battle data
func (b *Backend) EndBattle(summary *core.BattleSummary) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.battle == nil {
		return storage.ErrNoBattle
	}
	b.summary = summary
	return b.exportJSON()
}

// AddEntity registers a spawned entity. A repeated id replaces the old record.
func (b *Backend) AddEntity(s *core.Spawned) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.battle == nil {
		return storage.ErrNoBattle
	}
	if _, ok := b.entities[s.EntityID]; !ok {
		b.order = append(b.order, s.EntityID)
	}
	b.entities[s.EntityID] = &EntityRecord{
		Entity:    *s,
		Direction: s.Direction,
		Track:     []TrackPoint{{Tick: s.Tick, Position: s.Position, Direction: s.Direction}},
	}
	return nil
}

// RecordEvent appends e to the event log and updates the entity it concerns.
func (b *Backend) RecordEvent(e core.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.battle == nil {
		return storage.ErrNoBattle
	}
	b.events = append(b.events, e)

	switch ev := e.(type) {
	case *core.FinishRotation:
		if r, ok := b.entities[ev.SubjectID]; ok {
			r.Direction = ev.RotationAbsolute
		}
	case *core.FinishTileMove:
		b.arrive(ev.SubjectID, ev.Tick, ev.MoveTo)
	case *core.FinishMove:
		b.arrive(ev.SubjectID, ev.Tick, ev.MoveTo)
	case *core.Fire:
		if r, ok := b.entities[ev.ShooterID]; ok {
			r.Fired = append(r.Fired, *ev)
		}
	case *core.Die:
		if r, ok := b.entities[ev.VictimID]; ok && r.Death == nil {
			die := *ev
			r.Death = &die
		}
	}
	return nil
}

func (b *Backend) arrive(id core.EntityID, tick uint64, pos core.Position) {
	r, ok := b.entities[id]
	if !ok {
		return
	}
	if n := len(r.Track); n > 0 && r.Track[n-1].Position == pos {
		return
	}
	r.Track = append(r.Track, TrackPoint{Tick: tick, Position: pos, Direction: r.Direction})
}

// GetEntity looks up an entity record by id
func (b *Backend) GetEntity(id core.EntityID) (EntityRecord, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	r, ok := b.entities[id]
	if !ok {
		return EntityRecord{}, false
	}
	out := *r
	out.Track = append([]TrackPoint(nil), r.Track...)
	out.Fired = append([]core.Fire(nil), r.Fired...)
	return out, true
}

// Events returns the recorded events in order.
func (b *Backend) Events() []core.Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.Event(nil), b.events...)
}

// EventCount returns the number of recorded events.
func (b *Backend) EventCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.events)
}
