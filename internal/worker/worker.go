package worker

import (
	"errors"
	"log/slog"

	"github.com/OCAP2/tactical/internal/battle"
	"github.com/OCAP2/tactical/internal/cache"
	"github.com/OCAP2/tactical/internal/influx"
	"github.com/OCAP2/tactical/internal/parser"
	"github.com/OCAP2/tactical/internal/simulation"
	"github.com/OCAP2/tactical/internal/storage"
)

// ErrNoSimulation is returned for commands that arrive before a world is attached.
var ErrNoSimulation = errors.New("no simulation running")

// Submitter queues commands for the simulation loop. *simulation.World satisfies it.
type Submitter interface {
	Submit(cmd simulation.Command) error
}

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	EntityCache   *cache.EntityCache
	NameCache     *cache.NameCache
	Logger        *slog.Logger
	ParserService parser.Service
	// Influx receives :METRIC: points and combat events. Optional.
	Influx *influx.Manager
	// BattleContext follows the last tick published. Optional.
	BattleContext *battle.Context
	// BattleName tags influx points.
	BattleName func() string
}

// Manager turns intake commands into simulation commands and simulation
// events into storage writes.
type Manager struct {
	deps    Dependencies
	backend storage.Backend
	world   Submitter
}

// NewManager creates a new worker manager. backend may be nil.
func NewManager(deps Dependencies, backend storage.Backend, world Submitter) *Manager {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.EntityCache == nil {
		deps.EntityCache = cache.NewEntityCache()
	}
	if deps.NameCache == nil {
		deps.NameCache = cache.NewNameCache()
	}
	if deps.BattleName == nil {
		deps.BattleName = func() string { return "" }
		if deps.BattleContext != nil {
			ctx := deps.BattleContext
			deps.BattleName = func() string { return ctx.GetBattle().Name }
		}
	}
	return &Manager{
		deps:    deps,
		backend: backend,
		world:   world,
	}
}

func (m *Manager) hasBackend() bool {
	return m.backend != nil
}
