package worker

import (
	"fmt"
	"strconv"

	"github.com/OCAP2/tactical/internal/dispatcher"
	"github.com/OCAP2/tactical/internal/influx"
	"github.com/OCAP2/tactical/internal/simulation"
	"github.com/OCAP2/tactical/internal/util"
	"github.com/OCAP2/tactical/pkg/core"
)

// Intake commands.
const (
	CommandSpawn      = ":SPAWN:"
	CommandMove       = ":ORDER:MOVE:"
	CommandStop       = ":ORDER:STOP:"
	CommandCombatMode = ":COMBAT:MODE:"
	CommandMetric     = ":METRIC:"
)

// RegisterHandlers registers all command handlers with the dispatcher.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	// sync so the caches know the entity before its first order arrives
	d.Register(CommandSpawn, m.handleSpawn, dispatcher.Logged())

	d.Register(CommandMove, m.handleMove, dispatcher.Buffered(1000), dispatcher.Logged())
	d.Register(CommandStop, m.handleStop, dispatcher.Buffered(1000), dispatcher.Logged())
	d.Register(CommandCombatMode, m.handleCombatMode, dispatcher.Buffered(1000), dispatcher.Logged())

	if m.deps.Influx != nil {
		d.Register(CommandMetric, m.handleMetric, dispatcher.Buffered(1000))
	}
}

func (m *Manager) submit(cmd simulation.Command) error {
	if m.world == nil {
		return ErrNoSimulation
	}
	return m.world.Submit(cmd)
}

// resolveSubject replaces a unit name in the first argument with its id.
func (m *Manager) resolveSubject(args []string) []string {
	if len(args) == 0 {
		return args
	}
	name := util.CleanArgs(args[:1])[0]
	if _, err := strconv.ParseFloat(name, 64); err == nil {
		return args
	}
	id, ok := m.deps.NameCache.Get(name)
	if !ok {
		return args
	}
	out := make([]string, len(args))
	copy(out, args)
	out[0] = strconv.Itoa(int(id))
	return out
}

// checkAlive rejects orders for units the intake never saw or knows are dead.
func (m *Manager) checkAlive(id core.EntityID) error {
	if _, ok := m.deps.EntityCache.Get(id); !ok {
		return fmt.Errorf("entity %d: %w", id, simulation.ErrUnknownEntity)
	}
	if !m.deps.EntityCache.Alive(id) {
		return fmt.Errorf("entity %d: %w", id, simulation.ErrEntityDead)
	}
	return nil
}

func (m *Manager) handleSpawn(r dispatcher.Request) (any, error) {
	spawn, err := m.deps.ParserService.ParseSpawn(r.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse spawn: %w", err)
	}
	if _, ok := m.deps.EntityCache.Get(spawn.ID); ok {
		return nil, fmt.Errorf("spawn %d: %w", spawn.ID, simulation.ErrDuplicateEntity)
	}
	if err := m.submit(spawn); err != nil {
		return nil, err
	}

	m.deps.EntityCache.Add(core.Spawned{
		EntityID:  spawn.ID,
		Name:      spawn.Name,
		Kind:      spawn.Kind,
		Side:      spawn.Side,
		Position:  spawn.Position,
		Direction: spawn.Direction,
	})
	m.deps.NameCache.Set(spawn.Name, spawn.ID)
	return spawn.ID, nil
}

func (m *Manager) handleMove(r dispatcher.Request) (any, error) {
	move, err := m.deps.ParserService.ParseMove(m.resolveSubject(r.Args))
	if err != nil {
		return nil, fmt.Errorf("failed to parse move order: %w", err)
	}
	if err := m.checkAlive(move.ID); err != nil {
		return nil, err
	}
	return nil, m.submit(move)
}

func (m *Manager) handleStop(r dispatcher.Request) (any, error) {
	stop, err := m.deps.ParserService.ParseStop(m.resolveSubject(r.Args))
	if err != nil {
		return nil, fmt.Errorf("failed to parse stop order: %w", err)
	}
	if err := m.checkAlive(stop.ID); err != nil {
		return nil, err
	}
	return nil, m.submit(stop)
}

func (m *Manager) handleCombatMode(r dispatcher.Request) (any, error) {
	cmd, err := m.deps.ParserService.ParseCombatMode(m.resolveSubject(r.Args))
	if err != nil {
		return nil, fmt.Errorf("failed to parse combat mode: %w", err)
	}
	if err := m.checkAlive(cmd.ID); err != nil {
		return nil, err
	}
	return nil, m.submit(cmd)
}

func (m *Manager) handleMetric(r dispatcher.Request) (any, error) {
	bucket, point, err := influx.ParseMetric(util.CleanArgs(r.Args))
	if err != nil {
		return nil, fmt.Errorf("failed to parse metric: %w", err)
	}
	return nil, m.deps.Influx.WritePoint(bucket, point)
}

// Handle runs one intake command synchronously, without the dispatcher's
// buffering. Commands issued this way reach the world in call order.
func (m *Manager) Handle(r dispatcher.Request) (any, error) {
	switch r.Command {
	case CommandSpawn:
		return m.handleSpawn(r)
	case CommandMove:
		return m.handleMove(r)
	case CommandStop:
		return m.handleStop(r)
	case CommandCombatMode:
		return m.handleCombatMode(r)
	case CommandMetric:
		if m.deps.Influx != nil {
			return m.handleMetric(r)
		}
	}
	return nil, fmt.Errorf("%w: %s", dispatcher.ErrUnknownCommand, r.Command)
}
