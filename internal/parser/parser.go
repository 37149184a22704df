// Package parser converts raw command arguments into simulation commands.
// It does no I/O and touches no simulation state.
package parser

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/OCAP2/tactical/internal/geo"
	"github.com/OCAP2/tactical/internal/simulation"
	"github.com/OCAP2/tactical/internal/util"
	"github.com/OCAP2/tactical/pkg/core"
)

// ErrArgCount is returned when a command has too few or too many arguments.
var ErrArgCount = errors.New("wrong number of arguments")

// Service is what the worker needs from a parser.
type Service interface {
	ParseSpawn(args []string) (simulation.Spawn, error)
	ParseMove(args []string) (simulation.Move, error)
	ParseStop(args []string) (simulation.Stop, error)
	ParseCombatMode(args []string) (simulation.SetCombatMode, error)
}

// parseUintFromFloat parses a string that may be an integer ("32") or float ("32.00") into uint64.
// Clients written in scripting languages often send every number as a float.
func parseUintFromFloat(s string) (uint64, error) {
	if v, err := strconv.ParseUint(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f < 0 || f != float64(uint64(f)) {
		return 0, fmt.Errorf("parseUintFromFloat: %q is not a valid uint64", s)
	}
	return uint64(f), nil
}

// parseEntityID parses an entity id that fits a core.EntityID.
func parseEntityID(s string) (core.EntityID, error) {
	v, err := parseUintFromFloat(s)
	if err != nil {
		return 0, fmt.Errorf("error converting entity id: %w", err)
	}
	if v > 0xFFFF {
		return 0, fmt.Errorf("entity id %d out of range", v)
	}
	return core.EntityID(v), nil
}

// Parser provides pure []string -> command conversion.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a new parser with only a logger dependency
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Parser{logger: logger}
}

func checkArgs(args []string, min, max int) error {
	if len(args) < min || len(args) > max {
		if min == max {
			return fmt.Errorf("%w: got %d, want %d", ErrArgCount, len(args), min)
		}
		return fmt.Errorf("%w: got %d, want %d to %d", ErrArgCount, len(args), min, max)
	}
	return nil
}

// ParseSpawn parses: id, name, kind, side, "x,y" [, direction].
func (p *Parser) ParseSpawn(args []string) (simulation.Spawn, error) {
	var spawn simulation.Spawn
	if err := checkArgs(args, 5, 6); err != nil {
		return spawn, err
	}
	data := util.CleanArgs(args)

	id, err := parseEntityID(data[0])
	if err != nil {
		return spawn, err
	}
	spawn.ID = id
	spawn.Name = data[1]

	if spawn.Kind, err = core.ParseKind(data[2]); err != nil {
		return spawn, fmt.Errorf("error parsing kind: %w", err)
	}
	if spawn.Side, err = core.ParseSide(data[3]); err != nil {
		return spawn, fmt.Errorf("error parsing side: %w", err)
	}
	if spawn.Position, err = geo.PositionFromString(data[4]); err != nil {
		return spawn, fmt.Errorf("error parsing position %q: %w", data[4], err)
	}

	if len(data) == 6 {
		spawn.Direction, err = strconv.ParseFloat(data[5], 64)
		if err != nil {
			return spawn, fmt.Errorf("error converting direction to float: %w", err)
		}
	}

	p.logger.Debug("parsed spawn", "id", spawn.ID, "kind", spawn.Kind.String(), "position", spawn.Position.String())
	return spawn, nil
}

// ParseMove parses: id, "x,y" [, order kind]. The order kind defaults to walk.
func (p *Parser) ParseMove(args []string) (simulation.Move, error) {
	var move simulation.Move
	if err := checkArgs(args, 2, 3); err != nil {
		return move, err
	}
	data := util.CleanArgs(args)

	id, err := parseEntityID(data[0])
	if err != nil {
		return move, err
	}
	move.ID = id

	if move.To, err = geo.PositionFromString(data[1]); err != nil {
		return move, fmt.Errorf("error parsing destination %q: %w", data[1], err)
	}

	move.Kind = core.OrderWalk
	if len(data) == 3 {
		if move.Kind, err = core.ParseOrderKind(data[2]); err != nil {
			return move, err
		}
	}
	return move, nil
}

// ParseStop parses: id.
func (p *Parser) ParseStop(args []string) (simulation.Stop, error) {
	if err := checkArgs(args, 1, 1); err != nil {
		return simulation.Stop{}, err
	}
	id, err := parseEntityID(util.CleanArgs(args)[0])
	if err != nil {
		return simulation.Stop{}, err
	}
	return simulation.Stop{ID: id}, nil
}

// ParseCombatMode parses: id, mode.
func (p *Parser) ParseCombatMode(args []string) (simulation.SetCombatMode, error) {
	var cmd simulation.SetCombatMode
	if err := checkArgs(args, 2, 2); err != nil {
		return cmd, err
	}
	data := util.CleanArgs(args)

	id, err := parseEntityID(data[0])
	if err != nil {
		return cmd, err
	}
	cmd.ID = id
	if cmd.Mode, err = core.ParseCombatMode(data[1]); err != nil {
		return cmd, err
	}
	return cmd, nil
}
