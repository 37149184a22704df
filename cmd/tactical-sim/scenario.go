package main

import (
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/spf13/viper"

	"github.com/OCAP2/tactical/internal/grid"
	"github.com/OCAP2/tactical/internal/util"
	"github.com/OCAP2/tactical/internal/worker"
)

// Scenario is a battle description read from a YAML or JSON file.
type Scenario struct {
	Name     string           `mapstructure:"name"`
	Map      string           `mapstructure:"map"`
	Tag      string           `mapstructure:"tag"`
	Duration time.Duration    `mapstructure:"duration"`
	Legend   []LegendEntry    `mapstructure:"legend"`
	Rows     []string         `mapstructure:"rows"`
	Entities []ScenarioEntity `mapstructure:"entities"`
	// Orders are intake command lines issued before the first tick,
	// e.g. `:ORDER:MOVE: 1 "6,2" run`.
	Orders []string `mapstructure:"orders"`
}

// LegendEntry adds or replaces the terrain of one map character. It is a list
// rather than a map because viper lowercases keys.
type LegendEntry struct {
	Tile         string `mapstructure:"tile"`
	grid.Terrain `mapstructure:",squash"`
}

// ScenarioEntity is one unit placed on the map at the start.
type ScenarioEntity struct {
	ID         int     `mapstructure:"id"`
	Name       string  `mapstructure:"name"`
	Kind       string  `mapstructure:"kind"`
	Side       string  `mapstructure:"side"`
	Position   []int   `mapstructure:"position"`
	Direction  float64 `mapstructure:"direction"`
	CombatMode string  `mapstructure:"combatMode"`
}

// LoadScenario reads a scenario file. The format follows the file extension.
func LoadScenario(path string) (*Scenario, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("tag", viper.GetString("defaultTag"))
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading scenario: %w", err)
	}

	var sc Scenario
	if err := v.Unmarshal(&sc); err != nil {
		return nil, fmt.Errorf("error decoding scenario: %w", err)
	}
	if sc.Name == "" {
		sc.Name = "Unnamed battle"
	}
	if sc.Map == "" {
		sc.Map = "custom"
	}
	return &sc, nil
}

// Grid builds the battle map. Extra legend entries override the default tiles.
func (sc *Scenario) Grid() (*grid.Grid, error) {
	legend := make(grid.Legend, len(grid.DefaultLegend)+len(sc.Legend))
	for r, t := range grid.DefaultLegend {
		legend[r] = t
	}
	for _, entry := range sc.Legend {
		if utf8.RuneCountInString(entry.Tile) != 1 {
			return nil, fmt.Errorf("legend tile %q must be a single character", entry.Tile)
		}
		r, _ := utf8.DecodeRuneInString(entry.Tile)
		legend[r] = entry.Terrain
	}
	return grid.Parse(sc.Rows, legend)
}

// Commands returns the intake commands that set the scenario up: one spawn
// per entity, its combat mode when given, then the orders in file order.
func (sc *Scenario) Commands() ([]command, error) {
	var cmds []command
	for i, e := range sc.Entities {
		if len(e.Position) != 2 {
			return nil, fmt.Errorf("entity %d: position needs two coordinates, got %d", i, len(e.Position))
		}
		id := strconv.Itoa(e.ID)
		cmds = append(cmds, command{
			name: worker.CommandSpawn,
			args: []string{
				id,
				e.Name,
				e.Kind,
				e.Side,
				fmt.Sprintf("%d,%d", e.Position[0], e.Position[1]),
				strconv.FormatFloat(e.Direction, 'f', -1, 64),
			},
		})
		if e.CombatMode != "" {
			cmds = append(cmds, command{name: worker.CommandCombatMode, args: []string{id, e.CombatMode}})
		}
	}

	for i, line := range sc.Orders {
		name, args := util.SplitCommand(line)
		if name == "" {
			return nil, fmt.Errorf("order %d is empty", i)
		}
		cmds = append(cmds, command{name: name, args: args})
	}
	return cmds, nil
}

// command is one parsed intake line.
type command struct {
	name string
	args []string
}
