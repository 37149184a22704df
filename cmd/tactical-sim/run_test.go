package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/tactical/internal/config"
	"github.com/OCAP2/tactical/internal/storage/memory"
	"github.com/OCAP2/tactical/pkg/core"
)

const skirmishScenario = `
name: Skirmish
map: field
duration: 30s
rows:
  - "........"
  - "........"
  - "........"
entities:
  - id: 1
    name: Miller
    kind: soldier
    side: allies
    position: [0, 1]
  - id: 2
    name: Weber
    kind: soldier
    side: axis
    position: [7, 1]
    combatMode: hide
orders:
  - ':ORDER:MOVE: Miller "3,1" run'
  - ':ORDER:MOVE: 9 "3,1"'
`

func TestRunBattle_Accelerated(t *testing.T) {
	dir := t.TempDir()
	replays := filepath.Join(dir, "replays")
	cfg := fmt.Sprintf(`{
		"logLevel": "error",
		"logsDir": %q,
		"simulation": {"mode": "accelerated", "tickRate": "100ms", "stopWhenDecided": false},
		"storage": {"type": "memory", "memory": {"outputDir": %q, "compressOutput": false}},
		"monitor": {"interval": "1h"}
	}`, filepath.Join(dir, "logs"), replays)
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), []byte(cfg), 0644))
	scenario := writeFile(t, "skirmish.yaml", skirmishScenario)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	res, err := runBattle(ctx, runOptions{ConfigDir: dir, ScenarioPath: scenario})
	require.NoError(t, err)

	assert.Equal(t, "Skirmish", res.Battle.Name)
	assert.Equal(t, "duration", res.Summary.Reason)
	assert.Equal(t, uint64(300), res.Summary.Ticks)
	assert.Equal(t, 30*time.Second, res.Summary.Duration)
	require.NotEmpty(t, res.ReplayPath)
	assert.Equal(t, replays, filepath.Dir(res.ReplayPath))

	replay, err := memory.ReadExport(res.ReplayPath)
	require.NoError(t, err)
	require.Len(t, replay.Entities, 2)
	assert.Equal(t, "Miller", replay.Entities[0].Name)
	assert.Equal(t, core.SideAxis, replay.Entities[1].Side)

	// Miller ran to 3,1: the track ends there unless he was shot on the way
	track := replay.Entities[0].Positions
	require.NotEmpty(t, track)
	if replay.Entities[0].DeathTick == nil {
		last := track[len(track)-1]
		assert.EqualValues(t, 3, last[1])
		assert.EqualValues(t, 1, last[2])
	}

	logs, err := os.ReadDir(filepath.Join(dir, "logs"))
	require.NoError(t, err)
	assert.NotEmpty(t, logs)
}

func TestRunBattle_MissingScenario(t *testing.T) {
	dir := t.TempDir()
	cfg := fmt.Sprintf(`{"logsDir": %q}`, filepath.Join(dir, "logs"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), []byte(cfg), 0644))

	_, err := runBattle(context.Background(), runOptions{ConfigDir: dir, ScenarioPath: filepath.Join(dir, "missing.yaml")})
	assert.Error(t, err)
}
