package memory

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/OCAP2/tactical/internal/config"
	"github.com/OCAP2/tactical/internal/storage"
	"github.com/OCAP2/tactical/pkg/core"
)

func recordSkirmish(t *testing.T, b *Backend) *core.BattleSummary {
	t.Helper()
	if err := b.StartBattle(newBattle()); err != nil {
		t.Fatalf("StartBattle failed: %v", err)
	}
	events := []core.Event{
		spawned(1, core.SideAllies, 0, 0),
		spawned(2, core.SideAxis, 4, 0),
		stamp(&core.NewVisibleOpponent{ObserverID: 1, ObservedID: 2}, 5),
		stamp(&core.FinishTileMove{SubjectID: 2, MoveTo: core.Position{X: 3, Y: 0}, OrderKind: core.OrderRun}, 10),
		stamp(&core.Fire{ShooterID: 1, TargetID: 2, TargetPosition: core.Position{X: 3, Y: 0}, WeaponType: "rifle"}, 20),
		stamp(&core.Die{ShooterID: 1, VictimID: 2}, 20),
	}
	if err := storage.RecordAll(b, events); err != nil {
		t.Fatalf("RecordAll failed: %v", err)
	}
	return &core.BattleSummary{
		EndTime:    battleStart.Add(3 * time.Second),
		Ticks:      30,
		Events:     uint64(len(events)),
		Survivors:  map[core.Side]int{core.SideAllies: 1},
		Casualties: map[core.Side]int{core.SideAxis: 1},
		Duration:   3 * time.Second,
		Reason:     "decided",
	}
}

func TestFilenameGeneration(t *testing.T) {
	battle := &core.Battle{Name: "Hill 112: Dawn", StartTime: battleStart}

	if got := exportFileName(battle, true); got != "Hill_112__Dawn_20240606_063000.json.gz" {
		t.Errorf("unexpected gzip filename %s", got)
	}
	if got := exportFileName(battle, false); got != "Hill_112__Dawn_20240606_063000.json" {
		t.Errorf("unexpected filename %s", got)
	}
}

func TestBuildExport(t *testing.T) {
	b := New(config.MemoryConfig{}, nil)
	b.summary = recordSkirmish(t, b)

	export := b.buildExport()

	if export.Version != ReplayVersion || export.BattleName != "Hill 112" || export.MapName != "normandy" {
		t.Errorf("unexpected header %+v", export)
	}
	if export.TickRateMs != 100 {
		t.Errorf("expected tick rate 100ms, got %v", export.TickRateMs)
	}
	if export.EndTick != 30 {
		t.Errorf("expected end tick 30, got %d", export.EndTick)
	}
	if len(export.Entities) != 2 {
		t.Fatalf("expected 2 entities, got %d", len(export.Entities))
	}
	if export.Entities[0].ID != 1 || export.Entities[1].ID != 2 {
		t.Error("entities are not in spawn order")
	}

	victim := export.Entities[1]
	if victim.DeathTick == nil || *victim.DeathTick != 20 {
		t.Errorf("expected death at tick 20, got %v", victim.DeathTick)
	}
	if victim.KilledBy == nil || *victim.KilledBy != 1 {
		t.Errorf("expected killer 1, got %v", victim.KilledBy)
	}
	if len(victim.Positions) != 2 {
		t.Errorf("expected 2 positions, got %d", len(victim.Positions))
	}

	shooter := export.Entities[0]
	if shooter.DeathTick != nil {
		t.Error("shooter should have no death tick")
	}
	if len(shooter.FramesFired) != 1 {
		t.Fatalf("expected 1 shot, got %d", len(shooter.FramesFired))
	}
	if shot := shooter.FramesFired[0]; shot[0] != uint64(20) || shot[1] != core.EntityID(2) {
		t.Errorf("unexpected shot %v", shot)
	}

	if len(export.Events) != 6 {
		t.Fatalf("expected 6 events, got %d", len(export.Events))
	}
	if export.Events[5].Type != core.EventDie || export.Events[5].Subject != 1 {
		t.Errorf("unexpected last event %+v", export.Events[5])
	}
}

func TestBuildExport_SkipsUnencodableEvent(t *testing.T) {
	var logs bytes.Buffer
	b := New(config.MemoryConfig{}, slog.New(slog.NewTextHandler(&logs, nil)))
	b.summary = recordSkirmish(t, b)

	// zero OrderKind has no text form
	if err := b.RecordEvent(stamp(&core.StartTileMove{SubjectID: 1, MoveTo: core.Position{X: 1, Y: 0}}, 25)); err != nil {
		t.Fatalf("RecordEvent failed: %v", err)
	}

	export := b.buildExport()
	if len(export.Events) != 6 {
		t.Fatalf("expected 6 events, got %d", len(export.Events))
	}
	for _, ev := range export.Events {
		if ev.Type == core.EventStartTileMove {
			t.Errorf("unencodable event was exported: %+v", ev)
		}
	}
	if !strings.Contains(logs.String(), "Skipping event in replay") || !strings.Contains(logs.String(), "tick=25") {
		t.Errorf("expected a skip warning, got %q", logs.String())
	}
}

func TestEmptyExport(t *testing.T) {
	b := New(config.MemoryConfig{}, nil)
	_ = b.StartBattle(newBattle())

	export := b.buildExport()
	if export.Entities == nil || export.Events == nil {
		t.Error("empty export must have non-nil slices")
	}
	if export.EndTick != 0 {
		t.Errorf("expected end tick 0, got %d", export.EndTick)
	}
}

func TestExportRoundTrip(t *testing.T) {
	for _, compress := range []bool{true, false} {
		dir := t.TempDir()
		b := New(config.MemoryConfig{OutputDir: filepath.Join(dir, "nested", "out"), CompressOutput: compress}, nil)
		summary := recordSkirmish(t, b)

		if err := b.EndBattle(summary); err != nil {
			t.Fatalf("EndBattle failed: %v", err)
		}

		path := b.GetExportedFilePath()
		if strings.HasSuffix(path, ".gz") != compress {
			t.Errorf("unexpected export path %s for compress=%v", path, compress)
		}
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("export file missing: %v", err)
		}

		export, err := ReadExport(path)
		if err != nil {
			t.Fatalf("ReadExport failed: %v", err)
		}
		if export.BattleName != "Hill 112" || export.Reason != "decided" {
			t.Errorf("unexpected export header %+v", export)
		}
		if export.Casualties[core.SideAxis] != 1 {
			t.Errorf("expected one axis casualty, got %v", export.Casualties)
		}

		ev, err := export.Events[4].Event()
		if err != nil {
			t.Fatalf("Event decode failed: %v", err)
		}
		fire, ok := ev.(*core.Fire)
		if !ok {
			t.Fatalf("expected *core.Fire, got %T", ev)
		}
		if fire.TargetID != 2 || fire.WeaponType != "rifle" || fire.Tick != 20 {
			t.Errorf("unexpected fire event %+v", fire)
		}

		// JSON numbers come back as float64
		pos := export.Entities[1].Positions[1]
		if pos[0] != float64(10) || pos[1] != float64(3) || pos[2] != float64(0) {
			t.Errorf("unexpected position %v", pos)
		}
	}
}

func TestReadExport_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := ReadExport(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.json.gz")
	if err := os.WriteFile(bad, []byte("not gzip"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadExport(bad); err == nil {
		t.Error("expected error for corrupt gzip")
	}
}

func TestEventJSON_UnknownType(t *testing.T) {
	if _, err := (EventJSON{Type: "teleport", Data: []byte(`{}`)}).Event(); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestGetExportMetadata(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()}, nil)

	if b.GetExportedFilePath() != "" {
		t.Error("expected empty path before export")
	}

	summary := recordSkirmish(t, b)
	if err := b.EndBattle(summary); err != nil {
		t.Fatalf("EndBattle failed: %v", err)
	}

	meta := b.GetExportMetadata()
	if meta.BattleName != "Hill 112" || meta.MapName != "normandy" || meta.Tag != "Skirmish" {
		t.Errorf("unexpected metadata %+v", meta)
	}
	if meta.Duration != 3 {
		t.Errorf("expected duration 3s, got %v", meta.Duration)
	}
}
