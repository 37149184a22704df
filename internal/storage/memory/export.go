package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/OCAP2/tactical/pkg/core"
)

// ReplayVersion is written into every export.
const ReplayVersion = 1

// ReplayExport is the root JSON structure
type ReplayExport struct {
	Version    int               `json:"version"`
	BattleName string            `json:"battleName"`
	MapName    string            `json:"mapName"`
	Width      int               `json:"width"`
	Height     int               `json:"height"`
	Tag        string            `json:"tag"`
	Seed       int64             `json:"seed"`
	TickRateMs float64           `json:"tickRateMs"`
	StartTime  time.Time         `json:"startTime"`
	EndTime    time.Time         `json:"endTime"`
	EndTick    uint64            `json:"endTick"`
	Reason     string            `json:"reason"`
	Survivors  map[core.Side]int `json:"survivors"`
	Casualties map[core.Side]int `json:"casualties"`
	Entities   []EntityJSON      `json:"entities"`
	Events     []EventJSON       `json:"events"`
}

// EntityJSON represents a soldier or vehicle
type EntityJSON struct {
	ID        core.EntityID  `json:"id"`
	Name      string         `json:"name"`
	Kind      core.Kind      `json:"kind"`
	Side      core.Side      `json:"side"`
	Weapon    string         `json:"weapon,omitempty"`
	SpawnTick uint64         `json:"spawnTick"`
	DeathTick *uint64        `json:"deathTick,omitempty"`
	KilledBy  *core.EntityID `json:"killedBy,omitempty"`
	// Positions holds [tick, x, y, direction] per tile reached.
	Positions [][]any `json:"positions"`
	// FramesFired holds [tick, targetId, x, y] per shot.
	FramesFired [][]any `json:"framesFired"`
}

// EventJSON is one event with its payload kept verbatim.
type EventJSON struct {
	Tick    uint64          `json:"tick"`
	Type    core.EventType  `json:"type"`
	Subject core.EntityID   `json:"subject"`
	Data    json.RawMessage `json:"data"`
}

// Event decodes the payload.
func (e EventJSON) Event() (core.Event, error) {
	ev, err := core.NewEvent(e.Type)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(e.Data, ev); err != nil {
		return nil, fmt.Errorf("failed to decode %s event at tick %d: %w", e.Type, e.Tick, err)
	}
	return ev, nil
}

// exportFileName builds "<battle>_<start>.json[.gz]".
func exportFileName(battle *core.Battle, compress bool) string {
	name := strings.NewReplacer(" ", "_", ":", "_", "/", "_").Replace(battle.Name)
	timestamp := battle.StartTime.Format("20060102_150405")
	if compress {
		return fmt.Sprintf("%s_%s.json.gz", name, timestamp)
	}
	return fmt.Sprintf("%s_%s.json", name, timestamp)
}

// exportJSON writes the battle data to a (gzipped) JSON file
func (b *Backend) exportJSON() error {
	export := b.buildExport()

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(b.cfg.OutputDir, exportFileName(b.battle, b.cfg.CompressOutput))

	if err := WriteExport(outputPath, export, b.cfg.CompressOutput); err != nil {
		return err
	}

	b.lastExportPath = outputPath
	return nil
}

// buildExport assembles the replay. Events that cannot be encoded are logged
// and left out.
func (b *Backend) buildExport() ReplayExport {
	export := ReplayExport{
		Version:    ReplayVersion,
		BattleName: b.battle.Name,
		MapName:    b.battle.MapName,
		Width:      b.battle.Width,
		Height:     b.battle.Height,
		Tag:        b.battle.Tag,
		Seed:       b.battle.Seed,
		TickRateMs: b.battle.TickRate.Seconds() * 1000,
		StartTime:  b.battle.StartTime,
		Entities:   make([]EntityJSON, 0, len(b.order)),
		Events:     make([]EventJSON, 0, len(b.events)),
	}
	if b.summary != nil {
		export.EndTime = b.summary.EndTime
		export.EndTick = b.summary.Ticks
		export.Reason = b.summary.Reason
		export.Survivors = b.summary.Survivors
		export.Casualties = b.summary.Casualties
	}

	for _, id := range b.order {
		export.Entities = append(export.Entities, entityJSON(b.entities[id]))
	}

	for _, ev := range b.events {
		tick := ev.Meta().Tick
		data, err := json.Marshal(ev)
		if err != nil {
			b.logger.Warn("Skipping event in replay", "type", ev.Type(), "tick", tick, "error", err)
			continue
		}
		export.Events = append(export.Events, EventJSON{
			Tick:    tick,
			Type:    ev.Type(),
			Subject: ev.Subject(),
			Data:    data,
		})
		if tick > export.EndTick {
			export.EndTick = tick
		}
	}

	return export
}

func entityJSON(r *EntityRecord) EntityJSON {
	entity := EntityJSON{
		ID:          r.Entity.EntityID,
		Name:        r.Entity.Name,
		Kind:        r.Entity.Kind,
		Side:        r.Entity.Side,
		Weapon:      r.Entity.Weapon,
		SpawnTick:   r.Entity.Tick,
		Positions:   make([][]any, 0, len(r.Track)),
		FramesFired: make([][]any, 0, len(r.Fired)),
	}
	if r.Death != nil {
		tick := r.Death.Tick
		killer := r.Death.ShooterID
		entity.DeathTick = &tick
		entity.KilledBy = &killer
	}
	for _, p := range r.Track {
		entity.Positions = append(entity.Positions, []any{p.Tick, p.Position.X, p.Position.Y, p.Direction})
	}
	for _, f := range r.Fired {
		entity.FramesFired = append(entity.FramesFired, []any{f.Tick, f.TargetID, f.TargetPosition.X, f.TargetPosition.Y})
	}
	return entity
}

// WriteExport writes a replay to path, gzipped when compress is set.
func WriteExport(path string, data ReplayExport, compress bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if !compress {
		return json.NewEncoder(f).Encode(data)
	}

	gzWriter := gzip.NewWriter(f)
	if err := json.NewEncoder(gzWriter).Encode(data); err != nil {
		gzWriter.Close()
		return err
	}
	return gzWriter.Close()
}

// ReadExport loads a replay written by WriteExport. Files ending in .gz are
// decompressed.
func ReadExport(path string) (ReplayExport, error) {
	f, err := os.Open(path)
	if err != nil {
		return ReplayExport{}, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return ReplayExport{}, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	var export ReplayExport
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return ReplayExport{}, fmt.Errorf("failed to decode replay: %w", err)
	}
	return export, nil
}

// GetExportedFilePath returns the path of the last export, empty before the
// first battle ends.
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// GetExportMetadata describes the last export for upload.
func (b *Backend) GetExportMetadata() core.UploadMetadata {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var meta core.UploadMetadata
	if b.battle != nil {
		meta.BattleName = b.battle.Name
		meta.MapName = b.battle.MapName
		meta.Tag = b.battle.Tag
	}
	if b.summary != nil {
		meta.Duration = b.summary.Duration.Seconds()
	}
	return meta
}
