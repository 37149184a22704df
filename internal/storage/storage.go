package storage

import (
	"errors"

	"github.com/OCAP2/tactical/pkg/core"
)

// ErrNoBattle is returned when events arrive before StartBattle.
var ErrNoBattle = errors.New("no battle in progress")

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Battle management
	StartBattle(battle *core.Battle) error
	EndBattle(summary *core.BattleSummary) error

	// Entity registration
	AddEntity(s *core.Spawned) error

	// Event recording
	RecordEvent(e core.Event) error
}

// Uploadable is an optional interface for storage backends that produce
// files suitable for upload to a replay server.
type Uploadable interface {
	GetExportedFilePath() string
	GetExportMetadata() core.UploadMetadata
}

// StatsRecorder is an optional interface for backends that keep loop samples.
type StatsRecorder interface {
	RecordStepSample(s core.StepSample) error
}

// Record hands ev to the matching Backend method. Spawns register the entity
// and are recorded as events too.
func Record(b Backend, ev core.Event) error {
	if s, ok := ev.(*core.Spawned); ok {
		if err := b.AddEntity(s); err != nil {
			return err
		}
	}
	return b.RecordEvent(ev)
}

// RecordAll records events in order and returns the joined errors.
func RecordAll(b Backend, events []core.Event) error {
	var errs []error
	for _, ev := range events {
		if err := Record(b, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
