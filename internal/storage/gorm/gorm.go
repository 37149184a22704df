// Package gormstorage implements the storage.Backend interface on GORM with
// internal queues and a background DB writer goroutine. The postgres and
// sqlite backends wrap it.
package gormstorage

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/OCAP2/tactical/internal/battle"
	"github.com/OCAP2/tactical/internal/database"
	"github.com/OCAP2/tactical/internal/geo"
	"github.com/OCAP2/tactical/internal/model"
	"github.com/OCAP2/tactical/internal/model/convert"
	"github.com/OCAP2/tactical/internal/queue"
	"github.com/OCAP2/tactical/internal/storage"
	"github.com/OCAP2/tactical/pkg/core"
	"github.com/rs/zerolog"

	"gorm.io/gorm"
)

// DefaultFlushInterval is how often queued rows are written.
const DefaultFlushInterval = 2 * time.Second

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB
	Logger        *slog.Logger
	DBLogger      zerolog.Logger
	BattleContext *battle.Context
	FlushInterval time.Duration
}

// queues holds all the write queues for batch DB insertion.
type queues struct {
	Entities  *queue.Queue[model.Entity]
	Events    *queue.Queue[model.Event]
	StepStats *queue.Queue[model.StepStat]
}

func newQueues() *queues {
	return &queues{
		Entities:  queue.New[model.Entity](0),
		Events:    queue.New[model.Event](0),
		StepStats: queue.New[model.StepStat](0),
	}
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps     Dependencies
	queues   *queues
	battleID atomic.Uint64

	mu     sync.Mutex
	battle model.Battle
	tracks map[core.EntityID][]core.Position
	deaths map[core.EntityID]uint64

	flushMu  sync.Mutex
	stopChan chan struct{}
	done     chan struct{}
}

// Compile-time interface checks
var (
	_ storage.Backend       = (*Backend)(nil)
	_ storage.StatsRecorder = (*Backend)(nil)
)

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = DefaultFlushInterval
	}
	return &Backend{
		deps:   deps,
		tracks: make(map[core.EntityID][]core.Position),
		deaths: make(map[core.EntityID]uint64),
	}
}

// DB returns the underlying connection, nil in queue-only mode.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init creates internal queues, runs schema migration, and starts the DB
// writer goroutine. Without a DB the backend only queues.
func (b *Backend) Init() error {
	b.queues = newQueues()
	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})

	if b.deps.DB == nil {
		close(b.done)
		return nil
	}

	if err := database.Setup(b.deps.DB, b.deps.DBLogger); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	go b.writerLoop()
	return nil
}

// Close stops the DB writer goroutine after a final flush.
func (b *Backend) Close() error {
	if b.stopChan == nil {
		return nil
	}
	select {
	case <-b.stopChan:
		return nil
	default:
		close(b.stopChan)
	}
	<-b.done
	b.Flush()
	return nil
}

// StartBattle inserts the battle row so rows written later can reference it.
func (b *Backend) StartBattle(coreBattle *core.Battle) error {
	gormBattle := convert.CoreToBattle(*coreBattle)

	if b.deps.DB != nil {
		if err := b.deps.DB.Create(&gormBattle).Error; err != nil {
			return fmt.Errorf("failed to insert new battle: %w", err)
		}
		coreBattle.ID = gormBattle.ID
	}

	b.mu.Lock()
	b.battle = gormBattle
	b.tracks = make(map[core.EntityID][]core.Position)
	b.deaths = make(map[core.EntityID]uint64)
	b.mu.Unlock()

	b.battleID.Store(uint64(gormBattle.ID))
	if b.deps.BattleContext != nil {
		b.deps.BattleContext.SetBattle(coreBattle)
	}
	return nil
}

// SetBattleID sets the current battle ID for the DB writer (used by CLI tools).
func (b *Backend) SetBattleID(id uint) {
	b.battleID.Store(uint64(id))
}

// EndBattle flushes the queues, then writes the summary and entity tracks.
func (b *Backend) EndBattle(summary *core.BattleSummary) error {
	b.Flush()

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.deps.DB == nil {
		return nil
	}
	if b.battle.ID == 0 {
		return storage.ErrNoBattle
	}

	convert.ApplySummary(&b.battle, *summary)
	if err := b.deps.DB.Model(&model.Battle{}).Where("id = ?", b.battle.ID).Updates(map[string]any{
		"end_time":    b.battle.EndTime,
		"ticks":       b.battle.Ticks,
		"event_count": b.battle.EventCount,
		"reason":      b.battle.Reason,
		"survivors":   b.battle.Survivors,
		"casualties":  b.battle.Casualties,
	}).Error; err != nil {
		return fmt.Errorf("failed to update battle: %w", err)
	}

	for id, path := range b.tracks {
		updates := map[string]any{"track": geo.PathToLineString(path)}
		if tick, dead := b.deaths[id]; dead {
			updates["alive"] = false
			updates["death_tick"] = int64(tick)
		}
		if err := b.deps.DB.Model(&model.Entity{}).
			Where("battle_id = ? AND object_id = ?", b.battle.ID, uint16(id)).
			Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update entity %d: %w", id, err)
		}
	}
	return nil
}

// AddEntity converts a spawn to GORM and pushes it to the write queue.
func (b *Backend) AddEntity(s *core.Spawned) error {
	gormObj := convert.CoreToEntity(*s)

	b.mu.Lock()
	b.tracks[s.EntityID] = []core.Position{s.Position}
	b.mu.Unlock()

	return b.queues.Entities.Push(gormObj)
}

// RecordEvent converts and queues an event and follows entity tracks.
func (b *Backend) RecordEvent(e core.Event) error {
	gormObj, err := convert.CoreToEvent(e)
	if err != nil {
		return err
	}

	switch ev := e.(type) {
	case *core.FinishTileMove:
		b.arrive(ev.SubjectID, ev.MoveTo)
	case *core.FinishMove:
		b.arrive(ev.SubjectID, ev.MoveTo)
	case *core.Die:
		b.mu.Lock()
		if _, ok := b.deaths[ev.VictimID]; !ok {
			b.deaths[ev.VictimID] = ev.Tick
		}
		b.mu.Unlock()
	}

	return b.queues.Events.Push(gormObj)
}

func (b *Backend) arrive(id core.EntityID, pos core.Position) {
	b.mu.Lock()
	defer b.mu.Unlock()
	path, ok := b.tracks[id]
	if !ok {
		return
	}
	if n := len(path); n > 0 && path[n-1] == pos {
		return
	}
	b.tracks[id] = append(path, pos)
}

// RecordStepSample converts and queues a loop sample.
func (b *Backend) RecordStepSample(s core.StepSample) error {
	return b.queues.StepStats.Push(convert.CoreToStepStat(s))
}

// writeQueue writes all items from a queue to the database in a transaction.
// Failed batches are put back on the queue.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log *slog.Logger, prepare func([]T)) {
	items := q.Drain()
	if len(items) == 0 {
		return
	}
	if prepare != nil {
		prepare(items)
	}

	tx := db.Begin()
	if err := tx.Create(&items).Error; err != nil {
		log.Error("Error creating rows", "table", name, "count", len(items), "error", err)
		tx.Rollback()
		_ = q.Push(items...)
		return
	}
	if err := tx.Commit().Error; err != nil {
		log.Error("Error committing rows", "table", name, "count", len(items), "error", err)
		_ = q.Push(items...)
		return
	}
	log.Debug("Wrote rows", "table", name, "count", len(items))
}

// Flush writes everything queued so far. Without a DB it does nothing.
func (b *Backend) Flush() {
	if b.deps.DB == nil || b.queues == nil {
		return
	}
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	battleID := uint(b.battleID.Load())
	if battleID == 0 {
		return
	}

	writeQueue(b.deps.DB, b.queues.Entities, "entities", b.deps.Logger, func(items []model.Entity) {
		for i := range items {
			items[i].BattleID = battleID
		}
	})
	writeQueue(b.deps.DB, b.queues.Events, "events", b.deps.Logger, func(items []model.Event) {
		for i := range items {
			items[i].BattleID = battleID
		}
	})
	writeQueue(b.deps.DB, b.queues.StepStats, "step stats", b.deps.Logger, func(items []model.StepStat) {
		for i := range items {
			items[i].BattleID = battleID
		}
	})
}

// writerLoop periodically drains queues into the DB.
func (b *Backend) writerLoop() {
	defer close(b.done)
	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			b.Flush()
		}
	}
}
