// Package sqlitestorage implements the storage.Backend interface using an
// in-memory SQLite database with periodic disk dumps via VACUUM INTO.
// It wraps the GORM backend; the only SQLite-specific concerns are creating
// the in-memory DB and dumping it to disk.
package sqlitestorage

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/OCAP2/tactical/internal/battle"
	"github.com/OCAP2/tactical/internal/database"
	gormstorage "github.com/OCAP2/tactical/internal/storage/gorm"
	"github.com/OCAP2/tactical/pkg/core"
	"github.com/rs/zerolog"

	"gorm.io/gorm"
)

// Config holds configuration for the SQLite storage backend.
type Config struct {
	DumpInterval time.Duration
	OutputDir    string // Directory for VACUUM INTO dumps
	// Path is the live database file. Empty means in memory.
	Path string
}

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	db  *gorm.DB
	cfg Config
	log *slog.Logger

	mu       sync.Mutex
	dumpPath string
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New creates a new SQLite storage backend.
func New(cfg Config, logger *slog.Logger, dbLogger zerolog.Logger, battleCtx *battle.Context) (*Backend, error) {
	db, err := database.OpenSQLite(cfg.Path, dbLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create SQLite DB: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	gormBackend := gormstorage.New(gormstorage.Dependencies{
		DB:            db,
		Logger:        logger,
		DBLogger:      dbLogger,
		BattleContext: battleCtx,
	})

	return &Backend{
		Backend:  gormBackend,
		db:       db,
		cfg:      cfg,
		log:      logger,
		stopChan: make(chan struct{}),
	}, nil
}

// Init initializes the embedded GORM backend and starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}

	if b.cfg.OutputDir != "" && b.cfg.DumpInterval > 0 {
		b.wg.Add(1)
		go b.dumpLoop()
	}
	return nil
}

// Close stops the dump goroutine and closes the embedded GORM backend.
func (b *Backend) Close() error {
	select {
	case <-b.stopChan:
	default:
		close(b.stopChan)
	}
	b.wg.Wait()
	return b.Backend.Close()
}

// StartBattle records the battle and picks the file it is dumped to.
func (b *Backend) StartBattle(coreBattle *core.Battle) error {
	if err := b.Backend.StartBattle(coreBattle); err != nil {
		return err
	}
	if b.cfg.OutputDir != "" {
		b.mu.Lock()
		b.dumpPath = database.DumpPath(b.cfg.OutputDir, coreBattle.Name, coreBattle.StartTime)
		b.mu.Unlock()
	}
	return nil
}

// EndBattle writes the summary and takes a final dump.
func (b *Backend) EndBattle(summary *core.BattleSummary) error {
	if err := b.Backend.EndBattle(summary); err != nil {
		return err
	}
	return b.Dump()
}

// DumpPath returns the file the current battle is dumped to.
func (b *Backend) DumpPath() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dumpPath
}

// Dump flushes pending rows and writes a point-in-time copy to disk. It is a
// no-op before the first battle or without an output directory.
func (b *Backend) Dump() error {
	path := b.DumpPath()
	if path == "" {
		return nil
	}
	b.Flush()

	start := time.Now()
	if err := database.DumpToDisk(b.db, path); err != nil {
		return err
	}
	b.log.Debug("Dumped SQLite DB to disk", "path", path, "duration", time.Since(start))
	return nil
}

// dumpLoop periodically dumps the database to disk via VACUUM INTO.
// VACUUM INTO creates a point-in-time snapshot, so no pause mechanism is needed.
func (b *Backend) dumpLoop() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.Dump(); err != nil {
				b.log.Error("Error dumping to disk", "error", err)
			}
		}
	}
}
