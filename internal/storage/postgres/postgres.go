// Package postgres implements the storage.Backend interface on PostgreSQL
// with PostGIS. Writes go through the shared GORM backend.
package postgres

import (
	"fmt"
	"log/slog"

	"github.com/OCAP2/tactical/internal/battle"
	"github.com/OCAP2/tactical/internal/config"
	"github.com/OCAP2/tactical/internal/database"
	gormstorage "github.com/OCAP2/tactical/internal/storage/gorm"
	"github.com/rs/zerolog"

	"gorm.io/gorm"
)

// Dependencies holds all dependencies for the Postgres storage backend.
type Dependencies struct {
	Config        config.DBConfig
	Logger        *slog.Logger
	DBLogger      zerolog.Logger
	BattleContext *battle.Context
	// DB skips connecting when set.
	DB *gorm.DB
}

// Backend connects to Postgres on Init and delegates to the GORM backend.
type Backend struct {
	*gormstorage.Backend
	deps Dependencies
}

// New creates a new Postgres storage backend. No connection is made until Init.
func New(deps Dependencies) *Backend {
	return &Backend{deps: deps}
}

// Init connects, migrates the schema, and starts the DB writer goroutine.
func (b *Backend) Init() error {
	db := b.deps.DB
	if db == nil {
		var err error
		db, err = database.OpenPostgres(b.deps.Config, b.deps.DBLogger)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
	}

	b.Backend = gormstorage.New(gormstorage.Dependencies{
		DB:            db,
		Logger:        b.deps.Logger,
		DBLogger:      b.deps.DBLogger,
		BattleContext: b.deps.BattleContext,
	})
	return b.Backend.Init()
}

// Close stops the writer. It is safe to call when Init failed.
func (b *Backend) Close() error {
	if b.Backend == nil {
		return nil
	}
	return b.Backend.Close()
}
