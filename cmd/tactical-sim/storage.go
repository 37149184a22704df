package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/OCAP2/tactical/internal/battle"
	"github.com/OCAP2/tactical/internal/config"
	"github.com/OCAP2/tactical/internal/storage"
	"github.com/OCAP2/tactical/internal/storage/memory"
	pgstorage "github.com/OCAP2/tactical/internal/storage/postgres"
	sqlitestorage "github.com/OCAP2/tactical/internal/storage/sqlite"
	wsstorage "github.com/OCAP2/tactical/internal/storage/websocket"
)

// storageDeps is what the backends need from the process.
type storageDeps struct {
	Logger        *slog.Logger
	DBLogger      zerolog.Logger
	BattleContext *battle.Context
}

func createStorageBackend(storageCfg config.StorageConfig, deps storageDeps) (storage.Backend, error) {
	switch storageCfg.Type {
	case "postgres":
		deps.Logger.Info("Postgres storage backend selected")
		return pgstorage.New(pgstorage.Dependencies{
			Config:        config.GetDBConfig(),
			Logger:        deps.Logger,
			DBLogger:      deps.DBLogger,
			BattleContext: deps.BattleContext,
		}), nil

	case "sqlite":
		backend, err := sqlitestorage.New(sqlitestorage.Config{
			DumpInterval: storageCfg.SQLite.DumpInterval,
			OutputDir:    storageCfg.SQLite.OutputDir,
		}, deps.Logger, deps.DBLogger, deps.BattleContext)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		deps.Logger.Info("SQLite storage backend selected", "outputDir", storageCfg.SQLite.OutputDir)
		return backend, nil

	case "websocket":
		wsURL := storageCfg.WebSocket.URL
		if wsURL == "" {
			wsURL = httpToWS(viper.GetString("api.serverUrl")) + "/api"
		}
		secret := storageCfg.WebSocket.Secret
		if secret == "" {
			secret = viper.GetString("api.apiKey")
		}
		deps.Logger.Info("WebSocket storage backend selected", "url", wsURL)
		return wsstorage.New(wsstorage.Config{
			URL:    wsURL,
			Secret: secret,
		}, deps.Logger), nil

	case "memory", "":
		deps.Logger.Info("Memory storage backend selected", "outputDir", storageCfg.Memory.OutputDir)
		return memory.New(storageCfg.Memory, deps.Logger), nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", storageCfg.Type)
	}
}

// httpToWS converts an HTTP(S) URL to a WebSocket URL.
func httpToWS(httpURL string) string {
	s := strings.TrimRight(httpURL, "/")
	s = strings.Replace(s, "https://", "wss://", 1)
	s = strings.Replace(s, "http://", "ws://", 1)
	return s
}
