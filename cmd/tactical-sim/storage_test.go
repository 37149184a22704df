package main

import (
	"io"
	"log/slog"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/tactical/internal/battle"
	"github.com/OCAP2/tactical/internal/config"
	"github.com/OCAP2/tactical/internal/storage/memory"
	pgstorage "github.com/OCAP2/tactical/internal/storage/postgres"
	sqlitestorage "github.com/OCAP2/tactical/internal/storage/sqlite"
	wsstorage "github.com/OCAP2/tactical/internal/storage/websocket"
)

func testStorageDeps() storageDeps {
	return storageDeps{
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		DBLogger:      zerolog.Nop(),
		BattleContext: battle.NewContext(),
	}
}

func TestHttpToWS(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"http://localhost:5000", "ws://localhost:5000"},
		{"https://replays.example.com/", "wss://replays.example.com"},
		{"ws://already", "ws://already"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, httpToWS(tt.in))
	}
}

func TestCreateStorageBackend(t *testing.T) {
	deps := testStorageDeps()

	b, err := createStorageBackend(config.StorageConfig{Type: "memory"}, deps)
	require.NoError(t, err)
	assert.IsType(t, &memory.Backend{}, b)

	b, err = createStorageBackend(config.StorageConfig{}, deps)
	require.NoError(t, err)
	assert.IsType(t, &memory.Backend{}, b)

	b, err = createStorageBackend(config.StorageConfig{Type: "postgres"}, deps)
	require.NoError(t, err)
	assert.IsType(t, &pgstorage.Backend{}, b)

	b, err = createStorageBackend(config.StorageConfig{
		Type:      "websocket",
		WebSocket: config.WebSocketConfig{URL: "ws://localhost:1/api"},
	}, deps)
	require.NoError(t, err)
	assert.IsType(t, &wsstorage.Backend{}, b)

	_, err = createStorageBackend(config.StorageConfig{Type: "floppy"}, deps)
	assert.Error(t, err)
}

func TestCreateStorageBackend_SQLite(t *testing.T) {
	b, err := createStorageBackend(config.StorageConfig{
		Type:   "sqlite",
		SQLite: config.SQLiteConfig{OutputDir: t.TempDir()},
	}, testStorageDeps())
	require.NoError(t, err)
	require.IsType(t, &sqlitestorage.Backend{}, b)

	require.NoError(t, b.Init())
	assert.NoError(t, b.Close())
}
