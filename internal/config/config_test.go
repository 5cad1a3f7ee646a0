package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBackend(t *testing.T) {
	tests := []struct {
		in      string
		want    Backend
		wantErr bool
	}{
		{"file", BackendFile, false},
		{"json", BackendFile, false},
		{"sqlite", BackendSQLite, false},
		{"sqlite3", BackendSQLite, false},
		{"db", BackendSQLite, false},
		{"remote", BackendRemote, false},
		{"postgres", BackendRemote, false},
		{"postgresql", BackendRemote, false},
		{"  SQLite  ", BackendSQLite, false},
		{"mongo", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseBackend(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}

func TestDetectBackend(t *testing.T) {
	assert.Equal(t, BackendRemote, DetectBackend("postgres://host/db"))
	assert.Equal(t, BackendRemote, DetectBackend("postgresql://host/db"))
	assert.Equal(t, BackendSQLite, DetectBackend("deck.db"))
	assert.Equal(t, BackendSQLite, DetectBackend("/data/deck.sqlite"))
	assert.Equal(t, BackendSQLite, DetectBackend("deck.sqlite3"))
	assert.Equal(t, BackendFile, DetectBackend("snapshot.json"))
	assert.Equal(t, BackendFile, DetectBackend("whatever"))
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.Storage.Path = ""
	assert.Error(t, cfg.Validate(), "file backend requires a path")

	cfg = Default()
	cfg.Storage.Backend = BackendRemote
	assert.Error(t, cfg.Validate(), "remote backend requires a dsn")

	cfg.Storage.DSN = "postgres://host/db"
	require.NoError(t, cfg.Validate())

	cfg.Storage.Realtime = true
	assert.Error(t, cfg.Validate(), "realtime requires a websocket url")

	cfg.Storage.RealtimeURL = "wss://host/realtime"
	require.NoError(t, cfg.Validate())

	cfg = Default()
	cfg.Storage.Backend = "carrier-pigeon"
	assert.Error(t, cfg.Validate())
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, BackendFile, cfg.Storage.Backend)
	assert.Equal(t, "taskdeck.json", cfg.Storage.Path)
	assert.Equal(t, 5*time.Second, cfg.Webhooks.Timeout)
	assert.Equal(t, 7*24*time.Hour, cfg.Webhooks.DeliveryRetention)
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `storage:
  backend: sqlite3
  path: /data/deck.db
webhooks:
  timeout: 10s
  delivery_retention: 48h
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	// Aliases normalize to the canonical kind.
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, "/data/deck.db", cfg.Storage.Path)
	assert.Equal(t, 10*time.Second, cfg.Webhooks.Timeout)
	assert.Equal(t, 48*time.Hour, cfg.Webhooks.DeliveryRetention)
}

func TestLoad_MissingExplicitFileIsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestWriteFile_RoundTripsThroughLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskdeck.yaml")

	cfg := Default()
	cfg.Storage.Backend = BackendSQLite
	cfg.Storage.Path = "/data/deck.db"
	require.NoError(t, WriteFile(cfg, path))

	// Refuses to clobber.
	require.Error(t, WriteFile(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, loaded.Storage.Backend)
	assert.Equal(t, "/data/deck.db", loaded.Storage.Path)
	assert.Equal(t, cfg.Webhooks.Timeout, loaded.Webhooks.Timeout)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("TASKDECK_STORAGE_BACKEND", "sqlite")
	t.Setenv("TASKDECK_STORAGE_PATH", "/tmp/deck.db")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, "/tmp/deck.db", cfg.Storage.Path)
}
