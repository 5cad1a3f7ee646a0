package storage

import (
	"context"
	"fmt"

	"github.com/rmallory/taskdeck/internal/config"
)

// New creates a storage adapter from the declared configuration.
// The backend kind is an explicit discriminant; nothing here probes the
// target beyond what config.DetectBackend offers callers as an opt-in.
func New(ctx context.Context, cfg config.StorageConfig, opts ...RemoteOption) (Adapter, error) {
	switch cfg.Backend {
	case config.BackendFile:
		return NewFileAdapter(cfg.Path), nil
	case config.BackendSQLite:
		return NewSQLiteAdapter(cfg.Path)
	case config.BackendRemote:
		// The realtime subscription is not started here: it needs the
		// host's refresh function (see RemoteAdapter.Subscribe), which
		// does not exist until the store is built over the adapter.
		return NewRemoteAdapter(ctx, cfg.DSN, opts...)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}
