package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/rmallory/taskdeck/internal/entity"
	"github.com/rmallory/taskdeck/internal/util"
)

// FileAdapter persists the whole snapshot as one JSON file. Every Write
// serializes the full dataset and atomically replaces the file.
//
// Concurrent processes sharing the same file race at whole-snapshot
// granularity: the last Write wins and interleaved appends from other
// processes are lost. This is an accepted limitation of the file backend,
// not a defect; use the SQLite or remote backend when multiple writers
// share a dataset.
type FileAdapter struct {
	path string
	mu   sync.RWMutex
	snap *entity.Snapshot
}

// NewFileAdapter creates a file-backed adapter. The file does not have to
// exist yet; the first Read of a missing file yields an empty snapshot.
func NewFileAdapter(path string) *FileAdapter {
	return &FileAdapter{
		path: path,
		snap: entity.NewSnapshot(),
	}
}

// Read hydrates the snapshot from the file.
func (f *FileAdapter) Read(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			*f.snap = *entity.NewSnapshot()
			return nil
		}
		return fmt.Errorf("read snapshot %s: %w", f.path, err)
	}

	snap := entity.NewSnapshot()
	if err := json.Unmarshal(data, snap); err != nil {
		return fmt.Errorf("parse snapshot %s: %w", f.path, err)
	}
	*f.snap = *snap
	return nil
}

// Write persists the snapshot, replacing the file in full.
func (f *FileAdapter) Write(_ context.Context) error {
	f.mu.RLock()
	data, err := json.MarshalIndent(f.snap, "", "  ")
	f.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := util.AtomicWriteFile(f.path, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot %s: %w", f.path, err)
	}
	return nil
}

// Data returns the live snapshot.
func (f *FileAdapter) Data() *entity.Snapshot {
	return f.snap
}

// Close is a no-op for the file backend.
func (f *FileAdapter) Close() error {
	return nil
}
