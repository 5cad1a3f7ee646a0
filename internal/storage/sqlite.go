package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/rmallory/taskdeck/internal/entity"
)

// SQLiteAdapter persists the snapshot to an embedded single-file database.
// Read reconstructs the snapshot from per-collection tables; Write
// diff-applies inside one transaction: every record in the snapshot is
// upserted, and records that were present at the last Read but have since
// been removed from the snapshot are deleted.
//
// Deletions are diffed against the ids observed at read time, not against
// whatever rows currently exist. That is what lets two independent
// processes interleave read-mutate-write cycles on the same file and both
// keep their appended records: neither writer deletes rows it never saw.
type SQLiteAdapter struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
	snap *entity.Snapshot

	// baseline holds the per-table id sets hydrated by the last Read
	// (or persisted by the last Write). Write deletes baseline ids that
	// are no longer in the snapshot.
	baseline map[string]map[string]struct{}
}

// NewSQLiteAdapter opens (creating if necessary) the database file and
// ensures the schema exists.
func NewSQLiteAdapter(path string) (*SQLiteAdapter, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL and a busy timeout so independent processes sharing the file
	// queue behind each other instead of failing fast.
	if _, err := db.Exec(`
		PRAGMA journal_mode = WAL;
		PRAGMA synchronous = NORMAL;
		PRAGMA busy_timeout = 5000;
	`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}

	a := &SQLiteAdapter{
		db:       db,
		path:     path,
		snap:     entity.NewSnapshot(),
		baseline: emptyBaseline(),
	}
	if err := a.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return a, nil
}

func emptyBaseline() map[string]map[string]struct{} {
	b := make(map[string]map[string]struct{}, len(allTables))
	for _, table := range allTables {
		b[table] = make(map[string]struct{})
	}
	return b
}

func (a *SQLiteAdapter) ensureSchema() error {
	for _, table := range allTables {
		stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			data TEXT NOT NULL
		)`, table)
		if _, err := a.db.Exec(stmt); err != nil {
			return fmt.Errorf("create table %s: %w", table, err)
		}
	}
	return nil
}

// Read reconstructs the snapshot from the database.
func (a *SQLiteAdapter) Read(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	snap := entity.NewSnapshot()
	baseline := emptyBaseline()

	for _, table := range allTables {
		rows, err := a.db.QueryContext(ctx, fmt.Sprintf("SELECT id, data FROM %s", table))
		if err != nil {
			return fmt.Errorf("query %s: %w", table, err)
		}
		for rows.Next() {
			var id string
			var data []byte
			if err := rows.Scan(&id, &data); err != nil {
				rows.Close()
				return fmt.Errorf("scan %s: %w", table, err)
			}
			if err := decodeRow(snap, table, data); err != nil {
				rows.Close()
				return fmt.Errorf("decode %s %s: %w", table, id, err)
			}
			baseline[table][id] = struct{}{}
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return fmt.Errorf("iterate %s: %w", table, err)
		}
		rows.Close()
	}

	*a.snap = *snap
	a.baseline = baseline
	return nil
}

// Write diff-applies the snapshot inside a single transaction.
func (a *SQLiteAdapter) Write(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	tables, err := snapshotRows(a.snap)
	if err != nil {
		return err
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin write: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	newBaseline := emptyBaseline()
	for _, table := range allTables {
		for _, r := range tables[table] {
			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf(`INSERT INTO %s (id, data) VALUES (?, ?)
					ON CONFLICT(id) DO UPDATE SET data = excluded.data`, table),
				r.id, r.data); err != nil {
				return fmt.Errorf("upsert %s %s: %w", table, r.id, err)
			}
			newBaseline[table][r.id] = struct{}{}
		}
		for id := range a.baseline[table] {
			if _, ok := newBaseline[table][id]; ok {
				continue
			}
			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf("DELETE FROM %s WHERE id = ?", table), id); err != nil {
				return fmt.Errorf("delete %s %s: %w", table, id, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit write: %w", err)
	}
	a.baseline = newBaseline
	return nil
}

// Data returns the live snapshot.
func (a *SQLiteAdapter) Data() *entity.Snapshot {
	return a.snap
}

// Close closes the database.
func (a *SQLiteAdapter) Close() error {
	return a.db.Close()
}
