package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/rmallory/taskdeck/internal/entity"
)

const (
	// writeAttempts bounds how many times a remote write is tried
	// before the failure is surfaced.
	writeAttempts = 3

	// backoffBase is the first retry delay; it doubles per attempt.
	backoffBase = 250 * time.Millisecond

	// settleWindow is how long after a local write completes the
	// realtime listener ignores change notifications, so the adapter
	// does not re-read in reaction to its own writes.
	settleWindow = 2 * time.Second
)

// RemoteAdapter persists the snapshot to a remote relational service.
// Read fetches all collection tables in parallel; Write diffs by entity id
// and issues parallel upsert/delete batches with bounded retry.
//
// Writes issued before the first Read has completed queue behind that
// initial read, so a write based on an empty default snapshot can never
// clobber already-persisted data.
type RemoteAdapter struct {
	pool   *pgxpool.Pool
	logger *slog.Logger

	mu       sync.Mutex
	snap     *entity.Snapshot
	baseline map[string]map[string]struct{}
	hasRead  bool

	settleMu    sync.Mutex
	settleUntil time.Time

	// onChange is the host's refresh function, invoked (debounced) by the
	// realtime listener. The listener never touches the snapshot itself:
	// the host routes this through whatever lock serializes its own
	// snapshot access, typically Store.Reload.
	onChange func(context.Context) error
	rt       *realtimeListener

	// fetch and apply are the wire seam. The defaults talk to the pool;
	// tests substitute in-memory versions.
	fetch func(ctx context.Context) (map[string][]row, error)
	apply func(ctx context.Context, upserts map[string][]row, deletes map[string][]string) error
}

// RemoteOption configures a RemoteAdapter.
type RemoteOption func(*RemoteAdapter)

// WithLogger sets the adapter's logger.
func WithLogger(l *slog.Logger) RemoteOption {
	return func(a *RemoteAdapter) {
		a.logger = l
	}
}

// NewRemoteAdapter connects to the remote service and ensures the schema.
func NewRemoteAdapter(ctx context.Context, dsn string, opts ...RemoteOption) (*RemoteAdapter, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect remote: %w", err)
	}

	a := &RemoteAdapter{
		pool:     pool,
		logger:   slog.Default(),
		snap:     entity.NewSnapshot(),
		baseline: emptyBaseline(),
	}
	a.fetch = a.fetchAll
	a.apply = a.applyBatches
	for _, opt := range opts {
		opt(a)
	}

	if err := a.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return a, nil
}

func (a *RemoteAdapter) ensureSchema(ctx context.Context) error {
	for _, table := range allTables {
		stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			data JSONB NOT NULL
		)`, table)
		if _, err := a.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure table %s: %w", table, err)
		}
	}
	return nil
}

// fetchAll queries every table in parallel.
func (a *RemoteAdapter) fetchAll(ctx context.Context) (map[string][]row, error) {
	results := make([][]row, len(allTables))
	g, gctx := errgroup.WithContext(ctx)
	for i, table := range allTables {
		g.Go(func() error {
			rows, err := a.pool.Query(gctx, fmt.Sprintf("SELECT id, data FROM %s", table))
			if err != nil {
				return fmt.Errorf("query %s: %w", table, err)
			}
			defer rows.Close()

			var fetched []row
			for rows.Next() {
				var r row
				if err := rows.Scan(&r.id, &r.data); err != nil {
					return fmt.Errorf("scan %s: %w", table, err)
				}
				fetched = append(fetched, r)
			}
			if err := rows.Err(); err != nil {
				return fmt.Errorf("iterate %s: %w", table, err)
			}
			results[i] = fetched
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string][]row, len(allTables))
	for i, table := range allTables {
		out[table] = results[i]
	}
	return out, nil
}

// Read fetches all tables and assembles the snapshot.
func (a *RemoteAdapter) Read(ctx context.Context) error {
	fetched, err := a.fetch(ctx)
	if err != nil {
		return err
	}

	snap := entity.NewSnapshot()
	baseline := emptyBaseline()
	for _, table := range allTables {
		for _, r := range fetched[table] {
			if err := decodeRow(snap, table, r.data); err != nil {
				return fmt.Errorf("decode %s %s: %w", table, r.id, err)
			}
			baseline[table][r.id] = struct{}{}
		}
	}

	a.mu.Lock()
	*a.snap = *snap
	a.baseline = baseline
	a.hasRead = true
	a.mu.Unlock()
	return nil
}

// Write persists the snapshot with bounded retry and exponential backoff.
// The final failure is logged as a data-loss risk and returned.
func (a *RemoteAdapter) Write(ctx context.Context) error {
	a.mu.Lock()
	hasRead := a.hasRead
	a.mu.Unlock()
	if !hasRead {
		// A write before the first read would diff against an empty
		// baseline and push a default snapshot over live data.
		if err := a.Read(ctx); err != nil {
			return fmt.Errorf("initial read before write: %w", err)
		}
	}

	var err error
	delay := backoffBase
	for attempt := 1; attempt <= writeAttempts; attempt++ {
		if err = a.writeOnce(ctx); err == nil {
			a.markSettling()
			return nil
		}
		if attempt < writeAttempts {
			a.logger.Warn("remote write failed, retrying",
				"attempt", attempt, "delay", delay, "error", err)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			delay *= 2
		}
	}
	a.logger.Error("remote write failed after retries; unpersisted local changes may be lost",
		"attempts", writeAttempts, "error", err)
	return err
}

// WriteAsync starts the write in the background and returns a channel that
// receives the final result. Callers that need durability before
// proceeding await the channel; others may fire and forget.
func (a *RemoteAdapter) WriteAsync(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- a.Write(ctx)
	}()
	return done
}

// writeOnce performs one diff-apply pass: upsert every snapshot row and
// delete ids seen at the last read that are gone from the snapshot.
// Per-id diffing keeps unrelated rows from concurrent writers intact.
func (a *RemoteAdapter) writeOnce(ctx context.Context) error {
	a.mu.Lock()
	tables, err := snapshotRows(a.snap)
	if err != nil {
		a.mu.Unlock()
		return err
	}
	baseline := a.baseline
	a.mu.Unlock()

	newBaseline := emptyBaseline()
	deletes := make(map[string][]string, len(allTables))
	for _, table := range allTables {
		for _, r := range tables[table] {
			newBaseline[table][r.id] = struct{}{}
		}
		for id := range baseline[table] {
			if _, ok := newBaseline[table][id]; !ok {
				deletes[table] = append(deletes[table], id)
			}
		}
	}

	if err := a.apply(ctx, tables, deletes); err != nil {
		return err
	}

	a.mu.Lock()
	a.baseline = newBaseline
	a.mu.Unlock()
	return nil
}

// applyBatches pushes the diff to the remote service, one batch per table,
// tables in parallel.
func (a *RemoteAdapter) applyBatches(ctx context.Context, upserts map[string][]row, deletes map[string][]string) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, table := range allTables {
		batch := &pgx.Batch{}
		for _, r := range upserts[table] {
			batch.Queue(fmt.Sprintf(`INSERT INTO %s (id, data) VALUES ($1, $2)
				ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data`, table),
				r.id, r.data)
		}
		for _, id := range deletes[table] {
			batch.Queue(fmt.Sprintf("DELETE FROM %s WHERE id = $1", table), id)
		}
		if batch.Len() == 0 {
			continue
		}
		g.Go(func() error {
			if err := a.pool.SendBatch(gctx, batch).Close(); err != nil {
				return fmt.Errorf("apply batch %s: %w", table, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// markSettling opens the cool-down window during which realtime change
// notifications are ignored.
func (a *RemoteAdapter) markSettling() {
	a.settleMu.Lock()
	a.settleUntil = time.Now().Add(settleWindow)
	a.settleMu.Unlock()
}

// settling reports whether a local write is still settling.
func (a *RemoteAdapter) settling() bool {
	a.settleMu.Lock()
	defer a.settleMu.Unlock()
	return time.Now().Before(a.settleUntil)
}

// Data returns the live snapshot.
func (a *RemoteAdapter) Data() *entity.Snapshot {
	return a.snap
}

// Subscribe starts the realtime listener. Remote changes surface as a
// debounced call to onChange, suppressed while a local write settles.
// The listener never mutates the snapshot itself; onChange must route the
// refresh through whatever serializes the host's snapshot access —
// Store.Reload does exactly that.
func (a *RemoteAdapter) Subscribe(ctx context.Context, url string, onChange func(context.Context) error) error {
	if a.rt != nil {
		return fmt.Errorf("already subscribed")
	}
	if onChange == nil {
		return fmt.Errorf("subscribe requires an onChange function")
	}
	a.onChange = onChange
	rt, err := newRealtimeListener(ctx, a, url)
	if err != nil {
		return err
	}
	a.rt = rt
	return nil
}

// Close stops the realtime listener (if any) and releases the pool.
func (a *RemoteAdapter) Close() error {
	if a.rt != nil {
		a.rt.stop()
		a.rt = nil
	}
	if a.pool != nil {
		a.pool.Close()
	}
	return nil
}
