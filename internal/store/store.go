// Package store implements the entity store: CRUD and invariants over a
// storage adapter's resident snapshot.
//
// Every mutation follows the same shape: load the adapter's snapshot if
// not already resident, apply an in-memory change, validate invariants,
// notify the webhook dispatcher, and finish with exactly one adapter
// Write. Validation failures block the mutation entirely; no partial
// snapshot is ever persisted.
//
// The store holds its adapter as an explicit handle, never as ambient
// process-wide state, so multiple stores over different backends can
// coexist in one process.
package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rmallory/taskdeck/internal/entity"
	"github.com/rmallory/taskdeck/internal/storage"
)

// Notifier receives store mutation events and fans them out to webhooks.
// It returns the delivery log records for the attempts it made; the store
// appends them to the snapshot so they persist with the triggering write.
type Notifier interface {
	Dispatch(ctx context.Context, hooks []entity.Webhook, event entity.Event, projectID string, data any) []entity.WebhookDelivery
}

// Store exposes entity CRUD over one storage adapter.
type Store struct {
	adapter  storage.Adapter
	notifier Notifier
	logger   *slog.Logger

	mu     sync.Mutex
	loaded bool

	// now is swappable in tests.
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithNotifier sets the webhook dispatcher. Without one, mutation events
// are dropped.
func WithNotifier(n Notifier) Option {
	return func(s *Store) {
		s.notifier = n
	}
}

// WithLogger sets the store's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// WithClock overrides the store's time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates a store over the given adapter.
func New(adapter storage.Adapter, opts ...Option) *Store {
	s := &Store{
		adapter: adapter,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reload forces a fresh read of the backend, discarding the resident
// snapshot. Concurrent processes' changes become visible after this.
func (s *Store) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.adapter.Read(ctx); err != nil {
		return err
	}
	s.loaded = true
	return nil
}

// ensureLoaded hydrates the snapshot on first use. Callers must hold mu.
func (s *Store) ensureLoaded(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	if err := s.adapter.Read(ctx); err != nil {
		return err
	}
	s.loaded = true
	return nil
}

// snap returns the adapter's live snapshot. Callers must hold mu and have
// called ensureLoaded.
func (s *Store) snap() *entity.Snapshot {
	return s.adapter.Data()
}

// notify dispatches a mutation event and appends the resulting delivery
// records to the snapshot. Dispatch failures are contained per webhook by
// the notifier; nothing here can fail the triggering mutation.
//
// Delivery runs synchronously under the store lock so the records ride the
// same Write as the mutation that produced them. The cost is latency
// coupling: a slow webhook endpoint delays the triggering operation and
// anything queued behind it, bounded per delivery by the handler's timeout.
func (s *Store) notify(ctx context.Context, event entity.Event, projectID string, data any) {
	if s.notifier == nil {
		return
	}
	snap := s.snap()
	deliveries := s.notifier.Dispatch(ctx, snap.Webhooks, event, projectID, data)
	snap.WebhookDeliveries = append(snap.WebhookDeliveries, deliveries...)
}

func newID() string {
	return uuid.NewString()
}
