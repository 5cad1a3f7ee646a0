// Package storage provides the storage adapter abstraction for taskdeck.
// It supports three interchangeable backends: a local snapshot file, an
// embedded single-file SQLite database, and a remote relational service
// with optional realtime push.
//
// Every backend hydrates the same universal snapshot shape on Read and
// persists it on Write. There is no cross-process locking: concurrent
// writers follow a snapshot read/modify/write-back pattern, and whatever
// consistency the underlying storage technology provides is the only
// consistency boundary. The SQLite and remote backends diff-apply by
// entity id so that concurrent appends of distinct records survive; the
// file backend overwrites wholesale and is documented to lose interleaved
// concurrent appends.
package storage

import (
	"context"

	"github.com/rmallory/taskdeck/internal/entity"
)

// Adapter is the uniform contract every backend implements.
// Data returns the live in-memory snapshot; callers mutate it in place
// and call Write to persist. Read replaces the snapshot contents with
// the backend's current persisted state.
type Adapter interface {
	Read(ctx context.Context) error
	Write(ctx context.Context) error
	Data() *entity.Snapshot
	Close() error
}

// Table names shared by the SQLite and remote backends. Each table holds
// one snapshot collection keyed by entity id (token for pairing requests).
const (
	tableProjects          = "projects"
	tableEpics             = "epics"
	tableTasks             = "tasks"
	tableBlobs             = "blobs"
	tableWebhooks          = "webhooks"
	tableWebhookDeliveries = "webhook_deliveries"
	tableAPIKeys           = "api_keys"
	tableCLIAuthRequests   = "cli_auth_requests"
)

var allTables = []string{
	tableProjects, tableEpics, tableTasks, tableBlobs,
	tableWebhooks, tableWebhookDeliveries, tableAPIKeys, tableCLIAuthRequests,
}
