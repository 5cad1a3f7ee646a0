package storage

import (
	"encoding/json"
	"fmt"

	"github.com/rmallory/taskdeck/internal/entity"
)

// row is one keyed record ready for upsert into a backend table.
type row struct {
	id   string
	data []byte
}

// snapshotRows flattens the snapshot into per-table keyed rows. Both the
// SQLite and remote backends write through this so their diff-apply logic
// stays identical.
func snapshotRows(snap *entity.Snapshot) (map[string][]row, error) {
	out := make(map[string][]row, len(allTables))

	add := func(table, id string, v any) error {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal %s %s: %w", table, id, err)
		}
		out[table] = append(out[table], row{id: id, data: data})
		return nil
	}

	for i := range snap.Projects {
		if err := add(tableProjects, snap.Projects[i].ID, &snap.Projects[i]); err != nil {
			return nil, err
		}
	}
	for i := range snap.Epics {
		if err := add(tableEpics, snap.Epics[i].ID, &snap.Epics[i]); err != nil {
			return nil, err
		}
	}
	for i := range snap.Tasks {
		if err := add(tableTasks, snap.Tasks[i].ID, &snap.Tasks[i]); err != nil {
			return nil, err
		}
	}
	for i := range snap.Blobs {
		if err := add(tableBlobs, snap.Blobs[i].ID, &snap.Blobs[i]); err != nil {
			return nil, err
		}
	}
	for i := range snap.Webhooks {
		if err := add(tableWebhooks, snap.Webhooks[i].ID, &snap.Webhooks[i]); err != nil {
			return nil, err
		}
	}
	for i := range snap.WebhookDeliveries {
		if err := add(tableWebhookDeliveries, snap.WebhookDeliveries[i].ID, &snap.WebhookDeliveries[i]); err != nil {
			return nil, err
		}
	}
	for i := range snap.APIKeys {
		if err := add(tableAPIKeys, snap.APIKeys[i].ID, &snap.APIKeys[i]); err != nil {
			return nil, err
		}
	}
	for i := range snap.CLIAuthRequests {
		if err := add(tableCLIAuthRequests, snap.CLIAuthRequests[i].Token, &snap.CLIAuthRequests[i]); err != nil {
			return nil, err
		}
	}

	// Ensure every table has an entry so deletes run even when a
	// collection has been emptied.
	for _, table := range allTables {
		if _, ok := out[table]; !ok {
			out[table] = nil
		}
	}
	return out, nil
}

// decodeRow unmarshals one table row into the matching snapshot collection.
func decodeRow(snap *entity.Snapshot, table string, data []byte) error {
	switch table {
	case tableProjects:
		var v entity.Project
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		snap.Projects = append(snap.Projects, v)
	case tableEpics:
		var v entity.Epic
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		snap.Epics = append(snap.Epics, v)
	case tableTasks:
		var v entity.Task
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		snap.Tasks = append(snap.Tasks, v)
	case tableBlobs:
		var v entity.Blob
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		snap.Blobs = append(snap.Blobs, v)
	case tableWebhooks:
		var v entity.Webhook
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		snap.Webhooks = append(snap.Webhooks, v)
	case tableWebhookDeliveries:
		var v entity.WebhookDelivery
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		snap.WebhookDeliveries = append(snap.WebhookDeliveries, v)
	case tableAPIKeys:
		var v entity.APIKey
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		snap.APIKeys = append(snap.APIKeys, v)
	case tableCLIAuthRequests:
		var v entity.CLIAuthRequest
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		snap.CLIAuthRequests = append(snap.CLIAuthRequests, v)
	default:
		return fmt.Errorf("unknown table %q", table)
	}
	return nil
}
