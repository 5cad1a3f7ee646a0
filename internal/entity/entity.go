// Package entity defines the canonical shapes shared by every storage
// backend: projects, epics, tasks and their attachments, plus the webhook
// and credential records that ride alongside them in the same snapshot.
package entity

import "time"

// Project is the top level of the work hierarchy.
type Project struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Visibility  Visibility `json:"visibility"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Epic groups related tasks within a project.
type Epic struct {
	ID        string     `json:"id"`
	ProjectID string     `json:"project_id"`
	Title     string     `json:"title"`
	Status    EpicStatus `json:"status"`
	DependsOn []string   `json:"depends_on,omitempty"`
	Notes     string     `json:"notes,omitempty"`
	Auto      bool       `json:"auto,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Task is the unit of work handed to humans and agents.
type Task struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`

	// EpicID links the task to an epic. Empty means standalone.
	EpicID string `json:"epic_id,omitempty"`

	Title  string `json:"title"`
	Status Status `json:"status"`

	// DependsOn lists task IDs that must reach done before this task is
	// considered unblocked. Order is preserved as supplied by callers.
	DependsOn []string `json:"depends_on,omitempty"`

	// Priority is 0 (high) to 2 (low). Nil means unset; ready-queue
	// ordering treats unset as low.
	Priority *int `json:"priority,omitempty"`

	// BlockedReason is an externally-set override. When non-empty the
	// task is blocked regardless of dependency state.
	BlockedReason string `json:"blocked_reason,omitempty"`

	AcceptanceCriteria string      `json:"acceptance_criteria,omitempty"`
	Guardrails         []Guardrail `json:"guardrails,omitempty"`
	Comments           []Comment   `json:"comments,omitempty"`
	BlobIDs            []string    `json:"blob_ids,omitempty"`
	Archived           bool        `json:"archived,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Comment is an immutable note on a task. The list on a task is
// append-only; existing comments are never edited or removed.
type Comment struct {
	ID        string    `json:"id"`
	Body      string    `json:"body"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

// Guardrail is a numbered constraint attached to a task.
type Guardrail struct {
	ID     string `json:"id"`
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// Blob is file content attached to a task.
type Blob struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"task_id,omitempty"`
	ContentHash string    `json:"content_hash"`
	Filename    string    `json:"filename"`
	MimeType    string    `json:"mime_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

// HasDependency returns true if depID is already in the task's depends_on.
func (t *Task) HasDependency(depID string) bool {
	for _, d := range t.DependsOn {
		if d == depID {
			return true
		}
	}
	return false
}

// IsDone returns true if the task has reached the done status.
func (t *Task) IsDone() bool {
	return t.Status == StatusDone
}
