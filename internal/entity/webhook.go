package entity

import "time"

// Event identifies a kind of store mutation that webhooks can subscribe to.
type Event string

const (
	EventProjectCreated Event = "project.created"
	EventProjectUpdated Event = "project.updated"
	EventProjectDeleted Event = "project.deleted"
	EventEpicCreated    Event = "epic.created"
	EventEpicUpdated    Event = "epic.updated"
	EventEpicDeleted    Event = "epic.deleted"
	EventTaskCreated    Event = "task.created"
	EventTaskUpdated    Event = "task.updated"
	EventTaskDeleted    Event = "task.deleted"
	EventTaskCommented  Event = "task.commented"
)

// Webhook is a configured outbound notification target.
type Webhook struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	URL    string  `json:"url"`
	Events []Event `json:"events"`
	Secret string  `json:"secret,omitempty"`

	// ProjectID scopes the webhook to one project's events.
	// Empty means all projects.
	ProjectID string    `json:"project_id,omitempty"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
}

// Subscribes returns true if the webhook is subscribed to the given event.
func (w *Webhook) Subscribes(e Event) bool {
	for _, ev := range w.Events {
		if ev == e {
			return true
		}
	}
	return false
}

// Matches reports whether the webhook should fire for an event scoped to
// the given project. An unscoped webhook matches every project.
func (w *Webhook) Matches(e Event, projectID string) bool {
	if !w.Enabled || !w.Subscribes(e) {
		return false
	}
	return w.ProjectID == "" || w.ProjectID == projectID
}

// Delivery status values for WebhookDelivery records.
const (
	DeliverySucceeded = "succeeded"
	DeliveryFailed    = "failed"
)

// WebhookDelivery is one attempted delivery, kept as an append-only log.
type WebhookDelivery struct {
	ID        string    `json:"id"`
	WebhookID string    `json:"webhook_id"`
	Event     Event     `json:"event"`
	Payload   string    `json:"payload"`
	Status    string    `json:"status"`
	Attempts  int       `json:"attempts"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
