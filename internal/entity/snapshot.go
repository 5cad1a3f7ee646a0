package entity

// Snapshot is the universal schema: the complete in-memory dataset a
// storage adapter hydrates on read and persists on write, regardless of
// the backend's physical layout.
type Snapshot struct {
	Projects          []Project         `json:"projects"`
	Epics             []Epic            `json:"epics"`
	Tasks             []Task            `json:"tasks"`
	Blobs             []Blob            `json:"blobs"`
	Webhooks          []Webhook         `json:"webhooks"`
	WebhookDeliveries []WebhookDelivery `json:"webhook_deliveries"`
	APIKeys           []APIKey          `json:"api_keys"`
	CLIAuthRequests   []CLIAuthRequest  `json:"cli_auth_requests"`
}

// NewSnapshot returns an empty snapshot with all collections allocated.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Projects:          []Project{},
		Epics:             []Epic{},
		Tasks:             []Task{},
		Blobs:             []Blob{},
		Webhooks:          []Webhook{},
		WebhookDeliveries: []WebhookDelivery{},
		APIKeys:           []APIKey{},
		CLIAuthRequests:   []CLIAuthRequest{},
	}
}

// TaskByID returns a pointer into the snapshot's task slice, or nil.
func (s *Snapshot) TaskByID(id string) *Task {
	for i := range s.Tasks {
		if s.Tasks[i].ID == id {
			return &s.Tasks[i]
		}
	}
	return nil
}

// ProjectByID returns a pointer into the snapshot's project slice, or nil.
func (s *Snapshot) ProjectByID(id string) *Project {
	for i := range s.Projects {
		if s.Projects[i].ID == id {
			return &s.Projects[i]
		}
	}
	return nil
}

// EpicByID returns a pointer into the snapshot's epic slice, or nil.
func (s *Snapshot) EpicByID(id string) *Epic {
	for i := range s.Epics {
		if s.Epics[i].ID == id {
			return &s.Epics[i]
		}
	}
	return nil
}

// TaskIndex builds an id -> task map over the snapshot's tasks.
// The map values point into the snapshot and are invalidated by appends.
func (s *Snapshot) TaskIndex() map[string]*Task {
	idx := make(map[string]*Task, len(s.Tasks))
	for i := range s.Tasks {
		idx[s.Tasks[i].ID] = &s.Tasks[i]
	}
	return idx
}
