package store

import (
	"context"
	"fmt"

	"github.com/rmallory/taskdeck/internal/deckerr"
	"github.com/rmallory/taskdeck/internal/entity"
)

// TaskParams are the caller-supplied fields for task creation.
type TaskParams struct {
	ProjectID          string
	EpicID             string
	Title              string
	Status             entity.Status
	DependsOn          []string
	Priority           *int
	AcceptanceCriteria string
	Guardrails         []entity.Guardrail
}

// TaskUpdate is a shallow field diff for a task. Nil fields are left
// untouched. Setting EpicID to an empty string detaches the task from its
// epic; setting BlockedReason to an empty string clears the override.
type TaskUpdate struct {
	Title              *string
	Status             *entity.Status
	DependsOn          *[]string
	Priority           *int
	EpicID             *string
	BlockedReason      *string
	AcceptanceCriteria *string
	Archived           *bool
}

// CreateTask creates a task under an existing project. Supplied
// dependencies must reference existing tasks; invalid references, cycles
// and out-of-range priorities are rejected with typed errors and nothing
// is persisted.
func (s *Store) CreateTask(ctx context.Context, params TaskParams) (*entity.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	snap := s.snap()
	if snap.ProjectByID(params.ProjectID) == nil {
		return nil, deckerr.Newf(deckerr.CodeInvalidReference,
			"project not found", params.ProjectID)
	}
	if params.EpicID != "" {
		epic := snap.EpicByID(params.EpicID)
		if epic == nil {
			return nil, deckerr.Newf(deckerr.CodeInvalidReference,
				"epic not found", params.EpicID)
		}
		if epic.ProjectID != params.ProjectID {
			return nil, deckerr.Newf(deckerr.CodeInvalidReference,
				"epic belongs to a different project", params.EpicID)
		}
	}

	status := params.Status
	if status == "" {
		status = entity.StatusTodo
	}
	if !entity.IsValidStatus(status) {
		return nil, deckerr.Newf(deckerr.CodeInvalidStatus,
			"invalid task status", string(status))
	}
	if params.Priority != nil && !entity.IsValidPriority(*params.Priority) {
		return nil, deckerr.Newf(deckerr.CodeInvalidPriority,
			"priority out of range", fmt.Sprintf("%d", *params.Priority))
	}

	id := newID()
	deps := dedupe(params.DependsOn)
	if err := validateDependencies(snap, id, deps); err != nil {
		return nil, err
	}

	now := s.now()
	t := entity.Task{
		ID:                 id,
		ProjectID:          params.ProjectID,
		EpicID:             params.EpicID,
		Title:              params.Title,
		Status:             status,
		DependsOn:          deps,
		Priority:           params.Priority,
		AcceptanceCriteria: params.AcceptanceCriteria,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	for _, g := range params.Guardrails {
		gr, err := normalizeGuardrail(g)
		if err != nil {
			return nil, err
		}
		t.Guardrails = append(t.Guardrails, gr)
	}

	snap.Tasks = append(snap.Tasks, t)
	s.notify(ctx, entity.EventTaskCreated, t.ProjectID, t)
	if err := s.adapter.Write(ctx); err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTask returns the task, or nil if it does not exist.
func (s *Store) GetTask(ctx context.Context, id string) (*entity.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	if t := s.snap().TaskByID(id); t != nil {
		cp := *t
		return &cp, nil
	}
	return nil, nil
}

// ListTasks returns tasks, optionally filtered to one project.
func (s *Store) ListTasks(ctx context.Context, projectID string) ([]entity.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	var out []entity.Task
	for _, t := range s.snap().Tasks {
		if projectID == "" || t.ProjectID == projectID {
			out = append(out, t)
		}
	}
	return out, nil
}

// UpdateTask merges a field diff into the task, always recomputing
// updated_at. Returns nil if the task does not exist. A depends_on change
// is validated for existence and acyclicity before anything is applied.
func (s *Store) UpdateTask(ctx context.Context, id string, upd TaskUpdate) (*entity.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	snap := s.snap()
	t := snap.TaskByID(id)
	if t == nil {
		return nil, nil
	}

	if upd.Status != nil && !entity.IsValidStatus(*upd.Status) {
		return nil, deckerr.Newf(deckerr.CodeInvalidStatus,
			"invalid task status", string(*upd.Status))
	}
	if upd.Priority != nil && !entity.IsValidPriority(*upd.Priority) {
		return nil, deckerr.Newf(deckerr.CodeInvalidPriority,
			"priority out of range", fmt.Sprintf("%d", *upd.Priority))
	}
	if upd.EpicID != nil && *upd.EpicID != "" {
		epic := snap.EpicByID(*upd.EpicID)
		if epic == nil {
			return nil, deckerr.Newf(deckerr.CodeInvalidReference,
				"epic not found", *upd.EpicID)
		}
		if epic.ProjectID != t.ProjectID {
			return nil, deckerr.Newf(deckerr.CodeInvalidReference,
				"epic belongs to a different project", *upd.EpicID)
		}
	}

	var newDeps []string
	if upd.DependsOn != nil {
		newDeps = dedupe(*upd.DependsOn)
		if err := validateDependencies(snap, id, newDeps); err != nil {
			return nil, err
		}
	}

	if upd.Title != nil {
		t.Title = *upd.Title
	}
	if upd.Status != nil {
		t.Status = *upd.Status
	}
	if upd.DependsOn != nil {
		t.DependsOn = newDeps
	}
	if upd.Priority != nil {
		p := *upd.Priority
		t.Priority = &p
	}
	if upd.EpicID != nil {
		t.EpicID = *upd.EpicID
	}
	if upd.BlockedReason != nil {
		t.BlockedReason = *upd.BlockedReason
	}
	if upd.AcceptanceCriteria != nil {
		t.AcceptanceCriteria = *upd.AcceptanceCriteria
	}
	if upd.Archived != nil {
		t.Archived = *upd.Archived
	}
	t.UpdatedAt = s.now()

	cp := *t
	s.notify(ctx, entity.EventTaskUpdated, t.ProjectID, cp)
	if err := s.adapter.Write(ctx); err != nil {
		return nil, err
	}
	return &cp, nil
}

// DeleteTask removes the task, strips it from every other task's
// depends_on, and deletes its blobs — all in the same logical write, so
// no snapshot with a dangling reference is ever persisted. Returns false
// if the task did not exist.
func (s *Store) DeleteTask(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return false, err
	}

	snap := s.snap()
	t := snap.TaskByID(id)
	if t == nil {
		return false, nil
	}
	projectID := t.ProjectID
	drop := map[string]struct{}{id: {}}

	tasks := snap.Tasks[:0]
	for _, other := range snap.Tasks {
		if other.ID == id {
			continue
		}
		other.DependsOn = withoutIDs(other.DependsOn, drop)
		tasks = append(tasks, other)
	}
	snap.Tasks = tasks

	blobs := snap.Blobs[:0]
	for _, b := range snap.Blobs {
		if b.TaskID != id {
			blobs = append(blobs, b)
		}
	}
	snap.Blobs = blobs

	s.notify(ctx, entity.EventTaskDeleted, projectID, map[string]string{"id": id})
	if err := s.adapter.Write(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// AddComment appends an immutable comment to the task. Returns nil if the
// task does not exist.
func (s *Store) AddComment(ctx context.Context, taskID, body, author string) (*entity.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	t := s.snap().TaskByID(taskID)
	if t == nil {
		return nil, nil
	}

	c := entity.Comment{
		ID:        newID(),
		Body:      body,
		Author:    author,
		CreatedAt: s.now(),
	}
	t.Comments = append(t.Comments, c)
	t.UpdatedAt = c.CreatedAt

	s.notify(ctx, entity.EventTaskCommented, t.ProjectID, c)
	if err := s.adapter.Write(ctx); err != nil {
		return nil, err
	}
	return &c, nil
}

// AddGuardrail attaches a guardrail to the task, assigning an id when the
// caller omits one. Returns nil if the task does not exist.
func (s *Store) AddGuardrail(ctx context.Context, taskID string, g entity.Guardrail) (*entity.Guardrail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	t := s.snap().TaskByID(taskID)
	if t == nil {
		return nil, nil
	}

	gr, err := normalizeGuardrail(g)
	if err != nil {
		return nil, err
	}
	t.Guardrails = append(t.Guardrails, gr)
	t.UpdatedAt = s.now()

	s.notify(ctx, entity.EventTaskUpdated, t.ProjectID, *t)
	if err := s.adapter.Write(ctx); err != nil {
		return nil, err
	}
	return &gr, nil
}

func normalizeGuardrail(g entity.Guardrail) (entity.Guardrail, error) {
	if g.Number <= 0 {
		return entity.Guardrail{}, deckerr.Newf(deckerr.CodeInvalidReference,
			"guardrail number must be positive", fmt.Sprintf("%d", g.Number))
	}
	if g.ID == "" {
		g.ID = newID()
	}
	return g, nil
}
