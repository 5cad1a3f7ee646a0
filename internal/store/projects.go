package store

import (
	"context"

	"github.com/rmallory/taskdeck/internal/deckerr"
	"github.com/rmallory/taskdeck/internal/entity"
)

// ProjectUpdate is a shallow field diff for a project. Nil fields are
// left untouched.
type ProjectUpdate struct {
	Name        *string
	Description *string
	Visibility  *entity.Visibility
}

// CreateProject creates a project with a fresh id.
func (s *Store) CreateProject(ctx context.Context, name, description string, visibility entity.Visibility) (*entity.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	if visibility == "" {
		visibility = entity.VisibilityPrivate
	}
	if !entity.IsValidVisibility(visibility) {
		return nil, deckerr.Newf(deckerr.CodeInvalidReference,
			"invalid visibility", string(visibility))
	}

	now := s.now()
	p := entity.Project{
		ID:          newID(),
		Name:        name,
		Description: description,
		Visibility:  visibility,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	snap := s.snap()
	snap.Projects = append(snap.Projects, p)
	s.notify(ctx, entity.EventProjectCreated, p.ID, p)
	if err := s.adapter.Write(ctx); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProject returns the project, or nil if it does not exist.
func (s *Store) GetProject(ctx context.Context, id string) (*entity.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	if p := s.snap().ProjectByID(id); p != nil {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

// ListProjects returns all projects.
func (s *Store) ListProjects(ctx context.Context) ([]entity.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	out := make([]entity.Project, len(s.snap().Projects))
	copy(out, s.snap().Projects)
	return out, nil
}

// UpdateProject merges a field diff into the project. Returns nil if the
// project does not exist.
func (s *Store) UpdateProject(ctx context.Context, id string, upd ProjectUpdate) (*entity.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	p := s.snap().ProjectByID(id)
	if p == nil {
		return nil, nil
	}

	if upd.Visibility != nil && !entity.IsValidVisibility(*upd.Visibility) {
		return nil, deckerr.Newf(deckerr.CodeInvalidReference,
			"invalid visibility", string(*upd.Visibility))
	}

	if upd.Name != nil {
		p.Name = *upd.Name
	}
	if upd.Description != nil {
		p.Description = *upd.Description
	}
	if upd.Visibility != nil {
		p.Visibility = *upd.Visibility
	}
	p.UpdatedAt = s.now()

	cp := *p
	s.notify(ctx, entity.EventProjectUpdated, p.ID, cp)
	if err := s.adapter.Write(ctx); err != nil {
		return nil, err
	}
	return &cp, nil
}

// DeleteProject removes the project and cascades to its epics, tasks and
// any blobs attached to those tasks. Returns false if it did not exist.
func (s *Store) DeleteProject(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return false, err
	}

	snap := s.snap()
	if snap.ProjectByID(id) == nil {
		return false, nil
	}

	// Collect the project's task ids so dangling depends_on references
	// from tasks in other projects get stripped too.
	removedTasks := make(map[string]struct{})
	for i := range snap.Tasks {
		if snap.Tasks[i].ProjectID == id {
			removedTasks[snap.Tasks[i].ID] = struct{}{}
		}
	}

	projects := snap.Projects[:0]
	for _, p := range snap.Projects {
		if p.ID != id {
			projects = append(projects, p)
		}
	}
	snap.Projects = projects

	epics := snap.Epics[:0]
	for _, e := range snap.Epics {
		if e.ProjectID != id {
			epics = append(epics, e)
		}
	}
	snap.Epics = epics

	tasks := snap.Tasks[:0]
	for _, t := range snap.Tasks {
		if t.ProjectID == id {
			continue
		}
		t.DependsOn = withoutIDs(t.DependsOn, removedTasks)
		tasks = append(tasks, t)
	}
	snap.Tasks = tasks

	blobs := snap.Blobs[:0]
	for _, b := range snap.Blobs {
		if _, gone := removedTasks[b.TaskID]; gone {
			continue
		}
		blobs = append(blobs, b)
	}
	snap.Blobs = blobs

	s.notify(ctx, entity.EventProjectDeleted, id, map[string]string{"id": id})
	if err := s.adapter.Write(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// withoutIDs filters ids present in the drop set, preserving order.
func withoutIDs(ids []string, drop map[string]struct{}) []string {
	if len(ids) == 0 {
		return ids
	}
	out := ids[:0]
	for _, id := range ids {
		if _, gone := drop[id]; !gone {
			out = append(out, id)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
