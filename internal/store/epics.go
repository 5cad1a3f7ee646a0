package store

import (
	"context"

	"github.com/rmallory/taskdeck/internal/deckerr"
	"github.com/rmallory/taskdeck/internal/entity"
)

// EpicUpdate is a shallow field diff for an epic. Nil fields are left
// untouched. An empty DependsOn slice clears the epic's dependencies.
type EpicUpdate struct {
	Title     *string
	Status    *entity.EpicStatus
	Notes     *string
	Auto      *bool
	DependsOn *[]string
}

// CreateEpic creates an epic under an existing project.
func (s *Store) CreateEpic(ctx context.Context, projectID, title string) (*entity.Epic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	snap := s.snap()
	if snap.ProjectByID(projectID) == nil {
		return nil, deckerr.Newf(deckerr.CodeInvalidReference,
			"project not found", projectID)
	}

	now := s.now()
	e := entity.Epic{
		ID:        newID(),
		ProjectID: projectID,
		Title:     title,
		Status:    entity.EpicStatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
	snap.Epics = append(snap.Epics, e)
	s.notify(ctx, entity.EventEpicCreated, projectID, e)
	if err := s.adapter.Write(ctx); err != nil {
		return nil, err
	}
	return &e, nil
}

// GetEpic returns the epic, or nil if it does not exist.
func (s *Store) GetEpic(ctx context.Context, id string) (*entity.Epic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	if e := s.snap().EpicByID(id); e != nil {
		cp := *e
		return &cp, nil
	}
	return nil, nil
}

// ListEpics returns epics, optionally filtered to one project.
func (s *Store) ListEpics(ctx context.Context, projectID string) ([]entity.Epic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	var out []entity.Epic
	for _, e := range s.snap().Epics {
		if projectID == "" || e.ProjectID == projectID {
			out = append(out, e)
		}
	}
	return out, nil
}

// UpdateEpic merges a field diff into the epic. Returns nil if the epic
// does not exist. Dependency references must name existing epics.
func (s *Store) UpdateEpic(ctx context.Context, id string, upd EpicUpdate) (*entity.Epic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	snap := s.snap()
	e := snap.EpicByID(id)
	if e == nil {
		return nil, nil
	}

	if upd.Status != nil && !entity.IsValidEpicStatus(*upd.Status) {
		return nil, deckerr.Newf(deckerr.CodeInvalidStatus,
			"invalid epic status", string(*upd.Status))
	}
	if upd.DependsOn != nil {
		for _, depID := range *upd.DependsOn {
			if depID == id {
				return nil, deckerr.New(deckerr.CodeInvalidDependency,
					"epic cannot depend on itself")
			}
			if snap.EpicByID(depID) == nil {
				return nil, deckerr.Newf(deckerr.CodeInvalidDependency,
					"depends_on references missing epic", depID)
			}
		}
	}

	if upd.Title != nil {
		e.Title = *upd.Title
	}
	if upd.Status != nil {
		e.Status = *upd.Status
	}
	if upd.Notes != nil {
		e.Notes = *upd.Notes
	}
	if upd.Auto != nil {
		e.Auto = *upd.Auto
	}
	if upd.DependsOn != nil {
		e.DependsOn = dedupe(*upd.DependsOn)
	}
	e.UpdatedAt = s.now()

	cp := *e
	s.notify(ctx, entity.EventEpicUpdated, e.ProjectID, cp)
	if err := s.adapter.Write(ctx); err != nil {
		return nil, err
	}
	return &cp, nil
}

// DeleteEpic removes the epic and clears epic_id on tasks that referenced
// it, without deleting those tasks. Returns false if it did not exist.
func (s *Store) DeleteEpic(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return false, err
	}

	snap := s.snap()
	e := snap.EpicByID(id)
	if e == nil {
		return false, nil
	}
	projectID := e.ProjectID

	epics := snap.Epics[:0]
	for _, ep := range snap.Epics {
		if ep.ID == id {
			continue
		}
		ep.DependsOn = withoutIDs(ep.DependsOn, map[string]struct{}{id: {}})
		epics = append(epics, ep)
	}
	snap.Epics = epics

	for i := range snap.Tasks {
		if snap.Tasks[i].EpicID == id {
			snap.Tasks[i].EpicID = ""
			snap.Tasks[i].UpdatedAt = s.now()
		}
	}

	s.notify(ctx, entity.EventEpicDeleted, projectID, map[string]string{"id": id})
	if err := s.adapter.Write(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// dedupe removes duplicate ids while preserving first-seen order.
func dedupe(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
