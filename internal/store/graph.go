package store

import (
	"context"
	"sort"

	"github.com/rmallory/taskdeck/internal/deckerr"
	"github.com/rmallory/taskdeck/internal/entity"
)

// wouldCreateCycle reports whether giving taskID the proposed dependency
// set would close a cycle. It walks depth-first from each proposed
// dependency along existing depends_on edges; revisiting taskID means the
// proposed edge set is cyclic.
func wouldCreateCycle(snap *entity.Snapshot, taskID string, deps []string) bool {
	idx := snap.TaskIndex()
	visited := make(map[string]bool)

	var walk func(id string) bool
	walk = func(id string) bool {
		if id == taskID {
			return true
		}
		if visited[id] {
			return false
		}
		visited[id] = true
		t, ok := idx[id]
		if !ok {
			return false
		}
		for _, dep := range t.DependsOn {
			if walk(dep) {
				return true
			}
		}
		return false
	}

	for _, dep := range deps {
		if walk(dep) {
			return true
		}
	}
	return false
}

// validateDependencies enforces the strict path used by create and
// update: every dependency must reference an existing task and the
// resulting edge set must be acyclic. Violations are typed errors that
// block the mutation entirely.
func validateDependencies(snap *entity.Snapshot, taskID string, deps []string) error {
	for _, depID := range deps {
		if depID == taskID {
			return deckerr.Newf(deckerr.CodeCycleDetected,
				"task cannot depend on itself", taskID)
		}
		if snap.TaskByID(depID) == nil {
			return deckerr.Newf(deckerr.CodeInvalidDependency,
				"depends_on references missing task", depID)
		}
	}
	if wouldCreateCycle(snap, taskID, deps) {
		return deckerr.Newf(deckerr.CodeCycleDetected,
			"dependency would create a cycle", taskID)
	}
	return nil
}

// AddTaskDependency adds a single dependency edge. Unlike the strict
// create/update path this is the soft path: a missing task, duplicate
// edge or would-be cycle returns ok=false without an error. Callers rely
// on both shapes, so the two are deliberately separate operations.
// The returned error reflects backend failures only.
func (s *Store) AddTaskDependency(ctx context.Context, taskID, depID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return false, err
	}

	snap := s.snap()
	t := snap.TaskByID(taskID)
	if t == nil || snap.TaskByID(depID) == nil {
		return false, nil
	}
	if taskID == depID || t.HasDependency(depID) {
		return false, nil
	}
	if wouldCreateCycle(snap, taskID, []string{depID}) {
		return false, nil
	}

	t.DependsOn = append(t.DependsOn, depID)
	t.UpdatedAt = s.now()

	s.notify(ctx, entity.EventTaskUpdated, t.ProjectID, *t)
	if err := s.adapter.Write(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// taskBlocked derives the blocked state of a task. An externally-set
// blocked_reason wins unconditionally; otherwise the task is blocked
// while any dependency has not reached done. A missing dependency record
// counts as not done.
func taskBlocked(idx map[string]*entity.Task, t *entity.Task) bool {
	if t.BlockedReason != "" {
		return true
	}
	for _, depID := range t.DependsOn {
		dep, ok := idx[depID]
		if !ok || !dep.IsDone() {
			return true
		}
	}
	return false
}

// IsTaskBlocked reports whether the task is blocked. Returns false for a
// task that does not exist.
func (s *Store) IsTaskBlocked(ctx context.Context, taskID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return false, err
	}

	snap := s.snap()
	t := snap.TaskByID(taskID)
	if t == nil {
		return false, nil
	}
	return taskBlocked(snap.TaskIndex(), t), nil
}

// ReadyTasks returns the tasks eligible for work: not archived, not done
// and not blocked, optionally scoped to one project. Results sort
// ascending by priority with unset priority ordering as low; ties carry
// no defined secondary order.
func (s *Store) ReadyTasks(ctx context.Context, projectID string) ([]entity.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	snap := s.snap()
	idx := snap.TaskIndex()

	var ready []entity.Task
	for i := range snap.Tasks {
		t := &snap.Tasks[i]
		if projectID != "" && t.ProjectID != projectID {
			continue
		}
		if t.Archived || t.IsDone() {
			continue
		}
		if taskBlocked(idx, t) {
			continue
		}
		ready = append(ready, *t)
	}

	sort.SliceStable(ready, func(i, j int) bool {
		return entity.EffectivePriority(ready[i].Priority) < entity.EffectivePriority(ready[j].Priority)
	})
	return ready, nil
}
