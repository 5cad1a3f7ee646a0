package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmallory/taskdeck/internal/deckerr"
	"github.com/rmallory/taskdeck/internal/entity"
)

func TestCreateTask_RejectsSelfDependency(t *testing.T) {
	s := newTestStore(t)
	p := mustProject(t, s)
	a := mustTask(t, s, p.ID, "a")

	_, err := s.UpdateTask(context.Background(), a.ID, TaskUpdate{DependsOn: &[]string{a.ID}})
	require.Error(t, err)
	assert.True(t, deckerr.HasCode(err, deckerr.CodeCycleDetected))
}

func TestCreateTask_RejectsMissingDependency(t *testing.T) {
	s := newTestStore(t)
	p := mustProject(t, s)

	_, err := s.CreateTask(context.Background(), TaskParams{
		ProjectID: p.ID,
		Title:     "t",
		DependsOn: []string{"ghost"},
	})
	require.Error(t, err)
	assert.True(t, deckerr.HasCode(err, deckerr.CodeInvalidDependency))
}

func TestUpdateTask_RejectsDirectCycle(t *testing.T) {
	s := newTestStore(t)
	p := mustProject(t, s)
	a := mustTask(t, s, p.ID, "a")
	b := mustTask(t, s, p.ID, "b", a.ID)

	_, err := s.UpdateTask(context.Background(), a.ID, TaskUpdate{DependsOn: &[]string{b.ID}})
	require.Error(t, err)
	assert.True(t, deckerr.HasCode(err, deckerr.CodeCycleDetected))

	// Rejection must leave the graph untouched.
	got, err := s.GetTask(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Empty(t, got.DependsOn)
}

func TestUpdateTask_RejectsTransitiveCycle(t *testing.T) {
	s := newTestStore(t)
	p := mustProject(t, s)
	a := mustTask(t, s, p.ID, "a")
	b := mustTask(t, s, p.ID, "b", a.ID)
	c := mustTask(t, s, p.ID, "c", b.ID)

	// a -> c would close a -> c -> b -> a.
	_, err := s.UpdateTask(context.Background(), a.ID, TaskUpdate{DependsOn: &[]string{c.ID}})
	require.Error(t, err)
	assert.True(t, deckerr.HasCode(err, deckerr.CodeCycleDetected))

	got, err := s.GetTask(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Empty(t, got.DependsOn)
}

func TestAddTaskDependency_SoftPath(t *testing.T) {
	s := newTestStore(t)
	p := mustProject(t, s)
	a := mustTask(t, s, p.ID, "a")
	b := mustTask(t, s, p.ID, "b")

	ok, err := s.AddTaskDependency(context.Background(), b.ID, a.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	// Duplicate edge.
	ok, err = s.AddTaskDependency(context.Background(), b.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	// Self edge.
	ok, err = s.AddTaskDependency(context.Background(), a.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	// Missing ids.
	ok, err = s.AddTaskDependency(context.Background(), "ghost", a.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = s.AddTaskDependency(context.Background(), a.ID, "ghost")
	require.NoError(t, err)
	assert.False(t, ok)

	// Cycle: a -> b would close a -> b -> a. Refused, no error.
	ok, err = s.AddTaskDependency(context.Background(), a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := s.GetTask(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Empty(t, got.DependsOn)
}

func TestIsTaskBlocked_Derivation(t *testing.T) {
	s := newTestStore(t)
	p := mustProject(t, s)
	dep := mustTask(t, s, p.ID, "dep")
	task := mustTask(t, s, p.ID, "task", dep.ID)

	blocked, err := s.IsTaskBlocked(context.Background(), task.ID)
	require.NoError(t, err)
	assert.True(t, blocked, "unfinished dependency blocks")

	done := entity.StatusDone
	_, err = s.UpdateTask(context.Background(), dep.ID, TaskUpdate{Status: &done})
	require.NoError(t, err)

	blocked, err = s.IsTaskBlocked(context.Background(), task.ID)
	require.NoError(t, err)
	assert.False(t, blocked, "done dependency unblocks")

	// Explicit blocked_reason overrides dependency state.
	reason := "waiting on design review"
	_, err = s.UpdateTask(context.Background(), task.ID, TaskUpdate{BlockedReason: &reason})
	require.NoError(t, err)

	blocked, err = s.IsTaskBlocked(context.Background(), task.ID)
	require.NoError(t, err)
	assert.True(t, blocked)

	// Missing task is never blocked.
	blocked, err = s.IsTaskBlocked(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestIsTaskBlocked_DanglingDependencyBlocks(t *testing.T) {
	s := newTestStore(t)
	p := mustProject(t, s)
	a := mustTask(t, s, p.ID, "a")

	// Force a dangling edge directly into the snapshot: the derivation
	// must treat an unresolvable dependency as not done.
	s.mu.Lock()
	task := s.snap().TaskByID(a.ID)
	task.DependsOn = []string{"vanished"}
	s.mu.Unlock()

	blocked, err := s.IsTaskBlocked(context.Background(), a.ID)
	require.NoError(t, err)
	assert.True(t, blocked)
}

func TestReadyTasks_FiltersAndOrders(t *testing.T) {
	s := newTestStore(t)
	p := mustProject(t, s)

	newWithPriority := func(title string, pri *int) *entity.Task {
		task, err := s.CreateTask(context.Background(), TaskParams{
			ProjectID: p.ID,
			Title:     title,
			Priority:  pri,
		})
		require.NoError(t, err)
		return task
	}
	intp := func(v int) *int { return &v }

	low := newWithPriority("low", intp(2))
	high := newWithPriority("high", intp(0))
	unset := newWithPriority("unset", nil)
	medium := newWithPriority("medium", intp(1))

	// Done, archived and blocked tasks never appear.
	doneTask := newWithPriority("done", intp(0))
	done := entity.StatusDone
	_, err := s.UpdateTask(context.Background(), doneTask.ID, TaskUpdate{Status: &done})
	require.NoError(t, err)

	archived := newWithPriority("archived", intp(0))
	arch := true
	_, err = s.UpdateTask(context.Background(), archived.ID, TaskUpdate{Archived: &arch})
	require.NoError(t, err)

	blocked := mustTask(t, s, p.ID, "blocked", unset.ID)

	ready, err := s.ReadyTasks(context.Background(), p.ID)
	require.NoError(t, err)
	require.Len(t, ready, 4)

	assert.Equal(t, high.ID, ready[0].ID)
	assert.Equal(t, medium.ID, ready[1].ID)
	// Unset priority sorts with explicit low; the tie order is undefined.
	tail := []string{ready[2].ID, ready[3].ID}
	assert.ElementsMatch(t, []string{low.ID, unset.ID}, tail)

	for _, r := range ready {
		assert.NotEqual(t, blocked.ID, r.ID)
		assert.NotEqual(t, doneTask.ID, r.ID)
		assert.NotEqual(t, archived.ID, r.ID)
	}
}

func TestReadyTasks_ProjectScope(t *testing.T) {
	s := newTestStore(t)
	p1 := mustProject(t, s)
	p2 := mustProject(t, s)
	mustTask(t, s, p1.ID, "in p1")
	mustTask(t, s, p2.ID, "in p2")

	ready, err := s.ReadyTasks(context.Background(), p1.ID)
	require.NoError(t, err)
	require.Len(t, ready, 1)
	assert.Equal(t, p1.ID, ready[0].ProjectID)

	all, err := s.ReadyTasks(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
