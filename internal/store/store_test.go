package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmallory/taskdeck/internal/entity"
	"github.com/rmallory/taskdeck/internal/storage"
)

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snapshot.json")
	return New(storage.NewFileAdapter(path), opts...)
}

func mustProject(t *testing.T, s *Store) *entity.Project {
	t.Helper()
	p, err := s.CreateProject(context.Background(), "Test Project", "", entity.VisibilityPrivate)
	require.NoError(t, err)
	return p
}

func mustTask(t *testing.T, s *Store, projectID, title string, deps ...string) *entity.Task {
	t.Helper()
	task, err := s.CreateTask(context.Background(), TaskParams{
		ProjectID: projectID,
		Title:     title,
		DependsOn: deps,
	})
	require.NoError(t, err)
	return task
}

func TestCreateProject_AssignsIDAndDefaults(t *testing.T) {
	s := newTestStore(t)
	p, err := s.CreateProject(context.Background(), "Deck", "backend", "")
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, entity.VisibilityPrivate, p.Visibility)
	assert.False(t, p.CreatedAt.IsZero())
}

func TestGetProject_MissingIsAbsentNotError(t *testing.T) {
	s := newTestStore(t)
	p, err := s.GetProject(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestUpdateTask_RecomputesUpdatedAt(t *testing.T) {
	clock := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s := newTestStore(t, WithClock(func() time.Time { return clock }))

	p := mustProject(t, s)
	task := mustTask(t, s, p.ID, "first")

	clock = clock.Add(time.Hour)
	title := "renamed"
	updated, err := s.UpdateTask(context.Background(), task.ID, TaskUpdate{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Title)
	assert.True(t, updated.UpdatedAt.After(task.UpdatedAt))
	assert.Equal(t, task.CreatedAt, updated.CreatedAt)
}

func TestUpdateTask_MissingIsAbsent(t *testing.T) {
	s := newTestStore(t)
	title := "x"
	task, err := s.UpdateTask(context.Background(), "nope", TaskUpdate{Title: &title})
	require.NoError(t, err)
	assert.Nil(t, task)
}

func TestCreateTask_RejectsMissingProject(t *testing.T) {
	s := newTestStore(t)
	_, err := s.CreateTask(context.Background(), TaskParams{ProjectID: "nope", Title: "t"})
	require.Error(t, err)
}

func TestCreateTask_RejectsOutOfRangePriority(t *testing.T) {
	s := newTestStore(t)
	p := mustProject(t, s)

	for _, bad := range []int{-1, 3, 99} {
		pri := bad
		_, err := s.CreateTask(context.Background(), TaskParams{
			ProjectID: p.ID,
			Title:     "t",
			Priority:  &pri,
		})
		require.Error(t, err, "priority %d should be rejected", bad)
	}
}

func TestCreateTask_DefaultStatusAndStoredPriority(t *testing.T) {
	s := newTestStore(t)
	p := mustProject(t, s)

	pri := 1
	task, err := s.CreateTask(context.Background(), TaskParams{
		ProjectID: p.ID,
		Title:     "t",
		Priority:  &pri,
	})
	require.NoError(t, err)
	assert.Equal(t, entity.StatusTodo, task.Status)
	require.NotNil(t, task.Priority)
	assert.Equal(t, 1, *task.Priority)
}

func TestAddComment_AppendOnly(t *testing.T) {
	s := newTestStore(t)
	p := mustProject(t, s)
	task := mustTask(t, s, p.ID, "t")

	c1, err := s.AddComment(context.Background(), task.ID, "first", "human:alice")
	require.NoError(t, err)
	c2, err := s.AddComment(context.Background(), task.ID, "second", "agent:builder")
	require.NoError(t, err)

	got, err := s.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	require.Len(t, got.Comments, 2)
	assert.Equal(t, c1.ID, got.Comments[0].ID)
	assert.Equal(t, c2.ID, got.Comments[1].ID)
	assert.Equal(t, "first", got.Comments[0].Body)
}

func TestAddGuardrail_AutoAssignsID(t *testing.T) {
	s := newTestStore(t)
	p := mustProject(t, s)
	task := mustTask(t, s, p.ID, "t")

	g, err := s.AddGuardrail(context.Background(), task.ID, entity.Guardrail{Number: 1, Text: "no force push"})
	require.NoError(t, err)
	assert.NotEmpty(t, g.ID)

	_, err = s.AddGuardrail(context.Background(), task.ID, entity.Guardrail{Number: 0, Text: "bad"})
	require.Error(t, err)
}

func TestDeleteTask_StripsDependencyReferences(t *testing.T) {
	s := newTestStore(t)
	p := mustProject(t, s)
	a := mustTask(t, s, p.ID, "a")
	b := mustTask(t, s, p.ID, "b", a.ID)

	deleted, err := s.DeleteTask(context.Background(), a.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	got, err := s.GetTask(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Empty(t, got.DependsOn)
}

func TestDeleteTask_RemovesBlobs(t *testing.T) {
	s := newTestStore(t)
	p := mustProject(t, s)
	task := mustTask(t, s, p.ID, "t")

	blob, err := s.CreateBlob(context.Background(), BlobParams{
		TaskID:      task.ID,
		ContentHash: "abc123",
		Filename:    "log.txt",
		MimeType:    "text/plain",
		Size:        42,
	})
	require.NoError(t, err)

	_, err = s.DeleteTask(context.Background(), task.ID)
	require.NoError(t, err)

	got, err := s.GetBlob(context.Background(), blob.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDeleteEpic_ClearsEpicIDWithoutDeletingTasks(t *testing.T) {
	s := newTestStore(t)
	p := mustProject(t, s)
	epic, err := s.CreateEpic(context.Background(), p.ID, "Epic")
	require.NoError(t, err)

	task, err := s.CreateTask(context.Background(), TaskParams{
		ProjectID: p.ID,
		EpicID:    epic.ID,
		Title:     "t",
	})
	require.NoError(t, err)

	deleted, err := s.DeleteEpic(context.Background(), epic.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	got, err := s.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Empty(t, got.EpicID)
}

func TestDeleteProject_Cascades(t *testing.T) {
	s := newTestStore(t)
	p := mustProject(t, s)
	other := mustProject(t, s)

	epic, err := s.CreateEpic(context.Background(), p.ID, "Epic")
	require.NoError(t, err)
	task := mustTask(t, s, p.ID, "t")
	blob, err := s.CreateBlob(context.Background(), BlobParams{TaskID: task.ID, Filename: "f", Size: 1})
	require.NoError(t, err)
	survivor := mustTask(t, s, other.ID, "survivor")

	deleted, err := s.DeleteProject(context.Background(), p.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	gotEpic, err := s.GetEpic(context.Background(), epic.ID)
	require.NoError(t, err)
	assert.Nil(t, gotEpic)

	gotTask, err := s.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Nil(t, gotTask)

	gotBlob, err := s.GetBlob(context.Background(), blob.ID)
	require.NoError(t, err)
	assert.Nil(t, gotBlob)

	gotSurvivor, err := s.GetTask(context.Background(), survivor.ID)
	require.NoError(t, err)
	require.NotNil(t, gotSurvivor)
}

func TestMutations_PersistAcrossStores(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")

	s1 := New(storage.NewFileAdapter(path))
	p := mustProject(t, s1)
	task := mustTask(t, s1, p.ID, "persisted")

	s2 := New(storage.NewFileAdapter(path))
	got, err := s2.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "persisted", got.Title)
}
