package sqlite

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/auth"
	"taskboard/internal/models"
	"taskboard/internal/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	tokens := auth.NewTokens("test-secret", time.Minute, time.Hour)
	store, err := Open(filepath.Join(t.TempDir(), "board.db"), tokens, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("", auth.NewTokens("x", 0, 0), nil)
	assert.Error(t, err)
}

func TestSignUpSignInIdentity(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id, err := store.SignUp(ctx, "ann@example.com", "hunter22")
	require.NoError(t, err)

	_, err = store.SignUp(ctx, "ann@example.com", "other")
	assert.ErrorIs(t, err, storage.ErrUserExists)

	_, err = store.SignIn(ctx, "ann@example.com", "wrong")
	assert.ErrorIs(t, err, storage.ErrInvalidCredentials)

	_, err = store.SignIn(ctx, "nobody@example.com", "hunter22")
	assert.ErrorIs(t, err, storage.ErrInvalidCredentials)

	tokens, err := store.SignIn(ctx, "ann@example.com", "hunter22")
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.RefreshToken)

	identity, err := store.Identity(ctx, tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, id, identity.ID)
	assert.Equal(t, "ann@example.com", identity.Email)

	_, err = store.Identity(ctx, tokens.RefreshToken)
	assert.Error(t, err)
}

func TestProjectLifecycle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	project, err := store.InsertProject(ctx, models.ProjectFields{Name: "Alpha", CreatedBy: "ann@example.com", CreatorID: "u1"})
	require.NoError(t, err)
	assert.NotEmpty(t, project.ID)
	assert.NotEmpty(t, project.CreatedAt)

	updated, err := store.UpdateProject(ctx, project.ID, models.ProjectFields{Name: "Beta", CreatedBy: "ann@example.com", CreatorID: "u1", CreatedAt: project.CreatedAt})
	require.NoError(t, err)
	assert.Equal(t, "Beta", updated.Name)

	_, err = store.UpdateProject(ctx, "missing", models.ProjectFields{Name: "x"})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	byID, err := store.ProjectsByID(ctx, project.ID, "missing")
	require.NoError(t, err)
	assert.Len(t, byID, 1)

	deleted, err := store.DeleteProject(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, deleted, 1)

	deleted, err = store.DeleteProject(ctx, project.ID)
	require.NoError(t, err)
	assert.Empty(t, deleted)
}

func TestMembers(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	project, err := store.InsertProject(ctx, models.ProjectFields{Name: "Alpha", CreatedBy: "a@b.co", CreatorID: "u1"})
	require.NoError(t, err)

	_, err = store.InsertMember(ctx, models.NewProjectMember(project.ID, "u1"))
	require.NoError(t, err)
	_, err = store.InsertMember(ctx, models.NewProjectMember(project.ID, "u2"))
	require.NoError(t, err)

	members, err := store.Members(ctx, models.MemberFilter{ProjectID: project.ID})
	require.NoError(t, err)
	assert.Len(t, members, 2)
	assert.Equal(t, members[0].ProjectID, members[0].ProjectIDText)

	assert.ErrorIs(t, store.DeleteMembers(ctx, models.MemberFilter{}), storage.ErrUnfilteredDelete)
	require.NoError(t, store.DeleteMembers(ctx, models.MemberFilter{ProjectID: project.ID, UserID: "u2"}))

	members, err = store.Members(ctx, models.MemberFilter{UserID: "u2"})
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestTasks(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	project, err := store.InsertProject(ctx, models.ProjectFields{Name: "Alpha", CreatedBy: "a@b.co", CreatorID: "u1"})
	require.NoError(t, err)

	due := "2025-03-01T00:00:00.000Z"
	task, err := store.InsertTask(ctx, models.TaskFields{
		ProjectID:   project.ID,
		Title:       "Write docs",
		Description: "all of them",
		Status:      "bogus",
		DueDate:     &due,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusTodo, task.Status)
	require.NotNil(t, task.DueDate)
	assert.Nil(t, task.AssignedTo)

	moved, err := store.UpdateTask(ctx, task.ID, map[string]any{"status": models.StatusDone})
	require.NoError(t, err)
	assert.Equal(t, models.StatusDone, moved.Status)
	assert.Equal(t, "Write docs", moved.Title)

	cleared, err := store.UpdateTask(ctx, task.ID, map[string]any{"due_date": nil})
	require.NoError(t, err)
	assert.Nil(t, cleared.DueDate)

	_, err = store.UpdateTask(ctx, task.ID, map[string]any{"id": "x"})
	assert.Error(t, err)

	_, err = store.UpdateTask(ctx, "missing", map[string]any{"status": models.StatusDone})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	tasks, err := store.TasksByProject(ctx, project.ID)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)

	deleted, err := store.DeleteTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, deleted.ID)

	_, err = store.DeleteTask(ctx, task.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestProjectDeleteBlockedByTasks(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	project, err := store.InsertProject(ctx, models.ProjectFields{Name: "Alpha", CreatedBy: "a@b.co", CreatorID: "u1"})
	require.NoError(t, err)
	_, err = store.InsertTask(ctx, models.TaskFields{ProjectID: project.ID, Title: "t", Description: "d", Status: models.StatusTodo})
	require.NoError(t, err)

	_, err = store.DeleteProject(ctx, project.ID)
	require.Error(t, err)

	require.NoError(t, store.DeleteProjectTasks(ctx, project.ID))
	_, err = store.DeleteProject(ctx, project.ID)
	require.NoError(t, err)
}

func TestCategories(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	bug, err := store.InsertCategory(ctx, models.Category{Name: "Bug", Color: "red"})
	require.NoError(t, err)

	cats, err := store.CategoriesByID(ctx, bug.ID)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "red", cats[0].Color)

	_, err = store.InsertCategory(ctx, models.Category{Name: "Bug", Color: "blue"})
	assert.Error(t, err)
}
