package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/models"
	"taskboard/internal/util"
)

func memberIDs(t *testing.T, b *Board, projectID string) []string {
	t.Helper()
	members, err := b.GetProjectUsers(context.Background(), projectID)
	require.NoError(t, err)
	ids := make([]string, 0, len(members))
	for _, m := range members {
		assert.Equal(t, m.ProjectID, m.ProjectIDText)
		assert.Equal(t, m.UserID, m.UserIDText)
		ids = append(ids, m.UserID)
	}
	sort.Strings(ids)
	return ids
}

func sorted(ids ...string) []string {
	out := append([]string(nil), ids...)
	sort.Strings(out)
	return out
}

func TestCreateProjectAddsSelectedMembers(t *testing.T) {
	b := newBoard(t, openStore(t))
	ctx := context.Background()
	alice := register(t, b, "alice@example.com")
	u1 := register(t, b, "u1@example.com")
	u2 := register(t, b, "u2@example.com")

	project, err := b.CreateProject(ctx, ProjectInput{
		Name:          " Alpha ",
		SelectedUsers: []string{u1.ID, u2.ID, u1.ID},
		CreatedBy:     alice.Email,
		CreatorID:     alice.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "Alpha", project.Name)
	assert.Equal(t, alice.ID, project.CreatorID)
	assert.NotEmpty(t, project.CreatedAt)

	assert.Equal(t, sorted(u1.ID, u2.ID), memberIDs(t, b, project.ID))
}

func TestCreateProjectAcceptsHexCreatorID(t *testing.T) {
	b := newBoard(t, openStore(t))
	alice := register(t, b, "alice@example.com")

	project, err := b.CreateProject(context.Background(), ProjectInput{
		Name:      "Alpha",
		CreatedBy: alice.Email,
		CreatorID: strings.ReplaceAll(alice.ID, "-", ""),
	})
	require.NoError(t, err)
	assert.Equal(t, alice.ID, project.CreatorID)
}

func TestCreateProjectTrimsPaddedIDs(t *testing.T) {
	b := newBoard(t, openStore(t))
	alice := register(t, b, "alice@example.com")
	u1 := register(t, b, "u1@example.com")

	project, err := b.CreateProject(context.Background(), ProjectInput{
		Name:          "Alpha",
		SelectedUsers: []string{" " + strings.ReplaceAll(u1.ID, "-", "") + " ", u1.ID},
		CreatedBy:     alice.Email,
		CreatorID:     "  " + alice.ID + " ",
	})
	require.NoError(t, err)
	assert.Equal(t, alice.ID, project.CreatorID)
	assert.Equal(t, []string{u1.ID}, memberIDs(t, b, project.ID))
}

func TestCreateProjectReportsAllViolations(t *testing.T) {
	b := newBoard(t, openStore(t))

	_, err := b.CreateProject(context.Background(), ProjectInput{Name: "  ", CreatorID: "nope"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Violations, 3)
}

func TestUpdateProjectReconcilesMembers(t *testing.T) {
	b := newBoard(t, openStore(t))
	ctx := context.Background()
	alice := register(t, b, "alice@example.com")
	u1 := register(t, b, "u1@example.com")
	u2 := register(t, b, "u2@example.com")
	u3 := register(t, b, "u3@example.com")

	project, err := b.CreateProject(ctx, ProjectInput{
		Name:          "Alpha",
		SelectedUsers: []string{u1.ID, u2.ID},
		CreatedBy:     alice.Email,
		CreatorID:     alice.ID,
	})
	require.NoError(t, err)

	before, err := b.store.Members(ctx, models.MemberFilter{ProjectID: project.ID, UserID: u2.ID})
	require.NoError(t, err)
	require.Len(t, before, 1)

	updated, err := b.UpdateProject(ctx, ProjectInput{
		ID:            project.ID,
		Name:          "Alpha v2",
		SelectedUsers: []string{u2.ID, u3.ID},
		CreatedBy:     alice.Email,
		CreatorID:     alice.ID,
		CreatedAt:     project.CreatedAt,
	})
	require.NoError(t, err)
	assert.Equal(t, "Alpha v2", updated.Name)
	assert.Equal(t, sorted(u2.ID, u3.ID), memberIDs(t, b, project.ID))

	// u2 kept its existing row.
	after, err := b.store.Members(ctx, models.MemberFilter{ProjectID: project.ID, UserID: u2.ID})
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, before[0].ID, after[0].ID)
}

func TestUpdateProjectMemberSetSemantics(t *testing.T) {
	b := newBoard(t, openStore(t))
	ctx := context.Background()
	alice := register(t, b, "alice@example.com")
	u1 := register(t, b, "u1@example.com")

	project, err := b.CreateProject(ctx, ProjectInput{
		Name: "Alpha", SelectedUsers: []string{u1.ID}, CreatedBy: alice.Email, CreatorID: alice.ID,
	})
	require.NoError(t, err)

	in := ProjectInput{ID: project.ID, Name: "Alpha", CreatedBy: alice.Email, CreatorID: alice.ID, CreatedAt: project.CreatedAt}

	_, err = b.UpdateProject(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, []string{u1.ID}, memberIDs(t, b, project.ID), "nil selection leaves members alone")

	in.SelectedUsers = []string{}
	_, err = b.UpdateProject(ctx, in)
	require.NoError(t, err)
	assert.Empty(t, memberIDs(t, b, project.ID), "empty selection removes everyone")
}

func TestUpdateProjectValidationAndNotFound(t *testing.T) {
	b := newBoard(t, openStore(t))
	ctx := context.Background()
	alice := register(t, b, "alice@example.com")

	_, err := b.UpdateProject(ctx, ProjectInput{Name: "x", CreatedBy: alice.Email, CreatorID: alice.ID})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Violations, 2, "missing id and created_at")

	_, err = b.UpdateProject(ctx, ProjectInput{
		ID: util.NewID(), Name: "x", CreatedBy: alice.Email, CreatorID: alice.ID, CreatedAt: "2024-01-01T00:00:00.000Z",
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateProjectMember(t *testing.T) {
	b := newBoard(t, openStore(t))
	ctx := context.Background()
	alice := register(t, b, "alice@example.com")
	bob := register(t, b, "bob@example.com")

	project, err := b.CreateProject(ctx, ProjectInput{Name: "Alpha", CreatedBy: alice.Email, CreatorID: alice.ID})
	require.NoError(t, err)

	member, err := b.CreateProjectMember(ctx, project.ID, strings.ReplaceAll(bob.ID, "-", ""))
	require.NoError(t, err)
	assert.Equal(t, bob.ID, member.UserID)
	assert.Equal(t, bob.ID, member.UserIDText)

	_, err = b.CreateProjectMember(ctx, project.ID, bob.ID)
	assert.ErrorIs(t, err, ErrAlreadyMember)

	_, err = b.CreateProjectMember(ctx, "garbage", bob.ID)
	assert.True(t, IsValidation(err))
}

func TestGetUserProjects(t *testing.T) {
	b := newBoard(t, openStore(t))
	ctx := context.Background()
	alice := register(t, b, "alice@example.com")
	bob := register(t, b, "bob@example.com")

	projects, err := b.GetUserProjects(ctx, bob.ID)
	require.NoError(t, err)
	assert.NotNil(t, projects)
	assert.Empty(t, projects)

	for _, name := range []string{"One", "Two"} {
		_, err := b.CreateProject(ctx, ProjectInput{Name: name, SelectedUsers: []string{bob.ID}, CreatedBy: alice.Email, CreatorID: alice.ID})
		require.NoError(t, err)
	}
	_, err = b.CreateProject(ctx, ProjectInput{Name: "Three", CreatedBy: alice.Email, CreatorID: alice.ID})
	require.NoError(t, err)

	projects, err = b.GetUserProjects(ctx, bob.ID)
	require.NoError(t, err)
	assert.Len(t, projects, 2)
}

func TestDeleteProjectCascade(t *testing.T) {
	b := newBoard(t, openStore(t))
	ctx := context.Background()
	alice := register(t, b, "alice@example.com")

	project, err := b.CreateProject(ctx, ProjectInput{Name: "Alpha", SelectedUsers: []string{alice.ID}, CreatedBy: alice.Email, CreatorID: alice.ID})
	require.NoError(t, err)
	_, err = b.CreateTask(ctx, TaskInput{ProjectID: project.ID, Title: "t", Description: "d"})
	require.NoError(t, err)

	result, err := b.DeleteProject(ctx, project.ID)
	require.NoError(t, err)
	deleted, ok := result.(models.Project)
	require.True(t, ok)
	assert.Equal(t, project.ID, deleted.ID)

	members, err := b.store.Members(ctx, models.MemberFilter{ProjectID: project.ID})
	require.NoError(t, err)
	assert.Empty(t, members)
	tasks, err := b.store.TasksByProject(ctx, project.ID)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	again, err := b.DeleteProject(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DeletedProject{ID: project.ID, Deleted: true}, again)
}

func TestDeleteProjectRetriesTransientFailures(t *testing.T) {
	store := &flakyStore{Store: openStore(t), taskFailures: 2, taskErr: transientErr()}
	b := newBoard(t, store)
	ctx := context.Background()
	alice := register(t, b, "alice@example.com")

	project, err := b.CreateProject(ctx, ProjectInput{Name: "Alpha", CreatedBy: alice.Email, CreatorID: alice.ID})
	require.NoError(t, err)

	_, err = b.DeleteProject(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, store.taskCalls)
}

func TestDeleteProjectPermanentFailureNamesStep(t *testing.T) {
	store := &flakyStore{Store: openStore(t), taskFailures: 100, taskErr: errors.New("permission denied")}
	b := newBoard(t, store)
	ctx := context.Background()
	alice := register(t, b, "alice@example.com")

	project, err := b.CreateProject(ctx, ProjectInput{Name: "Alpha", SelectedUsers: []string{alice.ID}, CreatedBy: alice.Email, CreatorID: alice.ID})
	require.NoError(t, err)

	_, err = b.DeleteProject(ctx, project.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tasks step failed")
	assert.Equal(t, 1, store.taskCalls, "permanent errors are not retried")

	// Memberships were already removed and the project row survives.
	members, err := b.store.Members(ctx, models.MemberFilter{ProjectID: project.ID})
	require.NoError(t, err)
	assert.Empty(t, members)
	projects, err := b.store.ProjectsByID(ctx, project.ID)
	require.NoError(t, err)
	assert.Len(t, projects, 1)
}

func TestDeleteProjectGivesUpAfterRetries(t *testing.T) {
	store := &flakyStore{Store: openStore(t), taskFailures: 100, taskErr: transientErr()}
	b := newBoard(t, store, func(o *Options) { o.RetryMax = 2 })
	ctx := context.Background()
	alice := register(t, b, "alice@example.com")

	project, err := b.CreateProject(ctx, ProjectInput{Name: "Alpha", CreatedBy: alice.Email, CreatorID: alice.ID})
	require.NoError(t, err)

	_, err = b.DeleteProject(ctx, project.ID)
	require.Error(t, err)
	assert.Equal(t, 3, store.taskCalls)
}
