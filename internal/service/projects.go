package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sethvargo/go-retry"

	"taskboard/internal/models"
	"taskboard/internal/storage"
	"taskboard/internal/util"
)

// ProjectInput is a create or update request.
type ProjectInput struct {
	ID   string
	Name string
	// SelectedUsers is the desired member set. On update a nil slice leaves
	// memberships untouched while an empty one removes them all.
	SelectedUsers []string
	CreatedBy     string
	CreatorID     string
	CreatedAt     string
}

func (in ProjectInput) fields() models.ProjectFields {
	return models.ProjectFields{
		Name:      strings.TrimSpace(in.Name),
		CreatedBy: strings.TrimSpace(in.CreatedBy),
		CreatorID: util.NormalizeUUID(strings.TrimSpace(in.CreatorID)),
		CreatedAt: strings.TrimSpace(in.CreatedAt),
	}
}

func (in ProjectInput) validate(v *violations) {
	v.check(strings.TrimSpace(in.Name) != "", "Project name is required and must be a non-empty string")
	v.check(strings.TrimSpace(in.CreatedBy) != "", "Created by field is required and must be a non-empty string")
	creator := util.NormalizeUUID(strings.TrimSpace(in.CreatorID))
	v.check(creator != "", "Creator ID is required and must be a valid string")
	v.check(creator == "" || util.IsUUID(creator), "Creator ID must be in valid UUID format")
	for _, id := range in.SelectedUsers {
		v.check(util.IsUUID(util.NormalizeUUID(strings.TrimSpace(id))), fmt.Sprintf("Selected user %q must be in valid UUID format", id))
	}
}

// distinctIDs normalizes ids and drops duplicates, keeping the first occurrence order.
func distinctIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = util.NormalizeUUID(strings.TrimSpace(id))
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func requireUUID(v *violations, label, id string) string {
	id = util.NormalizeUUID(strings.TrimSpace(id))
	v.check(id != "", label+" is required and must be a valid string")
	v.check(id == "" || util.IsUUID(id), label+" must be in valid UUID format")
	return id
}

// CreateProject inserts a project and one membership per selected user.
func (b *Board) CreateProject(ctx context.Context, in ProjectInput) (models.Project, error) {
	var v violations
	in.validate(&v)
	if err := v.err(); err != nil {
		return models.Project{}, err
	}

	fields := in.fields()
	if fields.CreatedAt == "" {
		fields.CreatedAt = b.timestamp()
	}

	project, err := b.store.InsertProject(ctx, fields)
	if err != nil {
		return models.Project{}, fmt.Errorf("failed to create project: %w", err)
	}

	for _, userID := range distinctIDs(in.SelectedUsers) {
		if _, err := b.CreateProjectMember(ctx, project.ID, userID); err != nil && !errors.Is(err, ErrAlreadyMember) {
			return project, fmt.Errorf("project %s created but adding member %s failed: %w", project.ID, userID, err)
		}
	}

	b.logger.Info("project created", slog.String("id", project.ID), slog.Int("members", len(in.SelectedUsers)))
	return project, nil
}

// UpdateProject patches a project and reconciles its memberships against
// SelectedUsers: members only in the existing set are removed, members only
// in the requested set are added and the intersection is left alone.
func (b *Board) UpdateProject(ctx context.Context, in ProjectInput) (models.Project, error) {
	var v violations
	id := requireUUID(&v, "Project ID", in.ID)
	in.validate(&v)
	v.check(strings.TrimSpace(in.CreatedAt) != "", "Created at field is required and must be a valid string")
	if err := v.err(); err != nil {
		return models.Project{}, err
	}

	project, err := b.store.UpdateProject(ctx, id, in.fields())
	if err != nil {
		return models.Project{}, fmt.Errorf("failed to update project: %w", err)
	}

	if in.SelectedUsers == nil {
		return project, nil
	}
	if err := b.reconcileMembers(ctx, project.ID, distinctIDs(in.SelectedUsers)); err != nil {
		return project, err
	}
	return project, nil
}

func (b *Board) reconcileMembers(ctx context.Context, projectID string, requested []string) error {
	existing, err := b.store.Members(ctx, models.MemberFilter{ProjectID: projectID})
	if err != nil {
		return fmt.Errorf("failed to load project members: %w", err)
	}

	current := make(map[string]struct{}, len(existing))
	for _, m := range existing {
		current[m.UserID] = struct{}{}
	}
	wanted := make(map[string]struct{}, len(requested))
	for _, id := range requested {
		wanted[id] = struct{}{}
	}

	for userID := range current {
		if _, keep := wanted[userID]; keep {
			continue
		}
		if err := b.store.DeleteMembers(ctx, models.MemberFilter{ProjectID: projectID, UserID: userID}); err != nil {
			return fmt.Errorf("failed to remove member %s: %w", userID, err)
		}
		b.logger.Info("project member removed", slog.String("project_id", projectID), slog.String("user_id", userID))
	}

	for _, userID := range requested {
		if _, ok := current[userID]; ok {
			continue
		}
		if _, err := b.CreateProjectMember(ctx, projectID, userID); err != nil && !errors.Is(err, ErrAlreadyMember) {
			return fmt.Errorf("failed to add member %s: %w", userID, err)
		}
	}
	return nil
}

// DeleteProject removes memberships, then tasks, then the project row. The
// steps run without a transaction; each one is an idempotent filtered delete
// retried on transient failures. If a step fails for good the earlier steps
// stay applied and the error names the failed step.
//
// The result is the deleted project row or a models.DeletedProject when the
// backend did not return it.
func (b *Board) DeleteProject(ctx context.Context, projectID string) (any, error) {
	var v violations
	id := requireUUID(&v, "Project ID", projectID)
	if err := v.err(); err != nil {
		return nil, err
	}

	if err := b.retryStep(ctx, "members", func(ctx context.Context) error {
		return b.store.DeleteMembers(ctx, models.MemberFilter{ProjectID: id})
	}); err != nil {
		return nil, err
	}

	if err := b.retryStep(ctx, "tasks", func(ctx context.Context) error {
		return b.store.DeleteProjectTasks(ctx, id)
	}); err != nil {
		return nil, err
	}

	var deleted []models.Project
	if err := b.retryStep(ctx, "project", func(ctx context.Context) error {
		rows, err := b.store.DeleteProject(ctx, id)
		if err != nil {
			return err
		}
		deleted = rows
		return nil
	}); err != nil {
		return nil, err
	}

	b.logger.Info("project deleted", slog.String("id", id))
	if len(deleted) > 0 {
		return deleted[0], nil
	}
	return models.DeletedProject{ID: id, Deleted: true}, nil
}

func (b *Board) retryStep(ctx context.Context, step string, fn func(context.Context) error) error {
	backoff := retry.WithMaxRetries(b.retryMax, retry.NewExponential(b.retryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil && storage.IsTransient(err) {
			b.logger.Warn("cascade step failed, retrying", slog.String("step", step), slog.String("error", err.Error()))
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("delete project: %s step failed: %w", step, err)
	}
	return nil
}

// CreateProjectMember adds userID to projectID unless the pair already exists.
func (b *Board) CreateProjectMember(ctx context.Context, projectID, userID string) (models.ProjectMember, error) {
	var v violations
	pid := requireUUID(&v, "Project ID", projectID)
	uid := requireUUID(&v, "User ID", userID)
	if err := v.err(); err != nil {
		return models.ProjectMember{}, err
	}

	existing, err := b.store.Members(ctx, models.MemberFilter{ProjectID: pid, UserID: uid})
	if err != nil {
		return models.ProjectMember{}, fmt.Errorf("failed to check membership: %w", err)
	}
	if len(existing) > 0 {
		return models.ProjectMember{}, ErrAlreadyMember
	}

	member, err := b.store.InsertMember(ctx, models.NewProjectMember(pid, uid))
	if err != nil {
		return models.ProjectMember{}, fmt.Errorf("failed to add project member: %w", err)
	}
	b.logger.Info("project member added", slog.String("project_id", pid), slog.String("user_id", uid))
	return member, nil
}

// GetProjectUsers returns the membership rows of a project.
func (b *Board) GetProjectUsers(ctx context.Context, projectID string) ([]models.ProjectMember, error) {
	var v violations
	id := requireUUID(&v, "Project ID", projectID)
	if err := v.err(); err != nil {
		return nil, err
	}

	members, err := b.store.Members(ctx, models.MemberFilter{ProjectID: id})
	if err != nil {
		return nil, fmt.Errorf("failed to list project members: %w", err)
	}
	if members == nil {
		members = []models.ProjectMember{}
	}
	return members, nil
}

// GetUserProjects returns the projects userID is a member of.
func (b *Board) GetUserProjects(ctx context.Context, userID string) ([]models.Project, error) {
	var v violations
	id := requireUUID(&v, "User UUID", userID)
	if err := v.err(); err != nil {
		return nil, err
	}

	memberships, err := b.store.Members(ctx, models.MemberFilter{UserID: id})
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	if len(memberships) == 0 {
		return []models.Project{}, nil
	}

	ids := make([]string, 0, len(memberships))
	for _, m := range memberships {
		ids = append(ids, m.ProjectID)
	}

	projects, err := b.store.ProjectsByID(ctx, distinctIDs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch projects: %w", err)
	}
	if projects == nil {
		projects = []models.Project{}
	}
	return projects, nil
}
