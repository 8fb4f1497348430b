package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"taskboard/internal/cache"
	"taskboard/internal/models"
	"taskboard/internal/util"
)

const (
	timestampLayout = "2006-01-02T15:04:05.000Z"
	dateLayout      = "2006-01-02"
)

// dueDateLayouts are tried in order when parsing a due date.
var dueDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	dateLayout,
}

func parseDueDate(raw string) (time.Time, bool) {
	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// TaskInput is a create or update request. Empty optional fields mean unset.
type TaskInput struct {
	ID          string
	ProjectID   string
	Title       string
	Description string
	Status      string
	AssignedTo  string
	CategoryID  string
	DueDate     string
}

// prepare validates the input and produces the row to write. Every problem
// is reported in a single ValidationError.
func (b *Board) prepare(in TaskInput) (models.TaskFields, error) {
	var v violations

	projectID := requireUUID(&v, "Project ID", in.ProjectID)
	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)
	v.check(title != "", "Task title is required and must be a non-empty string")
	v.check(description != "", "Task description is required and must be a non-empty string")

	fields := models.TaskFields{
		ProjectID:   projectID,
		Title:       title,
		Description: description,
		Status:      in.Status,
	}

	if a := strings.TrimSpace(in.AssignedTo); a != "" {
		id := util.NormalizeUUID(a)
		v.check(util.IsUUID(id), "Assignee ID must be in valid UUID format")
		fields.AssignedTo = &id
	}
	if c := strings.TrimSpace(in.CategoryID); c != "" {
		id := util.NormalizeUUID(c)
		v.check(util.IsUUID(id), "Category ID must be in valid UUID format")
		fields.CategoryID = &id
	}
	if d := strings.TrimSpace(in.DueDate); d != "" {
		due, ok := parseDueDate(d)
		v.check(ok, "Due date must be a valid date format")
		if ok {
			formatted := due.Format(timestampLayout)
			fields.DueDate = &formatted
		}
	}

	if err := v.err(); err != nil {
		return models.TaskFields{}, err
	}

	if _, ok := models.ValidTaskStatuses[fields.Status]; !ok {
		b.logger.Warn("invalid task status, using default", slog.String("status", fields.Status), slog.String("default", models.StatusTodo))
		fields.Status = models.StatusTodo
	}
	return fields, nil
}

// CreateTask validates and inserts a task.
func (b *Board) CreateTask(ctx context.Context, in TaskInput) (models.Task, error) {
	fields, err := b.prepare(in)
	if err != nil {
		return models.Task{}, err
	}
	fields.CreatedAt = b.timestamp()

	task, err := b.store.InsertTask(ctx, fields)
	if err != nil {
		return models.Task{}, fmt.Errorf("failed to create task: %w", err)
	}
	b.logger.Info("task created", slog.String("id", task.ID), slog.String("project_id", task.ProjectID))
	return task, nil
}

// UpdateTask replaces the editable fields of a task. Optional fields missing
// from the input are cleared.
func (b *Board) UpdateTask(ctx context.Context, in TaskInput) (models.Task, error) {
	var v violations
	id := requireUUID(&v, "Task ID", in.ID)
	fields, err := b.prepare(in)
	var ve *ValidationError
	if errors.As(err, &ve) {
		v = append(v, ve.Violations...)
	}
	if err := v.err(); err != nil {
		return models.Task{}, err
	}

	patch := map[string]any{
		"project_id":  fields.ProjectID,
		"title":       fields.Title,
		"description": fields.Description,
		"status":      fields.Status,
		"assigned_to": optional(fields.AssignedTo),
		"category_id": optional(fields.CategoryID),
		"due_date":    optional(fields.DueDate),
	}

	task, err := b.store.UpdateTask(ctx, id, patch)
	if err != nil {
		return models.Task{}, fmt.Errorf("failed to update task: %w", err)
	}
	return task, nil
}

func optional(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

// DeleteTask removes a task and returns the deleted row.
func (b *Board) DeleteTask(ctx context.Context, taskID string) (models.Task, error) {
	var v violations
	id := requireUUID(&v, "Task ID", taskID)
	if err := v.err(); err != nil {
		return models.Task{}, err
	}

	task, err := b.store.DeleteTask(ctx, id)
	if err != nil {
		return models.Task{}, fmt.Errorf("failed to delete task: %w", err)
	}
	b.logger.Info("task deleted", slog.String("id", id))
	return task, nil
}

// UpdateDraggedTask moves a task to another column, touching only its status.
func (b *Board) UpdateDraggedTask(ctx context.Context, taskID, status string) (models.Task, error) {
	var v violations
	id := requireUUID(&v, "Task ID", taskID)
	_, valid := models.ValidTaskStatuses[status]
	v.check(valid, fmt.Sprintf("Status must be one of todo, doing, done; got %q", status))
	if err := v.err(); err != nil {
		return models.Task{}, err
	}

	task, err := b.store.UpdateTask(ctx, id, map[string]any{"status": status})
	if err != nil {
		return models.Task{}, fmt.Errorf("failed to move task: %w", err)
	}
	return task, nil
}

// GetProjectTasks lists a project's tasks with assignee and category names
// resolved. Names are fetched with one batched query per kind; a failed
// lookup leaves the display fields null instead of failing the listing.
func (b *Board) GetProjectTasks(ctx context.Context, projectID string) ([]models.TaskView, error) {
	var v violations
	id := requireUUID(&v, "Project ID", projectID)
	if err := v.err(); err != nil {
		return nil, err
	}

	tasks, err := b.store.TasksByProject(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	if len(tasks) == 0 {
		return []models.TaskView{}, nil
	}

	var assigneeIDs, categoryIDs []string
	for _, t := range tasks {
		if t.AssignedTo != nil && *t.AssignedTo != "" {
			assigneeIDs = append(assigneeIDs, *t.AssignedTo)
		}
		if t.CategoryID != nil && *t.CategoryID != "" {
			categoryIDs = append(categoryIDs, *t.CategoryID)
		}
	}
	assigneeIDs = distinctIDs(assigneeIDs)
	categoryIDs = distinctIDs(categoryIDs)

	var emails, categories map[string]string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		emails = b.resolve(gctx, cache.KindUserEmail, assigneeIDs, b.fetchEmails)
		return nil
	})
	g.Go(func() error {
		categories = b.resolve(gctx, cache.KindCategoryName, categoryIDs, b.fetchCategoryNames)
		return nil
	})
	_ = g.Wait()

	views := make([]models.TaskView, 0, len(tasks))
	for _, t := range tasks {
		view := models.TaskView{
			ID:          t.ID,
			Title:       t.Title,
			Description: t.Description,
			Status:      t.Status,
			AssignedTo:  t.AssignedTo,
			CategoryID:  t.CategoryID,
		}
		if t.AssignedTo != nil {
			if email, ok := emails[util.NormalizeUUID(*t.AssignedTo)]; ok {
				local := util.EmailLocalPart(email)
				view.Assignee = &local
				view.AssigneeEmail = &email
			}
		}
		if t.CategoryID != nil {
			if name, ok := categories[util.NormalizeUUID(*t.CategoryID)]; ok {
				view.Category = &name
			}
		}
		if t.DueDate != nil && *t.DueDate != "" {
			view.DueDate = formatDueDate(*t.DueDate)
		}
		views = append(views, view)
	}
	return views, nil
}

func formatDueDate(raw string) *string {
	if t, ok := parseDueDate(raw); ok {
		s := t.Format(dateLayout)
		return &s
	}
	if len(raw) >= len(dateLayout) {
		s := raw[:len(dateLayout)]
		return &s
	}
	return nil
}

type fetchFunc func(ctx context.Context, ids []string) (map[string]string, error)

// resolve serves ids from the lookup cache and fetches the rest in one batch.
func (b *Board) resolve(ctx context.Context, kind string, ids []string, fetch fetchFunc) map[string]string {
	found := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return found
	}

	missing := ids
	if b.lookup != nil {
		cached, err := b.lookup.GetMany(ctx, kind, ids)
		if err != nil {
			b.logger.Warn("lookup cache read failed", slog.String("kind", kind), slog.String("error", err.Error()))
		}
		missing = make([]string, 0, len(ids))
		for _, id := range ids {
			if v, ok := cached[id]; ok {
				found[id] = v
			} else {
				missing = append(missing, id)
			}
		}
	}
	if len(missing) == 0 {
		return found
	}

	fetched, err := fetch(ctx, missing)
	if err != nil {
		b.logger.Warn("task enrichment lookup failed", slog.String("kind", kind), slog.Int("ids", len(missing)), slog.String("error", err.Error()))
		return found
	}
	for id, v := range fetched {
		found[id] = v
	}

	if b.lookup != nil && len(fetched) > 0 {
		if err := b.lookup.SetMany(ctx, kind, fetched); err != nil {
			b.logger.Warn("lookup cache write failed", slog.String("kind", kind), slog.String("error", err.Error()))
		}
	}
	return found
}

func (b *Board) fetchEmails(ctx context.Context, ids []string) (map[string]string, error) {
	users, err := b.store.UsersByID(ctx, ids...)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(users))
	for _, u := range users {
		out[util.NormalizeUUID(u.ID)] = u.Email
	}
	return out, nil
}

func (b *Board) fetchCategoryNames(ctx context.Context, ids []string) (map[string]string, error) {
	categories, err := b.store.CategoriesByID(ctx, ids...)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(categories))
	for _, c := range categories {
		out[util.NormalizeUUID(c.ID)] = c.Name
	}
	return out, nil
}
