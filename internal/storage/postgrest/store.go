package postgrest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"taskboard/internal/models"
	"taskboard/internal/storage"
	"taskboard/internal/supabase"
)

const (
	tableUsers      = "users"
	tableProject    = "project"
	tableMembers    = "project_members"
	tableCategory   = "category"
	tableTask       = "task"
	projectColumns  = "id,name,created_by,created_at,creatorId"
	taskListColumns = "id,project_id,title,description,status,assigned_to,due_date,category_id,created_at"
)

// Store implements storage.Store on top of the hosted auth and rest services.
type Store struct {
	client *supabase.Client
	logger *slog.Logger
}

var _ storage.Store = (*Store)(nil)

// New wraps a backend client.
func New(client *supabase.Client, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{client: client, logger: logger}
}

func returnRepresentation() http.Header {
	return http.Header{"Prefer": {"return=representation"}}
}

// SignUp registers credentials with the auth service and returns the identity id.
func (s *Store) SignUp(ctx context.Context, email, password string) (string, error) {
	var resp struct {
		ID   string `json:"id"`
		User *struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	err := s.client.DoInto(ctx, "/auth/v1/signup", supabase.RequestOptions{
		Method: http.MethodPost,
		Body:   map[string]string{"email": email, "password": password},
	}, &resp)
	if errors.Is(err, supabase.ErrUserAlreadyExists) {
		return "", storage.ErrUserExists
	}
	if err != nil {
		return "", err
	}
	if resp.User != nil && resp.User.ID != "" {
		return resp.User.ID, nil
	}
	return resp.ID, nil
}

// SignIn performs a password grant.
func (s *Store) SignIn(ctx context.Context, email, password string) (models.Tokens, error) {
	var tokens models.Tokens
	err := s.client.DoInto(ctx, "/auth/v1/token?grant_type=password", supabase.RequestOptions{
		Method: http.MethodPost,
		Body:   map[string]string{"email": email, "password": password},
	}, &tokens)
	if err != nil {
		return models.Tokens{}, err
	}
	if tokens.AccessToken == "" {
		return models.Tokens{}, storage.ErrInvalidCredentials
	}
	return tokens, nil
}

// Identity resolves an access token through the auth service.
func (s *Store) Identity(ctx context.Context, accessToken string) (models.Identity, error) {
	var identity models.Identity
	err := s.client.DoInto(ctx, "/auth/v1/user", supabase.RequestOptions{
		AccessToken: accessToken,
	}, &identity)
	return identity, err
}

func (s *Store) UsersByEmail(ctx context.Context, email string) ([]models.User, error) {
	return list[models.User](ctx, s, supabase.From(tableUsers).Eq("email", email).Path())
}

func (s *Store) UsersByID(ctx context.Context, ids ...string) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := supabase.From(tableUsers).Select("id", "email")
	if len(ids) == 1 {
		q.Eq("id", ids[0])
	} else {
		q.In("id", ids...)
	}
	return list[models.User](ctx, s, q.Path())
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	return list[models.User](ctx, s, supabase.From(tableUsers).Select("*").Path())
}

func (s *Store) InsertUser(ctx context.Context, user models.User) (models.User, error) {
	return insert[models.User](ctx, s, tableUsers, user)
}

func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	return list[models.Category](ctx, s, supabase.From(tableCategory).Select("*").Path())
}

func (s *Store) CategoriesByID(ctx context.Context, ids ...string) ([]models.Category, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return list[models.Category](ctx, s, supabase.From(tableCategory).In("id", ids...).Select("id", "name", "color").Path())
}

func (s *Store) InsertCategory(ctx context.Context, category models.Category) (models.Category, error) {
	body := map[string]string{"name": category.Name, "color": category.Color}
	return insert[models.Category](ctx, s, tableCategory, body)
}

func (s *Store) ListProjects(ctx context.Context) ([]models.Project, error) {
	return list[models.Project](ctx, s, supabase.From(tableProject).Select(projectColumns).Path())
}

func (s *Store) ProjectsByID(ctx context.Context, ids ...string) ([]models.Project, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return list[models.Project](ctx, s, supabase.From(tableProject).In("id", ids...).Select(projectColumns).Path())
}

func (s *Store) InsertProject(ctx context.Context, fields models.ProjectFields) (models.Project, error) {
	return insert[models.Project](ctx, s, tableProject, fields)
}

func (s *Store) UpdateProject(ctx context.Context, id string, fields models.ProjectFields) (models.Project, error) {
	rows, err := mutate[models.Project](ctx, s, http.MethodPatch, supabase.From(tableProject).Eq("id", id).Path(), fields)
	if err != nil {
		return models.Project{}, err
	}
	if len(rows) == 0 {
		return models.Project{}, storage.ErrNotFound
	}
	return rows[0], nil
}

func (s *Store) DeleteProject(ctx context.Context, id string) ([]models.Project, error) {
	return mutate[models.Project](ctx, s, http.MethodDelete, supabase.From(tableProject).Eq("id", id).Path(), nil)
}

func (s *Store) Members(ctx context.Context, filter models.MemberFilter) ([]models.ProjectMember, error) {
	return list[models.ProjectMember](ctx, s, memberQuery(filter).Path())
}

func (s *Store) InsertMember(ctx context.Context, member models.ProjectMember) (models.ProjectMember, error) {
	member.ID = ""
	return insert[models.ProjectMember](ctx, s, tableMembers, member)
}

func (s *Store) DeleteMembers(ctx context.Context, filter models.MemberFilter) error {
	if filter.Empty() {
		return storage.ErrUnfilteredDelete
	}
	s.logger.Debug("deleting memberships", slog.String("project_id", filter.ProjectID), slog.String("user_id", filter.UserID))
	_, err := s.client.Do(ctx, memberQuery(filter).Path(), supabase.RequestOptions{
		Method:      http.MethodDelete,
		ServiceRole: true,
	})
	return err
}

func memberQuery(filter models.MemberFilter) *supabase.Query {
	q := supabase.From(tableMembers)
	if filter.ProjectID != "" {
		q.Eq("projectId", filter.ProjectID)
	}
	if filter.UserID != "" {
		q.Eq("userId", filter.UserID)
	}
	return q
}

func (s *Store) TasksByProject(ctx context.Context, projectID string) ([]models.Task, error) {
	return list[models.Task](ctx, s, supabase.From(tableTask).Eq("project_id", projectID).Select(taskListColumns).Path())
}

func (s *Store) InsertTask(ctx context.Context, fields models.TaskFields) (models.Task, error) {
	return insert[models.Task](ctx, s, tableTask, fields)
}

func (s *Store) UpdateTask(ctx context.Context, id string, patch map[string]any) (models.Task, error) {
	rows, err := mutate[models.Task](ctx, s, http.MethodPatch, supabase.From(tableTask).Eq("id", id).Path(), patch)
	if err != nil {
		return models.Task{}, err
	}
	if len(rows) == 0 {
		return models.Task{}, storage.ErrNotFound
	}
	return rows[0], nil
}

func (s *Store) DeleteTask(ctx context.Context, id string) (models.Task, error) {
	rows, err := mutate[models.Task](ctx, s, http.MethodDelete, supabase.From(tableTask).Eq("id", id).Path(), nil)
	if err != nil {
		return models.Task{}, err
	}
	if len(rows) == 0 {
		return models.Task{}, storage.ErrNotFound
	}
	return rows[0], nil
}

func (s *Store) DeleteProjectTasks(ctx context.Context, projectID string) error {
	_, err := s.client.Do(ctx, supabase.From(tableTask).Eq("project_id", projectID).Path(), supabase.RequestOptions{
		Method:      http.MethodDelete,
		ServiceRole: true,
	})
	return err
}

func list[T any](ctx context.Context, s *Store, path string) ([]T, error) {
	var rows []T
	if err := s.client.DoInto(ctx, path, supabase.RequestOptions{ServiceRole: true}, &rows); err != nil {
		return nil, mapNotFound(err)
	}
	return rows, nil
}

func insert[T any](ctx context.Context, s *Store, table string, body any) (T, error) {
	var zero T
	rows, err := mutate[T](ctx, s, http.MethodPost, supabase.From(table).Path(), body)
	if err != nil {
		return zero, err
	}
	if len(rows) == 0 {
		return zero, fmt.Errorf("insert into %s returned no rows", table)
	}
	return rows[0], nil
}

func mutate[T any](ctx context.Context, s *Store, method, path string, body any) ([]T, error) {
	var rows []T
	err := s.client.DoInto(ctx, path, supabase.RequestOptions{
		Method:      method,
		Header:      returnRepresentation(),
		Body:        body,
		ServiceRole: true,
	}, &rows)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return rows, nil
}

func mapNotFound(err error) error {
	if supabase.IsStatus(err, http.StatusNotFound) {
		return fmt.Errorf("%w: %w", storage.ErrNotFound, err)
	}
	return err
}
