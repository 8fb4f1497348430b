package storage

import (
	"context"
	"errors"

	"taskboard/internal/models"
)

var (
	// ErrNotFound is returned when a targeted row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUserExists is returned by SignUp for an already registered email.
	ErrUserExists = errors.New("User already exists")
	// ErrInvalidCredentials is returned when a password grant is rejected.
	ErrInvalidCredentials = errors.New("Invalid login credentials")
	// ErrUnfilteredDelete guards against deleting every row of a table.
	ErrUnfilteredDelete = errors.New("refusing to delete without a filter")
)

// Store is the row level persistence surface used by the domain operations.
// Implementations talk either to the hosted backend or to a local database.
type Store interface {
	// SignUp registers credentials and returns the new identity id.
	SignUp(ctx context.Context, email, password string) (string, error)
	// SignIn performs a password grant.
	SignIn(ctx context.Context, email, password string) (models.Tokens, error)
	// Identity resolves an access token to the user it was issued for.
	Identity(ctx context.Context, accessToken string) (models.Identity, error)

	UsersByEmail(ctx context.Context, email string) ([]models.User, error)
	UsersByID(ctx context.Context, ids ...string) ([]models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	InsertUser(ctx context.Context, user models.User) (models.User, error)

	ListCategories(ctx context.Context) ([]models.Category, error)
	CategoriesByID(ctx context.Context, ids ...string) ([]models.Category, error)
	InsertCategory(ctx context.Context, category models.Category) (models.Category, error)

	ListProjects(ctx context.Context) ([]models.Project, error)
	ProjectsByID(ctx context.Context, ids ...string) ([]models.Project, error)
	InsertProject(ctx context.Context, fields models.ProjectFields) (models.Project, error)
	// UpdateProject returns ErrNotFound when no row matched.
	UpdateProject(ctx context.Context, id string, fields models.ProjectFields) (models.Project, error)
	// DeleteProject returns the deleted rows, possibly none.
	DeleteProject(ctx context.Context, id string) ([]models.Project, error)

	Members(ctx context.Context, filter models.MemberFilter) ([]models.ProjectMember, error)
	InsertMember(ctx context.Context, member models.ProjectMember) (models.ProjectMember, error)
	// DeleteMembers returns ErrUnfilteredDelete for an empty filter.
	DeleteMembers(ctx context.Context, filter models.MemberFilter) error

	TasksByProject(ctx context.Context, projectID string) ([]models.Task, error)
	InsertTask(ctx context.Context, fields models.TaskFields) (models.Task, error)
	// UpdateTask applies a partial update and returns ErrNotFound when no row matched.
	UpdateTask(ctx context.Context, id string, patch map[string]any) (models.Task, error)
	// DeleteTask returns ErrNotFound when no row matched.
	DeleteTask(ctx context.Context, id string) (models.Task, error)
	DeleteProjectTasks(ctx context.Context, projectID string) error
}

// temporary is implemented by errors that may clear up on retry.
type temporary interface {
	Temporary() bool
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	var t temporary
	return errors.As(err, &t) && t.Temporary()
}
