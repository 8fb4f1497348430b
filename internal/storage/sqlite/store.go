package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"taskboard/internal/auth"
	"taskboard/internal/models"
	"taskboard/internal/storage"
	"taskboard/internal/util"
)

//go:embed migrations/*.sql
var migrations embed.FS

const timestampLayout = "2006-01-02T15:04:05.000Z"

// Store is a local storage.Store backed by SQLite. It stands in for the
// hosted backend during development and in tests.
type Store struct {
	db     *sql.DB
	tokens *auth.Tokens
	logger *slog.Logger
}

var _ storage.Store = (*Store)(nil)

// Open initializes a new SQLite store and runs the required migrations.
func Open(dbPath string, tokens *auth.Tokens, logger *slog.Logger) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("empty database path")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token issuer is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	if err := ensureDir(dbPath); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=ON", dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := migrate(context.Background(), conn); err != nil {
		_ = conn.Close()
		return nil, err
	}

	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	return &Store{db: conn, tokens: tokens, logger: logger}, nil
}

// Close releases the database resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func ensureDir(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func migrate(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("migrations fs: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

func now() string {
	return time.Now().UTC().Format(timestampLayout)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func anyArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}

func nullable(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func fromNull(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

// Users

func (s *Store) UsersByEmail(ctx context.Context, email string) ([]models.User, error) {
	return s.queryUsers(ctx, `SELECT id, email, created_at FROM users WHERE email = ?`, email)
}

func (s *Store) UsersByID(ctx context.Context, ids ...string) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.queryUsers(ctx, `SELECT id, email, created_at FROM users WHERE id IN (`+placeholders(len(ids))+`)`, anyArgs(ids)...)
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.queryUsers(ctx, `SELECT id, email, created_at FROM users ORDER BY created_at ASC`)
}

func (s *Store) queryUsers(ctx context.Context, query string, args ...any) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Email, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Store) InsertUser(ctx context.Context, user models.User) (models.User, error) {
	if user.ID == "" {
		user.ID = util.NewID()
	}
	if user.CreatedAt == "" {
		user.CreatedAt = now()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO users(id, email, created_at) VALUES(?, ?, ?)`, user.ID, user.Email, user.CreatedAt)
	if err != nil {
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

// Categories

func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.queryCategories(ctx, `SELECT id, name, color, created_at FROM category ORDER BY created_at ASC, name ASC`)
}

func (s *Store) CategoriesByID(ctx context.Context, ids ...string) ([]models.Category, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.queryCategories(ctx, `SELECT id, name, color, created_at FROM category WHERE id IN (`+placeholders(len(ids))+`)`, anyArgs(ids)...)
}

func (s *Store) queryCategories(ctx context.Context, query string, args ...any) ([]models.Category, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Color, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *Store) InsertCategory(ctx context.Context, category models.Category) (models.Category, error) {
	category.ID = util.NewID()
	category.CreatedAt = now()
	_, err := s.db.ExecContext(ctx, `INSERT INTO category(id, name, color, created_at) VALUES(?, ?, ?, ?)`,
		category.ID, category.Name, category.Color, category.CreatedAt)
	if err != nil {
		return models.Category{}, fmt.Errorf("insert category: %w", err)
	}
	return category, nil
}

// Projects

const projectSelect = `SELECT id, name, created_by, "creatorId", created_at FROM project`

func (s *Store) ListProjects(ctx context.Context) ([]models.Project, error) {
	return s.queryProjects(ctx, projectSelect+` ORDER BY created_at ASC`)
}

func (s *Store) ProjectsByID(ctx context.Context, ids ...string) ([]models.Project, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.queryProjects(ctx, projectSelect+` WHERE id IN (`+placeholders(len(ids))+`) ORDER BY created_at ASC`, anyArgs(ids)...)
}

func (s *Store) queryProjects(ctx context.Context, query string, args ...any) ([]models.Project, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := []models.Project{}
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedBy, &p.CreatorID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (s *Store) getProject(ctx context.Context, id string) (models.Project, error) {
	projects, err := s.queryProjects(ctx, projectSelect+` WHERE id = ?`, id)
	if err != nil {
		return models.Project{}, err
	}
	if len(projects) == 0 {
		return models.Project{}, storage.ErrNotFound
	}
	return projects[0], nil
}

func (s *Store) InsertProject(ctx context.Context, fields models.ProjectFields) (models.Project, error) {
	id := util.NewID()
	if fields.CreatedAt == "" {
		fields.CreatedAt = now()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO project(id, name, created_by, "creatorId", created_at) VALUES(?, ?, ?, ?, ?)`,
		id, fields.Name, fields.CreatedBy, fields.CreatorID, fields.CreatedAt)
	if err != nil {
		return models.Project{}, fmt.Errorf("insert project: %w", err)
	}
	return s.getProject(ctx, id)
}

func (s *Store) UpdateProject(ctx context.Context, id string, fields models.ProjectFields) (models.Project, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE project SET name = ?, created_by = ?, "creatorId" = ?, created_at = ? WHERE id = ?`,
		fields.Name, fields.CreatedBy, fields.CreatorID, fields.CreatedAt, id)
	if err != nil {
		return models.Project{}, fmt.Errorf("update project: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return models.Project{}, err
	}
	if affected == 0 {
		return models.Project{}, storage.ErrNotFound
	}
	return s.getProject(ctx, id)
}

func (s *Store) DeleteProject(ctx context.Context, id string) ([]models.Project, error) {
	deleted, err := s.queryProjects(ctx, projectSelect+` WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM project WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("delete project: %w", err)
	}
	return deleted, nil
}

// Members

func memberWhere(filter models.MemberFilter) (string, []any) {
	var clauses []string
	var args []any
	if filter.ProjectID != "" {
		clauses = append(clauses, `"projectId" = ?`)
		args = append(args, filter.ProjectID)
	}
	if filter.UserID != "" {
		clauses = append(clauses, `"userId" = ?`)
		args = append(args, filter.UserID)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (s *Store) Members(ctx context.Context, filter models.MemberFilter) ([]models.ProjectMember, error) {
	where, args := memberWhere(filter)
	rows, err := s.db.QueryContext(ctx, `SELECT id, project_id, user_id, "projectId", "userId" FROM project_members`+where, args...)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	members := []models.ProjectMember{}
	for rows.Next() {
		var m models.ProjectMember
		if err := rows.Scan(&m.ID, &m.ProjectIDText, &m.UserIDText, &m.ProjectID, &m.UserID); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (s *Store) InsertMember(ctx context.Context, member models.ProjectMember) (models.ProjectMember, error) {
	member.ID = util.NewID()
	_, err := s.db.ExecContext(ctx, `INSERT INTO project_members(id, project_id, user_id, "projectId", "userId") VALUES(?, ?, ?, ?, ?)`,
		member.ID, member.ProjectIDText, member.UserIDText, member.ProjectID, member.UserID)
	if err != nil {
		return models.ProjectMember{}, fmt.Errorf("insert member: %w", err)
	}
	return member, nil
}

func (s *Store) DeleteMembers(ctx context.Context, filter models.MemberFilter) error {
	where, args := memberWhere(filter)
	if where == "" {
		return storage.ErrUnfilteredDelete
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM project_members`+where, args...); err != nil {
		return fmt.Errorf("delete members: %w", err)
	}
	return nil
}

// Tasks

const taskSelect = `SELECT id, project_id, title, description, status, assigned_to, category_id, due_date, created_at FROM task`

// taskColumns lists the columns a partial update may touch.
var taskColumns = map[string]struct{}{
	"project_id":  {},
	"title":       {},
	"description": {},
	"status":      {},
	"assigned_to": {},
	"category_id": {},
	"due_date":    {},
}

func (s *Store) queryTasks(ctx context.Context, query string, args ...any) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		var (
			t                           models.Task
			assigned, category, dueDate sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Description, &t.Status, &assigned, &category, &dueDate, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		t.AssignedTo = fromNull(assigned)
		t.CategoryID = fromNull(category)
		t.DueDate = fromNull(dueDate)
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *Store) getTask(ctx context.Context, id string) (models.Task, error) {
	tasks, err := s.queryTasks(ctx, taskSelect+` WHERE id = ?`, id)
	if err != nil {
		return models.Task{}, err
	}
	if len(tasks) == 0 {
		return models.Task{}, storage.ErrNotFound
	}
	return tasks[0], nil
}

func (s *Store) TasksByProject(ctx context.Context, projectID string) ([]models.Task, error) {
	return s.queryTasks(ctx, taskSelect+` WHERE project_id = ? ORDER BY created_at ASC, id ASC`, projectID)
}

func (s *Store) InsertTask(ctx context.Context, fields models.TaskFields) (models.Task, error) {
	id := util.NewID()
	if fields.CreatedAt == "" {
		fields.CreatedAt = now()
	}
	if _, ok := models.ValidTaskStatuses[fields.Status]; !ok {
		fields.Status = models.StatusTodo
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO task(id, project_id, title, description, status, assigned_to, category_id, due_date, created_at)
        VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, fields.ProjectID, fields.Title, fields.Description, fields.Status,
		nullable(fields.AssignedTo), nullable(fields.CategoryID), nullable(fields.DueDate), fields.CreatedAt)
	if err != nil {
		return models.Task{}, fmt.Errorf("insert task: %w", err)
	}
	return s.getTask(ctx, id)
}

func (s *Store) UpdateTask(ctx context.Context, id string, patch map[string]any) (models.Task, error) {
	if len(patch) == 0 {
		return s.getTask(ctx, id)
	}

	columns := make([]string, 0, len(patch))
	for col := range patch {
		if _, ok := taskColumns[col]; !ok {
			return models.Task{}, fmt.Errorf("unknown task column %q", col)
		}
		columns = append(columns, col)
	}
	sort.Strings(columns)

	sets := make([]string, len(columns))
	args := make([]any, 0, len(columns)+1)
	for i, col := range columns {
		sets[i] = col + " = ?"
		args = append(args, patch[col])
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx, `UPDATE task SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return models.Task{}, fmt.Errorf("update task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return models.Task{}, err
	}
	if affected == 0 {
		return models.Task{}, storage.ErrNotFound
	}
	return s.getTask(ctx, id)
}

func (s *Store) DeleteTask(ctx context.Context, id string) (models.Task, error) {
	task, err := s.getTask(ctx, id)
	if err != nil {
		return models.Task{}, err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM task WHERE id = ?`, id); err != nil {
		return models.Task{}, fmt.Errorf("delete task: %w", err)
	}
	return task, nil
}

func (s *Store) DeleteProjectTasks(ctx context.Context, projectID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM task WHERE project_id = ?`, projectID); err != nil {
		return fmt.Errorf("delete project tasks: %w", err)
	}
	return nil
}
