package models

// User is a profile row in the users table. Its id matches the auth identity.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at,omitempty"`
}

// Session is returned by a successful login: the profile plus the issued tokens.
type Session struct {
	User
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Identity is what the auth service reports for an access token.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Tokens holds the result of a password grant.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Project groups tasks and members. CreatedBy carries the creator's email.
type Project struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedBy string `json:"created_by"`
	CreatorID string `json:"creatorId"`
	CreatedAt string `json:"created_at"`
}

// ProjectFields is the writable part of a project row.
type ProjectFields struct {
	Name      string `json:"name"`
	CreatedBy string `json:"created_by"`
	CreatorID string `json:"creatorId"`
	CreatedAt string `json:"created_at"`
}

// ProjectMember links a user to a project. The table stores both the text
// columns and the uuid columns; both pairs are written with the same values.
type ProjectMember struct {
	ID            string `json:"id,omitempty"`
	ProjectIDText string `json:"project_id"`
	UserIDText    string `json:"user_id"`
	ProjectID     string `json:"projectId"`
	UserID        string `json:"userId"`
}

// NewProjectMember fills both column pairs for a membership row.
func NewProjectMember(projectID, userID string) ProjectMember {
	return ProjectMember{
		ProjectIDText: projectID,
		UserIDText:    userID,
		ProjectID:     projectID,
		UserID:        userID,
	}
}

// MemberFilter selects membership rows. Empty fields do not constrain.
type MemberFilter struct {
	ProjectID string
	UserID    string
}

// Empty reports whether the filter would match every row.
func (f MemberFilter) Empty() bool {
	return f.ProjectID == "" && f.UserID == ""
}

// Category labels tasks with a name and a palette color.
type Category struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	CreatedAt string `json:"created_at,omitempty"`
}

// Task represents a single card on the board.
type Task struct {
	ID          string  `json:"id"`
	ProjectID   string  `json:"project_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	AssignedTo  *string `json:"assigned_to"`
	CategoryID  *string `json:"category_id"`
	DueDate     *string `json:"due_date"`
	CreatedAt   string  `json:"created_at,omitempty"`
}

// TaskFields is the writable part of a task row. Nil optional fields are
// written as null.
type TaskFields struct {
	ProjectID   string  `json:"project_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	AssignedTo  *string `json:"assigned_to"`
	CategoryID  *string `json:"category_id"`
	DueDate     *string `json:"due_date"`
	CreatedAt   string  `json:"created_at,omitempty"`
}

// TaskView is the denormalized task shape the board renders. Display fields
// are null when the referenced row is missing or could not be fetched.
type TaskView struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	Status        string  `json:"status"`
	AssignedTo    *string `json:"assigned_to"`
	Assignee      *string `json:"assignee"`
	AssigneeEmail *string `json:"assigneeEmail"`
	DueDate       *string `json:"due_date"`
	Category      *string `json:"category"`
	CategoryID    *string `json:"category_id"`
}

// DeletedProject is returned when the backend does not echo the deleted row.
type DeletedProject struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

// Task statuses, one per board column.
const (
	StatusTodo  = "todo"
	StatusDoing = "doing"
	StatusDone  = "done"
)

// ValidTaskStatuses enumerates the statuses supported by the board columns.
var ValidTaskStatuses = map[string]struct{}{
	StatusTodo:  {},
	StatusDoing: {},
	StatusDone:  {},
}

// DefaultCategoryColor is used when a category color is missing or unknown.
const DefaultCategoryColor = "gray"

// CategoryColors is the fixed palette categories may use.
var CategoryColors = map[string]struct{}{
	"gray":   {},
	"red":    {},
	"orange": {},
	"yellow": {},
	"green":  {},
	"teal":   {},
	"blue":   {},
	"cyan":   {},
	"purple": {},
	"pink":   {},
}
