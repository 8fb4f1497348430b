package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskboard/internal/service"
)

// taskRequest accepts both the column names and the names the board
// client sends (projectId, assignee, due, category).
type taskRequest struct {
	ID          string `json:"id" binding:"omitempty,uuid_loose"`
	ProjectID   string `json:"project_id" binding:"omitempty,uuid_loose"`
	ProjectRef  string `json:"projectId" binding:"omitempty,uuid_loose"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	AssignedTo  string `json:"assigned_to" binding:"omitempty,uuid_loose"`
	Assignee    string `json:"assignee" binding:"omitempty,uuid_loose"`
	DueDate     string `json:"due_date"`
	Due         string `json:"due"`
	CategoryID  string `json:"category_id" binding:"omitempty,uuid_loose"`
	Category    string `json:"category" binding:"omitempty,uuid_loose"`
}

func (r taskRequest) input(defaultProjectID string) service.TaskInput {
	return service.TaskInput{
		ID:          r.ID,
		ProjectID:   firstNonEmpty(r.ProjectID, r.ProjectRef, defaultProjectID),
		Title:       r.Title,
		Description: r.Description,
		Status:      r.Status,
		AssignedTo:  firstNonEmpty(r.AssignedTo, r.Assignee),
		CategoryID:  firstNonEmpty(r.CategoryID, r.Category),
		DueDate:     firstNonEmpty(r.DueDate, r.Due),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

type draggedTaskRequest struct {
	TaskID string `json:"taskId" binding:"required,uuid_loose"`
	Status string `json:"status" binding:"required"`
}

// handleListTasks returns the denormalized tasks of a project.
func (s *Server) handleListTasks(c *gin.Context) {
	tasks, err := s.board.GetProjectTasks(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondSuccess(c, http.StatusOK, tasks)
}

// handleCreateTask inserts a task. The path id is used when the body names no project.
func (s *Server) handleCreateTask(c *gin.Context) {
	var req taskRequest
	if !s.bindJSON(c, &req) {
		return
	}

	task, err := s.board.CreateTask(c.Request.Context(), req.input(c.Param("id")))
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondSuccess(c, http.StatusCreated, task)
}

// handleUpdateTask replaces the editable fields of the task named in the body.
func (s *Server) handleUpdateTask(c *gin.Context) {
	var req taskRequest
	if !s.bindJSON(c, &req) {
		return
	}

	task, err := s.board.UpdateTask(c.Request.Context(), req.input(c.Param("id")))
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondSuccess(c, http.StatusOK, task)
}

// handleDeleteTask removes a task; the path id is the task id.
func (s *Server) handleDeleteTask(c *gin.Context) {
	task, err := s.board.DeleteTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondSuccess(c, http.StatusOK, task)
}

// handleUpdateDraggedTask moves a task to another column.
func (s *Server) handleUpdateDraggedTask(c *gin.Context) {
	var req draggedTaskRequest
	if !s.bindJSON(c, &req) {
		return
	}

	task, err := s.board.UpdateDraggedTask(c.Request.Context(), req.TaskID, req.Status)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondSuccess(c, http.StatusOK, task)
}
