package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskboard/internal/service"
)

type projectRequest struct {
	Name string `json:"name"`
	// A missing selectedUsers leaves memberships alone on update; [] clears them.
	SelectedUsers []string `json:"selectedUsers" binding:"omitempty,dive,uuid_loose"`
	CreatedBy     string   `json:"created_by"`
	CreatorID     string   `json:"creatorId" binding:"omitempty,uuid_loose"`
	CreatedAt     string   `json:"created_at"`
}

type updateProjectRequest struct {
	ID string `json:"id" binding:"required,uuid_loose"`
	projectRequest
}

func (r projectRequest) input(id string) service.ProjectInput {
	return service.ProjectInput{
		ID:            id,
		Name:          r.Name,
		SelectedUsers: r.SelectedUsers,
		CreatedBy:     r.CreatedBy,
		CreatorID:     r.CreatorID,
		CreatedAt:     r.CreatedAt,
	}
}

type memberRequest struct {
	UserID string `json:"userId" binding:"required,uuid_loose"`
}

type categoryRequest struct {
	Name  string `json:"name" binding:"required"`
	Color string `json:"color"`
}

// handleUserProjects lists the projects a user belongs to.
func (s *Server) handleUserProjects(c *gin.Context) {
	projects, err := s.board.GetUserProjects(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondSuccess(c, http.StatusOK, projects)
}

func (s *Server) handleProjectUsers(c *gin.Context) {
	members, err := s.board.GetProjectUsers(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondSuccess(c, http.StatusOK, members)
}

// handleCreateProject creates a project and its initial memberships.
func (s *Server) handleCreateProject(c *gin.Context) {
	var req projectRequest
	if !s.bindJSON(c, &req) {
		return
	}

	project, err := s.board.CreateProject(c.Request.Context(), req.input(""))
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondSuccess(c, http.StatusCreated, project)
}

// handleUpdateProject patches a project and reconciles its members.
func (s *Server) handleUpdateProject(c *gin.Context) {
	var req updateProjectRequest
	if !s.bindJSON(c, &req) {
		return
	}

	project, err := s.board.UpdateProject(c.Request.Context(), req.input(req.ID))
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondSuccess(c, http.StatusOK, project)
}

// handleDeleteProject removes a project with its memberships and tasks.
func (s *Server) handleDeleteProject(c *gin.Context) {
	result, err := s.board.DeleteProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondSuccess(c, http.StatusOK, result)
}

func (s *Server) handleAddMember(c *gin.Context) {
	var req memberRequest
	if !s.bindJSON(c, &req) {
		return
	}

	member, err := s.board.CreateProjectMember(c.Request.Context(), c.Param("id"), req.UserID)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondSuccess(c, http.StatusCreated, member)
}

func (s *Server) handleListCategories(c *gin.Context) {
	categories, err := s.board.GetCategories(c.Request.Context())
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondSuccess(c, http.StatusOK, categories)
}

func (s *Server) handleCreateCategory(c *gin.Context) {
	var req categoryRequest
	if !s.bindJSON(c, &req) {
		return
	}

	category, err := s.board.CreateCategory(c.Request.Context(), req.Name, req.Color)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondSuccess(c, http.StatusCreated, category)
}
