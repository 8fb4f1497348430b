package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

type credentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// handleLogin exchanges credentials for the profile and session tokens.
// Every failure past body decoding is reported as 401.
func (s *Server) handleLogin(c *gin.Context) {
	var req credentialsRequest
	if !s.bindJSON(c, &req) {
		return
	}

	session, err := s.board.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.logger.Warn("login failed", slog.String("error", err.Error()))
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	respondSuccess(c, http.StatusOK, session)
}

// handleRegister creates credentials and a profile, or returns the existing profile.
func (s *Server) handleRegister(c *gin.Context) {
	var req credentialsRequest
	if !s.bindJSON(c, &req) {
		return
	}

	user, err := s.board.CreateOrFetchUser(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	respondSuccess(c, http.StatusOK, user)
}

func (s *Server) handleAllUsers(c *gin.Context) {
	users, err := s.board.GetAllUsers(c.Request.Context())
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondSuccess(c, http.StatusOK, users)
}
