package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// apiPrefixes never fall back to the single page app.
var apiPrefixes = []string{"/auth/", "/projects-and-tasks/"}

func isAPIPath(path string) bool {
	for _, p := range apiPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// mountStatic serves the compiled board client from the configured directory.
func (s *Server) mountStatic() {
	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
	})

	dir := s.opts.StaticDir
	if dir == "" {
		s.logger.Info("static directory not configured; API only mode")
		return
	}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		s.logger.Warn("static directory missing", "path", dir, "error", err)
		return
	}

	indexPath := filepath.Join(dir, "index.html")
	if _, err := os.Stat(indexPath); err != nil {
		s.logger.Warn("index.html not found", "path", indexPath, "error", err)
	} else {
		s.engine.GET("/", func(c *gin.Context) {
			c.File(indexPath)
		})
		s.engine.NoRoute(func(c *gin.Context) {
			if isAPIPath(c.Request.URL.Path) || c.Request.Method != http.MethodGet {
				c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
				return
			}
			c.File(indexPath)
		})
	}

	for _, sub := range []string{"assets", "static"} {
		assets := filepath.Join(dir, sub)
		if _, err := os.Stat(assets); err == nil {
			s.engine.StaticFS("/"+sub, gin.Dir(assets, false))
		}
	}

	favicon := filepath.Join(dir, "favicon.ico")
	if _, err := os.Stat(favicon); err == nil {
		s.engine.StaticFile("/favicon.ico", favicon)
	}
}
