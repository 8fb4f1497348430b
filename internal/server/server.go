package server

import (
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"golang.org/x/time/rate"

	"taskboard/internal/auth"
	"taskboard/internal/service"
	"taskboard/internal/supabase"
	"taskboard/internal/util"
)

// Options configure the HTTP surface.
type Options struct {
	StaticDir    string
	AllowOrigins []string
	// Verifier checks bearer tokens when RequireToken is set.
	Verifier     *auth.Tokens
	RequireToken bool
	// AuthRPS and AuthBurst size the per-IP limiter on /auth. Zero disables it.
	AuthRPS   float64
	AuthBurst int
}

// Server provides HTTP handlers for the task board backend.
type Server struct {
	engine  *gin.Engine
	board   *service.Board
	logger  *slog.Logger
	opts    Options
	limiter *RateLimiter
}

var registerValidators sync.Once

// New constructs the HTTP server with routes and middleware configured.
func New(board *service.Board, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	registerValidators.Do(setupBinding)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(logger))
	router.Use(cors.New(corsConfig(opts.AllowOrigins)))

	srv := &Server{
		engine: router,
		board:  board,
		logger: logger,
		opts:   opts,
	}
	if opts.AuthRPS > 0 && opts.AuthBurst > 0 {
		srv.limiter = NewRateLimiter(rate.Limit(opts.AuthRPS), opts.AuthBurst)
	}

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Close stops background work started by New.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}

func (s *Server) registerRoutes() {
	s.engine.GET("/health", s.handleHealth)

	authRoutes := s.engine.Group("/auth")
	if s.limiter != nil {
		authRoutes.Use(s.limiter.LimitMiddleware())
	}
	{
		authRoutes.POST("/login", s.handleLogin)
		authRoutes.POST("/register", s.handleRegister)
		authRoutes.GET("/all-users", s.handleAllUsers)
	}

	boardRoutes := s.engine.Group("/projects-and-tasks")
	if s.opts.RequireToken {
		boardRoutes.Use(RequireBearer(s.opts.Verifier, s.logger))
	}
	{
		boardRoutes.GET("/user/:id/projects", s.handleUserProjects)
		boardRoutes.GET("/categories", s.handleListCategories)
		boardRoutes.POST("/categories", s.handleCreateCategory)

		project := boardRoutes.Group("/project")
		project.GET("/:id/users", s.handleProjectUsers)
		project.GET("/:id/tasks", s.handleListTasks)
		project.POST("/create-project", s.handleCreateProject)
		project.POST("/update-project", s.handleUpdateProject)
		project.POST("/update-dragged-task", s.handleUpdateDraggedTask)
		project.POST("/:id/delete", s.handleDeleteProject)
		project.POST("/:id/members", s.handleAddMember)
		project.POST("/:id/create-task", s.handleCreateTask)
		project.POST("/:id/update-task", s.handleUpdateTask)
		project.POST("/:id/delete-task", s.handleDeleteTask)
	}

	s.mountStatic()
}

// corsConfig allows the browser client's origins. "*" or an empty list
// allows any origin without credentials.
func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length", "Content-Type"},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

// handleHealth provides a basic readiness endpoint.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// setupBinding rejects unknown JSON fields, reports json field names in
// validation errors and registers the uuid_loose rule, which accepts both
// hyphenated and bare 32-hex UUIDs.
func setupBinding() {
	binding.EnableDecoderDisallowUnknownFields = true

	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("uuid_loose", func(fl validator.FieldLevel) bool {
		return util.IsUUID(util.NormalizeUUID(strings.TrimSpace(fl.Field().String())))
	})
}

// bindJSON decodes the body into req and answers 400 with every violation
// when it does not fit.
func (s *Server) bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		s.respondBindError(c, err)
		return false
	}
	return true
}

func (s *Server) respondBindError(c *gin.Context, err error) {
	var details []string
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			details = append(details, describeField(fe))
		}
	} else {
		details = []string{err.Error()}
	}
	s.logger.Warn("invalid request body", slog.String("path", c.FullPath()), slog.Any("details", details))
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": details})
}

func describeField(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "uuid_loose":
		return fe.Field() + " must be in valid UUID format"
	case "email":
		return fe.Field() + " must be a valid email"
	default:
		return fe.Field() + " failed " + fe.Tag() + " validation"
	}
}

// statusFor maps domain errors onto HTTP statuses. Anything unrecognized
// gets the route's fallback status.
func statusFor(err error, fallback int) int {
	switch {
	case service.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound), supabase.IsStatus(err, http.StatusNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrAlreadyMember):
		return http.StatusConflict
	default:
		return fallback
	}
}

// respondError logs the error and returns a JSON payload.
func (s *Server) respondError(c *gin.Context, fallback int, err error) {
	status := statusFor(err, fallback)
	s.logger.Error("request failed",
		slog.String("path", c.FullPath()),
		slog.Int("status", status),
		slog.String("error", err.Error()),
	)

	var ve *service.ValidationError
	if errors.As(err, &ve) {
		c.JSON(status, gin.H{"error": ve.Error(), "details": ve.Violations})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// respondSuccess writes payload as JSON, or only the status when it is nil.
func respondSuccess(c *gin.Context, status int, payload any) {
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}
