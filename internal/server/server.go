// Package server exposes the HTTP API: account management, link CRUD, the
// public redirect endpoint and analytics reports.
package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"tinylinker/internal/auth"
	"tinylinker/internal/config"
	"tinylinker/internal/preview"
	"tinylinker/internal/storage"
	"tinylinker/internal/tracker"
)

// Server holds the handler dependencies.
type Server struct {
	cfg      config.Config
	repo     storage.Repository
	auth     *auth.Service
	recorder *tracker.Recorder
	preview  preview.Scraper
	log      logrus.FieldLogger
}

// New creates a Server. previewScraper may be nil to disable title lookups.
func New(cfg config.Config, repo storage.Repository, authSvc *auth.Service, recorder *tracker.Recorder, previewScraper preview.Scraper, logger logrus.FieldLogger) *Server {
	return &Server{
		cfg:      cfg,
		repo:     repo,
		auth:     authSvc,
		recorder: recorder,
		preview:  previewScraper,
		log:      logger.WithField("component", "server"),
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.requestLogger())

	users := r.Group("/api/users")
	{
		users.POST("/register", s.handleRegister)
		users.POST("/login", s.handleLogin)
		users.GET("/profile", s.requireAuth(), s.handleProfile)
		users.GET("/:id/links", s.requireAuth(), s.handleUserLinks)
	}

	links := r.Group("/api/links", s.requireAuth())
	{
		links.POST("", s.handleCreateLink)
		links.GET("", s.handleListLinks)
		links.GET("/:id", s.handleGetLink)
		links.PUT("/:id", s.handleUpdateLink)
		links.DELETE("/:id", s.handleDeleteLink)
		links.GET("/:id/stats", s.handleLinkStats)
	}

	reports := r.Group("/api/analytics", s.requireAuth())
	{
		reports.GET("/by-source", s.handleClicksBySource)
		reports.GET("/by-day", s.handleClicksByDay)
		reports.GET("/user-total-clicks/:userId", s.handleUserTotalClicks)
	}

	// Public redirect for shortened links.
	r.GET("/:shortCode", s.handleRedirect)

	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
			"client":   c.ClientIP(),
		}).Info("Request handled")
	}
}
