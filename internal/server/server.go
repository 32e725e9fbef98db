// Package server exposes the project service over a thin JSON HTTP API.
// It only shapes requests and responses; validation, ownership checks, and
// settlement logic live in the service and domain layers.
package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tallyup/tallyup/internal/service"
)

// Server routes HTTP requests to the project service.
type Server struct {
	svc *service.ProjectService
}

// New creates a Server around the given service.
func New(svc *service.ProjectService) *Server {
	return &Server{svc: svc}
}

// Router builds the gin engine with all routes and middleware attached.
func (s *Server) Router(environment string) *gin.Engine {
	if environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(), CORS())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		projects := v1.Group("/projects")
		{
			projects.POST("", s.createProject)
			projects.GET("", s.listProjects)
			projects.GET("/:id", s.getProject)
			projects.PUT("/:id", s.renameProject)
			projects.DELETE("/:id", s.deleteProject)
			projects.PUT("/:id/lock", s.setLocked)

			projects.POST("/:id/members", s.addMembers)

			projects.POST("/:id/records", s.addRecord)
			projects.PUT("/:id/records/:recordId", s.updateRecord)
			projects.DELETE("/:id/records/:recordId", s.deleteRecord)

			projects.GET("/:id/sharing", s.getSharing)
		}
	}

	return router
}
