// Package api wires the HTTP routes of the report service.
package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"evm-report/internal/api/handlers"
	"evm-report/internal/api/middleware"
	"evm-report/internal/api/models"
	"evm-report/internal/config"
)

// Upstream is what the handlers need from the report service.
type Upstream interface {
	handlers.ReportSource
	handlers.ProjectSource
}

// NewRouter builds the gin engine: middleware, API routes and, when
// server.staticDir exists, the single page front-end.
func NewRouter(cfg *config.Config, upstream Upstream, log *zap.Logger) *gin.Engine {
	if log == nil {
		log = zap.NewNop()
	}

	router := gin.New()
	router.Use(middleware.Logger(log))
	router.Use(middleware.ErrorHandler(log))
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))

	reportHandler := handlers.NewReportHandler(upstream, cfg, log)
	projectHandler := handlers.NewProjectHandler(upstream, cfg.ProjectsFile, log)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		v1.GET("/projects", projectHandler.ListProjects)

		v1.GET("/report", reportHandler.GetReport)
		v1.GET("/report/table", reportHandler.GetTable)
		v1.GET("/report/chart", reportHandler.GetChart)
		v1.GET("/report/export", reportHandler.Export)
	}

	serveStatic(router, cfg.Server.StaticDir, log)
	return router
}

// serveStatic serves a built front-end with index.html as the fallback for
// client side routes. Unknown /api paths stay JSON 404s.
func serveStatic(router *gin.Engine, dir string, log *zap.Logger) {
	notFound := models.ErrorResponse{Error: models.ErrorDetail{Code: "NOT_FOUND", Message: "Not found"}}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		log.Info("static directory not found, skipping static file serving", zap.String("dir", dir))
		router.NoRoute(func(c *gin.Context) {
			c.JSON(http.StatusNotFound, notFound)
		})
		return
	}

	router.Static("/assets", filepath.Join(dir, "assets"))
	router.StaticFile("/favicon.ico", filepath.Join(dir, "favicon.ico"))
	index := filepath.Join(dir, "index.html")
	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.JSON(http.StatusNotFound, notFound)
			return
		}
		c.File(index)
	})
	log.Info("serving static files", zap.String("dir", dir))
}
