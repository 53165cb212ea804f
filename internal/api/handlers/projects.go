package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"evm-report/internal/api/models"
	"evm-report/internal/data"
	"evm-report/internal/model"
)

// ProjectSource searches projects by name or code.
type ProjectSource interface {
	SearchProjects(ctx context.Context, term string) ([]model.Project, error)
}

// ProjectHandler handles project lookup requests
type ProjectHandler struct {
	source       ProjectSource
	snapshotPath string
	log          *zap.Logger
}

// NewProjectHandler creates a project handler. snapshotPath is the file
// written by update-projects; it answers searches when the upstream fails.
func NewProjectHandler(source ProjectSource, snapshotPath string, log *zap.Logger) *ProjectHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProjectHandler{source: source, snapshotPath: snapshotPath, log: log}
}

// ListProjects handles GET /api/v1/projects
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	search := c.Query("search")

	projects, err := h.source.SearchProjects(c.Request.Context(), search)
	if err == nil {
		c.JSON(http.StatusOK, projectsResponse(projects, "upstream", ""))
		return
	}
	h.log.Warn("project search failed, using snapshot", zap.String("search", search), zap.Error(err))

	list, snapErr := h.loadSnapshot()
	if snapErr != nil {
		h.log.Error("project snapshot unavailable", zap.String("path", h.snapshotPath), zap.Error(snapErr))
		writeUpstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, projectsResponse(list.Filter(search), "snapshot", list.UpdatedAt))
}

func (h *ProjectHandler) loadSnapshot() (*data.ProjectList, error) {
	if h.snapshotPath == "" {
		return nil, fmt.Errorf("no project snapshot configured")
	}
	list, err := data.LoadProjects(h.snapshotPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("project snapshot %s not found", h.snapshotPath)
		}
		return nil, err
	}
	return list, nil
}

func projectsResponse(projects []model.Project, source, updatedAt string) models.ProjectsResponse {
	out := make([]models.ProjectInfo, len(projects))
	for i, p := range projects {
		out[i] = models.ProjectInfo{ID: p.ID, Name: p.Name, Code: p.Code}
	}
	return models.ProjectsResponse{
		Projects:  out,
		Count:     len(out),
		Source:    source,
		UpdatedAt: updatedAt,
	}
}
