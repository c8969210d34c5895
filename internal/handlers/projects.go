package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/handwerkml/pricing-backend/internal/logger"
	"github.com/handwerkml/pricing-backend/internal/services"
	"github.com/handwerkml/pricing-backend/internal/types"
)

type ProjectHandler struct {
	log            *logger.Logger
	projectService services.ProjectService
}

func NewProjectHandler(log *logger.Logger, psvc services.ProjectService) *ProjectHandler {
	return &ProjectHandler{
		log:            log.With("handler", "ProjectHandler"),
		projectService: psvc,
	}
}

// POST /api/v1/projects
func (h *ProjectHandler) Create(c *gin.Context) {
	var project types.Project
	if err := c.ShouldBindJSON(&project); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	created, err := h.projectService.Create(c.Request.Context(), &project)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// GET /api/v1/projects/:id
func (h *ProjectHandler) Get(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	project, err := h.projectService.Get(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	if project == nil {
		RespondError(c, http.StatusNotFound, "not_found", fmt.Errorf("project %s not found", id))
		return
	}
	RespondOK(c, project)
}

// GET /api/v1/projects?limit=&offset=
func (h *ProjectHandler) List(c *gin.Context) {
	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)
	projects, err := h.projectService.List(c.Request.Context(), limit, offset)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"projects": projects, "count": len(projects)})
}

// GET /api/v1/projects/recent
func (h *ProjectHandler) Recent(c *gin.Context) {
	projects, err := h.projectService.Recent(c.Request.Context())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"projects": projects, "count": len(projects)})
}

// GET /api/v1/projects/by-type/:type
func (h *ProjectHandler) ByType(c *gin.Context) {
	projects, err := h.projectService.ByType(c.Request.Context(), c.Param("type"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"projects": projects, "count": len(projects)})
}

// PATCH /api/v1/projects/:id
func (h *ProjectHandler) Update(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	var updates map[string]interface{}
	if err := c.ShouldBindJSON(&updates); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	project, err := h.projectService.Update(c.Request.Context(), id, updates)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, project)
}

// POST /api/v1/projects/:id/finalize
func (h *ProjectHandler) Finalize(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	project, err := h.projectService.Finalize(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, project)
}

// DELETE /api/v1/projects/:id
func (h *ProjectHandler) Delete(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	if err := h.projectService.Delete(c.Request.Context(), id); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /api/v1/projects/:id/materials
func (h *ProjectHandler) AddMaterial(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	var link types.ProjectMaterial
	if err := c.ShouldBindJSON(&link); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	link.ProjectID = id
	created, err := h.projectService.AddMaterial(c.Request.Context(), &link)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// GET /api/v1/projects/statistics
func (h *ProjectHandler) Statistics(c *gin.Context) {
	stats, err := h.projectService.Statistics(c.Request.Context())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, stats)
}

func (h *ProjectHandler) parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", fmt.Errorf("invalid project id: %w", err))
		return uuid.Nil, false
	}
	return id, true
}

func queryInt(c *gin.Context, key string, defaultVal int) int {
	if raw := c.Query(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			return v
		}
	}
	return defaultVal
}
