package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/gppalanpur/portal-api/internal/models"
	"github.com/gppalanpur/portal-api/internal/service"
	appErrors "github.com/gppalanpur/portal-api/pkg/errors"
	"github.com/gppalanpur/portal-api/pkg/response"
)

// ProjectHandler exposes project-fair endpoints.
type ProjectHandler struct {
	projects *service.ProjectService
}

// NewProjectHandler constructs ProjectHandler.
func NewProjectHandler(projects *service.ProjectService) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

// List godoc
// @Summary List projects
// @Tags Projects
// @Produce json
// @Param search query string false "Search by title"
// @Param event_id query string false "Filter by event"
// @Param department_id query string false "Filter by department"
// @Param category query string false "Filter by category"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /projects [get]
func (h *ProjectHandler) List(c *gin.Context) {
	var filter models.ProjectFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}

	projects, pagination, err := h.projects.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, projects, pagination)
}

// Get godoc
// @Summary Get project detail
// @Tags Projects
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} response.Envelope
// @Router /projects/{id} [get]
func (h *ProjectHandler) Get(c *gin.Context) {
	project, err := h.projects.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, project, nil)
}

// MyProjects godoc
// @Summary List projects for the caller's teams
// @Tags Projects
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /projects/my [get]
func (h *ProjectHandler) MyProjects(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	projects, err := h.projects.MyProjects(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, projects, nil)
}

// Create godoc
// @Summary Register project
// @Description Registers a project for an event while its registration window is open
// @Tags Projects
// @Accept json
// @Produce json
// @Param payload body service.ProjectRequest true "Project payload"
// @Success 201 {object} response.Envelope
// @Router /projects [post]
func (h *ProjectHandler) Create(c *gin.Context) {
	var req service.ProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	claims := claimsFromContext(c)
	project, err := h.projects.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, project)
}

// Update godoc
// @Summary Update project
// @Tags Projects
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param payload body service.ProjectRequest true "Project payload"
// @Success 200 {object} response.Envelope
// @Router /projects/{id} [patch]
func (h *ProjectHandler) Update(c *gin.Context) {
	var req service.ProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	project, err := h.projects.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, project, nil)
}

// Delete godoc
// @Summary Delete project
// @Tags Projects
// @Produce json
// @Param id path string true "Project ID"
// @Success 204 {object} response.Envelope
// @Router /projects/{id} [delete]
func (h *ProjectHandler) Delete(c *gin.Context) {
	if err := h.projects.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Evaluate godoc
// @Summary Record jury evaluation
// @Description Stores a department or central stage score for a project
// @Tags Projects
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param payload body service.EvaluationRequest true "Evaluation payload"
// @Success 200 {object} response.Envelope
// @Router /projects/{id}/evaluate [post]
func (h *ProjectHandler) Evaluate(c *gin.Context) {
	var req service.EvaluationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	claims := claimsFromContext(c)
	project, err := h.projects.Evaluate(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, project, nil)
}

// Statistics godoc
// @Summary Event project statistics
// @Tags Projects
// @Produce json
// @Param event_id query string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /projects/statistics [get]
func (h *ProjectHandler) Statistics(c *gin.Context) {
	eventID := c.Query("event_id")
	if eventID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "event_id required"))
		return
	}

	stats, err := h.projects.Statistics(c.Request.Context(), eventID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Winners godoc
// @Summary Event winners ranked by central score
// @Description Hidden until the event publishes results, unless the caller is privileged
// @Tags Projects
// @Produce json
// @Param event_id query string true "Event ID"
// @Param stage query string false "Evaluation stage (department or central)"
// @Param limit query int false "Number of winners"
// @Success 200 {object} response.Envelope
// @Router /projects/winners [get]
func (h *ProjectHandler) Winners(c *gin.Context) {
	eventID := c.Query("event_id")
	if eventID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "event_id required"))
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "3"))

	winners, err := h.projects.Winners(c.Request.Context(), eventID, c.Query("stage"), limit, isPrivileged(claimsFromContext(c)))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, winners, nil)
}
