package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/gppalanpur/portal-api/internal/service"
	appErrors "github.com/gppalanpur/portal-api/pkg/errors"
	"github.com/gppalanpur/portal-api/pkg/response"
)

// TeamHandler exposes project team endpoints.
type TeamHandler struct {
	teams *service.TeamService
}

// NewTeamHandler constructs TeamHandler.
func NewTeamHandler(teams *service.TeamService) *TeamHandler {
	return &TeamHandler{teams: teams}
}

// List godoc
// @Summary List teams
// @Tags Teams
// @Produce json
// @Param event_id query string false "Filter by event"
// @Param department_id query string false "Filter by department"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /teams [get]
func (h *TeamHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	teams, pagination, err := h.teams.List(c.Request.Context(), c.Query("event_id"), c.Query("department_id"), page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teams, pagination)
}

// Get godoc
// @Summary Get team detail
// @Tags Teams
// @Produce json
// @Param id path string true "Team ID"
// @Success 200 {object} response.Envelope
// @Router /teams/{id} [get]
func (h *TeamHandler) Get(c *gin.Context) {
	team, err := h.teams.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, team, nil)
}

// Create godoc
// @Summary Create team
// @Description Registers a team of up to four members with exactly one leader
// @Tags Teams
// @Accept json
// @Produce json
// @Param payload body service.TeamRequest true "Team payload"
// @Success 201 {object} response.Envelope
// @Router /teams [post]
func (h *TeamHandler) Create(c *gin.Context) {
	var req service.TeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	claims := claimsFromContext(c)
	team, err := h.teams.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, team)
}

// Update godoc
// @Summary Update team
// @Tags Teams
// @Accept json
// @Produce json
// @Param id path string true "Team ID"
// @Param payload body service.TeamRequest true "Team payload"
// @Success 200 {object} response.Envelope
// @Router /teams/{id} [patch]
func (h *TeamHandler) Update(c *gin.Context) {
	var req service.TeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	team, err := h.teams.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, team, nil)
}

// Delete godoc
// @Summary Delete team
// @Description Teams with registered projects cannot be removed
// @Tags Teams
// @Produce json
// @Param id path string true "Team ID"
// @Success 204 {object} response.Envelope
// @Router /teams/{id} [delete]
func (h *TeamHandler) Delete(c *gin.Context) {
	if err := h.teams.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// MyTeams godoc
// @Summary List teams the caller belongs to
// @Tags Teams
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /teams/my [get]
func (h *TeamHandler) MyTeams(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	teams, err := h.teams.MyTeams(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teams, nil)
}

// AddMember godoc
// @Summary Add a team member
// @Tags Teams
// @Accept json
// @Produce json
// @Param id path string true "Team ID"
// @Param payload body service.TeamMemberRequest true "Member payload"
// @Success 200 {object} response.Envelope
// @Router /teams/{id}/members [post]
func (h *TeamHandler) AddMember(c *gin.Context) {
	var req service.TeamMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	team, err := h.teams.AddMember(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, team, nil)
}

// RemoveMember godoc
// @Summary Remove a team member
// @Description The current leader cannot be removed until leadership is reassigned
// @Tags Teams
// @Produce json
// @Param id path string true "Team ID"
// @Param userId path string true "Member user ID"
// @Success 200 {object} response.Envelope
// @Router /teams/{id}/members/{userId} [delete]
func (h *TeamHandler) RemoveMember(c *gin.Context) {
	team, err := h.teams.RemoveMember(c.Request.Context(), c.Param("id"), c.Param("userId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, team, nil)
}

// SetLeader godoc
// @Summary Hand team leadership to a member
// @Tags Teams
// @Accept json
// @Produce json
// @Param id path string true "Team ID"
// @Success 200 {object} response.Envelope
// @Router /teams/{id}/leader [patch]
func (h *TeamHandler) SetLeader(c *gin.Context) {
	var req struct {
		UserID string `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	team, err := h.teams.SetLeader(c.Request.Context(), c.Param("id"), req.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, team, nil)
}
