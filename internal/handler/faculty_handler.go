package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gppalanpur/portal-api/internal/models"
	"github.com/gppalanpur/portal-api/internal/service"
	appErrors "github.com/gppalanpur/portal-api/pkg/errors"
	"github.com/gppalanpur/portal-api/pkg/response"
)

// FacultyHandler exposes staff profile endpoints.
type FacultyHandler struct {
	faculty     *service.FacultyService
	maxUploadSz int64
}

// NewFacultyHandler constructs FacultyHandler.
func NewFacultyHandler(faculty *service.FacultyService, maxUploadSz int64) *FacultyHandler {
	return &FacultyHandler{faculty: faculty, maxUploadSz: maxUploadSz}
}

// List godoc
// @Summary List faculty
// @Tags Faculty
// @Produce json
// @Param search query string false "Search by name, staff code or email"
// @Param department_id query string false "Filter by department"
// @Param designation query string false "Filter by designation"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /faculty [get]
func (h *FacultyHandler) List(c *gin.Context) {
	var filter models.FacultyFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}

	faculty, pagination, err := h.faculty.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, faculty, pagination)
}

// Get godoc
// @Summary Get faculty detail
// @Tags Faculty
// @Produce json
// @Param id path string true "Faculty ID"
// @Success 200 {object} response.Envelope
// @Router /faculty/{id} [get]
func (h *FacultyHandler) Get(c *gin.Context) {
	f, err := h.faculty.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, f, nil)
}

// Create godoc
// @Summary Create faculty profile
// @Tags Faculty
// @Accept json
// @Produce json
// @Param payload body service.FacultyRequest true "Faculty payload"
// @Success 201 {object} response.Envelope
// @Router /faculty [post]
func (h *FacultyHandler) Create(c *gin.Context) {
	var req service.FacultyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	f, err := h.faculty.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, f)
}

// Update godoc
// @Summary Update faculty profile
// @Tags Faculty
// @Accept json
// @Produce json
// @Param id path string true "Faculty ID"
// @Param payload body service.FacultyRequest true "Faculty payload"
// @Success 200 {object} response.Envelope
// @Router /faculty/{id} [patch]
func (h *FacultyHandler) Update(c *gin.Context) {
	var req service.FacultyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	f, err := h.faculty.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, f, nil)
}

// Delete godoc
// @Summary Delete faculty profile
// @Tags Faculty
// @Produce json
// @Param id path string true "Faculty ID"
// @Success 204 {object} response.Envelope
// @Router /faculty/{id} [delete]
func (h *FacultyHandler) Delete(c *gin.Context) {
	if err := h.faculty.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Import godoc
// @Summary Bulk import faculty from CSV
// @Tags Faculty
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "CSV file"
// @Success 200 {object} response.Envelope
// @Router /faculty/import [post]
func (h *FacultyHandler) Import(c *gin.Context) {
	file, err := csvUpload(c, h.maxUploadSz)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	report, err := h.faculty.Import(c.Request.Context(), file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Export godoc
// @Summary Export faculty as CSV
// @Tags Faculty
// @Produce text/csv
// @Success 200 {file} file
// @Router /faculty/export [get]
func (h *FacultyHandler) Export(c *gin.Context) {
	var filter models.FacultyFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}

	dataset, err := h.faculty.ExportDataset(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	csvDownload(c, "faculty", dataset)
}
