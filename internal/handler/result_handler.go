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

// ResultHandler exposes exam result endpoints.
type ResultHandler struct {
	results     *service.ResultService
	maxUploadSz int64
}

// NewResultHandler constructs ResultHandler.
func NewResultHandler(results *service.ResultService, maxUploadSz int64) *ResultHandler {
	return &ResultHandler{results: results, maxUploadSz: maxUploadSz}
}

// List godoc
// @Summary List results
// @Tags Results
// @Produce json
// @Param search query string false "Search by student name or enrollment number"
// @Param enrollment_no query string false "Filter by enrollment number"
// @Param exam query string false "Filter by exam name"
// @Param semester query int false "Filter by semester"
// @Param academic_year query string false "Filter by academic year"
// @Param upload_batch query string false "Filter by upload batch"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /results [get]
func (h *ResultHandler) List(c *gin.Context) {
	var filter models.ResultFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}

	results, pagination, err := h.results.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, results, pagination)
}

// Get godoc
// @Summary Get result detail with per-subject grades
// @Tags Results
// @Produce json
// @Param id path string true "Result ID"
// @Success 200 {object} response.Envelope
// @Router /results/{id} [get]
func (h *ResultHandler) Get(c *gin.Context) {
	result, err := h.results.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// StudentResults godoc
// @Summary List one student's results
// @Description Students may only read results linked to their own account
// @Tags Results
// @Produce json
// @Param enrollmentNo path string true "Enrollment number"
// @Success 200 {object} response.Envelope
// @Router /results/student/{enrollmentNo} [get]
func (h *ResultHandler) StudentResults(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	results, err := h.results.ListByEnrollment(c.Request.Context(), c.Param("enrollmentNo"), claims.UserID, isPrivileged(claims))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, results, nil)
}

// Delete godoc
// @Summary Delete a single result
// @Tags Results
// @Produce json
// @Param id path string true "Result ID"
// @Success 204 {object} response.Envelope
// @Router /results/{id} [delete]
func (h *ResultHandler) Delete(c *gin.Context) {
	if err := h.results.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DeleteBatch godoc
// @Summary Delete every result of an upload batch
// @Tags Results
// @Produce json
// @Param batchId path string true "Upload batch ID"
// @Success 200 {object} response.Envelope
// @Router /results/batches/{batchId} [delete]
func (h *ResultHandler) DeleteBatch(c *gin.Context) {
	deleted, err := h.results.DeleteBatch(c.Request.Context(), c.Param("batchId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"deleted": deleted}, nil)
}

// Batches godoc
// @Summary List upload batches
// @Tags Results
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /results/batches [get]
func (h *ResultHandler) Batches(c *gin.Context) {
	batches, err := h.results.Batches(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, batches, nil)
}

// Analysis godoc
// @Summary Branch and semester pass-rate analysis
// @Tags Results
// @Produce json
// @Param academic_year query string false "Filter by academic year"
// @Param exam_id query int false "Filter by GTU exam ID"
// @Success 200 {object} response.Envelope
// @Router /results/analysis [get]
func (h *ResultHandler) Analysis(c *gin.Context) {
	var examID *int
	if raw := c.Query("exam_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "exam_id must be an integer"))
			return
		}
		examID = &id
	}

	rows, err := h.results.Analysis(c.Request.Context(), c.Query("academic_year"), examID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// Import godoc
// @Summary Bulk import GTU result CSV
// @Description Parses wide-format result rows with up to twelve subject column groups
// @Tags Results
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "CSV file"
// @Success 200 {object} response.Envelope
// @Router /results/import [post]
func (h *ResultHandler) Import(c *gin.Context) {
	file, err := csvUpload(c, h.maxUploadSz)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	report, err := h.results.Import(c.Request.Context(), file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Export godoc
// @Summary Export results as CSV
// @Tags Results
// @Produce text/csv
// @Success 200 {file} file
// @Router /results/export [get]
func (h *ResultHandler) Export(c *gin.Context) {
	var filter models.ResultFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}

	dataset, err := h.results.ExportDataset(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	csvDownload(c, "results", dataset)
}
