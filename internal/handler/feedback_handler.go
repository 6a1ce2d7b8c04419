package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gppalanpur/portal-api/internal/service"
	"github.com/gppalanpur/portal-api/pkg/response"
)

// FeedbackHandler exposes course feedback analysis endpoints.
type FeedbackHandler struct {
	feedback    *service.FeedbackService
	maxUploadSz int64
}

// NewFeedbackHandler constructs FeedbackHandler.
func NewFeedbackHandler(feedback *service.FeedbackService, maxUploadSz int64) *FeedbackHandler {
	return &FeedbackHandler{feedback: feedback, maxUploadSz: maxUploadSz}
}

// Sample godoc
// @Summary Download the feedback upload CSV template
// @Tags Feedback
// @Produce text/csv
// @Success 200 {file} file
// @Router /feedback/sample [get]
func (h *FeedbackHandler) Sample(c *gin.Context) {
	c.Header("Content-Disposition", `attachment; filename="feedback_sample.csv"`)
	c.Data(http.StatusOK, "text/csv", h.feedback.SampleCSV())
}

// Upload godoc
// @Summary Upload aggregated feedback rows as CSV
// @Tags Feedback
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "CSV file"
// @Success 200 {object} response.Envelope
// @Router /feedback/upload [post]
func (h *FeedbackHandler) Upload(c *gin.Context) {
	file, err := csvUpload(c, h.maxUploadSz)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	report, err := h.feedback.Import(c.Request.Context(), file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Report godoc
// @Summary Get the analysis report for one feedback row
// @Tags Feedback
// @Produce json
// @Param id path string true "Feedback ID"
// @Success 200 {object} response.Envelope
// @Router /feedback/report/{id} [get]
func (h *FeedbackHandler) Report(c *gin.Context) {
	report, err := h.feedback.Report(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}
