package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	appErrors "github.com/gppalanpur/portal-api/pkg/errors"
	"github.com/gppalanpur/portal-api/pkg/export"
	"github.com/gppalanpur/portal-api/pkg/response"
)

// csvDownload renders a dataset as a CSV attachment named <prefix>_<date>.csv.
func csvDownload(c *gin.Context, prefix string, dataset *export.Dataset) {
	data, err := export.NewCSVExporter().Render(*dataset)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to render csv"))
		return
	}

	filename := fmt.Sprintf("%s_%s.csv", prefix, time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv", data)
}
