package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/gppalanpur/portal-api/pkg/errors"
)

// csvUpload pulls the uploaded CSV from a multipart form, enforcing the
// configured size limit. Callers must Close the returned reader.
func csvUpload(c *gin.Context, maxBytes int64) (io.ReadCloser, error) {
	if maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	}
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidFile.Code, appErrors.ErrInvalidFile.Status, "csv file required in form field 'file'")
	}
	if maxBytes > 0 && header.Size > maxBytes {
		file.Close()
		return nil, appErrors.Clone(appErrors.ErrInvalidFile, "uploaded file exceeds size limit")
	}
	return file, nil
}
