package handler

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultHandlerAnalysisInvalidExamID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewResultHandler(nil, 0)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/results/analysis?exam_id=not-a-number", nil)
	c.Request = req

	handler.Analysis(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "exam_id")
}

func TestResultHandlerImportMissingFile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewResultHandler(nil, 0)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.WriteField("note", "no file attached"))
	require.NoError(t, writer.Close())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/results/import", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.Request = req

	handler.Import(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResultHandlerListInvalidQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewResultHandler(nil, 0)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/results?semester=abc", nil)
	c.Request = req

	handler.List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
