package requestid

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func newRouter() (*gin.Engine, *string) {
	gin.SetMode(gin.TestMode)
	var captured string
	router := gin.New()
	router.Use(Middleware())
	router.GET("/ping", func(c *gin.Context) {
		captured = Value(c)
		c.Status(http.StatusNoContent)
	})
	return router, &captured
}

func TestMiddlewareGeneratesID(t *testing.T) {
	router, captured := newRouter()

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/ping", nil))

	id := recorder.Header().Get(Header)
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("expected generated UUID, got %q: %v", id, err)
	}
	if *captured != id {
		t.Fatalf("context value %q does not match header %q", *captured, id)
	}
}

func TestMiddlewareHonoursInboundID(t *testing.T) {
	router, captured := newRouter()

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(Header, "proxy-abc-123")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	if *captured != "proxy-abc-123" {
		t.Fatalf("inbound request ID not reused, got %q", *captured)
	}
}

func TestMiddlewareReplacesOversizedID(t *testing.T) {
	router, captured := newRouter()

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(Header, strings.Repeat("x", maxInboundLen+1))
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	if _, err := uuid.Parse(*captured); err != nil {
		t.Fatalf("oversized inbound ID should be replaced, got %q", *captured)
	}
}
