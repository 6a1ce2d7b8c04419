package handler

import (
	"testing"

	"github.com/gin-gonic/gin"
)

func registeredRoutes(t *testing.T) map[string]bool {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, "/api/v1", nil, nil, Handlers{
		Auth:        &AuthHandler{},
		Users:       &UserHandler{},
		Roles:       &RoleHandler{},
		Departments: &DepartmentHandler{},
		Faculty:     &FacultyHandler{},
		Students:    &StudentHandler{},
		Projects:    &ProjectHandler{},
		Teams:       &TeamHandler{},
		Events:      &EventHandler{},
		Results:     &ResultHandler{},
		Feedback:    &FeedbackHandler{},
		Exports:     &ExportHandler{},
		Metrics:     &MetricsHandler{},
	})
	routes := make(map[string]bool)
	for _, rt := range r.Routes() {
		routes[rt.Method+" "+rt.Path] = true
	}
	return routes
}

func TestRegisterRoutesUpdatesUsePatch(t *testing.T) {
	routes := registeredRoutes(t)

	patched := []string{
		"/api/v1/auth/me",
		"/api/v1/users/:id",
		"/api/v1/users/:id/roles",
		"/api/v1/admin/roles/:name",
		"/api/v1/departments/:id",
		"/api/v1/faculty/:id",
		"/api/v1/students/:id",
		"/api/v1/projects/:id",
		"/api/v1/teams/:id",
		"/api/v1/teams/:id/leader",
		"/api/v1/events/:id",
		"/api/v1/events/:id/schedule",
		"/api/v1/events/:id/publish-results",
	}
	for _, path := range patched {
		if !routes["PATCH "+path] {
			t.Errorf("expected PATCH %s to be registered", path)
		}
		if routes["PUT "+path] {
			t.Errorf("unexpected PUT %s", path)
		}
	}
}

func TestRegisterRoutesBulkEndpoints(t *testing.T) {
	routes := registeredRoutes(t)

	for _, key := range []string{
		"POST /api/v1/users/import",
		"GET /api/v1/users/export",
		"POST /api/v1/departments/import",
		"GET /api/v1/departments/export",
		"POST /api/v1/faculty/import",
		"GET /api/v1/faculty/export",
		"POST /api/v1/students/import",
		"GET /api/v1/students/export",
		"POST /api/v1/students/sync",
		"POST /api/v1/results/import",
		"GET /api/v1/results/export",
		"GET /api/v1/exports/download",
		"GET /api/v1/feedback/sample",
		"POST /api/v1/feedback/upload",
		"GET /api/v1/feedback/report/:id",
	} {
		if !routes[key] {
			t.Errorf("expected route %s to be registered", key)
		}
	}
}
