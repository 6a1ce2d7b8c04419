package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/gppalanpur/portal-api/internal/middleware"
	"github.com/gppalanpur/portal-api/internal/models"
	"github.com/gppalanpur/portal-api/internal/service"
)

// Handlers bundles every HTTP handler for route registration.
type Handlers struct {
	Auth        *AuthHandler
	Users       *UserHandler
	Roles       *RoleHandler
	Departments *DepartmentHandler
	Faculty     *FacultyHandler
	Students    *StudentHandler
	Projects    *ProjectHandler
	Teams       *TeamHandler
	Events      *EventHandler
	Results     *ResultHandler
	Feedback    *FeedbackHandler
	Exports     *ExportHandler
	Metrics     *MetricsHandler
}

// RegisterRoutes mounts the API surface under the given prefix.
func RegisterRoutes(r *gin.Engine, prefix string, auth *service.AuthService, audit middleware.AuditWriter, h Handlers) {
	staff := []string{models.RoleAdmin, models.RolePrincipal, models.RoleHOD, models.RoleFaculty}
	managers := []string{models.RoleAdmin, models.RolePrincipal, models.RoleHOD}
	admins := []string{models.RoleAdmin}

	api := r.Group(prefix)

	api.POST("/auth/login", h.Auth.Login)
	api.POST("/auth/signup", h.Auth.Signup)
	api.POST("/auth/refresh", h.Auth.Refresh)

	// Download is authenticated by the signed token in the query string.
	api.GET("/exports/download", h.Exports.Download)

	authed := api.Group("")
	authed.Use(middleware.JWT(auth))

	authed.POST("/auth/logout", h.Auth.Logout)
	authed.POST("/auth/switch-role", h.Auth.SwitchRole)
	authed.POST("/auth/change-password", h.Auth.ChangePassword)
	authed.GET("/auth/me", h.Auth.Me)
	authed.PATCH("/auth/me", h.Auth.UpdateMe)

	users := authed.Group("/users")
	users.GET("", middleware.RBAC(admins...), h.Users.List)
	users.POST("", middleware.RBAC(admins...), h.Users.Create)
	users.POST("/import", middleware.RBAC(admins...), middleware.Audit(audit, "import", "users"), h.Users.Import)
	users.GET("/export", middleware.RBAC(admins...), middleware.Audit(audit, "export", "users"), h.Users.Export)
	users.GET("/:id", middleware.RBAC(append(admins, "SELF")...), h.Users.Get)
	users.PATCH("/:id", middleware.RBAC(admins...), h.Users.Update)
	users.DELETE("/:id", middleware.RBAC(admins...), h.Users.Delete)
	users.PATCH("/:id/roles", middleware.RBAC(admins...), h.Users.AssignRoles)

	roles := authed.Group("/admin/roles", middleware.RBAC(admins...))
	roles.GET("", h.Roles.List)
	roles.POST("", h.Roles.Create)
	roles.GET("/:name", h.Roles.Get)
	roles.PATCH("/:name", h.Roles.Update)
	roles.DELETE("/:name", h.Roles.Delete)

	authed.GET("/admin/metrics", middleware.RBAC(admins...), h.Metrics.Snapshot)

	departments := authed.Group("/departments")
	departments.GET("", h.Departments.List)
	departments.GET("/stats", h.Departments.Stats)
	departments.GET("/:id", h.Departments.Get)
	departments.GET("/:id/students", middleware.RBAC(staff...), h.Departments.Students)
	departments.POST("", middleware.RBAC(models.RoleAdmin, models.RolePrincipal), h.Departments.Create)
	departments.POST("/import", middleware.RBAC(admins...), middleware.Audit(audit, "import", "departments"), h.Departments.Import)
	departments.GET("/export", middleware.RBAC(managers...), middleware.Audit(audit, "export", "departments"), h.Departments.Export)
	departments.PATCH("/:id", middleware.RBAC(models.RoleAdmin, models.RolePrincipal), h.Departments.Update)
	departments.DELETE("/:id", middleware.RBAC(admins...), h.Departments.Delete)

	faculty := authed.Group("/faculty")
	faculty.GET("", middleware.RBAC(staff...), h.Faculty.List)
	faculty.GET("/:id", middleware.RBAC(staff...), h.Faculty.Get)
	faculty.POST("", middleware.RBAC(managers...), h.Faculty.Create)
	faculty.POST("/import", middleware.RBAC(admins...), middleware.Audit(audit, "import", "faculty"), h.Faculty.Import)
	faculty.GET("/export", middleware.RBAC(managers...), middleware.Audit(audit, "export", "faculty"), h.Faculty.Export)
	faculty.PATCH("/:id", middleware.RBAC(managers...), h.Faculty.Update)
	faculty.DELETE("/:id", middleware.RBAC(admins...), h.Faculty.Delete)

	students := authed.Group("/students")
	students.GET("", middleware.RBAC(staff...), h.Students.List)
	students.GET("/:id", middleware.RBAC(append(staff, "SELF")...), h.Students.Get)
	students.POST("", middleware.RBAC(managers...), h.Students.Create)
	students.POST("/import", middleware.RBAC(managers...), middleware.Audit(audit, "import", "students"), h.Students.Import)
	students.GET("/export", middleware.RBAC(managers...), middleware.Audit(audit, "export", "students"), h.Students.Export)
	students.POST("/sync", middleware.RBAC(admins...), middleware.Audit(audit, "sync", "students"), h.Students.Sync)
	students.PATCH("/:id", middleware.RBAC(managers...), h.Students.Update)
	students.DELETE("/:id", middleware.RBAC(admins...), h.Students.Delete)

	projects := authed.Group("/projects")
	projects.GET("", h.Projects.List)
	projects.GET("/my", h.Projects.MyProjects)
	projects.GET("/statistics", h.Projects.Statistics)
	projects.GET("/winners", h.Projects.Winners)
	projects.GET("/:id", h.Projects.Get)
	projects.POST("", h.Projects.Create)
	projects.PATCH("/:id", h.Projects.Update)
	projects.DELETE("/:id", middleware.RBAC(admins...), h.Projects.Delete)
	projects.POST("/:id/evaluate", middleware.RBAC(models.RoleJury, models.RoleAdmin), h.Projects.Evaluate)

	teams := authed.Group("/teams")
	teams.GET("", h.Teams.List)
	teams.GET("/my", h.Teams.MyTeams)
	teams.GET("/:id", h.Teams.Get)
	teams.POST("", h.Teams.Create)
	teams.PATCH("/:id", h.Teams.Update)
	teams.POST("/:id/members", h.Teams.AddMember)
	teams.DELETE("/:id/members/:userId", h.Teams.RemoveMember)
	teams.PATCH("/:id/leader", h.Teams.SetLeader)
	teams.DELETE("/:id", middleware.RBAC(managers...), h.Teams.Delete)

	events := authed.Group("/events")
	events.GET("", h.Events.List)
	events.GET("/:id", h.Events.Get)
	events.POST("", middleware.RBAC(models.RoleAdmin, models.RolePrincipal), h.Events.Create)
	events.PATCH("/:id", middleware.RBAC(models.RoleAdmin, models.RolePrincipal), h.Events.Update)
	events.PATCH("/:id/schedule", middleware.RBAC(models.RoleAdmin, models.RolePrincipal), h.Events.SetSchedule)
	events.PATCH("/:id/publish-results", middleware.RBAC(models.RoleAdmin, models.RolePrincipal), h.Events.PublishResults)
	events.DELETE("/:id", middleware.RBAC(admins...), h.Events.Delete)

	results := authed.Group("/results")
	results.GET("", middleware.RBAC(staff...), h.Results.List)
	results.GET("/analysis", middleware.RBAC(staff...), h.Results.Analysis)
	results.GET("/batches", middleware.RBAC(managers...), h.Results.Batches)
	results.GET("/export", middleware.RBAC(staff...), middleware.Audit(audit, "export", "results"), h.Results.Export)
	results.GET("/student/:enrollmentNo", h.Results.StudentResults)
	results.GET("/:id", middleware.RBAC(staff...), h.Results.Get)
	results.POST("/import", middleware.RBAC(admins...), middleware.Audit(audit, "import", "results"), h.Results.Import)
	results.DELETE("/:id", middleware.RBAC(admins...), h.Results.Delete)
	results.DELETE("/batches/:batchId", middleware.RBAC(admins...), middleware.Audit(audit, "delete_batch", "results"), h.Results.DeleteBatch)

	feedback := authed.Group("/feedback")
	feedback.GET("/sample", h.Feedback.Sample)
	feedback.POST("/upload", middleware.RBAC(admins...), middleware.Audit(audit, "upload", "feedback"), h.Feedback.Upload)
	feedback.GET("/report/:id", middleware.RBAC(staff...), h.Feedback.Report)

	exports := authed.Group("/exports")
	exports.GET("", h.Exports.List)
	exports.POST("", middleware.RBAC(staff...), h.Exports.Create)
	exports.GET("/:id", h.Exports.Get)
}
