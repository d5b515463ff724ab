package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/employee-service/internal/api/http/handlers"
	"github.com/spec-kit/employee-service/internal/auth"
	"github.com/spec-kit/employee-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Employees      *handlers.EmployeesHandler
	Transitions    *handlers.TransitionsHandler
	Notifications  *handlers.NotificationsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)

	api := app.Group("/api", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	api.Post("/setup", cfg.Employees.Setup)

	// Group-level handlers would apply to every /api route, so role checks
	// are attached per route.
	member := auth.RequireProfile()
	manager := auth.RequireMinRole(domain.RoleManager)
	admin := auth.RequireMinRole(domain.RoleAdministrator)

	api.Get("/employees/me", member, cfg.Employees.Me)
	api.Get("/employees", manager, cfg.Employees.List)
	api.Get("/employees/:id", member, cfg.Employees.Get)
	api.Put("/employees/:id", admin, cfg.Employees.Update)

	// The transition engine resolves the actor itself.
	api.Post("/employees/:id/promote", cfg.Transitions.Promote)
	api.Post("/employees/:id/demote", cfg.Transitions.Demote)
	api.Post("/employees/:id/transfer-super-admin", cfg.Transitions.TransferSuperAdmin)

	api.Get("/departments", member, cfg.Employees.ListDepartments)
	api.Post("/departments", admin, cfg.Employees.CreateDepartment)
	api.Put("/departments/:id", admin, cfg.Employees.UpdateDepartment)

	api.Get("/notifications", member, cfg.Notifications.List)
	api.Post("/notifications/:id/read", member, cfg.Notifications.MarkRead)
}
