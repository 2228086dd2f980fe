package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/placementhq/readiness-api/internal/config"
	"github.com/placementhq/readiness-api/internal/handler"
	"github.com/placementhq/readiness-api/internal/middleware"
	"github.com/placementhq/readiness-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ConfigHandler       *handler.ConfigHandler
	ReadinessHandler    *handler.ReadinessHandler
	VerificationHandler *handler.VerificationHandler
	AnalyticsHandler    *handler.AnalyticsHandler
	JWTMiddleware       fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	// Configuration management (managers only)
	if deps.ConfigHandler != nil {
		configs := app.Group("/api/v1/readiness/configs", jwtMiddleware,
			middleware.RequireRole(middleware.RoleManager))
		deps.ConfigHandler.Register(configs)
	}

	// Student self-service progress
	if deps.ReadinessHandler != nil {
		student := app.Group("/api/v1/readiness/me", jwtMiddleware,
			middleware.RequireRole(middleware.RoleStudent),
			middleware.RateLimit("readiness-self", 30, time.Minute))
		deps.ReadinessHandler.Register(student)
	}

	// Verification, feedback and approvals (PoC and managers)
	if deps.VerificationHandler != nil {
		review := app.Group("/api/v1/readiness/review", jwtMiddleware,
			middleware.RequireRole(middleware.RolePoc, middleware.RoleManager))
		deps.VerificationHandler.Register(review)
	}

	// Batch recompute is manager-only regardless of the review surface
	if deps.VerificationHandler != nil {
		admin := app.Group("/api/v1/readiness/admin", jwtMiddleware,
			middleware.RequireRole(middleware.RoleManager))
		deps.VerificationHandler.RegisterAdmin(admin)
	}

	// Cohort reporting and the audit trail (managers only)
	if deps.AnalyticsHandler != nil {
		analytics := app.Group("/api/v1/readiness/analytics", jwtMiddleware,
			middleware.RequireRole(middleware.RoleManager))
		deps.AnalyticsHandler.Register(analytics)
	}
}
