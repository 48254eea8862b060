package main

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/labelflow/labelflow/api/internal/middleware"
)

// registerRoutes registers probes and the versioned API
func registerRoutes(app *fiber.App, deps *Dependencies) {
	h := deps.Handlers

	h.Health.RegisterRoutes(app)
	if !deps.Config.IsProduction() {
		h.Docs.RegisterRoutes(app)
	}

	v1 := app.Group("/api/v1")
	if deps.Config.RateLimit.Enabled && deps.Databases.Redis != nil {
		limiter := middleware.NewRateLimitMiddleware(deps.Databases.Redis.Client, middleware.RateLimitConfig{
			Max:    deps.Config.RateLimit.RequestsPerMinute,
			Window: time.Minute,
			Logger: deps.Logger,
		})
		v1.Use(limiter.Handler())
	}

	h.Datasets.RegisterRoutes(v1)
	h.Tasks.RegisterRoutes(v1)
}
