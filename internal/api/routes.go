package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/ozgund/readbox/internal/config"
	"github.com/ozgund/readbox/internal/middleware"
)

// SetupRoutes configures all the routes for the application
func SetupRoutes(app *fiber.App, handlers *Handlers, cfg *config.Config) {
	// Middleware
	app.Use(recover.New())
	app.Use(middleware.RequestLogger())

	// API group with versioning
	api := app.Group("/api/v1")

	// Health check endpoint
	api.Get("/health", handlers.HealthCheck)

	// Feed endpoints
	feeds := api.Group("/feeds")
	{
		feeds.Post("", handlers.RegisterFeed)                 // Validate, register and seed a feed
		feeds.Get("/:id/articles", handlers.ListFeedArticles) // List a feed's articles
	}

	// Admin endpoints
	admin := api.Group("/admin", middleware.AdminOnly(cfg.AdminAPIKey))
	{
		admin.Post("/sync", handlers.TriggerSync) // Trigger a batch sync now
	}

	// 404 Handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Endpoint not found",
		})
	})
}
