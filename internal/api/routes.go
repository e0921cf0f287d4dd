package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/newspulse/newspulse/internal/aggregator"
	"github.com/newspulse/newspulse/internal/cache"
	"github.com/newspulse/newspulse/internal/config"
	"github.com/newspulse/newspulse/internal/middleware"
	"github.com/newspulse/newspulse/internal/store"
)

// SetupRoutes configures all the routes for the application
func SetupRoutes(app *fiber.App, cfg *config.Config, cacheSvc *cache.Service, st *store.Store, agg *aggregator.Aggregator) {
	handlers := NewHandlers(cfg, cacheSvc, st, agg)

	api := app.Group("/api/v1")

	api.Get("/health", handlers.HealthCheck)
	api.Get("/feed", handlers.GetFeed)
	api.Get("/search", handlers.Search)
	api.Get("/filters", handlers.GetFilters)
	api.Get("/trending", handlers.GetTrending)
	api.Get("/stats", handlers.GetStats)

	admin := api.Group("/admin", middleware.AdminOnly(cfg.AdminAPIKey))
	{
		admin.Post("/fetch", handlers.FetchFeeds)
		admin.Post("/cleanup", handlers.Cleanup)
		admin.Delete("/cache", handlers.ClearCache)
	}

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Endpoint not found",
		})
	})
}
