package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/wanderly/wanderly-api/internal/config"
	"github.com/wanderly/wanderly-api/internal/handler"
	"github.com/wanderly/wanderly-api/internal/middleware"
	"github.com/wanderly/wanderly-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler         *handler.AuthHandler
	UserHandler         *handler.UserHandler
	TripHandler         *handler.TripHandler
	ChatHandler         *handler.ChatHandler
	NotificationHandler *handler.NotificationHandler
	UploadHandler       *handler.UploadHandler
	JWTMiddleware       fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	app.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.AuthHandler != nil {
		auth := api.Group("/auth", middleware.RateLimit("auth", 20, time.Minute))
		deps.AuthHandler.Register(auth)
	}

	if deps.UserHandler != nil {
		users := api.Group("/users", jwtMiddleware)
		deps.UserHandler.Register(users)
	}

	if deps.TripHandler != nil {
		trips := api.Group("/trips", jwtMiddleware)
		deps.TripHandler.Register(trips)

		if deps.ChatHandler != nil {
			deps.ChatHandler.RegisterTripRoutes(trips)
		}
	}

	if deps.ChatHandler != nil {
		chat := api.Group("/chat", jwtMiddleware)
		deps.ChatHandler.Register(chat)
	}

	if deps.NotificationHandler != nil {
		notifications := api.Group("/notifications", jwtMiddleware)
		deps.NotificationHandler.Register(notifications)
	}

	if deps.UploadHandler != nil {
		uploads := api.Group("/uploads", jwtMiddleware, middleware.RateLimit("uploads", 10, time.Minute))
		deps.UploadHandler.Register(uploads)
	}
}
