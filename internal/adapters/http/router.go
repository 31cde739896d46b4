package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/osoko/wayfind/internal/pkg/metrics"
)

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// Request ID
	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	// Rate limiting: 240 requests per minute per IP. Location reporting is
	// chatty, so the budget is wider than a typical read API.
	app.Use(limiter.New(limiter.Config{
		Max:        240,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(429).JSON(fiber.Map{
				"error":   "rate limit exceeded",
				"message": "too many requests, please try again later",
			})
		},
		SkipFailedRequests: false,
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	// REST API v1. Search and target selection wait on external providers,
	// so they get a wider timeout than plain state transitions.
	v1 := app.Group("/v1")
	v1.Post("/sessions", CreateSessionHandler(deps))
	v1.Get("/sessions/:id", GetSessionHandler(deps))
	v1.Delete("/sessions/:id", timeout.NewWithContext(EndSessionHandler(deps), 5*time.Second))
	v1.Post("/sessions/:id/search", timeout.NewWithContext(SearchHandler(deps), 45*time.Second))
	v1.Post("/sessions/:id/target", timeout.NewWithContext(SelectTargetHandler(deps), 20*time.Second))
	v1.Delete("/sessions/:id/route", timeout.NewWithContext(ClearRouteHandler(deps), 5*time.Second))
	v1.Post("/sessions/:id/tracking/start", timeout.NewWithContext(StartTrackingHandler(deps), 5*time.Second))
	v1.Post("/sessions/:id/tracking/stop", timeout.NewWithContext(StopTrackingHandler(deps), 5*time.Second))
	v1.Post("/sessions/:id/location", timeout.NewWithContext(UpdateLocationHandler(deps), 5*time.Second))
	v1.Post("/sessions/:id/points/:pointID/status", timeout.NewWithContext(PointStatusHandler(deps), 5*time.Second))
	v1.Get("/sessions/:id/track", timeout.NewWithContext(TrackHandler(deps), 15*time.Second))

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// WebSocket event relay per session
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/:id", websocket.New(WebSocketHandler(deps)))
}
