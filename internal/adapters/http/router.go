package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/etag"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"geoscout/internal/pkg/metrics"
)

// apiVersion is stamped on every response and reported by /v1/health.
const apiVersion = "1.0.0"

// searchBudget bounds one full pipeline run: geocoding plus the
// geodata query, whose own server-side budget is typically 25s.
const searchBudget = 45 * time.Second

// readBudget bounds handlers that only read published state.
const readBudget = 5 * time.Second

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed, // Balance speed vs compression ratio
	}))

	// Request ID
	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
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
		c.Set("X-XSS-Protection", "1; mode=block")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", apiVersion)
		return c.Next()
	})

	// ETag for conditional caching
	app.Use(etag.New(etag.Config{Weak: true}))

	// Default Cache-Control headers
	app.Use(CachingMiddleware())

	// Deprecation headers for routes on their way out
	app.Use(DeprecationMiddleware([]DeprecatedRoute{
		{
			Path:        "/v1/search",
			SunsetDate:  time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC),
			Alternative: "/v1/searches",
		},
	}))

	// Health & readiness run without a timeout wrapper; the checks are
	// fast and internal.
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	// REST API v1
	v1 := app.Group("/v1")
	v1.Post("/searches", timeout.NewWithContext(SearchHandler(deps), searchBudget))
	v1.Get("/searches", timeout.NewWithContext(SearchByQueryHandler(deps), searchBudget))
	v1.Get("/result", timeout.NewWithContext(ResultHandler(deps), readBudget))
	v1.Get("/result/features", timeout.NewWithContext(ResultFeaturesHandler(deps), readBudget))
	v1.Get("/topics", timeout.NewWithContext(TopicsHandler(deps), readBudget))

	// Legacy singular path, superseded by /v1/searches
	v1.Get("/search", timeout.NewWithContext(SearchByQueryHandler(deps), searchBudget))

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// API documentation (Swagger UI)
	SetupDocs(app)

	// WebSocket event relay; unavailable without a broker connection
	app.Use("/ws", func(c *fiber.Ctx) error {
		if deps.NATS == nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "event relay unavailable")
		}
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}
