package http

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"
	"github.com/samirrijal/landplot/internal/pkg/metrics"
)

const requestTimeout = 15 * time.Second

// RouteOptions tunes the shared middleware stack.
type RouteOptions struct {
	CORSOrigins []string
	RateLimit   int    // requests per minute per IP; 0 uses 120
	DocsFile    string // OpenAPI document; empty uses api/openapi.yaml
}

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies, opts ...RouteOptions) {
	var o RouteOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	if o.RateLimit <= 0 {
		o.RateLimit = 120
	}

	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(TracingMiddleware())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	if len(o.CORSOrigins) > 0 {
		app.Use(cors.New(cors.Config{
			AllowOrigins:     strings.Join(o.CORSOrigins, ","),
			AllowCredentials: !allowsAnyOrigin(o.CORSOrigins),
		}))
	}

	app.Use(limiter.New(limiter.Config{
		Max:        o.RateLimit,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/health", HealthHandler(deps))
	app.Get("/ready", ReadyHandler(deps))

	users := app.Group("/users")
	users.Post("/signup", timeout.NewWithContext(SignupHandler(deps), requestTimeout))
	users.Post("/login", timeout.NewWithContext(LoginHandler(deps), requestTimeout))
	users.Post("/logout", timeout.NewWithContext(LogoutHandler(deps), requestTimeout))
	users.Get("/profile", timeout.NewWithContext(ProfileHandler(deps), requestTimeout))

	lands := app.Group("/lands", RequireSession(deps))
	lands.Get("/", timeout.NewWithContext(ListLandsHandler(deps), requestTimeout))
	lands.Post("/", timeout.NewWithContext(CreateLandHandler(deps), requestTimeout))
	lands.Post("/bulk-delete", timeout.NewWithContext(BulkDeleteHandler(deps), requestTimeout))
	lands.Get("/:id", timeout.NewWithContext(GetLandHandler(deps), requestTimeout))
	lands.Put("/:id", timeout.NewWithContext(UpdateLandHandler(deps), requestTimeout))
	lands.Delete("/:id", timeout.NewWithContext(DeleteLandHandler(deps), requestTimeout))
	lands.Get("/:id/area", timeout.NewWithContext(LandAreaHandler(deps), requestTimeout))
	lands.Get("/:id/geojson", timeout.NewWithContext(LandGeoJSONHandler(deps), requestTimeout))
	lands.Get("/:id/events", timeout.NewWithContext(LandEventsHandler(deps), requestTimeout))

	app.Post("/graphql", RequireSession(deps), GraphQLHandler(deps))

	// API documentation (Swagger UI)
	SetupDocs(app, o.DocsFile)

	// WebSocket
	app.Use("/ws", RequireSession(deps), func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}

func allowsAnyOrigin(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
