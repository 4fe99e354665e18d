package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/pinkflag/backend/internal/config"
	"github.com/pinkflag/backend/internal/handlers"
	"github.com/pinkflag/backend/internal/middleware"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	healthHandler *handlers.HealthHandler,
	webhookHandler *handlers.WebhookHandler,
	creditHandler *handlers.CreditHandler,
) {
	// Webhooks are registered before the API middleware: RevenueCat
	// bursts redeliveries and must never see a 429, and its preflight
	// contract is a 200 with permissive headers - the cors middleware
	// would answer 204.
	webhooks := app.Group("/api/webhooks")
	webhooks.Use(func(c *fiber.Ctx) error {
		c.Set("Access-Control-Allow-Origin", "*")
		c.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-RevenueCat-Signature")
		return c.Next()
	})
	webhooks.Options("/revenuecat", webhookHandler.Preflight)
	webhooks.Post("/revenuecat", webhookHandler.HandleRevenueCat)

	api := app.Group("/api")
	api.Use(middleware.CORS(cfg))

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", healthHandler.Check)

	// Auth — public, with a stricter rate limit: 10 req/min per IP
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/refresh", authHandler.Refresh)

	// Protected routes (JWT required) - apply middleware per route so it
	// cannot leak onto public paths
	api.Post("/auth/logout", middleware.JWTProtected(cfg), authHandler.Logout)
	api.Delete("/auth/account", middleware.JWTProtected(cfg), authHandler.DeleteAccount)

	api.Get("/credits", middleware.JWTProtected(cfg), creditHandler.GetBalance)
	api.Post("/searches", middleware.JWTProtected(cfg), creditHandler.StartSearch)
}
