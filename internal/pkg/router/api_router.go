package router

import (
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	redisstorage "github.com/gofiber/storage/redis"

	"github.com/styleshot/styleshot/app/controllers"
	"github.com/styleshot/styleshot/internal/pkg/cache"
	"github.com/styleshot/styleshot/internal/pkg/env"
	"github.com/styleshot/styleshot/internal/pkg/middleware"
)

type ApiRouter struct {
	generate      *controllers.GenerateController
	subscriptions *controllers.SubscriptionController
	webhooks      *controllers.WebhookController
}

func NewApiRouter(deps Deps) *ApiRouter {
	return &ApiRouter{
		generate:      controllers.NewGenerateController(deps.Pipeline),
		subscriptions: controllers.NewSubscriptionController(deps.Quota),
		webhooks:      controllers.NewWebhookController(deps.Billing),
	}
}

func (h *ApiRouter) InstallRouter(app *fiber.App) {
	// Coarse per-IP limiter in front of everything, backed by the shared
	// store so all replicas count together. The per-user daily budget is
	// enforced separately inside the pipeline.
	api := app.Group("/api", limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		Storage:    newLimiterStorage(),
	}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	api.Post("/webhooks/billing", h.webhooks.HandleBillingWebhook)

	v1 := api.Group("/v1", middleware.RequireAuth())
	v1.Post("/generate", h.generate.HandleGenerateImage)
	v1.Get("/subscription", h.subscriptions.HandleGetSubscription)
	v1.Post("/subscription/consume", h.subscriptions.HandleConsumeGeneration)
}

// newLimiterStorage creates Redis storage for the coarse limiter, derived
// from the shared cache client (database 1; the cache itself uses DB 0).
func newLimiterStorage() *redisstorage.Storage {
	host := "localhost"
	port := 6379
	password := env.GetEnv("CACHE_PASSWORD", "")
	if client := cache.GetClient(); client != nil {
		addr := client.Options().Addr
		if h, p, err := net.SplitHostPort(addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		if p := client.Options().Password; p != "" {
			password = p
		}
	}

	return redisstorage.New(redisstorage.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: 1,
		Reset:    false,
	})
}
