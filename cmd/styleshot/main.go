package main

import (
	"fmt"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/styleshot/styleshot/internal/pkg/billing"
	"github.com/styleshot/styleshot/internal/pkg/cache"
	"github.com/styleshot/styleshot/internal/pkg/database"
	"github.com/styleshot/styleshot/internal/pkg/env"
	"github.com/styleshot/styleshot/internal/pkg/pipeline"
	"github.com/styleshot/styleshot/internal/pkg/quota"
	"github.com/styleshot/styleshot/internal/pkg/ratelimit"
	"github.com/styleshot/styleshot/internal/pkg/resultcache"
	"github.com/styleshot/styleshot/internal/pkg/resultstore"
	"github.com/styleshot/styleshot/internal/pkg/router"
	"github.com/styleshot/styleshot/internal/pkg/transform"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	dailyCeiling := ratelimit.DefaultDailyCeiling
	if raw := env.GetEnv("DAILY_API_LIMIT", ""); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			dailyCeiling = v
		}
	}

	quotaService := quota.NewServiceFromDB(database.GetDB())
	billingService := billing.NewServiceFromDB(database.GetDB(), quotaService)

	pipe := &pipeline.Pipeline{
		Limiter:  ratelimit.NewLimiter(ratelimit.NewRedisCounter(cache.GetClient()), dailyCeiling),
		Cache:    resultcache.NewRedis(cache.GetClient(), resultcache.DefaultMaxEntries),
		Provider: transform.NewClientFromEnv(),
		Quota:    quotaService,
		Retry:    transform.DefaultRetryPolicy(),
	}

	// Hosted result URLs are optional; without S3 the pipeline returns
	// inline data URLs.
	if cfg, err := resultstore.LoadConfig(); err != nil {
		fiberlog.Warnf("result store config invalid: %v", err)
	} else if cfg.IsEnabled() {
		store, err := resultstore.NewClient(cfg)
		if err != nil {
			fiberlog.Warnf("result store disabled: %v", err)
		} else {
			pipe.Store = store
		}
	}

	// init fiber app; the body limit leaves headroom over the 10 MiB image
	// ceiling for the remaining multipart fields.
	app := fiber.New(fiber.Config{
		BodyLimit: 12 * 1024 * 1024,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get("/metrics", monitor.New())

	// ROUTER
	router.InstallRouter(app, router.Deps{
		Pipeline: pipe,
		Quota:    quotaService,
		Billing:  billingService,
	})

	return app
}
