package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/styleshot/styleshot/internal/pkg/billing"
	"github.com/styleshot/styleshot/internal/pkg/pipeline"
	"github.com/styleshot/styleshot/internal/pkg/quota"
)

// Router installs a route group on the app.
type Router interface {
	InstallRouter(app *fiber.App)
}

// Deps are the process-wide services, initialized once at boot and injected
// into the request handlers.
type Deps struct {
	Pipeline *pipeline.Pipeline
	Quota    *quota.Service
	Billing  *billing.Service
}

func InstallRouter(app *fiber.App, deps Deps) {
	setup(app, NewApiRouter(deps))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
