package router

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/ManuelReschke/PropKit/app/controllers"
	"github.com/ManuelReschke/PropKit/app/repository"
	"github.com/ManuelReschke/PropKit/internal/pkg/shipment"
	"github.com/ManuelReschke/PropKit/internal/pkg/subscription"
	"github.com/ManuelReschke/PropKit/internal/pkg/webhook"
)

// Router installs a group of routes on the app
type Router interface {
	InstallRouter(app *fiber.App)
}

// Dependencies carries everything the routes need. LimiterStorage and
// IdempotencyStorage may be nil, then the limiter keeps its counters in
// memory and the idempotency middleware is not installed.
type Dependencies struct {
	DB                   *gorm.DB
	Store                *repository.Store
	Subscriptions        *subscription.Manager
	Shipments            *shipment.Manager
	Reconciler           *webhook.Reconciler
	PaymentWebhookSecret string
	Cache                controllers.Pinger
	LimiterStorage       fiber.Storage
	IdempotencyStorage   fiber.Storage
}

func InstallRouter(app *fiber.App, deps Dependencies) {
	setup(app, NewHttpRouter(deps), NewApiRouter(deps))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
