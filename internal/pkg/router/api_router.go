package router

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/idempotency"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/google/uuid"

	"github.com/ManuelReschke/PropKit/app/controllers"
	"github.com/ManuelReschke/PropKit/app/models"
	"github.com/ManuelReschke/PropKit/internal/pkg/env"
	"github.com/ManuelReschke/PropKit/internal/pkg/metrics"
	"github.com/ManuelReschke/PropKit/internal/pkg/middleware"
	"github.com/ManuelReschke/PropKit/internal/pkg/usercontext"
)

type ApiRouter struct {
	deps Dependencies
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", h.limiter(), metrics.Middleware())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	v1 := api.Group("/v1")

	subscriptions := controllers.NewSubscriptionController(h.deps.Subscriptions)
	shipments := controllers.NewShipmentController(h.deps.Shipments)
	webhooks := controllers.NewWebhookController(h.deps.Reconciler, h.deps.PaymentWebhookSecret)

	// provider callbacks carry no API key
	v1.Post("/subscriptions/webhook", webhooks.HandlePayment)
	v1.Post("/shipments/tracking-webhook", webhooks.HandleShipping)

	auth := middleware.APIKeyAuthMiddleware(h.deps.Store)
	anyRole := middleware.RequireRole(models.ROLE_OWNER, models.ROLE_ADMIN)
	adminOnly := middleware.RequireRole(models.ROLE_ADMIN)

	subs := v1.Group("/subscriptions", auth, anyRole)
	subs.Post("/", append(h.idempotency(), subscriptions.HandleCreate)...)
	subs.Get("/", subscriptions.HandleList)
	subs.Get("/:id", subscriptions.HandleGet)
	subs.Put("/:id", subscriptions.HandleUpdate)

	ships := v1.Group("/shipments", auth)
	ships.Post("/", adminOnly, shipments.HandleCreate)
	ships.Post("/generate-label", adminOnly, shipments.HandleGenerateLabel)
	ships.Put("/:id/status", adminOnly, shipments.HandleUpdateStatus)
	ships.Get("/", anyRole, shipments.HandleList)
	ships.Get("/:id", anyRole, shipments.HandleGet)
}

func (h ApiRouter) limiter() fiber.Handler {
	cfg := limiter.Config{
		Max:        env.GetInt("API_RATE_LIMIT", 120),
		Expiration: time.Minute,
	}
	if h.deps.LimiterStorage != nil {
		cfg.Storage = h.deps.LimiterStorage
	}
	return limiter.New(cfg)
}

// idempotency replays the first response for a repeated X-Idempotency-Key.
// Keys are cached per principal, so two callers sending the same key never
// see each other's response.
func (h ApiRouter) idempotency() []fiber.Handler {
	if h.deps.IdempotencyStorage == nil {
		return nil
	}
	return []fiber.Handler{
		scopeIdempotencyKey,
		idempotency.New(idempotency.Config{
			Lifetime:          24 * time.Hour,
			KeyHeader:         idempotencyKeyHeader,
			KeyHeaderValidate: validateScopedIdempotencyKey,
			Storage:           h.deps.IdempotencyStorage,
		}),
	}
}

const idempotencyKeyHeader = "X-Idempotency-Key"

// scopeIdempotencyKey rewrites the client key to "<user id>:<key>".
func scopeIdempotencyKey(c *fiber.Ctx) error {
	key := strings.TrimSpace(c.Get(idempotencyKeyHeader))
	if key == "" {
		return c.Next()
	}
	p, ok := usercontext.GetPrincipal(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "authentication required"})
	}
	c.Request().Header.Set(idempotencyKeyHeader, fmt.Sprintf("%d:%s", p.UserID, key))
	return c.Next()
}

func validateScopedIdempotencyKey(scoped string) error {
	_, key, found := strings.Cut(scoped, ":")
	if !found {
		return fiber.NewError(fiber.StatusBadRequest, "idempotency key is not scoped")
	}
	if _, err := uuid.Parse(key); err != nil || len(key) != 36 {
		return fiber.NewError(fiber.StatusBadRequest, "X-Idempotency-Key must be a UUID")
	}
	return nil
}

func NewApiRouter(deps Dependencies) *ApiRouter {
	return &ApiRouter{deps: deps}
}
