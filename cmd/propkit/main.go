package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/ManuelReschke/PropKit/app/repository"
	"github.com/ManuelReschke/PropKit/internal/pkg/cache"
	"github.com/ManuelReschke/PropKit/internal/pkg/database"
	"github.com/ManuelReschke/PropKit/internal/pkg/env"
	"github.com/ManuelReschke/PropKit/internal/pkg/gateway/melhorenvio"
	"github.com/ManuelReschke/PropKit/internal/pkg/gateway/pagarme"
	"github.com/ManuelReschke/PropKit/internal/pkg/intent"
	"github.com/ManuelReschke/PropKit/internal/pkg/labelstore"
	"github.com/ManuelReschke/PropKit/internal/pkg/router"
	"github.com/ManuelReschke/PropKit/internal/pkg/shipment"
	"github.com/ManuelReschke/PropKit/internal/pkg/subscription"
	"github.com/ManuelReschke/PropKit/internal/pkg/webhook"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()

	deps := router.Dependencies{}
	if err := cache.SetupCache(); err == nil {
		deps.Cache = cache.Pinger{}
		deps.LimiterStorage = cache.NewStorage(cache.DatabaseLimiter)
		deps.IdempotencyStorage = cache.NewStorage(cache.DatabaseIdempotency)
	} else {
		log.Printf("Cache unavailable, rate limiting in memory and Idempotency-Key disabled")
	}

	db := database.GetDB()
	store := repository.NewStore(db)
	intents := intent.NewRecorder(store)

	shipments := shipment.NewManager(store, melhorenvio.NewClientFromEnv(), intents)
	labelCfg, err := labelstore.LoadConfig()
	if err != nil {
		log.Fatalf("Invalid label archive configuration: %v", err)
	}
	if labelCfg.IsEnabled() {
		archive, err := labelstore.NewClient(context.Background(), labelCfg)
		if err != nil {
			log.Fatalf("Failed to initialize label archive: %v", err)
		}
		shipments.WithLabelArchive(archive)
		log.Printf("Label archive enabled (bucket %s)", labelCfg.BucketName)
	}

	deps.DB = db
	deps.Store = store
	deps.Subscriptions = subscription.NewManager(store, pagarme.NewClientFromEnv(), intents)
	deps.Shipments = shipments
	deps.Reconciler = webhook.NewReconciler(store)
	deps.PaymentWebhookSecret = env.GetEnv("PAGARME_WEBHOOK_SECRET", "")

	app := fiber.New(fiber.Config{
		AppName:   "PropKit",
		BodyLimit: 1 * 1024 * 1024,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// SWAGGER / OPENAPI
	if specPath := findOpenAPISpec(); specPath != "" {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/docs/api/",
			FilePath: specPath,
			Path:     "v1",
		}))
	}

	// ROUTER
	router.InstallRouter(app, deps)

	return app
}

func findOpenAPISpec() string {
	for _, base := range []string{"./", "../../", "../../../"} {
		path := base + "docs/openapi.yml"
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	log.Printf("OpenAPI document not found, /docs/api disabled")
	return ""
}
