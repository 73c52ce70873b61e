package cache

import (
	"context"
	"fmt"
	"log"
	"net"
	"strconv"

	"github.com/gofiber/fiber/v2"
	redisstorage "github.com/gofiber/storage/redis"
	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/PropKit/internal/pkg/env"
)

// Redis logical databases used by the service
const (
	DatabaseCache       = 0
	DatabaseLimiter     = 1
	DatabaseIdempotency = 2
)

var client *redis.Client

// SetupCache initializes the connection to the Redis compatible cache server
func SetupCache() error {
	host := env.GetEnv("CACHE_HOST", "localhost")
	port := env.GetEnv("CACHE_PORT", "6379")

	client = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		DB:       DatabaseCache,
	})

	pong, err := client.Ping(context.Background()).Result()
	if err != nil {
		log.Printf("Warning: Could not connect to cache: %v", err)
		return err
	}
	log.Printf("Successfully connected to cache: %s", pong)
	return nil
}

// GetClient returns the Redis client instance, nil before SetupCache.
func GetClient() *redis.Client {
	return client
}

// Pinger adapts the client to the health check.
type Pinger struct{}

func (Pinger) Ping(ctx context.Context) error {
	if client == nil {
		return fmt.Errorf("cache not configured")
	}
	return client.Ping(ctx).Err()
}

// NewStorage returns a fiber.Storage on the given logical database of the
// configured cache server. The limiter and idempotency middlewares use it.
func NewStorage(database int) fiber.Storage {
	host, port := "localhost", 6379
	password := env.GetEnv("CACHE_PASSWORD", "")
	if client != nil {
		opts := client.Options()
		if h, p, err := net.SplitHostPort(opts.Addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		if opts.Password != "" {
			password = opts.Password
		}
	}

	return redisstorage.New(redisstorage.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: database,
		Reset:    false,
	})
}
