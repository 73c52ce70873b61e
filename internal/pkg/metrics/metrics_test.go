package metrics

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveGatewayCall(t *testing.T) {
	before := testutil.ToFloat64(gatewayCounter("pagarme", "create_subscription", OutcomeError))

	ObserveGatewayCall("pagarme", "create_subscription", errors.New("boom"), 20*time.Millisecond)
	ObserveGatewayCall("pagarme", "create_subscription", nil, 10*time.Millisecond)

	assert.Equal(t, before+1, testutil.ToFloat64(gatewayCounter("pagarme", "create_subscription", OutcomeError)))
	assert.GreaterOrEqual(t, testutil.ToFloat64(gatewayCounter("pagarme", "create_subscription", OutcomeSuccess)), 1.0)
}

func TestRecordWebhookDelivery(t *testing.T) {
	RecordWebhookDelivery("payment", "dropped")
	before := testutil.ToFloat64(webhookDeliveries.WithLabelValues("payment", "dropped"))
	RecordWebhookDelivery("payment", "dropped")
	assert.Equal(t, before+1, testutil.ToFloat64(webhookDeliveries.WithLabelValues("payment", "dropped")))
}

func TestMiddlewareCountsMatchedRoute(t *testing.T) {
	app := fiber.New()
	app.Use(Middleware())
	app.Get("/items/:id", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusAccepted) })

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/items/42", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	assert.Equal(t, 1.0, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/items/:id", "202")))
}

func gatewayCounter(gateway, operation, outcome string) prometheus.Counter {
	metricsOnce.Do(initMetrics)
	return gatewayCallsTotal.WithLabelValues(gateway, operation, outcome)
}
