package controllers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/PropKit/internal/pkg/gateway/pagarme"
	"github.com/ManuelReschke/PropKit/internal/pkg/webhook"
)

const webhookTimeout = 15 * time.Second

type paymentWebhookPayload struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Object string `json:"object"`
}

type trackingWebhookPayload struct {
	Tracking     string `json:"tracking"`
	TrackingCode string `json:"tracking_code"`
	Status       string `json:"status"`
}

// WebhookController acknowledges provider callbacks and hands them to the reconciler
type WebhookController struct {
	reconciler    *webhook.Reconciler
	paymentSecret string
}

// NewWebhookController creates the controller. With an empty paymentSecret
// payment callbacks are accepted unsigned.
func NewWebhookController(reconciler *webhook.Reconciler, paymentSecret string) *WebhookController {
	return &WebhookController{reconciler: reconciler, paymentSecret: paymentSecret}
}

func (h *WebhookController) HandlePayment(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.Body()...)

	if h.paymentSecret != "" && !pagarme.VerifyWebhookSignature(rawBody, c.Get(pagarme.SignatureHeader), h.paymentSecret) {
		log.Warnf("[Webhook] payment delivery with invalid signature rejected")
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature"})
	}

	var payload paymentWebhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), webhookTimeout)
	defer cancel()

	res := h.reconciler.HandlePayment(ctx, webhook.PaymentEvent{
		DeliveryID:     firstHeaderValue(c, "X-Delivery-Id", "X-Request-Id"),
		SubscriptionID: payload.ID,
		Status:         payload.Status,
		Object:         payload.Object,
		Payload:        rawBody,
	})
	return c.Status(fiber.StatusOK).JSON(ackBody(res))
}

func (h *WebhookController) HandleShipping(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.Body()...)

	var payload trackingWebhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}
	tracking := payload.Tracking
	if tracking == "" {
		tracking = payload.TrackingCode
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), webhookTimeout)
	defer cancel()

	res := h.reconciler.HandleShipping(ctx, webhook.ShippingEvent{
		DeliveryID:   firstHeaderValue(c, "X-Delivery-Id", "X-Request-Id"),
		TrackingCode: tracking,
		Status:       payload.Status,
		Payload:      rawBody,
	})
	return c.Status(fiber.StatusOK).JSON(ackBody(res))
}

func ackBody(res webhook.Result) fiber.Map {
	body := fiber.Map{"received": true}
	if res.Duplicate {
		body["duplicate"] = true
	}
	return body
}
