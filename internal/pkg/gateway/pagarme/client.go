package pagarme

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/PropKit/internal/pkg/env"
	"github.com/ManuelReschke/PropKit/internal/pkg/gateway"
	"github.com/ManuelReschke/PropKit/internal/pkg/metrics"
)

const (
	ProviderName   = "pagarme"
	defaultBaseURL = "https://api.pagar.me/core/v5"

	opCreateSubscription = "create_subscription"
)

// Client talks to the Pagar.me core API.
type Client struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

type customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type createSubscriptionRequest struct {
	PlanID        string            `json:"plan_id"`
	Customer      customer          `json:"customer"`
	PaymentMethod string            `json:"payment_method"`
	Metadata      map[string]string `json:"metadata"`
}

type subscriptionResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

var _ gateway.PaymentGateway = (*Client)(nil)

func NewClientFromEnv() *Client {
	return &Client{
		APIKey:  strings.TrimSpace(env.GetEnv("PAGARME_API_KEY", "")),
		BaseURL: strings.TrimSpace(env.GetEnv("PAGARME_API_BASE_URL", defaultBaseURL)),
		HTTPClient: &http.Client{
			Timeout: env.GetDuration("PAGARME_TIMEOUT", 15*time.Second),
		},
	}
}

// PlanReference is the provider-side plan id for a local plan.
func PlanReference(planID uint) string {
	return fmt.Sprintf("plan_%d", planID)
}

// CreateSubscription opens a subscription and returns the provider subscription id.
func (c *Client) CreateSubscription(ctx context.Context, req gateway.PaymentSubscriptionRequest) (string, error) {
	if c.APIKey == "" {
		return "", &gateway.ProviderError{Provider: ProviderName, Operation: opCreateSubscription, Err: errors.New("PAGARME_API_KEY is not configured")}
	}

	body := createSubscriptionRequest{
		PlanID: PlanReference(req.PlanID),
		Customer: customer{
			Name:  req.Customer.Name,
			Email: req.Customer.Email,
		},
		PaymentMethod: req.PaymentToken,
		Metadata: map[string]string{
			"user_id":        strconv.FormatUint(uint64(req.UserID), 10),
			"property_count": strconv.Itoa(req.PropertyCount),
			"total_amount":   req.TotalAmount.StringFixed(2),
		},
	}
	headers := map[string]string{"Authorization": "Bearer " + c.APIKey}
	if req.IdempotencyKey != "" {
		headers["Idempotency-Key"] = req.IdempotencyKey
	}

	start := time.Now()
	var out subscriptionResponse
	err := gateway.DoJSON(ctx, c.HTTPClient, gateway.JSONCall{
		Provider:  ProviderName,
		Operation: opCreateSubscription,
		Method:    http.MethodPost,
		URL:       strings.TrimRight(c.BaseURL, "/") + "/subscriptions",
		Headers:   headers,
		Body:      body,
	}, &out)
	if err == nil && strings.TrimSpace(out.ID) == "" {
		err = &gateway.ProviderError{Provider: ProviderName, Operation: opCreateSubscription, Err: errors.New("response did not include a subscription id")}
	}
	metrics.ObserveGatewayCall(ProviderName, opCreateSubscription, err, time.Since(start))
	if err != nil {
		log.Warnf("[Pagarme] create subscription for user %d failed: %v", req.UserID, err)
		return "", err
	}

	log.Infof("[Pagarme] created subscription %s for user %d (status=%s)", out.ID, req.UserID, out.Status)
	return out.ID, nil
}
