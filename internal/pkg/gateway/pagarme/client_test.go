package pagarme

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/PropKit/internal/pkg/gateway"
)

func testRequest() gateway.PaymentSubscriptionRequest {
	return gateway.PaymentSubscriptionRequest{
		IdempotencyKey: "intent-1",
		PlanID:         3,
		PaymentToken:   "tok_123",
		Customer:       gateway.Customer{Name: "Ana", Email: "ana@example.com"},
		UserID:         9,
		PropertyCount:  2,
		TotalAmount:    decimal.RequireFromString("100"),
	}
}

func TestCreateSubscription(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/subscriptions", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		assert.Equal(t, "intent-1", r.Header.Get("Idempotency-Key"))

		var body createSubscriptionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "plan_3", body.PlanID)
		assert.Equal(t, "tok_123", body.PaymentMethod)
		assert.Equal(t, "ana@example.com", body.Customer.Email)
		assert.Equal(t, "9", body.Metadata["user_id"])
		assert.Equal(t, "2", body.Metadata["property_count"])
		assert.Equal(t, "100.00", body.Metadata["total_amount"])

		_, _ = w.Write([]byte(`{"id":"sub_abc","status":"pending"}`))
	}))
	defer srv.Close()

	c := &Client{APIKey: "sk_test", BaseURL: srv.URL, HTTPClient: srv.Client()}
	id, err := c.CreateSubscription(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "sub_abc", id)
}

func TestCreateSubscription_ProviderRejects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"invalid","errors":{"payment_method":["invalid token"]}}`))
	}))
	defer srv.Close()

	c := &Client{APIKey: "sk_test", BaseURL: srv.URL, HTTPClient: srv.Client()}
	_, err := c.CreateSubscription(context.Background(), testRequest())
	require.Error(t, err)

	var pe *gateway.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, ProviderName, pe.Provider)
	assert.Equal(t, http.StatusUnprocessableEntity, pe.StatusCode)
}

func TestCreateSubscription_MissingID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"pending"}`))
	}))
	defer srv.Close()

	c := &Client{APIKey: "sk_test", BaseURL: srv.URL, HTTPClient: srv.Client()}
	_, err := c.CreateSubscription(context.Background(), testRequest())
	assert.Error(t, err)
}

func TestCreateSubscription_NotConfigured(t *testing.T) {
	c := &Client{HTTPClient: http.DefaultClient}
	_, err := c.CreateSubscription(context.Background(), testRequest())
	assert.Error(t, err)
}

func TestVerifyWebhookSignature(t *testing.T) {
	payload := []byte(`{"id":"sub_1","status":"active"}`)
	secret := "whsec"

	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(payload)
	sha1Sig := hex.EncodeToString(mac.Sum(nil))

	mac256 := hmac.New(sha256.New, []byte(secret))
	mac256.Write(payload)
	sha256Sig := hex.EncodeToString(mac256.Sum(nil))

	assert.True(t, VerifyWebhookSignature(payload, "sha1="+sha1Sig, secret))
	assert.True(t, VerifyWebhookSignature(payload, sha1Sig, secret))
	assert.True(t, VerifyWebhookSignature(payload, "sha256="+sha256Sig, secret))
	assert.False(t, VerifyWebhookSignature(payload, "sha1=deadbeef", secret))
	assert.False(t, VerifyWebhookSignature(payload, "md5="+sha1Sig, secret))
	assert.False(t, VerifyWebhookSignature(payload, "", secret))
}
