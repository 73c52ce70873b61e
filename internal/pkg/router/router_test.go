package router

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ManuelReschke/PropKit/app/models"
	"github.com/ManuelReschke/PropKit/app/repository"
	"github.com/ManuelReschke/PropKit/internal/pkg/database/dbtest"
	"github.com/ManuelReschke/PropKit/internal/pkg/gateway"
	"github.com/ManuelReschke/PropKit/internal/pkg/intent"
	"github.com/ManuelReschke/PropKit/internal/pkg/shipment"
	"github.com/ManuelReschke/PropKit/internal/pkg/subscription"
	"github.com/ManuelReschke/PropKit/internal/pkg/webhook"
)

const testWebhookSecret = "whsec_test"

type stubPayments struct {
	err   error
	calls int
}

func (s *stubPayments) CreateSubscription(ctx context.Context, req gateway.PaymentSubscriptionRequest) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return fmt.Sprintf("sub_remote_%d", 41+s.calls), nil
}

type stubShipping struct{}

func (stubShipping) PurchaseLabel(ctx context.Context, req gateway.LabelRequest) (*gateway.Label, error) {
	return &gateway.Label{OrderID: "ord_1", TrackingCode: "BR123456", LabelURL: "https://labels.example.com/1.pdf"}, nil
}

type apiFixture struct {
	app      *fiber.App
	db       *gorm.DB
	payments *stubPayments
	ownerKey string
	adminKey string
	owner    *models.User
	plan     *models.Plan
}

func newAPIFixture(t *testing.T, opts ...func(*Dependencies)) *apiFixture {
	t.Helper()
	db := dbtest.Open(t)
	store := repository.NewStore(db)
	intents := intent.NewRecorder(store)
	payments := &stubPayments{}

	f := &apiFixture{db: db, payments: payments}
	f.owner = dbtest.SeedUser(t, db, "owner", models.ROLE_OWNER)
	admin := dbtest.SeedUser(t, db, "admin", models.ROLE_ADMIN)
	f.ownerKey = issueKey(t, db, f.owner)
	f.adminKey = issueKey(t, db, admin)
	f.plan = dbtest.SeedPlan(t, db, "Basic", "50.00")

	deps := Dependencies{
		DB:                   db,
		Store:                store,
		Subscriptions:        subscription.NewManager(store, payments, intents),
		Shipments:            shipment.NewManager(store, stubShipping{}, intents),
		Reconciler:           webhook.NewReconciler(store),
		PaymentWebhookSecret: testWebhookSecret,
	}
	for _, opt := range opts {
		opt(&deps)
	}

	f.app = fiber.New()
	InstallRouter(f.app, deps)
	return f
}

func issueKey(t *testing.T, db *gorm.DB, u *models.User) string {
	t.Helper()
	raw, err := u.IssueAPIKey()
	require.NoError(t, err)
	require.NoError(t, db.Save(u).Error)
	return raw
}

func (f *apiFixture) do(t *testing.T, method, path, apiKey string, body interface{}, headers ...string) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if raw, ok := body.([]byte); ok {
		reader = bytes.NewReader(raw)
	} else if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]interface{}{}
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(data) > 0 {
		_ = json.Unmarshal(data, &out)
	}
	return resp.StatusCode, out
}

func sign(payload []byte) string {
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestAPIRequiresKey(t *testing.T) {
	f := newAPIFixture(t)

	status, body := f.do(t, http.MethodGet, "/api/v1/subscriptions", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "unauthorized", body["error"])

	status, _ = f.do(t, http.MethodGet, "/api/v1/subscriptions", "pk_wrong", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestCreateSubscriptionEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	p1 := dbtest.SeedProperty(t, f.db, f.owner.ID, "Casa")
	p2 := dbtest.SeedProperty(t, f.db, f.owner.ID, "Apto")

	status, body := f.do(t, http.MethodPost, "/api/v1/subscriptions", f.ownerKey, fiber.Map{
		"plan_id":              f.plan.ID,
		"property_ids":         []uint{p1.ID, p2.ID},
		"payment_method_token": "tok_123",
	})
	require.Equal(t, http.StatusCreated, status, body)

	sub, ok := body["subscription"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "pending", sub["status"])
	assert.Equal(t, "sub_remote_42", sub["pagarme_subscription_id"])
	total, err := decimal.NewFromString(fmt.Sprint(sub["total_amount"]))
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(100)))

	status, body = f.do(t, http.MethodGet, "/api/v1/subscriptions", f.ownerKey, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["subscriptions"], 1)
}

func TestCreateSubscriptionValidation(t *testing.T) {
	f := newAPIFixture(t)

	status, body := f.do(t, http.MethodPost, "/api/v1/subscriptions", f.ownerKey, fiber.Map{
		"property_ids":         []uint{1},
		"payment_method_token": "tok_123",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_input", body["error"])

	details, ok := body["details"].([]interface{})
	require.True(t, ok)
	require.NotEmpty(t, details)
	assert.Equal(t, "plan_id", details[0].(map[string]interface{})["field"])

	status, _ = f.do(t, http.MethodPost, "/api/v1/subscriptions", f.ownerKey, []byte("{not json"))
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestCreateSubscriptionProviderFailure(t *testing.T) {
	f := newAPIFixture(t)
	f.payments.err = &gateway.ProviderError{Provider: "pagarme", Operation: "create_subscription", StatusCode: 422, Details: map[string]interface{}{"message": "card declined"}}
	p1 := dbtest.SeedProperty(t, f.db, f.owner.ID, "Casa")

	status, body := f.do(t, http.MethodPost, "/api/v1/subscriptions", f.ownerKey, fiber.Map{
		"plan_id":              f.plan.ID,
		"property_ids":         []uint{p1.ID},
		"payment_method_token": "tok_123",
	})
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, "external_provider_error", body["error"])

	var count int64
	require.NoError(t, f.db.Model(&models.Subscription{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestShipmentEndpointsAreAdminOnly(t *testing.T) {
	f := newAPIFixture(t)

	status, _ := f.do(t, http.MethodPost, "/api/v1/shipments", f.ownerKey, fiber.Map{"subscription_id": 1, "property_id": 1})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = f.do(t, http.MethodPost, "/api/v1/shipments/generate-label", f.ownerKey, fiber.Map{"shipment_id": 1})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = f.do(t, http.MethodGet, "/api/v1/shipments", f.ownerKey, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestShipmentFlow(t *testing.T) {
	f := newAPIFixture(t)
	prop := dbtest.SeedProperty(t, f.db, f.owner.ID, "Casa")
	sub := dbtest.SeedSubscription(t, f.db, f.owner.ID, f.plan.ID, models.SubscriptionActive, "sub_x", prop.ID)

	status, body := f.do(t, http.MethodPost, "/api/v1/shipments", f.adminKey, fiber.Map{
		"subscription_id": sub.ID,
		"property_id":     prop.ID,
	})
	require.Equal(t, http.StatusCreated, status, body)
	created := body["shipment"].(map[string]interface{})
	assert.Equal(t, "pending", created["status"])
	assert.Equal(t, models.DefaultShippingService, created["shipping_service"])
	shipmentID := uint(created["id"].(float64))

	status, body = f.do(t, http.MethodPost, "/api/v1/shipments/generate-label", f.adminKey, fiber.Map{"shipment_id": shipmentID})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "BR123456", body["tracking_code"])
	assert.Equal(t, "https://labels.example.com/1.pdf", body["label_ref"])

	status, body = f.do(t, http.MethodPut, fmt.Sprintf("/api/v1/shipments/%d/status", shipmentID), f.adminKey, fiber.Map{"status": "entregue"})
	require.Equal(t, http.StatusOK, status, body)
	updated := body["shipment"].(map[string]interface{})
	assert.Equal(t, "delivered", updated["status"])
	assert.NotNil(t, updated["shipped_at"])
	assert.NotNil(t, updated["delivered_at"])

	status, body = f.do(t, http.MethodPut, fmt.Sprintf("/api/v1/shipments/%d/status", shipmentID), f.adminKey, fiber.Map{"status": "lost"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_input", body["error"])

	status, body = f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/shipments/%d", shipmentID), f.ownerKey, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.NotNil(t, body["shipment"])
}

func TestPaymentWebhookEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	sub := dbtest.SeedSubscription(t, f.db, f.owner.ID, f.plan.ID, models.SubscriptionPending, "sub_remote_7")

	payload := []byte(`{"id":"sub_remote_7","status":"active","object":"subscription"}`)
	status, body := f.do(t, http.MethodPost, "/api/v1/subscriptions/webhook", "", payload, "X-Hub-Signature", sign(payload))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["received"])

	var stored models.Subscription
	require.NoError(t, f.db.First(&stored, sub.ID).Error)
	assert.Equal(t, models.SubscriptionActive, stored.Status)

	unknown := []byte(`{"id":"sub_nobody","status":"canceled"}`)
	status, body = f.do(t, http.MethodPost, "/api/v1/subscriptions/webhook", "", unknown, "X-Hub-Signature", sign(unknown))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["received"])

	status, _ = f.do(t, http.MethodPost, "/api/v1/subscriptions/webhook", "", payload, "X-Hub-Signature", "sha256=00")
	assert.Equal(t, http.StatusUnauthorized, status)

	broken := []byte("{oops")
	status, _ = f.do(t, http.MethodPost, "/api/v1/subscriptions/webhook", "", broken, "X-Hub-Signature", sign(broken))
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestTrackingWebhookEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	prop := dbtest.SeedProperty(t, f.db, f.owner.ID, "Casa")
	sub := dbtest.SeedSubscription(t, f.db, f.owner.ID, f.plan.ID, models.SubscriptionActive, "sub_y", prop.ID)
	sh := dbtest.SeedShipment(t, f.db, sub.ID, prop.ID, "BR999")

	payload := []byte(`{"tracking":"BR999","status":"delivered"}`)
	status, body := f.do(t, http.MethodPost, "/api/v1/shipments/tracking-webhook", "", payload, "X-Delivery-Id", "dlv-1")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["received"])

	var stored models.Shipment
	require.NoError(t, f.db.First(&stored, sh.ID).Error)
	assert.Equal(t, models.ShipmentDelivered, stored.Status)
	assert.NotNil(t, stored.DeliveredAt)

	status, body = f.do(t, http.MethodPost, "/api/v1/shipments/tracking-webhook", "", payload, "X-Delivery-Id", "dlv-1")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["duplicate"])
}

func TestHealthEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	status, body := f.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}
