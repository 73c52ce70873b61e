package melhorenvio

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/PropKit/internal/pkg/env"
	"github.com/ManuelReschke/PropKit/internal/pkg/gateway"
	"github.com/ManuelReschke/PropKit/internal/pkg/metrics"
)

const (
	ProviderName      = "melhorenvio"
	productionBaseURL = "https://melhorenvio.com.br/api/v2/me"
	sandboxBaseURL    = "https://sandbox.melhorenvio.com.br/api/v2/me"

	opPurchaseLabel = "purchase_label"
)

// Supply kit parcel. Every shipment carries the same kit.
const (
	kitServiceID  = 1 // Correios PAC
	kitAgencyID   = 49
	kitName       = "Kit de Limpeza"
	kitValue      = 30.00
	kitHeightCm   = 10
	kitWidthCm    = 20
	kitLengthCm   = 30
	kitWeightKg   = 1.0
	placeholderNo = "S/N"
)

var nonDigits = regexp.MustCompile(`\D`)

// Sender is the dispatching warehouse printed on every label.
type Sender struct {
	Name            string `json:"name"`
	Phone           string `json:"phone"`
	Email           string `json:"email"`
	Document        string `json:"document"`
	CompanyDocument string `json:"company_document"`
	StateRegister   string `json:"state_register"`
	PostalCode      string `json:"postal_code"`
	Address         string `json:"address"`
	Number          string `json:"location_number"`
	Complement      string `json:"complement"`
	District        string `json:"district"`
	City            string `json:"city"`
	StateAbbr       string `json:"state_abbr"`
	CountryID       string `json:"country_id"`
}

// Client talks to the Melhor Envio shipment API.
type Client struct {
	Token      string
	BaseURL    string
	Sender     Sender
	HTTPClient *http.Client
}

var _ gateway.ShippingGateway = (*Client)(nil)

func NewClientFromEnv() *Client {
	baseURL := productionBaseURL
	if env.GetBool("MELHOR_ENVIO_SANDBOX", false) {
		baseURL = sandboxBaseURL
	}
	return &Client{
		Token:   strings.TrimSpace(env.GetEnv("MELHOR_ENVIO_TOKEN", "")),
		BaseURL: strings.TrimSpace(env.GetEnv("MELHOR_ENVIO_BASE_URL", baseURL)),
		Sender: Sender{
			Name:            env.GetEnv("MELHOR_ENVIO_FROM_NAME", "PropKit"),
			Phone:           env.GetEnv("MELHOR_ENVIO_FROM_PHONE", "11999999999"),
			Email:           env.GetEnv("MELHOR_ENVIO_FROM_EMAIL", "contato@propkit.com.br"),
			Document:        env.GetEnv("MELHOR_ENVIO_FROM_DOCUMENT", ""),
			CompanyDocument: env.GetEnv("MELHOR_ENVIO_FROM_COMPANY_DOCUMENT", ""),
			StateRegister:   env.GetEnv("MELHOR_ENVIO_FROM_STATE_REGISTER", ""),
			PostalCode:      env.GetEnv("MELHOR_ENVIO_FROM_POSTAL_CODE", "01310-100"),
			Address:         env.GetEnv("MELHOR_ENVIO_FROM_ADDRESS", "Av. Paulista, 1000"),
			Number:          env.GetEnv("MELHOR_ENVIO_FROM_NUMBER", "1000"),
			Complement:      env.GetEnv("MELHOR_ENVIO_FROM_COMPLEMENT", ""),
			District:        env.GetEnv("MELHOR_ENVIO_FROM_DISTRICT", "Bela Vista"),
			City:            env.GetEnv("MELHOR_ENVIO_FROM_CITY", "São Paulo"),
			StateAbbr:       env.GetEnv("MELHOR_ENVIO_FROM_STATE", "SP"),
			CountryID:       "BR",
		},
		HTTPClient: &http.Client{
			Timeout: env.GetDuration("MELHOR_ENVIO_TIMEOUT", 20*time.Second),
		},
	}
}

type destination struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	PostalCode string `json:"postal_code"`
	Address    string `json:"address"`
	Number     string `json:"location_number"`
	District   string `json:"district"`
	City       string `json:"city"`
	StateAbbr  string `json:"state_abbr"`
	CountryID  string `json:"country_id"`
}

type product struct {
	Name         string  `json:"name"`
	Quantity     int     `json:"quantity"`
	UnitaryValue float64 `json:"unitary_value"`
}

type volume struct {
	Height int     `json:"height"`
	Width  int     `json:"width"`
	Length int     `json:"length"`
	Weight float64 `json:"weight"`
}

type options struct {
	InsuranceValue float64 `json:"insurance_value"`
	Receipt        bool    `json:"receipt"`
	OwnHand        bool    `json:"own_hand"`
	Reverse        bool    `json:"reverse"`
	NonCommercial  bool    `json:"non_commercial"`
	Tag            []tag   `json:"tags,omitempty"`
}

type tag struct {
	Tag string `json:"tag"`
}

type cartRequest struct {
	Service  int         `json:"service"`
	Agency   int         `json:"agency"`
	From     Sender      `json:"from"`
	To       destination `json:"to"`
	Products []product   `json:"products"`
	Volumes  []volume    `json:"volumes"`
	Options  options     `json:"options"`
}

type cartResponse struct {
	ID       string `json:"id"`
	Protocol string `json:"protocol"`
	Tracking string `json:"tracking"`
}

type ordersRequest struct {
	Orders []string `json:"orders"`
}

type generateResponse struct {
	URL      string `json:"url"`
	Tracking string `json:"tracking"`
}

// PurchaseLabel adds the kit to the cart, pays for it and generates the label.
// A failure after checkout leaves a paid order at the provider; the returned
// error then still carries the order id.
func (c *Client) PurchaseLabel(ctx context.Context, req gateway.LabelRequest) (*gateway.Label, error) {
	start := time.Now()
	label, err := c.purchaseLabel(ctx, req)
	metrics.ObserveGatewayCall(ProviderName, opPurchaseLabel, err, time.Since(start))
	if err != nil {
		log.Warnf("[MelhorEnvio] purchase label for shipment %d failed: %v", req.ShipmentID, err)
		return label, err
	}
	log.Infof("[MelhorEnvio] purchased label for shipment %d (order=%s tracking=%s)", req.ShipmentID, label.OrderID, label.TrackingCode)
	return label, nil
}

func (c *Client) purchaseLabel(ctx context.Context, req gateway.LabelRequest) (*gateway.Label, error) {
	if c.Token == "" {
		return nil, &gateway.ProviderError{Provider: ProviderName, Operation: opPurchaseLabel, Err: errors.New("MELHOR_ENVIO_TOKEN is not configured")}
	}

	base := strings.TrimRight(c.BaseURL, "/")
	headers := map[string]string{
		"Authorization": "Bearer " + c.Token,
		"User-Agent":    "PropKit (" + c.Sender.Email + ")",
	}

	cart := cartRequest{
		Service: kitServiceID,
		Agency:  kitAgencyID,
		From:    c.Sender,
		To: destination{
			Name:       req.Recipient.Name,
			Email:      req.Recipient.Email,
			PostalCode: nonDigits.ReplaceAllString(req.Recipient.ZipCode, ""),
			Address:    req.Recipient.Address,
			Number:     placeholderNo,
			District:   "Centro",
			City:       req.Recipient.City,
			StateAbbr:  req.Recipient.State,
			CountryID:  "BR",
		},
		Products: []product{{Name: kitName, Quantity: 1, UnitaryValue: kitValue}},
		Volumes:  []volume{{Height: kitHeightCm, Width: kitWidthCm, Length: kitLengthCm, Weight: kitWeightKg}},
		Options: options{
			InsuranceValue: kitValue,
			Tag:            []tag{{Tag: req.IdempotencyKey}},
		},
	}

	var order cartResponse
	if err := gateway.DoJSON(ctx, c.HTTPClient, gateway.JSONCall{
		Provider: ProviderName, Operation: opPurchaseLabel, Method: http.MethodPost,
		URL: base + "/cart", Headers: headers, Body: cart,
	}, &order); err != nil {
		return nil, err
	}
	if order.ID == "" {
		return nil, &gateway.ProviderError{Provider: ProviderName, Operation: opPurchaseLabel, Err: errors.New("cart response did not include an order id")}
	}

	orders := ordersRequest{Orders: []string{order.ID}}
	label := &gateway.Label{OrderID: order.ID, TrackingCode: order.Tracking}

	if err := gateway.DoJSON(ctx, c.HTTPClient, gateway.JSONCall{
		Provider: ProviderName, Operation: opPurchaseLabel, Method: http.MethodPost,
		URL: base + "/shipment/checkout", Headers: headers, Body: orders,
	}, nil); err != nil {
		return nil, err
	}

	var generated generateResponse
	if err := gateway.DoJSON(ctx, c.HTTPClient, gateway.JSONCall{
		Provider: ProviderName, Operation: opPurchaseLabel, Method: http.MethodPost,
		URL: base + "/shipment/generate", Headers: headers, Body: orders,
	}, &generated); err != nil {
		return label, err
	}

	label.LabelURL = generated.URL
	if label.TrackingCode == "" {
		label.TrackingCode = generated.Tracking
	}
	if label.TrackingCode == "" {
		return label, &gateway.ProviderError{Provider: ProviderName, Operation: opPurchaseLabel, Err: errors.New("no tracking code returned for order " + order.ID)}
	}
	return label, nil
}
