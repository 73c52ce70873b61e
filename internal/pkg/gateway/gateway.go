// Package gateway defines the capabilities the orchestration core needs from
// the payment and shipping providers.
package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Customer identifies the paying owner towards the payment provider
type Customer struct {
	Name  string
	Email string
}

// PaymentSubscriptionRequest carries everything needed to open a remote subscription.
type PaymentSubscriptionRequest struct {
	// IdempotencyKey is forwarded so provider-side retries collapse into one subscription.
	IdempotencyKey string
	PlanID         uint
	PaymentToken   string
	Customer       Customer
	UserID         uint
	PropertyCount  int
	TotalAmount    decimal.Decimal
}

// PaymentGateway opens recurring subscriptions at the payment provider.
type PaymentGateway interface {
	CreateSubscription(ctx context.Context, req PaymentSubscriptionRequest) (externalID string, err error)
}

// Recipient is the destination of a supply kit.
type Recipient struct {
	Name    string
	Email   string
	Address string
	City    string
	State   string
	ZipCode string
}

type LabelRequest struct {
	IdempotencyKey string
	ShipmentID     uint
	Recipient      Recipient
}

// Label is a purchased shipping label.
type Label struct {
	OrderID      string
	TrackingCode string
	LabelURL     string
}

// ShippingGateway purchases shipping labels at the carrier aggregator.
type ShippingGateway interface {
	PurchaseLabel(ctx context.Context, req LabelRequest) (*Label, error)
}

// ProviderError is returned when a provider call fails at the transport level
// or answers with an error payload.
type ProviderError struct {
	Provider   string
	Operation  string
	StatusCode int
	// Details is the decoded error payload of the provider, if any.
	Details any
	Err     error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s %s failed: status=%d", e.Provider, e.Operation, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s %s failed: %v", e.Provider, e.Operation, e.Err)
	}
	return fmt.Sprintf("%s %s failed", e.Provider, e.Operation)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// DetailsOf returns the provider payload attached to err, or the error text.
func DetailsOf(err error) any {
	var pe *ProviderError
	if errors.As(err, &pe) {
		if pe.Details != nil {
			return pe.Details
		}
		if pe.Err != nil {
			return pe.Err.Error()
		}
		return pe.Error()
	}
	if err != nil {
		return err.Error()
	}
	return nil
}
