package lifecycle

import (
	"strings"

	"github.com/ManuelReschke/PropKit/app/models"
)

// PaymentStatusToSubscriptionStatus maps a payment provider subscription
// status onto the local subscription status. Unknown values map to pending.
func PaymentStatusToSubscriptionStatus(externalStatus string) models.SubscriptionStatus {
	switch strings.ToLower(strings.TrimSpace(externalStatus)) {
	case "active":
		return models.SubscriptionActive
	case "canceled":
		return models.SubscriptionCanceled
	case "past_due":
		return models.SubscriptionPending
	default:
		return models.SubscriptionPending
	}
}

// CarrierStatusToShipmentStatus maps a carrier tracking status onto the local
// shipment status. Unknown values map to in_transit.
func CarrierStatusToShipmentStatus(externalStatus string) models.ShipmentStatus {
	switch strings.ToLower(strings.TrimSpace(externalStatus)) {
	case "posted":
		return models.ShipmentInTransit
	case "delivered":
		return models.ShipmentDelivered
	case "canceled":
		return models.ShipmentCanceled
	default:
		return models.ShipmentInTransit
	}
}

// ParseShipmentStatus accepts the canonical status names and the legacy
// Portuguese ones still sent by older admin clients.
func ParseShipmentStatus(raw string) (models.ShipmentStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pending", "pendente":
		return models.ShipmentPending, true
	case "in_transit", "em_transporte":
		return models.ShipmentInTransit, true
	case "delivered", "entregue":
		return models.ShipmentDelivered, true
	case "canceled", "cancelado":
		return models.ShipmentCanceled, true
	default:
		return "", false
	}
}
