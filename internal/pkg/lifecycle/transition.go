package lifecycle

import (
	"time"

	"github.com/ManuelReschke/PropKit/app/models"
)

// SubscriptionChange is the result of moving a subscription to a new status.
type SubscriptionChange struct {
	From    models.SubscriptionStatus
	Status  models.SubscriptionStatus
	Changed bool
}

// SubscriptionTransition computes the change for moving a subscription to next.
// Every move between known statuses is allowed, including backward ones.
func SubscriptionTransition(current models.SubscriptionStatus, next models.SubscriptionStatus) SubscriptionChange {
	return SubscriptionChange{
		From:    current,
		Status:  next,
		Changed: current != next,
	}
}

// ShipmentChange is the result of moving a shipment to a new status. The
// status is always written; the timestamps are stamped at most once.
type ShipmentChange struct {
	From           models.ShipmentStatus
	Status         models.ShipmentStatus
	StampShipped   bool
	StampDelivered bool
}

// ShipmentTransition computes the change for moving sh to next. shipped_at is
// stamped on the first move into in_transit, delivered_at on the first move
// into delivered. Backward moves are allowed.
func ShipmentTransition(sh *models.Shipment, next models.ShipmentStatus) ShipmentChange {
	return ShipmentChange{
		From:           sh.Status,
		Status:         next,
		StampShipped:   next == models.ShipmentInTransit && sh.ShippedAt == nil,
		StampDelivered: next == models.ShipmentDelivered && sh.DeliveredAt == nil,
	}
}

// Apply writes the change onto an in-memory shipment.
func (c ShipmentChange) Apply(sh *models.Shipment, now time.Time) {
	sh.Status = c.Status
	if c.StampShipped && sh.ShippedAt == nil {
		t := now
		sh.ShippedAt = &t
	}
	if c.StampDelivered && sh.DeliveredAt == nil {
		t := now
		sh.DeliveredAt = &t
	}
}
