package models

import "time"

type ShipmentStatus string

const (
	ShipmentPending   ShipmentStatus = "pending"
	ShipmentInTransit ShipmentStatus = "in_transit"
	ShipmentDelivered ShipmentStatus = "delivered"
	ShipmentCanceled  ShipmentStatus = "canceled"
)

const DefaultShippingService = "Melhor Envio"

func (s ShipmentStatus) IsValid() bool {
	switch s {
	case ShipmentPending, ShipmentInTransit, ShipmentDelivered, ShipmentCanceled:
		return true
	default:
		return false
	}
}

// Shipment is one supply-kit delivery for a property of a subscription.
// Address is captured at creation time and never re-derived from the property.
type Shipment struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	SubscriptionID  uint           `gorm:"not null;index" json:"subscription_id"`
	PropertyID      uint           `gorm:"not null;index" json:"property_id"`
	Address         string         `gorm:"type:varchar(600);not null" json:"address"`
	Status          ShipmentStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ShippingService string         `gorm:"type:varchar(100);not null" json:"shipping_service"`
	TrackingCode    *string        `gorm:"type:varchar(100);uniqueIndex" json:"tracking_code"`
	LabelRef        *string        `gorm:"type:varchar(500)" json:"label_ref,omitempty"`
	ShippedAt       *time.Time     `gorm:"type:timestamp;default:null" json:"shipped_at"`
	DeliveredAt     *time.Time     `gorm:"type:timestamp;default:null" json:"delivered_at"`
	CreatedAt       time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}
