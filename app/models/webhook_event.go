package models

import "time"

const (
	WebhookChannelPayment  = "payment"
	WebhookChannelShipping = "shipping"
)

// Webhook processing outcomes.
const (
	WebhookOutcomeApplied = "applied"
	WebhookOutcomeDropped = "dropped"
	WebhookOutcomeIgnored = "ignored"
	WebhookOutcomeFailed  = "failed"
	// WebhookOutcomeDuplicate is reported for a repeated delivery id; it is
	// never stored.
	WebhookOutcomeDuplicate = "duplicate"
)

// WebhookEvent stores every provider delivery. Deliveries that carry a
// provider delivery id are deduplicated on (channel, delivery_id).
type WebhookEvent struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Channel         string     `gorm:"type:varchar(20);not null;index:ux_webhook_events_channel_delivery,unique,priority:1" json:"channel"`
	DeliveryID      string     `gorm:"type:varchar(191);not null;index:ux_webhook_events_channel_delivery,unique,priority:2" json:"delivery_id"`
	Reference       string     `gorm:"type:varchar(191);not null;default:'';index" json:"reference"`
	ExternalStatus  string     `gorm:"type:varchar(64);not null;default:''" json:"external_status"`
	PayloadJSON     string     `gorm:"type:longtext;not null" json:"payload_json"`
	Outcome         string     `gorm:"type:varchar(20);not null;default:''" json:"outcome"`
	ProcessedAt     *time.Time `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	ProcessingError string     `gorm:"type:text" json:"processing_error"`
	CreatedAt       time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
