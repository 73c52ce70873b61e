package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type SubscriptionStatus string

const (
	SubscriptionPending  SubscriptionStatus = "pending"
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

func (s SubscriptionStatus) IsValid() bool {
	switch s {
	case SubscriptionPending, SubscriptionActive, SubscriptionCanceled:
		return true
	default:
		return false
	}
}

// Subscription is the billing relationship between an owner and a plan.
// TotalAmount always equals plan price times the number of associated
// properties at the time of the last successful write.
type Subscription struct {
	ID                    uint               `gorm:"primaryKey" json:"id"`
	UserID                uint               `gorm:"not null;index" json:"user_id"`
	PlanID                uint               `gorm:"not null;index" json:"plan_id"`
	Status                SubscriptionStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	TotalAmount           decimal.Decimal    `gorm:"type:decimal(10,2);not null" json:"total_amount"`
	PagarmeSubscriptionID *string            `gorm:"type:varchar(191);uniqueIndex" json:"pagarme_subscription_id"`
	CreatedAt             time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time          `gorm:"autoUpdateTime" json:"updated_at"`

	Properties []Property `gorm:"-" json:"properties,omitempty"`
}

// SubscriptionProperty links a subscription to one of its properties. The set
// is replaced as a whole whenever the subscription is updated.
type SubscriptionProperty struct {
	SubscriptionID uint `gorm:"primaryKey;autoIncrement:false" json:"subscription_id"`
	PropertyID     uint `gorm:"primaryKey;autoIncrement:false;index" json:"property_id"`
}
