package models

import "time"

type IntentStatus string

const (
	IntentPending   IntentStatus = "pending"
	IntentCompleted IntentStatus = "completed"
	IntentFailed    IntentStatus = "failed"
	// IntentOrphaned means the provider accepted the call but the local commit
	// failed, so a remote object exists without a local record.
	IntentOrphaned IntentStatus = "orphaned"
)

const (
	IntentOpCreateSubscription = "payment.create_subscription"
	IntentOpPurchaseLabel      = "shipping.purchase_label"
)

// ExternalCallIntent is written before a call to a payment or shipping
// provider and resolved once the local outcome is known.
type ExternalCallIntent struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	Key         string       `gorm:"type:varchar(36);not null;uniqueIndex" json:"key"`
	Operation   string       `gorm:"type:varchar(64);not null;index" json:"operation"`
	Status      IntentStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	UserID      uint         `gorm:"not null;default:0" json:"user_id"`
	SubjectID   uint         `gorm:"not null;default:0" json:"subject_id"`
	ExternalRef string       `gorm:"type:varchar(191);not null;default:''" json:"external_ref"`
	Error       string       `gorm:"type:text" json:"error"`
	ResolvedAt  *time.Time   `gorm:"type:timestamp;default:null" json:"resolved_at,omitempty"`
	CreatedAt   time.Time    `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}
