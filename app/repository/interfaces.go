package repository

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ManuelReschke/PropKit/app/models"
	"github.com/ManuelReschke/PropKit/internal/pkg/lifecycle"
)

// UserRepository defines the user lookups the orchestration core needs,
// plus API key rotation for the operator CLI
type UserRepository interface {
	GetByID(id uint) (*models.User, error)
	GetByAPIKeyHash(hash string) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	UpdateAPIKeyHash(id uint, hash string) error
}

// PlanRepository defines the plan lookups the orchestration core needs
type PlanRepository interface {
	GetByID(id uint) (*models.Plan, error)
}

// PropertyRepository defines property lookups, including the subscription join checks
type PropertyRepository interface {
	GetByID(id uint) (*models.Property, error)
	FindOwnedByIDs(ownerID uint, ids []uint) ([]models.Property, error)
	GetInSubscription(propertyID, subscriptionID uint) (*models.Property, error)
	FindBySubscriptionIDs(subscriptionIDs []uint) (map[uint][]models.Property, error)
}

// SubscriptionRepository defines the interface for subscription-related database operations
type SubscriptionRepository interface {
	Create(sub *models.Subscription) error
	GetByID(id uint) (*models.Subscription, error)
	GetByExternalID(externalID string) (*models.Subscription, error)
	List(ownerID uint) ([]models.Subscription, error)
	UpdatePlanAndAmount(id, planID uint, amount decimal.Decimal) error
	UpdateStatus(id uint, status models.SubscriptionStatus) error
	ReplaceProperties(id uint, propertyIDs []uint) error
	CountProperties(id uint) (int64, error)
}

// ShipmentRepository defines the interface for shipment-related database operations
type ShipmentRepository interface {
	Create(shipment *models.Shipment) error
	GetByID(id uint) (*models.Shipment, error)
	GetByTrackingCode(trackingCode string) (*models.Shipment, error)
	List(ownerID uint) ([]models.Shipment, error)
	ApplyChange(id uint, change lifecycle.ShipmentChange, now time.Time) error
	SetLabel(id uint, trackingCode, labelRef string) error
}

// WebhookEventRepository defines the delivery log used by the webhook reconciler
type WebhookEventRepository interface {
	CreateIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error)
	MarkProcessed(id uint, outcome, processingError string) error
}

// IntentRepository defines the interface for external-call intent records
type IntentRepository interface {
	Create(intent *models.ExternalCallIntent) error
	GetByKey(key string) (*models.ExternalCallIntent, error)
	Resolve(key string, status models.IntentStatus, externalRef, errMsg string) error
	ListByStatus(status models.IntentStatus, createdBefore time.Time) ([]models.ExternalCallIntent, error)
}

// Repositories struct holds all repository instances bound to one database handle
type Repositories struct {
	User         UserRepository
	Plan         PlanRepository
	Property     PropertyRepository
	Subscription SubscriptionRepository
	Shipment     ShipmentRepository
	WebhookEvent WebhookEventRepository
	Intent       IntentRepository
}

// NewRepositories creates all repositories on top of db. Passing a
// transaction handle scopes every repository to that transaction.
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Plan:         NewPlanRepository(db),
		Property:     NewPropertyRepository(db),
		Subscription: NewSubscriptionRepository(db),
		Shipment:     NewShipmentRepository(db),
		WebhookEvent: NewWebhookEventRepository(db),
		Intent:       NewIntentRepository(db),
	}
}
