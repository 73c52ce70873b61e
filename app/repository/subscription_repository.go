package repository

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ManuelReschke/PropKit/app/models"
)

type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a new subscription repository instance
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) Create(sub *models.Subscription) error {
	return r.db.Create(sub).Error
}

func (r *subscriptionRepository) GetByID(id uint) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.First(&sub, id).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

// GetByExternalID finds the subscription correlated with a payment provider id
func (r *subscriptionRepository) GetByExternalID(externalID string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.Where("pagarme_subscription_id = ?", externalID).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

// List returns subscriptions newest first. ownerID 0 lists every owner.
func (r *subscriptionRepository) List(ownerID uint) ([]models.Subscription, error) {
	var subs []models.Subscription
	q := r.db.Order("created_at DESC").Order("id DESC")
	if ownerID != 0 {
		q = q.Where("user_id = ?", ownerID)
	}
	err := q.Find(&subs).Error
	return subs, err
}

func (r *subscriptionRepository) UpdatePlanAndAmount(id, planID uint, amount decimal.Decimal) error {
	return r.db.Model(&models.Subscription{}).Where("id = ?", id).Updates(map[string]interface{}{
		"plan_id":      planID,
		"total_amount": amount,
	}).Error
}

func (r *subscriptionRepository) UpdateStatus(id uint, status models.SubscriptionStatus) error {
	return r.db.Model(&models.Subscription{}).Where("id = ?", id).Update("status", status).Error
}

// ReplaceProperties deletes every association of the subscription and inserts
// the given set. It must run inside a transaction.
func (r *subscriptionRepository) ReplaceProperties(id uint, propertyIDs []uint) error {
	if err := r.db.Where("subscription_id = ?", id).Delete(&models.SubscriptionProperty{}).Error; err != nil {
		return err
	}
	if len(propertyIDs) == 0 {
		return nil
	}
	links := make([]models.SubscriptionProperty, 0, len(propertyIDs))
	for _, pid := range propertyIDs {
		links = append(links, models.SubscriptionProperty{SubscriptionID: id, PropertyID: pid})
	}
	return r.db.Create(&links).Error
}

func (r *subscriptionRepository) CountProperties(id uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.SubscriptionProperty{}).Where("subscription_id = ?", id).Count(&count).Error
	return count, err
}
