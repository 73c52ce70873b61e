package repository

import (
	"gorm.io/gorm"

	"github.com/ManuelReschke/PropKit/app/models"
)

type propertyRepository struct {
	db *gorm.DB
}

// NewPropertyRepository creates a new property repository instance
func NewPropertyRepository(db *gorm.DB) PropertyRepository {
	return &propertyRepository{db: db}
}

func (r *propertyRepository) GetByID(id uint) (*models.Property, error) {
	var property models.Property
	if err := r.db.First(&property, id).Error; err != nil {
		return nil, err
	}
	return &property, nil
}

// FindOwnedByIDs returns the subset of ids that exist and belong to ownerID.
// Callers compare the result length with len(ids) to detect foreign or
// missing properties.
func (r *propertyRepository) FindOwnedByIDs(ownerID uint, ids []uint) ([]models.Property, error) {
	var properties []models.Property
	if len(ids) == 0 {
		return properties, nil
	}
	err := r.db.Where("id IN ? AND user_id = ?", ids, ownerID).Order("id ASC").Find(&properties).Error
	return properties, err
}

// GetInSubscription returns the property only if it is associated with the subscription
func (r *propertyRepository) GetInSubscription(propertyID, subscriptionID uint) (*models.Property, error) {
	var property models.Property
	err := r.db.
		Joins("JOIN subscription_properties ON subscription_properties.property_id = properties.id").
		Where("properties.id = ? AND subscription_properties.subscription_id = ?", propertyID, subscriptionID).
		First(&property).Error
	if err != nil {
		return nil, err
	}
	return &property, nil
}

type propertyWithSubscription struct {
	models.Property
	SubscriptionID uint
}

// FindBySubscriptionIDs loads the associated properties of several subscriptions in one query
func (r *propertyRepository) FindBySubscriptionIDs(subscriptionIDs []uint) (map[uint][]models.Property, error) {
	out := make(map[uint][]models.Property, len(subscriptionIDs))
	if len(subscriptionIDs) == 0 {
		return out, nil
	}

	var rows []propertyWithSubscription
	err := r.db.Table("properties").
		Select("properties.*, subscription_properties.subscription_id AS subscription_id").
		Joins("JOIN subscription_properties ON subscription_properties.property_id = properties.id").
		Where("subscription_properties.subscription_id IN ?", subscriptionIDs).
		Order("properties.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.SubscriptionID] = append(out[row.SubscriptionID], row.Property)
	}
	return out, nil
}
