package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/ManuelReschke/PropKit/app/models"
	"github.com/ManuelReschke/PropKit/internal/pkg/lifecycle"
)

type shipmentRepository struct {
	db *gorm.DB
}

// NewShipmentRepository creates a new shipment repository instance
func NewShipmentRepository(db *gorm.DB) ShipmentRepository {
	return &shipmentRepository{db: db}
}

func (r *shipmentRepository) Create(shipment *models.Shipment) error {
	return r.db.Create(shipment).Error
}

func (r *shipmentRepository) GetByID(id uint) (*models.Shipment, error) {
	var shipment models.Shipment
	if err := r.db.First(&shipment, id).Error; err != nil {
		return nil, err
	}
	return &shipment, nil
}

func (r *shipmentRepository) GetByTrackingCode(trackingCode string) (*models.Shipment, error) {
	var shipment models.Shipment
	if err := r.db.Where("tracking_code = ?", trackingCode).First(&shipment).Error; err != nil {
		return nil, err
	}
	return &shipment, nil
}

// List returns shipments newest first. ownerID 0 lists shipments of every owner.
func (r *shipmentRepository) List(ownerID uint) ([]models.Shipment, error) {
	var shipments []models.Shipment
	q := r.db.Model(&models.Shipment{}).Select("shipments.*").
		Order("shipments.created_at DESC").Order("shipments.id DESC")
	if ownerID != 0 {
		q = q.Joins("JOIN subscriptions ON subscriptions.id = shipments.subscription_id").
			Where("subscriptions.user_id = ?", ownerID)
	}
	err := q.Find(&shipments).Error
	return shipments, err
}

// ApplyChange writes the status and stamps the once-only timestamps. The
// stamps are guarded by "IS NULL" so concurrent transitions never overwrite
// an existing timestamp.
func (r *shipmentRepository) ApplyChange(id uint, change lifecycle.ShipmentChange, now time.Time) error {
	if err := r.db.Model(&models.Shipment{}).Where("id = ?", id).Update("status", change.Status).Error; err != nil {
		return err
	}
	if change.StampShipped {
		if err := r.db.Model(&models.Shipment{}).
			Where("id = ? AND shipped_at IS NULL", id).
			Update("shipped_at", now).Error; err != nil {
			return err
		}
	}
	if change.StampDelivered {
		if err := r.db.Model(&models.Shipment{}).
			Where("id = ? AND delivered_at IS NULL", id).
			Update("delivered_at", now).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *shipmentRepository) SetLabel(id uint, trackingCode, labelRef string) error {
	updates := map[string]interface{}{"tracking_code": trackingCode}
	if labelRef != "" {
		updates["label_ref"] = labelRef
	}
	return r.db.Model(&models.Shipment{}).Where("id = ?", id).Updates(updates).Error
}
