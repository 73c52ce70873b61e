package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/ManuelReschke/PropKit/app/models"
)

type intentRepository struct {
	db *gorm.DB
}

// NewIntentRepository creates a new external-call intent repository
func NewIntentRepository(db *gorm.DB) IntentRepository {
	return &intentRepository{db: db}
}

func (r *intentRepository) Create(intent *models.ExternalCallIntent) error {
	return r.db.Create(intent).Error
}

func (r *intentRepository) GetByKey(key string) (*models.ExternalCallIntent, error) {
	var intent models.ExternalCallIntent
	if err := r.db.Where("`key` = ?", key).First(&intent).Error; err != nil {
		return nil, err
	}
	return &intent, nil
}

// Resolve moves a pending intent to its final status. Already resolved
// intents are left untouched.
func (r *intentRepository) Resolve(key string, status models.IntentStatus, externalRef, errMsg string) error {
	now := time.Now()
	return r.db.Model(&models.ExternalCallIntent{}).
		Where("`key` = ? AND status = ?", key, models.IntentPending).
		Updates(map[string]interface{}{
			"status":       status,
			"external_ref": externalRef,
			"error":        errMsg,
			"resolved_at":  &now,
		}).Error
}

// ListByStatus returns intents in status created before the cutoff, oldest first.
func (r *intentRepository) ListByStatus(status models.IntentStatus, createdBefore time.Time) ([]models.ExternalCallIntent, error) {
	var intents []models.ExternalCallIntent
	err := r.db.Where("status = ? AND created_at < ?", status, createdBefore).
		Order("created_at ASC").
		Find(&intents).Error
	return intents, err
}
