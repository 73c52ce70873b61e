package models

import (
	"fmt"
	"time"
)

// Property is a real-estate unit owned by a user.
type Property struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Address   string    `gorm:"type:varchar(500);not null" json:"address"`
	City      string    `gorm:"type:varchar(255);not null" json:"city"`
	State     string    `gorm:"type:varchar(2);not null" json:"state"`
	ZipCode   string    `gorm:"type:varchar(9);not null" json:"zip_code"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// FullAddress renders the postal address the way it is stored on shipments.
func (p *Property) FullAddress() string {
	return fmt.Sprintf("%s, %s, %s, %s", p.Address, p.City, p.State, p.ZipCode)
}
