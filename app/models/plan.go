package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Plan is a priced service tier. Plans are maintained outside the
// orchestration core; subscriptions only read the per-property price.
type Plan struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	Name             string          `gorm:"type:varchar(255);not null" json:"name"`
	Description      string          `gorm:"type:text" json:"description"`
	PricePerProperty decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price_per_property"`
	ItemsIncluded    []string        `gorm:"type:text;serializer:json" json:"items_included"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// TotalFor returns the subscription amount for the given number of properties.
func (p *Plan) TotalFor(propertyCount int) decimal.Decimal {
	return p.PricePerProperty.Mul(decimal.NewFromInt(int64(propertyCount)))
}
