// Package dbtest opens throwaway in-memory databases for package tests.
package dbtest

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ManuelReschke/PropKit/app/models"
	"github.com/ManuelReschke/PropKit/internal/pkg/database"
)

// Open returns a migrated in-memory database. A single connection keeps the
// in-memory schema alive for the whole test.
func Open(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

func SeedUser(t *testing.T, db *gorm.DB, name, role string) *models.User {
	t.Helper()
	user := &models.User{
		Name:   name,
		Email:  name + "@example.com",
		Role:   role,
		Status: models.STATUS_ACTIVE,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func SeedPlan(t *testing.T, db *gorm.DB, name, price string) *models.Plan {
	t.Helper()
	plan := &models.Plan{
		Name:             name,
		PricePerProperty: decimal.RequireFromString(price),
		ItemsIncluded:    []string{"detergent", "cloths"},
	}
	require.NoError(t, db.Create(plan).Error)
	return plan
}

func SeedProperty(t *testing.T, db *gorm.DB, ownerID uint, name string) *models.Property {
	t.Helper()
	property := &models.Property{
		UserID:  ownerID,
		Name:    name,
		Address: "Rua das Flores 10",
		City:    "Sao Paulo",
		State:   "SP",
		ZipCode: "01001-000",
	}
	require.NoError(t, db.Create(property).Error)
	return property
}

// SeedSubscription inserts a subscription with its association rows directly.
func SeedSubscription(t *testing.T, db *gorm.DB, ownerID, planID uint, status models.SubscriptionStatus, externalID string, propertyIDs ...uint) *models.Subscription {
	t.Helper()
	sub := &models.Subscription{
		UserID:      ownerID,
		PlanID:      planID,
		Status:      status,
		TotalAmount: decimal.Zero,
	}
	if externalID != "" {
		sub.PagarmeSubscriptionID = &externalID
	}
	require.NoError(t, db.Create(sub).Error)
	for _, pid := range propertyIDs {
		require.NoError(t, db.Create(&models.SubscriptionProperty{SubscriptionID: sub.ID, PropertyID: pid}).Error)
	}
	return sub
}

func SeedShipment(t *testing.T, db *gorm.DB, subscriptionID, propertyID uint, trackingCode string) *models.Shipment {
	t.Helper()
	shipment := &models.Shipment{
		SubscriptionID:  subscriptionID,
		PropertyID:      propertyID,
		Address:         "Rua das Flores 10, Sao Paulo, SP, 01001-000",
		Status:          models.ShipmentPending,
		ShippingService: models.DefaultShippingService,
	}
	if trackingCode != "" {
		shipment.TrackingCode = &trackingCode
	}
	require.NoError(t, db.Create(shipment).Error)
	return shipment
}
