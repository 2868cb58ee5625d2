package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// The sqlite driver backs every repository test, so the whole model set must
// AutoMigrate on it. Function defaults in struct tags would break that; IDs
// are always assigned in Go and the postgres defaults live in the goose
// migrations.
func TestAutoMigrateAllModelsOnSQLite(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, conn.AutoMigrate(
		&User{}, &UserAddress{},
		&Variant{}, &TaxClass{}, &TaxRate{},
		&Warehouse{}, &Holiday{},
		&InventoryItem{}, &InventoryAllocation{},
		&Cart{}, &CartItem{},
		&Order{}, &OrderLine{}, &OrderFee{}, &OrderDiscount{}, &OrderConsent{},
		&PaymentIntent{},
		&Coupon{}, &CouponRedemption{},
		&PromoRule{}, &PromoRuleCondition{},
		&FeeRule{},
		&ShippingMethod{}, &ShippingRate{},
		&OutboxEvent{},
	))

	first := Order{ID: uuid.New(), UserID: uuid.New(), Currency: "EUR"}
	second := Order{ID: uuid.New(), UserID: first.UserID, Currency: "EUR"}
	require.NoError(t, conn.Create(&first).Error)
	require.NoError(t, conn.Create(&second).Error)
}
