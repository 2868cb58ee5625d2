package shipping

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/zaliuojibanga/shop-core/pkg/db/models"
	pkgerrors "github.com/zaliuojibanga/shop-core/pkg/errors"
)

func newShippingDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:shipping_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.ShippingMethod{}, &models.ShippingRate{}, &models.Holiday{}))
	return conn
}

func TestMethodByCodeAndRate(t *testing.T) {
	db := newShippingDB(t)
	ctx := context.Background()
	repo := NewRepository(db)

	method := models.ShippingMethod{
		ID:                  uuid.New(),
		Code:                "lpexpress",
		Name:                "LP Express locker",
		RequiresPickupPoint: true,
		IsActive:            true,
	}
	require.NoError(t, db.Create(&method).Error)
	require.NoError(t, db.Create(&models.ShippingRate{
		ID:          uuid.New(),
		MethodID:    method.ID,
		CountryCode: "LT",
		NetPrice:    decimal.RequireFromString("2.89"),
		IsActive:    true,
	}).Error)

	found, err := repo.MethodByCode(ctx, "lpexpress")
	require.NoError(t, err)
	assert.True(t, found.RequiresPickupPoint)

	rate, err := repo.RateFor(ctx, method.ID, "LT")
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.RequireFromString("2.89")), "rate %s", rate)
}

func TestMethodByCode_UnknownIsNotFound(t *testing.T) {
	db := newShippingDB(t)

	_, err := NewRepository(db).MethodByCode(context.Background(), "teleport")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestRateFor_MissingCountryIsConfigurationError(t *testing.T) {
	db := newShippingDB(t)

	_, err := NewRepository(db).RateFor(context.Background(), uuid.New(), "DE")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConfiguration))
}

func TestEstimateWindow_SkipsWeekends(t *testing.T) {
	// Friday 2026-01-09; +1..+3 business days lands Mon..Wed.
	friday := time.Date(2026, 1, 9, 0, 0, 0, 0, time.UTC)

	window := EstimateWindow(friday, 1, 3, nil)
	assert.Equal(t, time.Monday, window.Min.Weekday())
	assert.Equal(t, 12, window.Min.Day())
	assert.Equal(t, time.Wednesday, window.Max.Weekday())
	assert.Equal(t, 14, window.Max.Day())
}

func TestEstimateWindow_SkipsHolidays(t *testing.T) {
	// Monday 2026-01-12 with Tuesday a holiday: +1 business day is Wednesday.
	monday := time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC)
	holiday := time.Date(2026, 1, 13, 0, 0, 0, 0, time.UTC)

	window := EstimateWindow(monday, 1, 1, []time.Time{holiday})
	assert.Equal(t, 14, window.Min.Day())
	assert.Equal(t, window.Min, window.Max)
}

func TestEstimateWindow_StartOnWeekendRollsForward(t *testing.T) {
	saturday := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	window := EstimateWindow(saturday, 0, 0, nil)
	assert.Equal(t, time.Monday, window.Min.Weekday())
	assert.Equal(t, window.Min, window.Max)
}

func TestHolidaysBetween(t *testing.T) {
	db := newShippingDB(t)
	ctx := context.Background()

	require.NoError(t, db.Create(&models.Holiday{
		ID:          uuid.New(),
		Date:        time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC),
		CountryCode: "LT",
		Name:        "Independence Day",
		IsActive:    true,
	}).Error)
	require.NoError(t, db.Create(&models.Holiday{
		ID:          uuid.New(),
		Date:        time.Date(2026, 7, 6, 0, 0, 0, 0, time.UTC),
		CountryCode: "LT",
		Name:        "Statehood Day",
		IsActive:    true,
	}).Error)

	dates, err := NewHolidaySource(db).HolidaysBetween(ctx, "LT",
		time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, dates, 1)
	assert.Equal(t, 16, dates[0].Day())
}
