package shipping

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/zaliuojibanga/shop-core/pkg/db/models"
)

// Carrier transit on top of warehouse dispatch, in business days.
const (
	transitMinDays = 1
	transitMaxDays = 2
)

const holidayLookahead = 60 * 24 * time.Hour

// Estimator derives a delivery date range from the dispatching warehouse's
// lead time plus carrier transit, counting business days only.
type Estimator struct {
	db       *gorm.DB
	holidays HolidaySource
}

// NewEstimator returns a delivery window estimator bound to the database.
func NewEstimator(db *gorm.DB, holidays HolidaySource) *Estimator {
	return &Estimator{db: db, holidays: holidays}
}

// DeliveryWindow estimates the delivery range for an order placed now,
// shipped from the primary active warehouse.
func (e *Estimator) DeliveryWindow(ctx context.Context, countryCode string, now time.Time) (Window, error) {
	dispatchMin, dispatchMax := 0, 0

	var warehouse models.Warehouse
	err := e.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("sort_order ASC, code ASC").
		First(&warehouse).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return Window{}, err
	}
	if err == nil {
		dispatchMin = warehouse.DispatchDaysMin
		dispatchMax = warehouse.DispatchDaysMax
	}

	var holidays []time.Time
	if e.holidays != nil {
		holidays, err = e.holidays.HolidaysBetween(ctx, countryCode, now, now.Add(holidayLookahead))
		if err != nil {
			return Window{}, err
		}
	}

	return EstimateWindow(now, dispatchMin+transitMinDays, dispatchMax+transitMaxDays, holidays), nil
}
