package shipping

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/zaliuojibanga/shop-core/pkg/db/models"
)

// Window is an estimated delivery date range.
type Window struct {
	Min time.Time
	Max time.Time
}

// HolidaySource lists non-business days for a country.
type HolidaySource interface {
	HolidaysBetween(ctx context.Context, countryCode string, from, to time.Time) ([]time.Time, error)
}

type holidaySource struct {
	db *gorm.DB
}

// NewHolidaySource returns a holiday lookup bound to the database.
func NewHolidaySource(db *gorm.DB) HolidaySource {
	return &holidaySource{db: db}
}

func (h *holidaySource) HolidaysBetween(ctx context.Context, countryCode string, from, to time.Time) ([]time.Time, error) {
	var holidays []models.Holiday
	err := h.db.WithContext(ctx).
		Where("country_code = ? AND is_active = ? AND date >= ? AND date <= ?", countryCode, true, from, to).
		Find(&holidays).Error
	if err != nil {
		return nil, err
	}
	dates := make([]time.Time, 0, len(holidays))
	for _, holiday := range holidays {
		dates = append(dates, holiday.Date)
	}
	return dates, nil
}

// EstimateWindow advances from the start date by minDays and maxDays
// business days, skipping weekends and the provided holidays. Day zero is
// the first business day on or after start.
func EstimateWindow(start time.Time, minDays, maxDays int, holidays []time.Time) Window {
	if maxDays < minDays {
		maxDays = minDays
	}
	skip := make(map[string]struct{}, len(holidays))
	for _, holiday := range holidays {
		skip[holiday.Format("2006-01-02")] = struct{}{}
	}

	day := start
	for !isBusinessDay(day, skip) {
		day = day.AddDate(0, 0, 1)
	}

	window := Window{}
	advanced := 0
	for {
		if advanced == minDays {
			window.Min = day
		}
		if advanced == maxDays {
			window.Max = day
			return window
		}
		day = day.AddDate(0, 0, 1)
		for !isBusinessDay(day, skip) {
			day = day.AddDate(0, 0, 1)
		}
		advanced++
	}
}

func isBusinessDay(day time.Time, holidays map[string]struct{}) bool {
	switch day.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	_, holiday := holidays[day.Format("2006-01-02")]
	return !holiday
}
