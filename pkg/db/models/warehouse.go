package models

import (
	"time"

	"github.com/google/uuid"
)

// Warehouse is a stock location with a simple dispatch lead time.
type Warehouse struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Code            string    `gorm:"column:code;size:100;not null;uniqueIndex"`
	Name            string    `gorm:"column:name;not null"`
	CountryCode     string    `gorm:"column:country_code;size:2;not null"`
	City            string    `gorm:"column:city"`
	DispatchDaysMin int       `gorm:"column:dispatch_days_min;not null;default:0"`
	DispatchDaysMax int       `gorm:"column:dispatch_days_max;not null;default:0"`
	IsActive        bool      `gorm:"column:is_active;not null;default:true"`
	SortOrder       int       `gorm:"column:sort_order;not null;default:0"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
