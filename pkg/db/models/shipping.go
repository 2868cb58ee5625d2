package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ShippingMethod is a deliverable option (courier, locker, pickup).
type ShippingMethod struct {
	ID                  uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Code                string    `gorm:"column:code;size:50;not null;uniqueIndex"`
	Name                string    `gorm:"column:name;not null"`
	CarrierCode         string    `gorm:"column:carrier_code;size:32"`
	RequiresPickupPoint bool      `gorm:"column:requires_pickup_point;not null;default:false"`
	IsActive            bool      `gorm:"column:is_active;not null;default:true"`
	SortOrder           int       `gorm:"column:sort_order;not null;default:0"`
	CreatedAt           time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// ShippingRate is the net price of a method for one destination country.
type ShippingRate struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	MethodID    uuid.UUID       `gorm:"column:method_id;type:uuid;not null;uniqueIndex:uniq_shipping_rate_per_country"`
	CountryCode string          `gorm:"column:country_code;size:2;not null;default:'LT';uniqueIndex:uniq_shipping_rate_per_country"`
	NetPrice    decimal.Decimal `gorm:"column:net_price;type:numeric(12,2);not null;default:0"`
	IsActive    bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// Holiday marks a non-business day for the delivery window estimator.
type Holiday struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Date        time.Time `gorm:"column:date;not null;uniqueIndex:uniq_holiday_country_date"`
	CountryCode string    `gorm:"column:country_code;size:2;not null;default:'LT';uniqueIndex:uniq_holiday_country_date"`
	Name        string    `gorm:"column:name"`
	IsActive    bool      `gorm:"column:is_active;not null;default:true"`
}
