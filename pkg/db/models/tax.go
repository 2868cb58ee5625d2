package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TaxClass groups variants under one VAT treatment.
type TaxClass struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Code      string    `gorm:"column:code;not null;uniqueIndex"`
	Name      string    `gorm:"column:name;not null"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true"`
	SortOrder int       `gorm:"column:sort_order;not null;default:0"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TaxRate is the VAT rate for a tax class in one country over a validity window.
// Rate is a fraction: 0.21 means 21%.
type TaxRate struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	TaxClassID  uuid.UUID       `gorm:"column:tax_class_id;type:uuid;not null;uniqueIndex:uniq_tax_rate_effective"`
	CountryCode string          `gorm:"column:country_code;size:2;not null;uniqueIndex:uniq_tax_rate_effective"`
	Rate        decimal.Decimal `gorm:"column:rate;type:numeric(6,5);not null"`
	ValidFrom   time.Time       `gorm:"column:valid_from;not null;uniqueIndex:uniq_tax_rate_effective"`
	ValidTo     *time.Time      `gorm:"column:valid_to"`
	IsActive    bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
