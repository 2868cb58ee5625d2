package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FeeRule configures an automatic surcharge, optionally gated by country,
// payment method, and an items-gross band.
type FeeRule struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Code      string    `gorm:"column:code;size:50;not null;uniqueIndex"`
	Name      string    `gorm:"column:name;not null"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true"`
	SortOrder int       `gorm:"column:sort_order;not null;default:0"`

	CountryCode       string `gorm:"column:country_code;size:2"`
	PaymentMethodCode string `gorm:"column:payment_method_code;size:50"`

	MinItemsGross *decimal.Decimal `gorm:"column:min_items_gross;type:numeric(12,2)"`
	MaxItemsGross *decimal.Decimal `gorm:"column:max_items_gross;type:numeric(12,2)"`

	AmountNet  decimal.Decimal `gorm:"column:amount_net;type:numeric(12,2);not null"`
	TaxClassID *uuid.UUID      `gorm:"column:tax_class_id;type:uuid"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
