package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Variant is a sellable SKU. PriceNet is the net list price; order lines
// snapshot it at confirmation time.
type Variant struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ProductID  *uuid.UUID      `gorm:"column:product_id;type:uuid"`
	CategoryID *uuid.UUID      `gorm:"column:category_id;type:uuid"`
	BrandID    *uuid.UUID      `gorm:"column:brand_id;type:uuid"`
	SKU        string          `gorm:"column:sku;size:64;not null;uniqueIndex"`
	Name       string          `gorm:"column:name;not null"`
	PriceNet   decimal.Decimal `gorm:"column:price_net;type:numeric(12,2);not null"`
	TaxClassID uuid.UUID       `gorm:"column:tax_class_id;type:uuid;not null"`
	WeightG    int             `gorm:"column:weight_g;not null;default:0"`
	IsActive   bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
