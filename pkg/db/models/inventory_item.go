package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zaliuojibanga/shop-core/pkg/enums"
)

// InventoryItem is one stock lot ("offer") of a variant in a warehouse.
// Invariant: 0 <= qty_reserved <= qty_on_hand.
type InventoryItem struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	VariantID   uuid.UUID `gorm:"column:variant_id;type:uuid;not null;uniqueIndex:uniq_inventory_variant_warehouse"`
	WarehouseID uuid.UUID `gorm:"column:warehouse_id;type:uuid;not null;uniqueIndex:uniq_inventory_variant_warehouse"`

	QtyOnHand   int `gorm:"column:qty_on_hand;not null;default:0"`
	QtyReserved int `gorm:"column:qty_reserved;not null;default:0"`

	Visibility                enums.OfferVisibility `gorm:"column:visibility;size:10;not null;default:'NORMAL'"`
	Priority                  int                   `gorm:"column:priority;not null;default:0"`
	Label                     string                `gorm:"column:label"`
	PriceOverrideNet          *decimal.Decimal      `gorm:"column:price_override_net;type:numeric(12,2)"`
	DiscountPercent           *int                  `gorm:"column:discount_percent"`
	AllowAdditionalPromotions bool                  `gorm:"column:allow_additional_promotions;not null;default:false"`
	NeverDiscount             bool                  `gorm:"column:never_discount;not null;default:false"`

	IsActive  bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Available reports the quantity still free to reserve. Never negative.
func (i InventoryItem) Available() int {
	available := i.QtyOnHand - i.QtyReserved
	if available < 0 {
		return 0
	}
	return available
}
