package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/zaliuojibanga/shop-core/pkg/enums"
)

// InventoryAllocation records how many units an order line reserved against
// one stock lot. Status drives the reserve/capture/release state machine.
type InventoryAllocation struct {
	ID              uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	OrderID         uuid.UUID              `gorm:"column:order_id;type:uuid;not null;index"`
	OrderLineID     uuid.UUID              `gorm:"column:order_line_id;type:uuid;not null;index"`
	InventoryItemID uuid.UUID              `gorm:"column:inventory_item_id;type:uuid;not null;index"`
	Qty             int                    `gorm:"column:qty;not null"`
	Status          enums.AllocationStatus `gorm:"column:status;size:20;not null;default:'reserved'"`
	CreatedAt       time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
