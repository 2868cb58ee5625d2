package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zaliuojibanga/shop-core/pkg/enums"
)

// OrderCreatedEvent signals that checkout produced a new pending order.
type OrderCreatedEvent struct {
	OrderID    uuid.UUID             `json:"order_id"`
	UserID     uuid.UUID             `json:"user_id"`
	Currency   string                `json:"currency"`
	TotalGross decimal.Decimal       `json:"total_gross"`
	Provider   enums.PaymentProvider `json:"provider"`
	CouponCode string                `json:"coupon_code,omitempty"`
}

// OrderPaidEvent is emitted when payment succeeds and stock is captured.
type OrderPaidEvent struct {
	OrderID uuid.UUID `json:"order_id"`
	PaidAt  time.Time `json:"paid_at"`
}

// OrderCancelledEvent is emitted on cancellation or reservation expiry.
type OrderCancelledEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	CancelledAt time.Time `json:"cancelled_at"`
	Reason      string    `json:"reason,omitempty"`
}

// BackInStockEvent reports that an offer's availability crossed zero upward,
// typically after a release.
type BackInStockEvent struct {
	InventoryItemID uuid.UUID `json:"inventory_item_id"`
	VariantID       uuid.UUID `json:"variant_id"`
	Available       int       `json:"available"`
}
