package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Coupon is a redeemable discount code. TimesRedeemed only increases and is
// bounded by UsageLimitTotal through a conditional update, never read-modify-write.
type Coupon struct {
	ID   uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Code string    `gorm:"column:code;size:40;not null;uniqueIndex"`
	Name string    `gorm:"column:name"`

	PercentOff             *int             `gorm:"column:percent_off"`
	AmountOffNet           *decimal.Decimal `gorm:"column:amount_off_net;type:numeric(12,2)"`
	ApplyOnDiscountedItems bool             `gorm:"column:apply_on_discounted_items;not null;default:false"`

	FreeShipping        bool           `gorm:"column:free_shipping;not null;default:false"`
	FreeShippingMethods pq.StringArray `gorm:"column:free_shipping_methods;type:text[]"`

	UsageLimitTotal   *int `gorm:"column:usage_limit_total"`
	UsageLimitPerUser *int `gorm:"column:usage_limit_per_user"`
	TimesRedeemed     int  `gorm:"column:times_redeemed;not null;default:0"`

	IsActive bool       `gorm:"column:is_active;not null;default:true"`
	StartAt  *time.Time `gorm:"column:start_at"`
	EndAt    *time.Time `gorm:"column:end_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// IsValidAt reports whether the coupon can be applied at the given instant.
func (c Coupon) IsValidAt(now time.Time) bool {
	if !c.IsActive {
		return false
	}
	if c.StartAt != nil && now.Before(*c.StartAt) {
		return false
	}
	if c.EndAt != nil && now.After(*c.EndAt) {
		return false
	}
	return true
}

// IsFreeShippingFor reports whether the coupon zeroes shipping for a method.
// An empty method list means any method qualifies.
func (c Coupon) IsFreeShippingFor(method string) bool {
	if !c.FreeShipping {
		return false
	}
	if len(c.FreeShippingMethods) == 0 {
		return true
	}
	for _, m := range c.FreeShippingMethods {
		if m == method {
			return true
		}
	}
	return false
}

// CouponRedemption is the per-order idempotency guard for redemption.
type CouponRedemption struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	CouponID  uuid.UUID  `gorm:"column:coupon_id;type:uuid;not null;uniqueIndex:uniq_coupon_redemption_order;index:idx_coupon_redemption_user"`
	OrderID   uuid.UUID  `gorm:"column:order_id;type:uuid;not null;uniqueIndex:uniq_coupon_redemption_order"`
	UserID    *uuid.UUID `gorm:"column:user_id;type:uuid;index:idx_coupon_redemption_user"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}
