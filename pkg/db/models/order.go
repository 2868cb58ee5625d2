package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zaliuojibanga/shop-core/pkg/enums"
)

// Order is an immutable priced snapshot created only by the checkout
// orchestrator. Monetary fields change only through totals recalculation.
type Order struct {
	ID     uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	UserID uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index;uniqueIndex:uniq_order_idempotency_per_user"`
	Status enums.OrderStatus `gorm:"column:status;size:32;not null;default:'pending_payment';index"`

	// Idempotency: unique per user so confirm can be retried safely.
	IdempotencyKey *string `gorm:"column:idempotency_key;size:80;uniqueIndex:uniq_order_idempotency_per_user"`

	Currency    string `gorm:"column:currency;size:3;not null;default:'EUR'"`
	CountryCode string `gorm:"column:country_code;size:2;not null;default:'LT'"`

	ItemsNet   decimal.Decimal `gorm:"column:items_net;type:numeric(12,2);not null;default:0"`
	ItemsVAT   decimal.Decimal `gorm:"column:items_vat;type:numeric(12,2);not null;default:0"`
	ItemsGross decimal.Decimal `gorm:"column:items_gross;type:numeric(12,2);not null;default:0"`

	ShippingMethod string          `gorm:"column:shipping_method;size:50;not null;default:'lpexpress'"`
	ShippingNet    decimal.Decimal `gorm:"column:shipping_net;type:numeric(12,2);not null;default:0"`
	ShippingVAT    decimal.Decimal `gorm:"column:shipping_vat;type:numeric(12,2);not null;default:0"`
	ShippingGross  decimal.Decimal `gorm:"column:shipping_gross;type:numeric(12,2);not null;default:0"`

	// Manual override (net). When set, recalculation derives shipping_* from it.
	ShippingNetManual *decimal.Decimal `gorm:"column:shipping_net_manual;type:numeric(12,2)"`

	DiscountNet   decimal.Decimal `gorm:"column:discount_net;type:numeric(12,2);not null;default:0"`
	DiscountVAT   decimal.Decimal `gorm:"column:discount_vat;type:numeric(12,2);not null;default:0"`
	DiscountGross decimal.Decimal `gorm:"column:discount_gross;type:numeric(12,2);not null;default:0"`

	TotalNet   decimal.Decimal `gorm:"column:total_net;type:numeric(12,2);not null;default:0"`
	TotalVAT   decimal.Decimal `gorm:"column:total_vat;type:numeric(12,2);not null;default:0"`
	TotalGross decimal.Decimal `gorm:"column:total_gross;type:numeric(12,2);not null;default:0"`

	CouponCode *string `gorm:"column:coupon_code;size:40"`

	// Shipping address snapshot.
	ShippingFullName   string `gorm:"column:shipping_full_name"`
	ShippingCompany    string `gorm:"column:shipping_company"`
	ShippingLine1      string `gorm:"column:shipping_line1"`
	ShippingCity       string `gorm:"column:shipping_city"`
	ShippingPostalCode string `gorm:"column:shipping_postal_code;size:32"`
	ShippingCountry    string `gorm:"column:shipping_country_code;size:2"`
	ShippingPhone      string `gorm:"column:shipping_phone;size:32"`

	// Pickup point snapshot for locker shipments.
	PickupPointID   string `gorm:"column:pickup_point_id;size:80"`
	PickupPointName string `gorm:"column:pickup_point_name"`

	PaidAt      *time.Time `gorm:"column:paid_at"`
	CancelledAt *time.Time `gorm:"column:cancelled_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderLine snapshots sku, name, unit money and computed totals for one line.
type OrderLine struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID  `gorm:"column:order_id;type:uuid;not null;index"`
	VariantID *uuid.UUID `gorm:"column:variant_id;type:uuid"`
	OfferID   *uuid.UUID `gorm:"column:offer_id;type:uuid"`

	SKU  string `gorm:"column:sku;size:64;not null"`
	Name string `gorm:"column:name;not null"`

	UnitNet   decimal.Decimal `gorm:"column:unit_net;type:numeric(12,2);not null"`
	VATRate   decimal.Decimal `gorm:"column:vat_rate;type:numeric(6,5);not null"`
	UnitVAT   decimal.Decimal `gorm:"column:unit_vat;type:numeric(12,2);not null"`
	UnitGross decimal.Decimal `gorm:"column:unit_gross;type:numeric(12,2);not null"`

	Qty int `gorm:"column:qty;not null;default:1"`

	TotalNet   decimal.Decimal `gorm:"column:total_net;type:numeric(12,2);not null"`
	TotalVAT   decimal.Decimal `gorm:"column:total_vat;type:numeric(12,2);not null"`
	TotalGross decimal.Decimal `gorm:"column:total_gross;type:numeric(12,2);not null"`

	// Set when an offer- or promo-level discount changed the unit net.
	Discounted bool `gorm:"column:discounted;not null;default:false"`
	// Offers flagged never_discount are excluded from coupon eligibility.
	NeverDiscount bool `gorm:"column:never_discount;not null;default:false"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
