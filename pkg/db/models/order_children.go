package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zaliuojibanga/shop-core/pkg/enums"
)

// OrderFee is an additive surcharge applied at confirmation (COD, small
// order). Fees are never discounted.
type OrderFee struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	RuleID    *uuid.UUID      `gorm:"column:rule_id;type:uuid"`
	Code      string          `gorm:"column:code;size:50;not null"`
	Name      string          `gorm:"column:name;not null"`
	Net       decimal.Decimal `gorm:"column:net;type:numeric(12,2);not null"`
	VATRate   decimal.Decimal `gorm:"column:vat_rate;type:numeric(6,5);not null;default:0"`
	VAT       decimal.Decimal `gorm:"column:vat;type:numeric(12,2);not null"`
	Gross     decimal.Decimal `gorm:"column:gross;type:numeric(12,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// OrderDiscount records a coupon or promo discount applied to the order,
// with the blended VAT split it was computed under.
type OrderDiscount struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	OrderID      uuid.UUID          `gorm:"column:order_id;type:uuid;not null;index"`
	Kind         enums.DiscountKind `gorm:"column:kind;size:20;not null"`
	Code         *string            `gorm:"column:code;size:40"`
	PromoRuleID  *uuid.UUID         `gorm:"column:promo_rule_id;type:uuid"`
	Net          decimal.Decimal    `gorm:"column:net;type:numeric(12,2);not null"`
	VAT          decimal.Decimal    `gorm:"column:vat;type:numeric(12,2);not null"`
	Gross        decimal.Decimal    `gorm:"column:gross;type:numeric(12,2);not null"`
	FreeShipping bool               `gorm:"column:free_shipping;not null;default:false"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
}

// OrderConsent is the purchase-time acceptance of a required document version.
type OrderConsent struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderID         uuid.UUID         `gorm:"column:order_id;type:uuid;not null;uniqueIndex:uniq_order_consent_kind"`
	Kind            enums.ConsentKind `gorm:"column:kind;size:32;not null;uniqueIndex:uniq_order_consent_kind"`
	DocumentVersion string            `gorm:"column:document_version;size:80;not null"`
	IPAddress       *string           `gorm:"column:ip_address"`
	UserAgent       string            `gorm:"column:user_agent"`
	AcceptedAt      time.Time         `gorm:"column:accepted_at;autoCreateTime"`
}
