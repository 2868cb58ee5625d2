package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zaliuojibanga/shop-core/pkg/enums"
)

// PaymentIntent tracks payment progress for one order. One intent per order.
type PaymentIntent struct {
	ID       uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	OrderID  uuid.UUID             `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	Provider enums.PaymentProvider `gorm:"column:provider;size:20;not null"`
	Status   enums.PaymentStatus   `gorm:"column:status;size:20;not null;default:'pending'"`

	Currency    string          `gorm:"column:currency;size:3;not null;default:'EUR'"`
	AmountGross decimal.Decimal `gorm:"column:amount_gross;type:numeric(12,2);not null"`

	ExternalID  *string `gorm:"column:external_id;size:120"`
	RedirectURL *string `gorm:"column:redirect_url"`

	RawRequest    json.RawMessage `gorm:"column:raw_request;type:jsonb"`
	FailureReason *string         `gorm:"column:failure_reason"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
