package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zaliuojibanga/shop-core/pkg/enums"
)

// PromoRule is a priority-ordered automatic discount. The highest-priority
// matching rule wins; ties break on ascending rule id.
type PromoRule struct {
	ID       uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Code     string    `gorm:"column:code;size:100;not null;uniqueIndex"`
	Name     string    `gorm:"column:name"`
	Priority int       `gorm:"column:priority;not null;default:0;index"`

	Scope      enums.PromoScope `gorm:"column:scope;size:20;not null;default:'all'"`
	ScopeRefID *uuid.UUID       `gorm:"column:scope_ref_id;type:uuid"`

	// Channel restricts the rule to an offer visibility; empty matches all.
	Channel string `gorm:"column:channel;size:20"`

	PercentOff   *int             `gorm:"column:percent_off"`
	AmountOffNet *decimal.Decimal `gorm:"column:amount_off_net;type:numeric(12,2)"`

	IsActive  bool       `gorm:"column:is_active;not null;default:true"`
	ValidFrom *time.Time `gorm:"column:valid_from"`
	ValidTo   *time.Time `gorm:"column:valid_to"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// IsValidAt reports whether the rule is active within its time window.
func (r PromoRule) IsValidAt(now time.Time) bool {
	if !r.IsActive {
		return false
	}
	if r.ValidFrom != nil && now.Before(*r.ValidFrom) {
		return false
	}
	if r.ValidTo != nil && now.After(*r.ValidTo) {
		return false
	}
	return true
}

// PromoRuleCondition narrows a rule. Conditions sharing a group index are
// ANDed; distinct groups are ORed.
type PromoRuleCondition struct {
	ID          uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	PromoRuleID uuid.UUID                `gorm:"column:promo_rule_id;type:uuid;not null;index"`
	GroupIndex  int                      `gorm:"column:group_index;not null;default:0"`
	Kind        enums.PromoConditionKind `gorm:"column:kind;size:20;not null"`
	RefID       *uuid.UUID               `gorm:"column:ref_id;type:uuid"`
	MinQty      *int                     `gorm:"column:min_qty"`
	CreatedAt   time.Time                `gorm:"column:created_at;autoCreateTime"`
}
