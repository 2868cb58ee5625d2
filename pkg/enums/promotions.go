package enums

import "fmt"

// PromoScope narrows which catalog entities a promotion rule targets.
type PromoScope string

const (
	PromoScopeAll      PromoScope = "all"
	PromoScopeCategory PromoScope = "category"
	PromoScopeBrand    PromoScope = "brand"
	PromoScopeProduct  PromoScope = "product"
	PromoScopeVariant  PromoScope = "variant"
)

var validPromoScopes = []PromoScope{
	PromoScopeAll,
	PromoScopeCategory,
	PromoScopeBrand,
	PromoScopeProduct,
	PromoScopeVariant,
}

// IsValid reports whether the value matches the canonical promo scope enum.
func (p PromoScope) IsValid() bool {
	for _, candidate := range validPromoScopes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePromoScope converts the raw string to PromoScope.
func ParsePromoScope(value string) (PromoScope, error) {
	for _, candidate := range validPromoScopes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid promo scope %q", value)
}

// PromoConditionKind is the dimension a single rule condition matches on.
type PromoConditionKind string

const (
	PromoConditionCategory PromoConditionKind = "category"
	PromoConditionBrand    PromoConditionKind = "brand"
	PromoConditionProduct  PromoConditionKind = "product"
	PromoConditionVariant  PromoConditionKind = "variant"
)

// IsValid reports whether the value matches the canonical condition kind enum.
func (p PromoConditionKind) IsValid() bool {
	switch p {
	case PromoConditionCategory, PromoConditionBrand, PromoConditionProduct, PromoConditionVariant:
		return true
	}
	return false
}

// DiscountKind labels an order-level discount row.
type DiscountKind string

const (
	DiscountKindCoupon DiscountKind = "coupon"
	DiscountKindPromo  DiscountKind = "promo"
)

// IsValid reports whether the value matches the canonical discount kind enum.
func (d DiscountKind) IsValid() bool {
	return d == DiscountKindCoupon || d == DiscountKindPromo
}
