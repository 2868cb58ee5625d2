package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/zaliuojibanga/shop-core/pkg/db/models"
)

// EffectiveOfferUnitNet resolves the net unit price a specific stock lot
// sells at. A never_discount lot always sells at the variant list price.
// Otherwise an explicit price override wins, then a percent discount off
// the list price, then the list price itself. The result is quantized.
func EffectiveOfferUnitNet(variant models.Variant, item models.InventoryItem) decimal.Decimal {
	if item.NeverDiscount {
		return QuantizeMoney(variant.PriceNet)
	}
	if item.PriceOverrideNet != nil {
		return QuantizeMoney(*item.PriceOverrideNet)
	}
	if item.DiscountPercent != nil && *item.DiscountPercent > 0 {
		factor := decimal.NewFromInt(int64(100 - *item.DiscountPercent)).
			Div(decimal.NewFromInt(100))
		return QuantizeMoney(variant.PriceNet.Mul(factor))
	}
	return QuantizeMoney(variant.PriceNet)
}
