package promotions

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/zaliuojibanga/shop-core/pkg/db/models"
)

func decPtr(t *testing.T, value string) *decimal.Decimal {
	t.Helper()
	parsed := d(t, value)
	return &parsed
}

func TestDiscountFor_PercentWithBlendedVAT(t *testing.T) {
	coupon := models.Coupon{PercentOff: intPtr(10)}

	// Eligible subtotal 100.00 net / 21.00 vat: blended rate 21%.
	got := DiscountFor(coupon, d(t, "100.00"), d(t, "21.00"))

	assert.True(t, got.Net.Equal(d(t, "10.00")), "net %s", got.Net)
	assert.True(t, got.VAT.Equal(d(t, "2.10")), "vat %s", got.VAT)
	assert.True(t, got.Gross.Equal(d(t, "12.10")), "gross %s", got.Gross)
}

func TestDiscountFor_BlendedRateAcrossMixedVAT(t *testing.T) {
	coupon := models.Coupon{AmountOffNet: decPtr(t, "5.00")}

	// 50.00 at 21% + 50.00 at 9%: blended vat is 15.00 on 100.00 net.
	got := DiscountFor(coupon, d(t, "100.00"), d(t, "15.00"))

	assert.True(t, got.Net.Equal(d(t, "5.00")), "net %s", got.Net)
	assert.True(t, got.VAT.Equal(d(t, "0.75")), "vat %s", got.VAT)
}

func TestDiscountFor_FixedAmountCappedAtEligibleNet(t *testing.T) {
	coupon := models.Coupon{AmountOffNet: decPtr(t, "50.00")}

	got := DiscountFor(coupon, d(t, "12.40"), d(t, "2.60"))

	assert.True(t, got.Net.Equal(d(t, "12.40")), "net %s", got.Net)
	assert.True(t, got.VAT.Equal(d(t, "2.60")), "vat %s", got.VAT)
}

func TestDiscountFor_ZeroEligibleSubtotal(t *testing.T) {
	coupon := models.Coupon{PercentOff: intPtr(50), FreeShipping: true}

	got := DiscountFor(coupon, decimal.Zero, decimal.Zero)

	assert.True(t, got.Net.IsZero())
	assert.True(t, got.VAT.IsZero())
	assert.True(t, got.FreeShipping)
}

func TestLineEligibleForCoupon(t *testing.T) {
	plain := models.Coupon{PercentOff: intPtr(10)}
	stacking := models.Coupon{PercentOff: intPtr(10), ApplyOnDiscountedItems: true}

	assert.True(t, LineEligibleForCoupon(plain, false, false))
	assert.False(t, LineEligibleForCoupon(plain, true, false), "never-discount lot")
	assert.False(t, LineEligibleForCoupon(plain, false, true), "already discounted line")
	assert.True(t, LineEligibleForCoupon(stacking, false, true))
	assert.False(t, LineEligibleForCoupon(stacking, true, false), "never-discount beats stacking")
}

func TestCouponFreeShippingMethods(t *testing.T) {
	anyMethod := models.Coupon{FreeShipping: true}
	assert.True(t, anyMethod.IsFreeShippingFor("lpexpress"))

	scoped := models.Coupon{FreeShipping: true, FreeShippingMethods: []string{"lpexpress"}}
	assert.True(t, scoped.IsFreeShippingFor("lpexpress"))
	assert.False(t, scoped.IsFreeShippingFor("courier"))

	off := models.Coupon{}
	assert.False(t, off.IsFreeShippingFor("lpexpress"))
}
