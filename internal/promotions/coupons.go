package promotions

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/zaliuojibanga/shop-core/internal/pricing"
	"github.com/zaliuojibanga/shop-core/pkg/db/models"
	pkgerrors "github.com/zaliuojibanga/shop-core/pkg/errors"
)

// CouponRepository manages coupon lookups and redemption counters.
type CouponRepository interface {
	WithTx(tx *gorm.DB) CouponRepository
	FindByCode(ctx context.Context, code string) (*models.Coupon, error)
	CountRedemptionsByUser(ctx context.Context, couponID, userID uuid.UUID) (int64, error)
	FindRedemptionByOrder(ctx context.Context, orderID uuid.UUID) (*models.CouponRedemption, error)
}

type couponRepository struct {
	db *gorm.DB
}

// NewCouponRepository returns a coupon repository bound to the database.
func NewCouponRepository(db *gorm.DB) CouponRepository {
	return &couponRepository{db: db}
}

func (r *couponRepository) WithTx(tx *gorm.DB) CouponRepository {
	if tx == nil {
		return r
	}
	return &couponRepository{db: tx}
}

func (r *couponRepository) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).
		Where("code = ?", strings.ToUpper(strings.TrimSpace(code))).
		First(&coupon).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
	}
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (r *couponRepository) CountRedemptionsByUser(ctx context.Context, couponID, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CouponRedemption{}).
		Where("coupon_id = ? AND user_id = ?", couponID, userID).
		Count(&count).Error
	return count, err
}

func (r *couponRepository) FindRedemptionByOrder(ctx context.Context, orderID uuid.UUID) (*models.CouponRedemption, error) {
	var redemption models.CouponRedemption
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&redemption).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &redemption, nil
}

// CouponDiscount is the money outcome of applying a coupon to the eligible
// subtotal of a cart.
type CouponDiscount struct {
	Net          decimal.Decimal
	VAT          decimal.Decimal
	Gross        decimal.Decimal
	FreeShipping bool
}

// DiscountFor computes the coupon discount over the eligible net subtotal.
// The discount never exceeds the eligible net value, and its VAT share uses
// the blended rate of the eligible lines rather than any single line's rate.
func DiscountFor(coupon models.Coupon, eligibleNet, eligibleVAT decimal.Decimal) CouponDiscount {
	out := CouponDiscount{
		Net:          decimal.Zero.Round(2),
		VAT:          decimal.Zero.Round(2),
		Gross:        decimal.Zero.Round(2),
		FreeShipping: coupon.FreeShipping,
	}
	if !eligibleNet.IsPositive() {
		return out
	}

	var net decimal.Decimal
	switch {
	case coupon.PercentOff != nil && *coupon.PercentOff > 0:
		net = pricing.QuantizeMoney(eligibleNet.
			Mul(decimal.NewFromInt(int64(*coupon.PercentOff))).
			Div(decimal.NewFromInt(100)))
	case coupon.AmountOffNet != nil:
		net = pricing.QuantizeMoney(*coupon.AmountOffNet)
	default:
		return out
	}
	if net.GreaterThan(eligibleNet) {
		net = eligibleNet
	}
	if net.IsNegative() {
		return out
	}

	vat := pricing.QuantizeMoney(net.Mul(eligibleVAT).Div(eligibleNet))

	out.Net = net
	out.VAT = vat
	out.Gross = net.Add(vat)
	return out
}

// LineEligibleForCoupon reports whether a line participates in the coupon's
// eligible subtotal. Never-discount lots are always excluded; lines already
// discounted at the offer or promo level need apply_on_discounted_items.
func LineEligibleForCoupon(coupon models.Coupon, neverDiscount, discounted bool) bool {
	if neverDiscount {
		return false
	}
	if discounted && !coupon.ApplyOnDiscountedItems {
		return false
	}
	return true
}
