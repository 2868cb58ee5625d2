package promotions

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/zaliuojibanga/shop-core/pkg/db"
	"github.com/zaliuojibanga/shop-core/pkg/db/models"
	pkgerrors "github.com/zaliuojibanga/shop-core/pkg/errors"
)

// Redeem consumes one use of a coupon for an order. The redemption row's
// uniqueness on (coupon, order) keeps retries idempotent, and the usage
// counter only advances through a conditional update so two racing orders
// can never both take the last use. Must run inside the order transaction.
func Redeem(ctx context.Context, tx *gorm.DB, coupon models.Coupon, orderID uuid.UUID, userID *uuid.UUID) error {
	if tx == nil {
		return fmt.Errorf("redeem requires a transaction")
	}

	if coupon.UsageLimitPerUser != nil && userID != nil {
		var used int64
		if err := tx.WithContext(ctx).
			Model(&models.CouponRedemption{}).
			Where("coupon_id = ? AND user_id = ?", coupon.ID, *userID).
			Count(&used).Error; err != nil {
			return err
		}
		if used >= int64(*coupon.UsageLimitPerUser) {
			return pkgerrors.New(pkgerrors.CodeConflict, "coupon usage limit reached for this user")
		}
	}

	redemption := models.CouponRedemption{
		ID:       uuid.New(),
		CouponID: coupon.ID,
		OrderID:  orderID,
		UserID:   userID,
	}
	if err := tx.WithContext(ctx).Create(&redemption).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			// Already redeemed for this order; retries land here.
			return nil
		}
		return err
	}

	query := tx.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("id = ?", coupon.ID)
	if coupon.UsageLimitTotal != nil {
		query = query.Where("times_redeemed < ?", *coupon.UsageLimitTotal)
	}
	result := query.UpdateColumn("times_redeemed", gorm.Expr("times_redeemed + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// Lost the race for the last use; undo the redemption row.
		if err := tx.WithContext(ctx).Delete(&models.CouponRedemption{}, "id = ?", redemption.ID).Error; err != nil {
			return err
		}
		return pkgerrors.New(pkgerrors.CodeConflict, "coupon usage limit reached")
	}
	return nil
}

// ReleaseForOrder returns the coupon use consumed by a cancelled order. A
// second release for the same order is a no-op.
func ReleaseForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	if tx == nil {
		return fmt.Errorf("release requires a transaction")
	}

	var redemption models.CouponRedemption
	err := tx.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&redemption).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := tx.WithContext(ctx).Delete(&models.CouponRedemption{}, "id = ?", redemption.ID).Error; err != nil {
		return err
	}
	return tx.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("id = ? AND times_redeemed > 0", redemption.CouponID).
		UpdateColumn("times_redeemed", gorm.Expr("times_redeemed - 1")).Error
}
