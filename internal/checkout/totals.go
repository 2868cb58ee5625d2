package checkout

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/zaliuojibanga/shop-core/internal/pricing"
	"github.com/zaliuojibanga/shop-core/pkg/db/models"
)

// RecalculateTotals rebuilds an order's monetary summary from its child
// rows. It is the only sanctioned way to change order money after
// confirmation and is safe to run repeatedly.
func (s *service) RecalculateTotals(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := repo.OrderByID(ctx, orderID)
		if err != nil {
			return err
		}
		lines, err := repo.LinesForOrder(ctx, orderID)
		if err != nil {
			return err
		}
		fees, err := repo.FeesForOrder(ctx, orderID)
		if err != nil {
			return err
		}
		discounts, err := repo.DiscountsForOrder(ctx, orderID)
		if err != nil {
			return err
		}

		var items Money
		for _, line := range lines {
			items = items.add(Money{Net: line.TotalNet, VAT: line.TotalVAT, Gross: line.TotalGross})
		}

		var feeSum Money
		for _, fee := range fees {
			feeSum = feeSum.add(Money{Net: fee.Net, VAT: fee.VAT, Gross: fee.Gross})
		}

		var discount Money
		freeShipping := false
		for _, row := range discounts {
			discount = discount.add(Money{Net: row.Net, VAT: row.VAT, Gross: row.Gross})
			if row.FreeShipping {
				freeShipping = true
			}
		}

		shippingTx := s.shippingRepo.WithTx(tx)
		ratesTx := s.engine.rates.WithTx(tx)
		shippingNet := decimal.Zero
		switch {
		case freeShipping:
			// stays zero
		case loaded.ShippingNetManual != nil:
			shippingNet = pricing.QuantizeMoney(*loaded.ShippingNetManual)
		default:
			method, err := shippingTx.MethodByCode(ctx, loaded.ShippingMethod)
			if err != nil {
				return err
			}
			shippingNet, err = shippingTx.RateFor(ctx, method.ID, loaded.CountryCode)
			if err != nil {
				return err
			}
		}
		shippingRate := decimal.Zero
		if class, err := ratesTx.ClassByCode(ctx, s.engine.shippingTaxClassCode); err != nil {
			return err
		} else if class != nil {
			shippingRate, err = ratesTx.RateFor(ctx, class.ID, loaded.CountryCode, time.Now())
			if err != nil {
				return err
			}
		}
		shippingVAT := pricing.ComputeVAT(shippingNet, shippingRate, 1)
		shipping := Money{Net: shippingVAT.TotalNet, VAT: shippingVAT.TotalVAT, Gross: shippingVAT.TotalGross}

		total := items.add(shipping).add(feeSum).sub(discount)

		loaded.ItemsNet = items.Net
		loaded.ItemsVAT = items.VAT
		loaded.ItemsGross = items.Gross
		loaded.ShippingNet = shipping.Net
		loaded.ShippingVAT = shipping.VAT
		loaded.ShippingGross = shipping.Gross
		loaded.DiscountNet = discount.Net
		loaded.DiscountVAT = discount.VAT
		loaded.DiscountGross = discount.Gross
		loaded.TotalNet = total.Net
		loaded.TotalVAT = total.VAT
		loaded.TotalGross = total.Gross

		if err := repo.SaveOrder(ctx, loaded); err != nil {
			return err
		}
		order = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}
