package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zaliuojibanga/shop-core/internal/cart"
	"github.com/zaliuojibanga/shop-core/internal/catalog"
	"github.com/zaliuojibanga/shop-core/internal/inventory"
	"github.com/zaliuojibanga/shop-core/internal/pricing"
	"github.com/zaliuojibanga/shop-core/internal/promotions"
	"github.com/zaliuojibanga/shop-core/internal/shipping"
	"github.com/zaliuojibanga/shop-core/pkg/db/models"
	"github.com/zaliuojibanga/shop-core/pkg/enums"
	pkgerrors "github.com/zaliuojibanga/shop-core/pkg/errors"
)

// Money is a net/vat/gross triple, all quantized.
type Money struct {
	Net   decimal.Decimal `json:"net"`
	VAT   decimal.Decimal `json:"vat"`
	Gross decimal.Decimal `json:"gross"`
}

func (m Money) add(other Money) Money {
	return Money{
		Net:   m.Net.Add(other.Net),
		VAT:   m.VAT.Add(other.VAT),
		Gross: m.Gross.Add(other.Gross),
	}
}

func (m Money) sub(other Money) Money {
	return Money{
		Net:   m.Net.Sub(other.Net),
		VAT:   m.VAT.Sub(other.VAT),
		Gross: m.Gross.Sub(other.Gross),
	}
}

// PricedLine is one cart line after offer pricing, promo application and
// VAT breakdown.
type PricedLine struct {
	VariantID uuid.UUID
	OfferID   *uuid.UUID
	SKU       string
	Name      string
	Qty       int

	VATRate   decimal.Decimal
	UnitNet   decimal.Decimal
	UnitVAT   decimal.Decimal
	UnitGross decimal.Decimal
	Total     Money

	Discounted    bool
	NeverDiscount bool
	PromoRuleID   *uuid.UUID
}

// PricedFee is one matched fee rule with its VAT split.
type PricedFee struct {
	RuleID  *uuid.UUID
	Code    string
	Name    string
	Net     decimal.Decimal
	VATRate decimal.Decimal
	VAT     decimal.Decimal
	Gross   decimal.Decimal
}

// PricedDiscount is the coupon outcome over the eligible subtotal.
type PricedDiscount struct {
	Code         string
	CouponID     uuid.UUID
	Net          decimal.Decimal
	VAT          decimal.Decimal
	Gross        decimal.Decimal
	FreeShipping bool
}

// Preview is the full server-side pricing of a cart. It writes nothing.
type Preview struct {
	CountryCode    string
	Currency       string
	ShippingMethod string

	Lines    []PricedLine
	Items    Money
	Discount *PricedDiscount
	Shipping Money
	Fees     []PricedFee
	FeesSum  Money
	Total    Money
}

// PreviewInput selects the cart and the delivery/payment context to price.
type PreviewInput struct {
	Owner          cart.Owner
	CountryCode    string
	ShippingMethod string
	PaymentMethod  string
	CouponCode     string
	Channel        enums.OfferVisibility
}

// PreviewEngine prices carts. All lookups go through repositories so the
// engine itself stays a pure computation over loaded state.
type PreviewEngine struct {
	cartRepo             cart.CartRepository
	catalogRepo          catalog.Repository
	inventorySvc         inventory.Service
	rates                pricing.RateSource
	promoRepo            promotions.RuleRepository
	couponRepo           promotions.CouponRepository
	shippingRepo         shipping.Repository
	feeRepo              FeeRepository
	currency             string
	shippingTaxClassCode string
}

// NewPreviewEngine wires the pricing pipeline.
func NewPreviewEngine(
	cartRepo cart.CartRepository,
	catalogRepo catalog.Repository,
	inventorySvc inventory.Service,
	rates pricing.RateSource,
	promoRepo promotions.RuleRepository,
	couponRepo promotions.CouponRepository,
	shippingRepo shipping.Repository,
	feeRepo FeeRepository,
	currency string,
	shippingTaxClassCode string,
) (*PreviewEngine, error) {
	if cartRepo == nil || catalogRepo == nil || inventorySvc == nil || rates == nil {
		return nil, fmt.Errorf("preview engine requires cart, catalog, inventory and rate dependencies")
	}
	if promoRepo == nil || couponRepo == nil || shippingRepo == nil || feeRepo == nil {
		return nil, fmt.Errorf("preview engine requires promotion, shipping and fee dependencies")
	}
	if currency == "" {
		currency = string(enums.CurrencyEUR)
	}
	return &PreviewEngine{
		cartRepo:             cartRepo,
		catalogRepo:          catalogRepo,
		inventorySvc:         inventorySvc,
		rates:                rates,
		promoRepo:            promoRepo,
		couponRepo:           couponRepo,
		shippingRepo:         shippingRepo,
		feeRepo:              feeRepo,
		currency:             currency,
		shippingTaxClassCode: shippingTaxClassCode,
	}, nil
}

// Price computes the preview for a cart at one instant. Client-submitted
// totals are never consulted; this is the only pricing authority.
func (e *PreviewEngine) Price(ctx context.Context, cartID uuid.UUID, input PreviewInput, now time.Time) (*Preview, error) {
	items, err := e.cartRepo.Items(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	if input.Channel == "" {
		input.Channel = enums.OfferVisibilityNormal
	}

	method, err := e.shippingRepo.MethodByCode(ctx, input.ShippingMethod)
	if err != nil {
		return nil, err
	}

	candidates, err := e.promoRepo.ListCandidates(ctx, now)
	if err != nil {
		return nil, err
	}

	lines, err := e.priceLines(ctx, items, candidates, input, now)
	if err != nil {
		return nil, err
	}

	preview := &Preview{
		CountryCode:    input.CountryCode,
		Currency:       e.currency,
		ShippingMethod: method.Code,
		Lines:          lines,
	}
	for _, line := range lines {
		preview.Items = preview.Items.add(line.Total)
	}

	if input.CouponCode != "" {
		discount, err := e.applyCoupon(ctx, preview, input.CouponCode, method.Code, now)
		if err != nil {
			return nil, err
		}
		preview.Discount = discount
	}

	if err := e.priceShipping(ctx, preview, method, input.CountryCode, now); err != nil {
		return nil, err
	}

	feeRules, err := e.feeRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	for _, rule := range MatchFeeRules(feeRules, input.CountryCode, input.PaymentMethod, preview.Items.Gross) {
		fee, err := e.priceFee(ctx, rule, input.CountryCode, now)
		if err != nil {
			return nil, err
		}
		preview.Fees = append(preview.Fees, fee)
		preview.FeesSum = preview.FeesSum.add(Money{Net: fee.Net, VAT: fee.VAT, Gross: fee.Gross})
	}

	preview.Total = preview.Items.add(preview.Shipping).add(preview.FeesSum)
	if preview.Discount != nil {
		preview.Total = preview.Total.sub(Money{
			Net:   preview.Discount.Net,
			VAT:   preview.Discount.VAT,
			Gross: preview.Discount.Gross,
		})
	}
	return preview, nil
}

func (e *PreviewEngine) priceLines(ctx context.Context, items []models.CartItem, candidates []promotions.RuleWithConditions, input PreviewInput, now time.Time) ([]PricedLine, error) {
	variantIDs := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		variantIDs = append(variantIDs, item.VariantID)
	}
	variants, err := e.catalogRepo.VariantsByIDs(ctx, variantIDs)
	if err != nil {
		return nil, err
	}

	lines := make([]PricedLine, 0, len(items))
	for _, item := range items {
		variant, ok := variants[item.VariantID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart references an inactive variant")
		}
		if item.OfferID == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("cart line for %s has no offer allocation", variant.SKU))
		}

		lots, err := e.inventorySvc.ItemsForVariant(ctx, item.VariantID)
		if err != nil {
			return nil, err
		}
		var lot *models.InventoryItem
		for i := range lots {
			if lots[i].ID == *item.OfferID {
				lot = &lots[i]
				break
			}
		}
		if lot == nil {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound,
				fmt.Sprintf("offer for %s is no longer available", variant.SKU))
		}
		if lot.Available() < item.Qty {
			return nil, pkgerrors.New(pkgerrors.CodeConflict,
				fmt.Sprintf("not enough stock for %s", variant.SKU))
		}

		listPrice := pricing.QuantizeMoney(variant.PriceNet)
		unitNet := pricing.EffectiveOfferUnitNet(variant, *lot)
		offerDiscounted := unitNet.LessThan(listPrice)

		lineCtx := promotions.LineContext{
			VariantID:  variant.ID,
			ProductID:  variant.ProductID,
			CategoryID: variant.CategoryID,
			BrandID:    variant.BrandID,
			Channel:    input.Channel,
			Qty:        item.Qty,
		}
		rule := promotions.FindBestRule(candidates, lineCtx, now)
		unitNet, promoApplied := promotions.ApplyPromoToUnitNet(unitNet, rule, *lot, offerDiscounted)

		rate, err := e.rates.RateFor(ctx, variant.TaxClassID, input.CountryCode, now)
		if err != nil {
			return nil, err
		}
		breakdown := pricing.ComputeVAT(unitNet, rate, item.Qty)

		line := PricedLine{
			VariantID: variant.ID,
			OfferID:   item.OfferID,
			SKU:       variant.SKU,
			Name:      variant.Name,
			Qty:       item.Qty,
			VATRate:   rate,
			UnitNet:   breakdown.UnitNet,
			UnitVAT:   breakdown.UnitVAT,
			UnitGross: breakdown.UnitGross,
			Total: Money{
				Net:   breakdown.TotalNet,
				VAT:   breakdown.TotalVAT,
				Gross: breakdown.TotalGross,
			},
			Discounted:    offerDiscounted || promoApplied,
			NeverDiscount: lot.NeverDiscount,
		}
		if promoApplied && rule != nil {
			ruleID := rule.ID
			line.PromoRuleID = &ruleID
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func (e *PreviewEngine) applyCoupon(ctx context.Context, preview *Preview, code, shippingMethod string, now time.Time) (*PricedDiscount, error) {
	coupon, err := e.couponRepo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !coupon.IsValidAt(now) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon is invalid or expired")
	}

	eligibleNet := decimal.Zero
	eligibleVAT := decimal.Zero
	for _, line := range preview.Lines {
		if promotions.LineEligibleForCoupon(*coupon, line.NeverDiscount, line.Discounted) {
			eligibleNet = eligibleNet.Add(line.Total.Net)
			eligibleVAT = eligibleVAT.Add(line.Total.VAT)
		}
	}

	discount := promotions.DiscountFor(*coupon, eligibleNet, eligibleVAT)
	freeShipping := coupon.IsFreeShippingFor(shippingMethod)
	if discount.Net.IsZero() && !freeShipping {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon is not applicable to the cart contents")
	}

	return &PricedDiscount{
		Code:         coupon.Code,
		CouponID:     coupon.ID,
		Net:          discount.Net,
		VAT:          discount.VAT,
		Gross:        discount.Gross,
		FreeShipping: freeShipping,
	}, nil
}

func (e *PreviewEngine) priceShipping(ctx context.Context, preview *Preview, method *models.ShippingMethod, countryCode string, now time.Time) error {
	net, err := e.shippingRepo.RateFor(ctx, method.ID, countryCode)
	if err != nil {
		return err
	}
	if preview.Discount != nil && preview.Discount.FreeShipping {
		net = decimal.Zero
	}

	rate := decimal.Zero
	if class, err := e.rates.ClassByCode(ctx, e.shippingTaxClassCode); err != nil {
		return err
	} else if class != nil {
		rate, err = e.rates.RateFor(ctx, class.ID, countryCode, now)
		if err != nil {
			return err
		}
	}

	breakdown := pricing.ComputeVAT(net, rate, 1)
	preview.Shipping = Money{
		Net:   breakdown.TotalNet,
		VAT:   breakdown.TotalVAT,
		Gross: breakdown.TotalGross,
	}
	return nil
}
