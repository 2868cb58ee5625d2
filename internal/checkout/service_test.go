package checkout

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/zaliuojibanga/shop-core/internal/cart"
	"github.com/zaliuojibanga/shop-core/internal/catalog"
	"github.com/zaliuojibanga/shop-core/internal/inventory"
	"github.com/zaliuojibanga/shop-core/internal/payments"
	"github.com/zaliuojibanga/shop-core/internal/pricing"
	"github.com/zaliuojibanga/shop-core/internal/promotions"
	"github.com/zaliuojibanga/shop-core/internal/shipping"
	"github.com/zaliuojibanga/shop-core/pkg/config"
	"github.com/zaliuojibanga/shop-core/pkg/db/models"
	"github.com/zaliuojibanga/shop-core/pkg/enums"
	pkgerrors "github.com/zaliuojibanga/shop-core/pkg/errors"
	"github.com/zaliuojibanga/shop-core/pkg/logger"
	"github.com/zaliuojibanga/shop-core/pkg/metrics"
	"github.com/zaliuojibanga/shop-core/pkg/outbox"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type fixture struct {
	db  *gorm.DB
	svc Service

	cartSvc cart.Service

	stdTaxClass uuid.UUID
	userID      uuid.UUID
	addressID   uuid.UUID
}

const (
	termsVersion   = "2026-01"
	privacyVersion = "2026-02"
	bankDetails    = "IBAN LT00 0000 0000 0000 0000, recipient UAB Parduotuve"
)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := "file:checkout_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.UserAddress{},
		&models.Variant{}, &models.InventoryItem{}, &models.InventoryAllocation{},
		&models.Cart{}, &models.CartItem{},
		&models.TaxClass{}, &models.TaxRate{},
		&models.ShippingMethod{}, &models.ShippingRate{},
		&models.PromoRule{}, &models.PromoRuleCondition{},
		&models.Coupon{}, &models.CouponRedemption{},
		&models.FeeRule{},
		&models.Order{}, &models.OrderLine{}, &models.OrderFee{},
		&models.OrderDiscount{}, &models.OrderConsent{},
		&models.PaymentIntent{}, &models.OutboxEvent{},
	))

	f := &fixture{db: db}
	f.seedBaseline(t)

	tx := gormTxRunner{db: db}
	logg := logger.New(logger.Options{Output: io.Discard})
	inventorySvc, err := inventory.NewService(db)
	require.NoError(t, err)
	cartRepo := cart.NewRepository(db)
	cartSvc, err := cart.NewService(cartRepo, tx, catalog.NewRepository(db), inventorySvc, 100)
	require.NoError(t, err)
	f.cartSvc = cartSvc

	engine, err := NewPreviewEngine(
		cartRepo,
		catalog.NewRepository(db),
		inventorySvc,
		pricing.NewRateSource(db),
		promotions.NewRuleRepository(db),
		promotions.NewCouponRepository(db),
		shipping.NewRepository(db),
		NewFeeRepository(db),
		"EUR",
		"shipping",
	)
	require.NoError(t, err)

	providers, err := payments.NewRegistry(config.PaymentsConfig{
		NeopayProjectID:          "123",
		NeopayProjectKey:         "test-signing-key",
		BankTransferInstructions: bankDetails,
	})
	require.NoError(t, err)

	svc, err := NewService(
		NewRepository(db),
		tx,
		engine,
		cartRepo,
		cartSvc,
		inventorySvc,
		promotions.NewCouponRepository(db),
		shipping.NewRepository(db),
		providers,
		outbox.NewService(outbox.NewRepository(db), logg),
		config.CheckoutConfig{
			TermsVersion:               termsVersion,
			PrivacyVersion:             privacyVersion,
			ReservationTTLGateway:      30 * time.Minute,
			ReservationTTLBankTransfer: 72 * time.Hour,
			DefaultCountry:             "LT",
			Currency:                   "EUR",
			MaxQtyPerLine:              100,
		},
		bankDetails,
		metrics.NewCheckoutMetrics(nil),
		metrics.NewJobMetrics(nil),
		logg,
	)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *fixture) seedBaseline(t *testing.T) {
	t.Helper()
	f.stdTaxClass = f.seedTaxClass(t, "standard", "0.21")
	f.seedTaxClass(t, "shipping", "0.21")

	method := models.ShippingMethod{ID: uuid.New(), Code: "lpexpress", Name: "LP Express", IsActive: true}
	require.NoError(t, f.db.Create(&method).Error)
	rate := models.ShippingRate{
		ID: uuid.New(), MethodID: method.ID, CountryCode: "LT",
		NetPrice: decimal.RequireFromString("3.00"), IsActive: true,
	}
	require.NoError(t, f.db.Create(&rate).Error)

	user := models.User{ID: uuid.New(), Email: uuid.NewString() + "@example.lt", IsActive: true}
	require.NoError(t, f.db.Create(&user).Error)
	address := models.UserAddress{
		ID: uuid.New(), UserID: user.ID,
		FullName: "Jonas Jonaitis", Line1: "Gedimino pr. 1", City: "Vilnius",
		PostalCode: "01103", CountryCode: "LT", Phone: "+37060000000",
	}
	require.NoError(t, f.db.Create(&address).Error)
	f.userID = user.ID
	f.addressID = address.ID
}

func (f *fixture) seedTaxClass(t *testing.T, code, rate string) uuid.UUID {
	t.Helper()
	class := models.TaxClass{ID: uuid.New(), Code: code, Name: code, IsActive: true}
	require.NoError(t, f.db.Create(&class).Error)
	row := models.TaxRate{
		ID: uuid.New(), TaxClassID: class.ID, CountryCode: "LT",
		Rate:      decimal.RequireFromString(rate),
		ValidFrom: time.Now().Add(-24 * time.Hour),
		IsActive:  true,
	}
	require.NoError(t, f.db.Create(&row).Error)
	return class.ID
}

func (f *fixture) seedVariant(t *testing.T, priceNet string) models.Variant {
	t.Helper()
	variant := models.Variant{
		ID:         uuid.New(),
		SKU:        "SKU-" + uuid.NewString()[:8],
		Name:       "Test variant",
		PriceNet:   decimal.RequireFromString(priceNet),
		TaxClassID: f.stdTaxClass,
		IsActive:   true,
	}
	require.NoError(t, f.db.Create(&variant).Error)
	return variant
}

func (f *fixture) seedLot(t *testing.T, variantID uuid.UUID, onHand int, mutate func(*models.InventoryItem)) models.InventoryItem {
	t.Helper()
	item := models.InventoryItem{
		ID:          uuid.New(),
		VariantID:   variantID,
		WarehouseID: uuid.New(),
		QtyOnHand:   onHand,
		Visibility:  enums.OfferVisibilityNormal,
		IsActive:    true,
	}
	if mutate != nil {
		mutate(&item)
	}
	require.NoError(t, f.db.Create(&item).Error)
	return item
}

func (f *fixture) addToCart(t *testing.T, variantID uuid.UUID, qty int) cart.Owner {
	t.Helper()
	owner := cart.Owner{UserID: &f.userID}
	_, err := f.cartSvc.AddItem(context.Background(), owner, cart.AddItemInput{VariantID: variantID, Qty: qty})
	require.NoError(t, err)
	return owner
}

func validConsents() []ConsentInput {
	return []ConsentInput{
		{Kind: enums.ConsentKindTerms, DocumentVersion: termsVersion},
		{Kind: enums.ConsentKindPrivacy, DocumentVersion: privacyVersion},
	}
}

func (f *fixture) confirmInput(owner cart.Owner) ConfirmInput {
	return ConfirmInput{
		UserID:            f.userID,
		CartOwner:         owner,
		ShippingAddressID: f.addressID,
		ShippingMethod:    "lpexpress",
		PaymentMethod:     "bank_transfer",
		Consents:          validConsents(),
		UserAgent:         "test-agent",
	}
}

func (f *fixture) reloadLot(t *testing.T, id uuid.UUID) models.InventoryItem {
	t.Helper()
	var item models.InventoryItem
	require.NoError(t, f.db.First(&item, "id = ?", id).Error)
	return item
}

func TestConfirmCreatesOrderWithReservedStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	variant := f.seedVariant(t, "10.00")
	lot := f.seedLot(t, variant.ID, 5, nil)
	owner := f.addToCart(t, variant.ID, 3)

	result, err := f.svc.Confirm(ctx, f.confirmInput(owner))
	require.NoError(t, err)
	assert.False(t, result.Replayed)
	assert.Equal(t, enums.PaymentProviderBankTransfer, result.Provider)
	assert.Equal(t, enums.PaymentStatusPending, result.Status)
	assert.Nil(t, result.RedirectURL)
	assert.Equal(t, bankDetails, result.PaymentInstructions)

	var order models.Order
	require.NoError(t, f.db.First(&order, "id = ?", result.OrderID).Error)
	assert.Equal(t, enums.OrderStatusPendingPayment, order.Status)
	assert.True(t, order.ItemsNet.Equal(decimal.RequireFromString("30.00")))
	assert.True(t, order.ItemsVAT.Equal(decimal.RequireFromString("6.30")))
	assert.True(t, order.ItemsGross.Equal(decimal.RequireFromString("36.30")))
	assert.True(t, order.ShippingGross.Equal(decimal.RequireFromString("3.63")))
	assert.True(t, order.TotalGross.Equal(decimal.RequireFromString("39.93")))
	assert.Equal(t, "Jonas Jonaitis", order.ShippingFullName)
	assert.Equal(t, "LT", order.CountryCode)

	// totals reconcile against the component sums
	assert.True(t, order.TotalGross.Equal(order.ItemsGross.Add(order.ShippingGross)))

	var lines []models.OrderLine
	require.NoError(t, f.db.Find(&lines, "order_id = ?", order.ID).Error)
	require.Len(t, lines, 1)
	assert.Equal(t, variant.SKU, lines[0].SKU)
	assert.Equal(t, 3, lines[0].Qty)
	require.NotNil(t, lines[0].OfferID)
	assert.Equal(t, lot.ID, *lines[0].OfferID)

	assert.Equal(t, 3, f.reloadLot(t, lot.ID).QtyReserved)

	var allocations []models.InventoryAllocation
	require.NoError(t, f.db.Find(&allocations, "order_id = ?", order.ID).Error)
	require.Len(t, allocations, 1)
	assert.Equal(t, enums.AllocationStatusReserved, allocations[0].Status)

	var intent models.PaymentIntent
	require.NoError(t, f.db.First(&intent, "order_id = ?", order.ID).Error)
	assert.Equal(t, enums.PaymentStatusPending, intent.Status)
	assert.True(t, intent.AmountGross.Equal(order.TotalGross))

	var consents []models.OrderConsent
	require.NoError(t, f.db.Find(&consents, "order_id = ?", order.ID).Error)
	assert.Len(t, consents, 2)

	var events int64
	require.NoError(t, f.db.Model(&models.OutboxEvent{}).
		Where("aggregate_id = ?", order.ID).Count(&events).Error)
	assert.Equal(t, int64(1), events)

	// cart is gone once the order exists
	_, items, err := f.cartSvc.Get(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestConfirmNeopayReturnsRedirect(t *testing.T) {
	f := newFixture(t)
	variant := f.seedVariant(t, "10.00")
	f.seedLot(t, variant.ID, 5, nil)
	owner := f.addToCart(t, variant.ID, 1)

	input := f.confirmInput(owner)
	input.PaymentMethod = "neopay"

	result, err := f.svc.Confirm(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentProviderNeopay, result.Provider)
	assert.Equal(t, enums.PaymentStatusRedirected, result.Status)
	require.NotNil(t, result.RedirectURL)
	assert.Contains(t, *result.RedirectURL, "psd2.neopay.lt")
	assert.Empty(t, result.PaymentInstructions)
}

func TestConfirmIdempotencyKeyReplaysOriginalOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	variant := f.seedVariant(t, "10.00")
	lot := f.seedLot(t, variant.ID, 10, nil)
	owner := f.addToCart(t, variant.ID, 2)

	key := "confirm-" + uuid.NewString()
	input := f.confirmInput(owner)
	input.IdempotencyKey = &key

	first, err := f.svc.Confirm(ctx, input)
	require.NoError(t, err)
	require.False(t, first.Replayed)

	second, err := f.svc.Confirm(ctx, input)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.OrderID, second.OrderID)
	assert.Equal(t, first.Provider, second.Provider)
	assert.Equal(t, first.PaymentInstructions, second.PaymentInstructions)

	// no second reservation happened
	assert.Equal(t, 2, f.reloadLot(t, lot.ID).QtyReserved)
	var orders int64
	require.NoError(t, f.db.Model(&models.Order{}).Where("user_id = ?", f.userID).Count(&orders).Error)
	assert.Equal(t, int64(1), orders)
}

// stalePrecheckRepo hides the existing order from the first N idempotency
// lookups, reproducing a concurrent confirm whose pre-check read a snapshot
// from before the winner committed.
type stalePrecheckRepo struct {
	Repository
	misses int
}

func (r *stalePrecheckRepo) OrderByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (*models.Order, error) {
	if r.misses > 0 {
		r.misses--
		return nil, nil
	}
	return r.Repository.OrderByIdempotencyKey(ctx, userID, key)
}

func TestConfirmConcurrentDuplicateKeyFallsBackToReplay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	variant := f.seedVariant(t, "10.00")
	lot := f.seedLot(t, variant.ID, 10, nil)
	owner := f.addToCart(t, variant.ID, 2)

	inner := f.svc.(*service)
	inner.repo = &stalePrecheckRepo{Repository: inner.repo, misses: 2}

	key := "confirm-" + uuid.NewString()
	input := f.confirmInput(owner)
	input.IdempotencyKey = &key

	first, err := f.svc.Confirm(ctx, input)
	require.NoError(t, err)
	require.False(t, first.Replayed)

	// the loser misses the pre-check, hits the unique index and replays
	f.addToCart(t, variant.ID, 2)
	second, err := f.svc.Confirm(ctx, input)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.OrderID, second.OrderID)

	assert.Equal(t, 2, f.reloadLot(t, lot.ID).QtyReserved)
	var orders int64
	require.NoError(t, f.db.Model(&models.Order{}).Where("user_id = ?", f.userID).Count(&orders).Error)
	assert.Equal(t, int64(1), orders)
}

func TestConfirmRejectsMissingAndStaleConsents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	variant := f.seedVariant(t, "10.00")
	f.seedLot(t, variant.ID, 5, nil)
	owner := f.addToCart(t, variant.ID, 1)

	input := f.confirmInput(owner)
	input.Consents = []ConsentInput{{Kind: enums.ConsentKindTerms, DocumentVersion: termsVersion}}
	_, err := f.svc.Confirm(ctx, input)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	input = f.confirmInput(owner)
	input.Consents = []ConsentInput{
		{Kind: enums.ConsentKindTerms, DocumentVersion: "2019-05"},
		{Kind: enums.ConsentKindPrivacy, DocumentVersion: privacyVersion},
	}
	_, err = f.svc.Confirm(ctx, input)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestConfirmStockConflictLeavesNothingBehind(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	variant := f.seedVariant(t, "10.00")
	lot := f.seedLot(t, variant.ID, 5, nil)
	owner := f.addToCart(t, variant.ID, 4)

	// stock shrinks between add-to-cart and confirm
	require.NoError(t, f.db.Model(&models.InventoryItem{}).
		Where("id = ?", lot.ID).Update("qty_on_hand", 2).Error)

	_, err := f.svc.Confirm(ctx, f.confirmInput(owner))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	var orders, allocations int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&orders).Error)
	require.NoError(t, f.db.Model(&models.InventoryAllocation{}).Count(&allocations).Error)
	assert.Zero(t, orders)
	assert.Zero(t, allocations)
	assert.Equal(t, 0, f.reloadLot(t, lot.ID).QtyReserved)

	// cart survived the failed attempt
	_, items, err := f.cartSvc.Get(ctx, owner)
	require.NoError(t, err)
	require.Len(t, items, 1)
}

func TestConfirmPickupPointRequired(t *testing.T) {
	f := newFixture(t)
	method := models.ShippingMethod{
		ID: uuid.New(), Code: "omniva_locker", Name: "Omniva locker",
		RequiresPickupPoint: true, IsActive: true,
	}
	require.NoError(t, f.db.Create(&method).Error)
	require.NoError(t, f.db.Create(&models.ShippingRate{
		ID: uuid.New(), MethodID: method.ID, CountryCode: "LT",
		NetPrice: decimal.RequireFromString("2.50"), IsActive: true,
	}).Error)

	variant := f.seedVariant(t, "10.00")
	f.seedLot(t, variant.ID, 5, nil)
	owner := f.addToCart(t, variant.ID, 1)

	input := f.confirmInput(owner)
	input.ShippingMethod = "omniva_locker"
	_, err := f.svc.Confirm(context.Background(), input)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	input.PickupPointID = "LOC-123"
	input.PickupPointName = "Omniva Vilnius Akropolis"
	result, err := f.svc.Confirm(context.Background(), input)
	require.NoError(t, err)

	var order models.Order
	require.NoError(t, f.db.First(&order, "id = ?", result.OrderID).Error)
	assert.Equal(t, "LOC-123", order.PickupPointID)
}

func TestConfirmCouponSkipsDiscountedLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// variant A sells from a 20%-off lot that still allows promotions;
	// a variant-scoped rule takes another 10% off
	variantA := f.seedVariant(t, "10.00")
	twenty := 20
	f.seedLot(t, variantA.ID, 5, func(item *models.InventoryItem) {
		item.DiscountPercent = &twenty
		item.AllowAdditionalPromotions = true
	})
	ten := 10
	rule := models.PromoRule{
		ID: uuid.New(), Code: "extra-ten", Scope: enums.PromoScopeVariant,
		ScopeRefID: &variantA.ID, PercentOff: &ten, IsActive: true,
	}
	require.NoError(t, f.db.Create(&rule).Error)

	variantB := f.seedVariant(t, "10.00")
	f.seedLot(t, variantB.ID, 5, nil)

	require.NoError(t, f.db.Create(&models.Coupon{
		ID: uuid.New(), Code: "TEN", PercentOff: &ten, IsActive: true,
	}).Error)

	owner := f.addToCart(t, variantA.ID, 1)
	f.addToCart(t, variantB.ID, 1)

	input := f.confirmInput(owner)
	input.CouponCode = "TEN"
	result, err := f.svc.Confirm(ctx, input)
	require.NoError(t, err)

	var order models.Order
	require.NoError(t, f.db.First(&order, "id = ?", result.OrderID).Error)

	// A: 10.00 -> 8.00 (lot) -> 7.20 (promo); B stays 10.00
	assert.True(t, order.ItemsNet.Equal(decimal.RequireFromString("17.20")), order.ItemsNet.String())
	// coupon covers only B's 10.00
	assert.True(t, order.DiscountNet.Equal(decimal.RequireFromString("1.00")), order.DiscountNet.String())
	assert.True(t, order.DiscountVAT.Equal(decimal.RequireFromString("0.21")))
	require.NotNil(t, order.CouponCode)
	assert.Equal(t, "TEN", *order.CouponCode)

	var lines []models.OrderLine
	require.NoError(t, f.db.Order("total_net").Find(&lines, "order_id = ?", order.ID).Error)
	require.Len(t, lines, 2)
	assert.True(t, lines[0].Discounted)
	assert.True(t, lines[0].UnitNet.Equal(decimal.RequireFromString("7.20")))
	assert.False(t, lines[1].Discounted)

	var discounts []models.OrderDiscount
	require.NoError(t, f.db.Find(&discounts, "order_id = ?", order.ID).Error)
	require.Len(t, discounts, 1)
	assert.Equal(t, enums.DiscountKindCoupon, discounts[0].Kind)

	var redemptions int64
	require.NoError(t, f.db.Model(&models.CouponRedemption{}).
		Where("order_id = ?", order.ID).Count(&redemptions).Error)
	assert.Equal(t, int64(1), redemptions)
}

func TestConfirmAppliesPaymentMethodFee(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Create(&models.FeeRule{
		ID: uuid.New(), Code: "bank_fee", Name: "Bank transfer handling",
		PaymentMethodCode: "bank_transfer",
		AmountNet:         decimal.RequireFromString("1.50"),
		TaxClassID:        &f.stdTaxClass,
		IsActive:          true,
	}).Error)

	variant := f.seedVariant(t, "10.00")
	f.seedLot(t, variant.ID, 5, nil)
	owner := f.addToCart(t, variant.ID, 3)

	result, err := f.svc.Confirm(context.Background(), f.confirmInput(owner))
	require.NoError(t, err)

	var fees []models.OrderFee
	require.NoError(t, f.db.Find(&fees, "order_id = ?", result.OrderID).Error)
	require.Len(t, fees, 1)
	assert.Equal(t, "bank_fee", fees[0].Code)
	assert.True(t, fees[0].Gross.Equal(decimal.RequireFromString("1.82")), fees[0].Gross.String())

	var order models.Order
	require.NoError(t, f.db.First(&order, "id = ?", result.OrderID).Error)
	assert.True(t, order.TotalGross.Equal(
		order.ItemsGross.Add(order.ShippingGross).Add(fees[0].Gross)))
}

func TestMarkPaidCapturesStockOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	variant := f.seedVariant(t, "10.00")
	lot := f.seedLot(t, variant.ID, 5, nil)
	owner := f.addToCart(t, variant.ID, 3)
	result, err := f.svc.Confirm(ctx, f.confirmInput(owner))
	require.NoError(t, err)

	require.NoError(t, f.svc.MarkPaid(ctx, result.OrderID))

	var order models.Order
	require.NoError(t, f.db.First(&order, "id = ?", result.OrderID).Error)
	assert.Equal(t, enums.OrderStatusPaid, order.Status)
	require.NotNil(t, order.PaidAt)

	reloaded := f.reloadLot(t, lot.ID)
	assert.Equal(t, 2, reloaded.QtyOnHand)
	assert.Equal(t, 0, reloaded.QtyReserved)

	var intent models.PaymentIntent
	require.NoError(t, f.db.First(&intent, "order_id = ?", result.OrderID).Error)
	assert.Equal(t, enums.PaymentStatusSucceeded, intent.Status)

	// repeat is a no-op, not a second capture
	require.NoError(t, f.svc.MarkPaid(ctx, result.OrderID))
	again := f.reloadLot(t, lot.ID)
	assert.Equal(t, 2, again.QtyOnHand)
	assert.Equal(t, 0, again.QtyReserved)
}

func TestMarkFailedReleasesStockAndCoupon(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ten := 10
	coupon := models.Coupon{ID: uuid.New(), Code: "BACK", PercentOff: &ten, IsActive: true}
	require.NoError(t, f.db.Create(&coupon).Error)

	variant := f.seedVariant(t, "10.00")
	lot := f.seedLot(t, variant.ID, 3, nil)
	owner := f.addToCart(t, variant.ID, 3)

	input := f.confirmInput(owner)
	input.CouponCode = "BACK"
	result, err := f.svc.Confirm(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, 3, f.reloadLot(t, lot.ID).QtyReserved)

	require.NoError(t, f.svc.MarkFailed(ctx, result.OrderID, "payment declined"))

	var order models.Order
	require.NoError(t, f.db.First(&order, "id = ?", result.OrderID).Error)
	assert.Equal(t, enums.OrderStatusCancelled, order.Status)
	require.NotNil(t, order.CancelledAt)

	assert.Equal(t, 0, f.reloadLot(t, lot.ID).QtyReserved)

	var reloadedCoupon models.Coupon
	require.NoError(t, f.db.First(&reloadedCoupon, "id = ?", coupon.ID).Error)
	assert.Equal(t, 0, reloadedCoupon.TimesRedeemed)
	var redemptions int64
	require.NoError(t, f.db.Model(&models.CouponRedemption{}).Count(&redemptions).Error)
	assert.Zero(t, redemptions)

	var intent models.PaymentIntent
	require.NoError(t, f.db.First(&intent, "order_id = ?", result.OrderID).Error)
	assert.Equal(t, enums.PaymentStatusFailed, intent.Status)
	require.NotNil(t, intent.FailureReason)
	assert.Equal(t, "payment declined", *intent.FailureReason)

	// the full lot going back on sale produced a restock event
	var restock int64
	require.NoError(t, f.db.Model(&models.OutboxEvent{}).
		Where("event_type = ?", enums.EventStockBackOnSale).Count(&restock).Error)
	assert.Equal(t, int64(1), restock)

	// paid orders cannot be failed afterwards
	err = f.svc.MarkPaid(ctx, result.OrderID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestExpirePendingHonorsPerProviderTTL(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	placeOrder := func(method string) uuid.UUID {
		variant := f.seedVariant(t, "10.00")
		f.seedLot(t, variant.ID, 5, nil)
		owner := f.addToCart(t, variant.ID, 1)
		input := f.confirmInput(owner)
		input.PaymentMethod = method
		result, err := f.svc.Confirm(ctx, input)
		require.NoError(t, err)
		return result.OrderID
	}

	staleGateway := placeOrder("neopay")
	freshGateway := placeOrder("neopay")
	staleBank := placeOrder("bank_transfer")
	freshBank := placeOrder("bank_transfer")

	backdate := func(orderID uuid.UUID, age time.Duration) {
		require.NoError(t, f.db.Model(&models.Order{}).
			Where("id = ?", orderID).
			Update("created_at", time.Now().Add(-age)).Error)
	}
	backdate(staleGateway, time.Hour)
	backdate(freshGateway, 10*time.Minute)
	backdate(staleBank, 80*time.Hour)
	backdate(freshBank, 40*time.Hour)

	// the sweep owns the expired-orders counter; one increment per cancel
	registry := prometheus.NewRegistry()
	f.svc.(*service).jobMx = metrics.NewJobMetrics(registry)

	expired, err := f.svc.ExpirePending(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, expired)
	assert.Equal(t, float64(2), expiredOrdersCount(t, registry))

	status := func(orderID uuid.UUID) enums.OrderStatus {
		var order models.Order
		require.NoError(t, f.db.First(&order, "id = ?", orderID).Error)
		return order.Status
	}
	assert.Equal(t, enums.OrderStatusCancelled, status(staleGateway))
	assert.Equal(t, enums.OrderStatusPendingPayment, status(freshGateway))
	assert.Equal(t, enums.OrderStatusCancelled, status(staleBank))
	assert.Equal(t, enums.OrderStatusPendingPayment, status(freshBank))
}

func expiredOrdersCount(t *testing.T, reg *prometheus.Registry) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != "orders_expired_total" {
			continue
		}
		require.Len(t, mf.GetMetric(), 1)
		return mf.GetMetric()[0].GetCounter().GetValue()
	}
	return 0
}

func TestRecalculateTotalsIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	variant := f.seedVariant(t, "10.00")
	f.seedLot(t, variant.ID, 5, nil)
	owner := f.addToCart(t, variant.ID, 3)
	result, err := f.svc.Confirm(ctx, f.confirmInput(owner))
	require.NoError(t, err)

	first, err := f.svc.RecalculateTotals(ctx, result.OrderID)
	require.NoError(t, err)
	second, err := f.svc.RecalculateTotals(ctx, result.OrderID)
	require.NoError(t, err)

	assert.True(t, first.TotalGross.Equal(second.TotalGross))
	assert.True(t, first.TotalGross.Equal(decimal.RequireFromString("39.93")))

	// manual shipping override feeds the next recalculation
	override := decimal.RequireFromString("0.00")
	require.NoError(t, f.db.Model(&models.Order{}).
		Where("id = ?", result.OrderID).
		Update("shipping_net_manual", override).Error)
	third, err := f.svc.RecalculateTotals(ctx, result.OrderID)
	require.NoError(t, err)
	assert.True(t, third.ShippingGross.IsZero())
	assert.True(t, third.TotalGross.Equal(decimal.RequireFromString("36.30")), third.TotalGross.String())
}

// The coupon stays an order-level discount row, so the reconciliation
// identity for a couponed order is
// total = items + shipping + fees - discounts, and recalculation must
// reproduce the confirmed snapshot exactly.
func TestRecalculateTotalsReconcilesCouponedOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ten := 10
	require.NoError(t, f.db.Create(&models.Coupon{
		ID: uuid.New(), Code: "TEN", PercentOff: &ten, IsActive: true,
	}).Error)

	variant := f.seedVariant(t, "10.00")
	f.seedLot(t, variant.ID, 5, nil)
	owner := f.addToCart(t, variant.ID, 3)

	input := f.confirmInput(owner)
	input.CouponCode = "TEN"
	result, err := f.svc.Confirm(ctx, input)
	require.NoError(t, err)

	reconcile := func(o *models.Order) {
		t.Helper()
		want := o.ItemsGross.Add(o.ShippingGross).Sub(o.DiscountGross)
		assert.True(t, o.TotalGross.Equal(want),
			"total %s items %s shipping %s discount %s",
			o.TotalGross, o.ItemsGross, o.ShippingGross, o.DiscountGross)
	}

	var confirmed models.Order
	require.NoError(t, f.db.First(&confirmed, "id = ?", result.OrderID).Error)
	// 3 x 10.00 net at 21% = 36.30 gross; shipping 3.63; coupon 10% = 3.63
	assert.True(t, confirmed.DiscountGross.Equal(decimal.RequireFromString("3.63")), confirmed.DiscountGross.String())
	assert.True(t, confirmed.TotalGross.Equal(decimal.RequireFromString("36.30")), confirmed.TotalGross.String())
	reconcile(&confirmed)

	recalced, err := f.svc.RecalculateTotals(ctx, result.OrderID)
	require.NoError(t, err)
	reconcile(recalced)
	assert.True(t, recalced.TotalGross.Equal(confirmed.TotalGross))
	assert.True(t, recalced.DiscountGross.Equal(confirmed.DiscountGross))
}
