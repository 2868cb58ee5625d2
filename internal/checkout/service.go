package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/zaliuojibanga/shop-core/internal/cart"
	"github.com/zaliuojibanga/shop-core/internal/inventory"
	"github.com/zaliuojibanga/shop-core/internal/payments"
	"github.com/zaliuojibanga/shop-core/internal/promotions"
	"github.com/zaliuojibanga/shop-core/internal/shipping"
	"github.com/zaliuojibanga/shop-core/pkg/config"
	"github.com/zaliuojibanga/shop-core/pkg/db"
	"github.com/zaliuojibanga/shop-core/pkg/db/models"
	"github.com/zaliuojibanga/shop-core/pkg/enums"
	pkgerrors "github.com/zaliuojibanga/shop-core/pkg/errors"
	"github.com/zaliuojibanga/shop-core/pkg/logger"
	"github.com/zaliuojibanga/shop-core/pkg/metrics"
	"github.com/zaliuojibanga/shop-core/pkg/outbox"
	"github.com/zaliuojibanga/shop-core/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ConsentInput is one accepted document submitted with the confirmation.
type ConsentInput struct {
	Kind            enums.ConsentKind
	DocumentVersion string
}

// ConfirmInput is everything the buyer submits to place an order. Prices
// are never part of it; the server recomputes them.
type ConfirmInput struct {
	UserID            uuid.UUID
	CartOwner         cart.Owner
	ShippingAddressID uuid.UUID
	ShippingMethod    string
	PickupPointID     string
	PickupPointName   string
	PaymentMethod     string
	CouponCode        string
	IdempotencyKey    *string
	Consents          []ConsentInput
	IPAddress         *string
	UserAgent         string
}

// ConfirmResult is what the buyer needs to continue: the order and how to
// pay for it.
type ConfirmResult struct {
	OrderID             uuid.UUID
	Provider            enums.PaymentProvider
	Status              enums.PaymentStatus
	RedirectURL         *string
	PaymentInstructions string
	Replayed            bool
}

// Service places orders and moves them through their payment lifecycle.
type Service interface {
	Preview(ctx context.Context, input PreviewInput) (*Preview, error)
	Confirm(ctx context.Context, input ConfirmInput) (*ConfirmResult, error)
	MarkPaid(ctx context.Context, orderID uuid.UUID) error
	MarkFailed(ctx context.Context, orderID uuid.UUID, reason string) error
	MarkCancelled(ctx context.Context, orderID uuid.UUID, reason string) error
	ExpirePending(ctx context.Context, now time.Time) (int, error)
	RecalculateTotals(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
}

type service struct {
	repo         Repository
	tx           txRunner
	engine       *PreviewEngine
	cartRepo     cart.CartRepository
	cartSvc      cart.Service
	inventorySvc inventory.Service
	couponRepo   promotions.CouponRepository
	shippingRepo shipping.Repository
	providers    *payments.Registry
	outboxSvc    *outbox.Service
	cfg          config.CheckoutConfig
	bankDetails  string
	checkoutMx   *metrics.CheckoutMetrics
	jobMx        *metrics.JobMetrics
	logg         *logger.Logger
}

// NewService wires the checkout orchestrator.
func NewService(
	repo Repository,
	tx txRunner,
	engine *PreviewEngine,
	cartRepo cart.CartRepository,
	cartSvc cart.Service,
	inventorySvc inventory.Service,
	couponRepo promotions.CouponRepository,
	shippingRepo shipping.Repository,
	providers *payments.Registry,
	outboxSvc *outbox.Service,
	cfg config.CheckoutConfig,
	bankDetails string,
	checkoutMx *metrics.CheckoutMetrics,
	jobMx *metrics.JobMetrics,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("checkout repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if engine == nil {
		return nil, fmt.Errorf("preview engine required")
	}
	if cartRepo == nil || cartSvc == nil {
		return nil, fmt.Errorf("cart dependencies required")
	}
	if inventorySvc == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	if couponRepo == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	if shippingRepo == nil {
		return nil, fmt.Errorf("shipping repository required")
	}
	if providers == nil {
		return nil, fmt.Errorf("payment provider registry required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:         repo,
		tx:           tx,
		engine:       engine,
		cartRepo:     cartRepo,
		cartSvc:      cartSvc,
		inventorySvc: inventorySvc,
		couponRepo:   couponRepo,
		shippingRepo: shippingRepo,
		providers:    providers,
		outboxSvc:    outboxSvc,
		cfg:          cfg,
		bankDetails:  bankDetails,
		checkoutMx:   checkoutMx,
		jobMx:        jobMx,
		logg:         logg,
	}, nil
}

// Preview prices the owner's cart without writing anything.
func (s *service) Preview(ctx context.Context, input PreviewInput) (*Preview, error) {
	cartRecord, err := s.findCart(ctx, input.Owner)
	if err != nil {
		return nil, err
	}
	if input.CountryCode == "" {
		input.CountryCode = s.cfg.DefaultCountry
	}
	return s.engine.Price(ctx, cartRecord.ID, input, time.Now())
}

// Confirm atomically converts the cart into a pending order: prices it,
// reserves stock, redeems the coupon, opens the payment and clears the cart.
// With an idempotency key a retry returns the original order untouched.
func (s *service) Confirm(ctx context.Context, input ConfirmInput) (*ConfirmResult, error) {
	started := time.Now()
	result, err := s.confirm(ctx, input, started)
	s.checkoutMx.ObserveConfirmDuration(time.Since(started))
	switch {
	case err == nil && result.Replayed:
		s.checkoutMx.IncConfirm("replayed")
	case err == nil:
		s.checkoutMx.IncConfirm("created")
	case pkgerrors.IsCode(err, pkgerrors.CodeConflict) || pkgerrors.IsCode(err, pkgerrors.CodeStateConflict):
		s.checkoutMx.IncConfirm("conflict")
	case pkgerrors.IsCode(err, pkgerrors.CodeValidation) || pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
		s.checkoutMx.IncConfirm("rejected")
	default:
		s.checkoutMx.IncConfirm("error")
	}
	return result, err
}

func (s *service) confirm(ctx context.Context, input ConfirmInput, now time.Time) (*ConfirmResult, error) {
	provider, err := s.resolveProvider(input.PaymentMethod)
	if err != nil {
		return nil, err
	}

	if input.IdempotencyKey != nil && *input.IdempotencyKey != "" {
		existing, err := s.repo.OrderByIdempotencyKey(ctx, input.UserID, *input.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return s.replay(ctx, existing)
		}
	}

	if err := s.validateConsents(input.Consents); err != nil {
		return nil, err
	}

	address, err := s.repo.AddressByID(ctx, input.UserID, input.ShippingAddressID)
	if err != nil {
		return nil, err
	}

	method, err := s.shippingRepo.MethodByCode(ctx, input.ShippingMethod)
	if err != nil {
		return nil, err
	}
	if method.RequiresPickupPoint && input.PickupPointID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("shipping method %s requires a pickup point", method.Code))
	}

	cartRecord, err := s.findCart(ctx, input.CartOwner)
	if err != nil {
		return nil, err
	}

	preview, err := s.engine.Price(ctx, cartRecord.ID, PreviewInput{
		Owner:          input.CartOwner,
		CountryCode:    address.CountryCode,
		ShippingMethod: method.Code,
		PaymentMethod:  input.PaymentMethod,
		CouponCode:     input.CouponCode,
		Channel:        enums.OfferVisibilityNormal,
	}, now)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
			s.checkoutMx.IncStockConflict()
		}
		return nil, err
	}

	order := s.buildOrder(input, preview, address)
	var link *payments.Link

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if err := repo.CreateOrder(ctx, order); err != nil {
			return err
		}
		lines := buildOrderLines(order.ID, preview.Lines)
		if err := repo.CreateLines(ctx, lines); err != nil {
			return err
		}
		if err := s.inventorySvc.Reserve(ctx, tx, order.ID, reservationLines(lines)); err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
				s.checkoutMx.IncStockConflict()
			}
			return err
		}
		if err := repo.CreateConsents(ctx, buildConsents(order.ID, input)); err != nil {
			return err
		}
		if err := repo.CreateFees(ctx, buildOrderFees(order.ID, preview.Fees)); err != nil {
			return err
		}
		if preview.Discount != nil {
			if err := repo.CreateDiscounts(ctx, buildOrderDiscounts(order.ID, preview.Discount)); err != nil {
				return err
			}
			coupon, err := s.couponRepo.WithTx(tx).FindByCode(ctx, preview.Discount.Code)
			if err != nil {
				return err
			}
			if err := promotions.Redeem(ctx, tx, *coupon, order.ID, &input.UserID); err != nil {
				if pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
					s.checkoutMx.IncCouponOutcome("limit_reached")
				}
				return err
			}
			s.checkoutMx.IncCouponOutcome("redeemed")
		}

		created, err := provider.CreateLink(payments.LinkRequest{
			OrderID:     order.ID,
			AmountGross: order.TotalGross,
			Currency:    order.Currency,
			Purpose:     fmt.Sprintf("Order %s", order.ID),
		}, now)
		if err != nil {
			return err
		}
		link = created
		intent := buildIntent(order, provider.Code(), created)
		if err := repo.CreateIntent(ctx, intent); err != nil {
			return err
		}

		return s.outboxSvc.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.OrderCreatedEvent{
				OrderID:    order.ID,
				UserID:     order.UserID,
				Currency:   order.Currency,
				TotalGross: order.TotalGross,
				Provider:   provider.Code(),
				CouponCode: input.CouponCode,
			},
			OccurredAt: now,
		})
	})
	if err != nil {
		// The pre-check runs outside this transaction, so a concurrent confirm
		// with the same key can slip past it; the unique index arbitrates and
		// the loser replays the winner's order.
		if input.IdempotencyKey != nil && *input.IdempotencyKey != "" && isIdempotencyConflict(err) {
			existing, lookupErr := s.repo.OrderByIdempotencyKey(ctx, input.UserID, *input.IdempotencyKey)
			if lookupErr == nil && existing != nil {
				return s.replay(ctx, existing)
			}
		}
		return nil, err
	}

	// The cart is cleared after the commit so a crash between the two leaves
	// a placed order and a stale cart, never the reverse.
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.cartSvc.ClearTx(ctx, tx, cartRecord.ID)
	}); err != nil {
		s.logg.Warn(s.logg.WithOrderID(ctx, order.ID.String()), "order placed but cart cleanup failed: "+err.Error())
	}

	status := enums.PaymentStatusPending
	if link.RedirectURL != nil {
		status = enums.PaymentStatusRedirected
	}
	return &ConfirmResult{
		OrderID:             order.ID,
		Provider:            provider.Code(),
		Status:              status,
		RedirectURL:         link.RedirectURL,
		PaymentInstructions: s.instructionsFor(provider.Code()),
	}, nil
}

// isIdempotencyConflict matches the unique index on (user_id,
// idempotency_key) in both the postgres and the sqlite message shapes.
func isIdempotencyConflict(err error) bool {
	return db.IsUniqueViolation(err, "uniq_order_idempotency_per_user") ||
		db.IsUniqueViolation(err, "orders.idempotency_key")
}

func (s *service) replay(ctx context.Context, order *models.Order) (*ConfirmResult, error) {
	intent, err := s.repo.IntentForOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if intent == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order exists without payment intent")
	}
	return &ConfirmResult{
		OrderID:             order.ID,
		Provider:            intent.Provider,
		Status:              intent.Status,
		RedirectURL:         intent.RedirectURL,
		PaymentInstructions: s.instructionsFor(intent.Provider),
		Replayed:            true,
	}, nil
}

func (s *service) resolveProvider(code string) (payments.Provider, error) {
	parsed, err := enums.ParsePaymentProvider(code)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unsupported payment method")
	}
	return s.providers.Resolve(parsed)
}

func (s *service) validateConsents(consents []ConsentInput) error {
	byKind := make(map[enums.ConsentKind]string, len(consents))
	for _, consent := range consents {
		byKind[consent.Kind] = consent.DocumentVersion
	}
	for _, kind := range enums.RequiredConsentKinds() {
		if _, ok := byKind[kind]; !ok {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("missing %s consent", kind))
		}
	}
	if byKind[enums.ConsentKindTerms] != s.cfg.TermsVersion {
		return pkgerrors.New(pkgerrors.CodeConflict, "terms document version is outdated")
	}
	if byKind[enums.ConsentKindPrivacy] != s.cfg.PrivacyVersion {
		return pkgerrors.New(pkgerrors.CodeConflict, "privacy document version is outdated")
	}
	return nil
}

func (s *service) findCart(ctx context.Context, owner cart.Owner) (*models.Cart, error) {
	var (
		record *models.Cart
		err    error
	)
	switch {
	case owner.UserID != nil:
		record, err = s.cartRepo.FindByUser(ctx, *owner.UserID)
	case owner.SessionToken != nil:
		record, err = s.cartRepo.FindBySession(ctx, *owner.SessionToken)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart owner must be exactly one of user or session")
	}
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	return record, nil
}

func (s *service) instructionsFor(provider enums.PaymentProvider) string {
	if provider == enums.PaymentProviderBankTransfer {
		return s.bankDetails
	}
	return ""
}

func (s *service) buildOrder(input ConfirmInput, preview *Preview, address *models.UserAddress) *models.Order {
	order := &models.Order{
		ID:             uuid.New(),
		UserID:         input.UserID,
		Status:         enums.OrderStatusPendingPayment,
		IdempotencyKey: input.IdempotencyKey,
		Currency:       preview.Currency,
		CountryCode:    preview.CountryCode,

		ItemsNet:   preview.Items.Net,
		ItemsVAT:   preview.Items.VAT,
		ItemsGross: preview.Items.Gross,

		ShippingMethod: preview.ShippingMethod,
		ShippingNet:    preview.Shipping.Net,
		ShippingVAT:    preview.Shipping.VAT,
		ShippingGross:  preview.Shipping.Gross,

		TotalNet:   preview.Total.Net,
		TotalVAT:   preview.Total.VAT,
		TotalGross: preview.Total.Gross,

		ShippingFullName:   address.FullName,
		ShippingCompany:    address.Company,
		ShippingLine1:      address.Line1,
		ShippingCity:       address.City,
		ShippingPostalCode: address.PostalCode,
		ShippingCountry:    address.CountryCode,
		ShippingPhone:      address.Phone,

		PickupPointID:   input.PickupPointID,
		PickupPointName: input.PickupPointName,
	}
	if preview.Discount != nil {
		order.DiscountNet = preview.Discount.Net
		order.DiscountVAT = preview.Discount.VAT
		order.DiscountGross = preview.Discount.Gross
		code := preview.Discount.Code
		order.CouponCode = &code
	}
	return order
}

func buildOrderLines(orderID uuid.UUID, priced []PricedLine) []models.OrderLine {
	lines := make([]models.OrderLine, 0, len(priced))
	for _, line := range priced {
		variantID := line.VariantID
		lines = append(lines, models.OrderLine{
			ID:            uuid.New(),
			OrderID:       orderID,
			VariantID:     &variantID,
			OfferID:       line.OfferID,
			SKU:           line.SKU,
			Name:          line.Name,
			UnitNet:       line.UnitNet,
			VATRate:       line.VATRate,
			UnitVAT:       line.UnitVAT,
			UnitGross:     line.UnitGross,
			Qty:           line.Qty,
			TotalNet:      line.Total.Net,
			TotalVAT:      line.Total.VAT,
			TotalGross:    line.Total.Gross,
			Discounted:    line.Discounted,
			NeverDiscount: line.NeverDiscount,
		})
	}
	return lines
}

func reservationLines(lines []models.OrderLine) []inventory.ReservationLine {
	reservations := make([]inventory.ReservationLine, 0, len(lines))
	for _, line := range lines {
		reservations = append(reservations, inventory.ReservationLine{
			OrderLineID:     line.ID,
			InventoryItemID: *line.OfferID,
			Qty:             line.Qty,
		})
	}
	return reservations
}

func buildConsents(orderID uuid.UUID, input ConfirmInput) []models.OrderConsent {
	consents := make([]models.OrderConsent, 0, len(input.Consents))
	for _, consent := range input.Consents {
		consents = append(consents, models.OrderConsent{
			ID:              uuid.New(),
			OrderID:         orderID,
			Kind:            consent.Kind,
			DocumentVersion: consent.DocumentVersion,
			IPAddress:       input.IPAddress,
			UserAgent:       input.UserAgent,
		})
	}
	return consents
}

func buildOrderFees(orderID uuid.UUID, fees []PricedFee) []models.OrderFee {
	rows := make([]models.OrderFee, 0, len(fees))
	for _, fee := range fees {
		rows = append(rows, models.OrderFee{
			ID:      uuid.New(),
			OrderID: orderID,
			RuleID:  fee.RuleID,
			Code:    fee.Code,
			Name:    fee.Name,
			Net:     fee.Net,
			VATRate: fee.VATRate,
			VAT:     fee.VAT,
			Gross:   fee.Gross,
		})
	}
	return rows
}

func buildOrderDiscounts(orderID uuid.UUID, discount *PricedDiscount) []models.OrderDiscount {
	code := discount.Code
	return []models.OrderDiscount{{
		ID:           uuid.New(),
		OrderID:      orderID,
		Kind:         enums.DiscountKindCoupon,
		Code:         &code,
		Net:          discount.Net,
		VAT:          discount.VAT,
		Gross:        discount.Gross,
		FreeShipping: discount.FreeShipping,
	}}
}

func buildIntent(order *models.Order, provider enums.PaymentProvider, link *payments.Link) *models.PaymentIntent {
	status := enums.PaymentStatusPending
	if link.RedirectURL != nil {
		status = enums.PaymentStatusRedirected
	}
	externalID := fmt.Sprintf("order-%s", order.ID)
	return &models.PaymentIntent{
		ID:          uuid.New(),
		OrderID:     order.ID,
		Provider:    provider,
		Status:      status,
		Currency:    order.Currency,
		AmountGross: order.TotalGross,
		ExternalID:  &externalID,
		RedirectURL: link.RedirectURL,
		RawRequest:  link.Raw,
	}
}
