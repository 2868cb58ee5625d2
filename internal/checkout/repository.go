package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/zaliuojibanga/shop-core/pkg/db/models"
	"github.com/zaliuojibanga/shop-core/pkg/enums"
	pkgerrors "github.com/zaliuojibanga/shop-core/pkg/errors"
)

// Repository persists the order graph and its payment intent.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateOrder(ctx context.Context, order *models.Order) error
	CreateLines(ctx context.Context, lines []models.OrderLine) error
	CreateFees(ctx context.Context, fees []models.OrderFee) error
	CreateDiscounts(ctx context.Context, discounts []models.OrderDiscount) error
	CreateConsents(ctx context.Context, consents []models.OrderConsent) error
	CreateIntent(ctx context.Context, intent *models.PaymentIntent) error

	OrderByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	OrderByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (*models.Order, error)
	IntentForOrder(ctx context.Context, orderID uuid.UUID) (*models.PaymentIntent, error)
	LinesForOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderLine, error)
	FeesForOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderFee, error)
	DiscountsForOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderDiscount, error)

	AddressByID(ctx context.Context, userID, addressID uuid.UUID) (*models.UserAddress, error)

	SaveOrder(ctx context.Context, order *models.Order) error
	SaveIntent(ctx context.Context, intent *models.PaymentIntent) error
	ExpiredPendingOrders(ctx context.Context, gatewayBefore, bankTransferBefore time.Time, limit int) ([]models.Order, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an order repository bound to the database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) CreateLines(ctx context.Context, lines []models.OrderLine) error {
	if len(lines) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&lines).Error
}

func (r *repository) CreateFees(ctx context.Context, fees []models.OrderFee) error {
	if len(fees) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&fees).Error
}

func (r *repository) CreateDiscounts(ctx context.Context, discounts []models.OrderDiscount) error {
	if len(discounts) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&discounts).Error
}

func (r *repository) CreateConsents(ctx context.Context, consents []models.OrderConsent) error {
	if len(consents) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&consents).Error
}

func (r *repository) CreateIntent(ctx context.Context, intent *models.PaymentIntent) error {
	return r.db.WithContext(ctx).Create(intent).Error
}

func (r *repository) OrderByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).First(&order, "id = ?", orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) OrderByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND idempotency_key = ?", userID, key).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) IntentForOrder(ctx context.Context, orderID uuid.UUID) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&intent).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &intent, nil
}

func (r *repository) LinesForOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderLine, error) {
	var lines []models.OrderLine
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&lines).Error
	return lines, err
}

func (r *repository) FeesForOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderFee, error) {
	var fees []models.OrderFee
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Find(&fees).Error
	return fees, err
}

func (r *repository) DiscountsForOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderDiscount, error) {
	var discounts []models.OrderDiscount
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Find(&discounts).Error
	return discounts, err
}

func (r *repository) AddressByID(ctx context.Context, userID, addressID uuid.UUID) (*models.UserAddress, error) {
	var address models.UserAddress
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", addressID, userID).
		First(&address).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shipping address not found")
	}
	if err != nil {
		return nil, err
	}
	return &address, nil
}

func (r *repository) SaveOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Save(order).Error
}

func (r *repository) SaveIntent(ctx context.Context, intent *models.PaymentIntent) error {
	return r.db.WithContext(ctx).Save(intent).Error
}

// ExpiredPendingOrders pages through pending orders whose reservation TTL
// has lapsed: gateway intents expire fast, bank transfers get days.
func (r *repository) ExpiredPendingOrders(ctx context.Context, gatewayBefore, bankTransferBefore time.Time, limit int) ([]models.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Joins("JOIN payment_intents ON payment_intents.order_id = orders.id").
		Where("orders.status = ?", enums.OrderStatusPendingPayment).
		Where(
			r.db.Where("payment_intents.provider = ? AND orders.created_at < ?", enums.PaymentProviderBankTransfer, bankTransferBefore).
				Or("payment_intents.provider <> ? AND orders.created_at < ?", enums.PaymentProviderBankTransfer, gatewayBefore),
		).
		Order("orders.created_at ASC").
		Limit(limit).
		Find(&orders).Error
	return orders, err
}
