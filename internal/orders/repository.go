package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/zaliuojibanga/shop-core/pkg/db/models"
	pkgerrors "github.com/zaliuojibanga/shop-core/pkg/errors"
)

// Repository reads the order graph for buyer-facing views. All lookups are
// scoped to the owning user.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Order, error)
	CountForUser(ctx context.Context, userID uuid.UUID) (int64, error)
	ForUser(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
	Lines(ctx context.Context, orderID uuid.UUID) ([]models.OrderLine, error)
	Fees(ctx context.Context, orderID uuid.UUID) ([]models.OrderFee, error)
	Discounts(ctx context.Context, orderID uuid.UUID) ([]models.OrderDiscount, error)
	Intent(ctx context.Context, orderID uuid.UUID) (*models.PaymentIntent, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds the order read repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&orders).Error
	return orders, err
}

func (r *repository) CountForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

func (r *repository) ForUser(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", orderID, userID).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) Lines(ctx context.Context, orderID uuid.UUID) ([]models.OrderLine, error) {
	var lines []models.OrderLine
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&lines).Error
	return lines, err
}

func (r *repository) Fees(ctx context.Context, orderID uuid.UUID) ([]models.OrderFee, error) {
	var fees []models.OrderFee
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Find(&fees).Error
	return fees, err
}

func (r *repository) Discounts(ctx context.Context, orderID uuid.UUID) ([]models.OrderDiscount, error) {
	var discounts []models.OrderDiscount
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Find(&discounts).Error
	return discounts, err
}

func (r *repository) Intent(ctx context.Context, orderID uuid.UUID) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&intent).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &intent, nil
}
