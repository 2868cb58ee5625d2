package shipping

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/zaliuojibanga/shop-core/pkg/db/models"
	pkgerrors "github.com/zaliuojibanga/shop-core/pkg/errors"
)

// Repository resolves shipping methods and their per-country rates.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	MethodByCode(ctx context.Context, code string) (*models.ShippingMethod, error)
	ListMethods(ctx context.Context) ([]models.ShippingMethod, error)
	RateFor(ctx context.Context, methodID uuid.UUID, countryCode string) (decimal.Decimal, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a shipping repository bound to the database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) MethodByCode(ctx context.Context, code string) (*models.ShippingMethod, error) {
	var method models.ShippingMethod
	err := r.db.WithContext(ctx).
		Where("code = ? AND is_active = ?", code, true).
		First(&method).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("shipping method %q not found", code))
	}
	if err != nil {
		return nil, err
	}
	return &method, nil
}

func (r *repository) ListMethods(ctx context.Context) ([]models.ShippingMethod, error) {
	var methods []models.ShippingMethod
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("sort_order ASC, code ASC").
		Find(&methods).Error
	return methods, err
}

// RateFor looks up the net shipping price of a method for a destination.
// A method without a configured rate for the country is a configuration
// fault and must not silently ship for free.
func (r *repository) RateFor(ctx context.Context, methodID uuid.UUID, countryCode string) (decimal.Decimal, error) {
	var rate models.ShippingRate
	err := r.db.WithContext(ctx).
		Where("method_id = ? AND country_code = ? AND is_active = ?", methodID, countryCode, true).
		First(&rate).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeConfiguration,
			fmt.Sprintf("no shipping rate configured for country %s", countryCode))
	}
	if err != nil {
		return decimal.Zero, err
	}
	return rate.NetPrice, nil
}
