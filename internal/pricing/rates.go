package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/zaliuojibanga/shop-core/pkg/db/models"
	pkgerrors "github.com/zaliuojibanga/shop-core/pkg/errors"
)

// RateSource resolves the VAT rate effective for a tax class in a country at
// a point in time.
type RateSource interface {
	WithTx(tx *gorm.DB) RateSource
	RateFor(ctx context.Context, taxClassID uuid.UUID, countryCode string, at time.Time) (decimal.Decimal, error)
	ClassByCode(ctx context.Context, code string) (*models.TaxClass, error)
}

type rateSource struct {
	db *gorm.DB
}

// NewRateSource returns a rate source bound to the provided database.
func NewRateSource(db *gorm.DB) RateSource {
	return &rateSource{db: db}
}

func (r *rateSource) WithTx(tx *gorm.DB) RateSource {
	if tx == nil {
		return r
	}
	return &rateSource{db: tx}
}

// RateFor picks the active rate whose validity window covers the given
// instant. When overlapping windows exist, the one with the latest
// valid_from wins. A missing rate is a configuration fault, not a pricing
// fallback.
func (r *rateSource) RateFor(ctx context.Context, taxClassID uuid.UUID, countryCode string, at time.Time) (decimal.Decimal, error) {
	var rate models.TaxRate
	err := r.db.WithContext(ctx).
		Where("tax_class_id = ? AND country_code = ? AND is_active = ?", taxClassID, countryCode, true).
		Where("valid_from <= ?", at).
		Where("valid_to IS NULL OR valid_to >= ?", at).
		Order("valid_from DESC").
		First(&rate).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeConfiguration,
			fmt.Sprintf("no VAT rate configured for tax class %s in %s", taxClassID, countryCode))
	}
	if err != nil {
		return decimal.Zero, err
	}
	return rate.Rate, nil
}

// ClassByCode finds an active tax class. Returns nil without an error when
// the code is not configured; shipping and fee pricing fall back to a zero
// rate in that case.
func (r *rateSource) ClassByCode(ctx context.Context, code string) (*models.TaxClass, error) {
	var class models.TaxClass
	err := r.db.WithContext(ctx).
		Where("code = ? AND is_active = ?", code, true).
		First(&class).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &class, nil
}
