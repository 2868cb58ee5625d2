package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/zaliuojibanga/shop-core/pkg/db/models"
	pkgerrors "github.com/zaliuojibanga/shop-core/pkg/errors"
)

// Repository reads catalog entities the order flow depends on. Catalog
// management itself lives elsewhere; this is a lookup surface only.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	VariantByID(ctx context.Context, id uuid.UUID) (*models.Variant, error)
	VariantsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Variant, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a catalog reader bound to the database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) VariantByID(ctx context.Context, id uuid.UUID) (*models.Variant, error) {
	var variant models.Variant
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&variant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
	}
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

func (r *repository) VariantsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Variant, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]models.Variant{}, nil
	}
	var variants []models.Variant
	err := r.db.WithContext(ctx).
		Where("id IN ? AND is_active = ?", ids, true).
		Find(&variants).Error
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.Variant, len(variants))
	for _, variant := range variants {
		byID[variant.ID] = variant
	}
	return byID, nil
}
