package models

import (
	"time"

	"github.com/google/uuid"
)

// Cart belongs to exactly one user or one anonymous session, never both.
// Created lazily on first write, merged into the user cart on login, deleted
// on successful checkout.
type Cart struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	UserID       *uuid.UUID `gorm:"column:user_id;type:uuid;uniqueIndex"`
	SessionToken *string    `gorm:"column:session_token;size:64;uniqueIndex"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// CartItem is a pending line: variant, optional pinned offer, quantity >= 1.
// One row per variant when no offer is pinned, one row per offer otherwise.
type CartItem struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	CartID    uuid.UUID  `gorm:"column:cart_id;type:uuid;not null;index"`
	VariantID uuid.UUID  `gorm:"column:variant_id;type:uuid;not null"`
	OfferID   *uuid.UUID `gorm:"column:offer_id;type:uuid"`
	Qty       int        `gorm:"column:qty;not null;default:1"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
