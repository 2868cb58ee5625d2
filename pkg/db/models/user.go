package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the minimal account record carts and orders hang off.
// Account management lives outside this service.
type User struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Email     string    `gorm:"column:email;not null;uniqueIndex"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// UserAddress is a saved shipping address; orders copy it into a snapshot.
type UserAddress struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID      uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	FullName    string    `gorm:"column:full_name;not null"`
	Company     string    `gorm:"column:company"`
	Line1       string    `gorm:"column:line1;not null"`
	City        string    `gorm:"column:city;not null"`
	PostalCode  string    `gorm:"column:postal_code;size:32;not null"`
	CountryCode string    `gorm:"column:country_code;size:2;not null"`
	Phone       string    `gorm:"column:phone;size:32"`
	IsDefault   bool      `gorm:"column:is_default;not null;default:false"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
