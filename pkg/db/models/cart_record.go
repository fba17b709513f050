package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/storefront-labs/storefront-backend/pkg/enums"
)

// CartRecord is the persisted head of a shopper's cart. Line items hang
// off it via CartItem.
type CartRecord struct {
	ID        uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProfileID uuid.UUID        `gorm:"column:profile_id;type:uuid;not null;uniqueIndex:idx_cart_profile_status"`
	Status    enums.CartStatus `gorm:"column:status;not null;default:'active';uniqueIndex:idx_cart_profile_status"`
	Currency  string           `gorm:"column:currency;not null;default:'USD'"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time        `gorm:"column:updated_at;autoUpdateTime"`

	Items []CartItem `gorm:"foreignKey:CartID"`
}
