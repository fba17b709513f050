package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/storefront-labs/storefront-backend/pkg/types"
)

// SellerInfo is the seller sub-document attached to a profile.
type SellerInfo struct {
	ID          uuid.UUID     `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProfileID   uuid.UUID     `gorm:"column:profile_id;type:uuid;not null;uniqueIndex"`
	StoreName   string        `gorm:"column:store_name;not null"`
	Description *string       `gorm:"column:description"`
	Phone       *string       `gorm:"column:phone"`
	Address     types.Address `gorm:"column:address;type:jsonb;serializer:json"`
	IsActive    bool          `gorm:"column:is_active;not null;default:true"`
	CreatedAt   time.Time     `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time     `gorm:"column:updated_at;autoUpdateTime"`
}
