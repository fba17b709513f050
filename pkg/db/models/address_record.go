package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/storefront-labs/storefront-backend/pkg/types"
)

// AddressRecord is one entry in a profile's address sub-collection.
type AddressRecord struct {
	ID        uuid.UUID     `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProfileID uuid.UUID     `gorm:"column:profile_id;type:uuid;not null;index"`
	Address   types.Address `gorm:"column:address;type:jsonb;serializer:json"`
	IsDefault bool          `gorm:"column:is_default;not null;default:false"`
	CreatedAt time.Time     `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time     `gorm:"column:updated_at;autoUpdateTime"`
}
