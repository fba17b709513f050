package models

import (
	"time"

	dbtypes "github.com/storefront-labs/storefront-backend/pkg/db/types"
	"github.com/google/uuid"
)

// Profile is the user's document in the local store, keyed by the external
// identity provider's uid.
type Profile struct {
	ID                uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	IdentityUID       string            `gorm:"column:identity_uid;not null;uniqueIndex"`
	Email             string            `gorm:"column:email;not null;uniqueIndex"`
	DisplayName       string            `gorm:"column:display_name;not null"`
	Phone             *string           `gorm:"column:phone"`
	PhotoURL          *string           `gorm:"column:photo_url"`
	SquareCustomerID  *string           `gorm:"column:square_customer_id"`
	TwoFactorEnabled  bool              `gorm:"column:two_factor_enabled;not null;default:false"`
	TwoFactorMethod   *string           `gorm:"column:two_factor_method"`
	FavoriteSellerIDs dbtypes.UUIDArray `gorm:"type:uuid[];column:favorite_seller_ids;not null;default:ARRAY[]::uuid[]"`
	SellerInfo        *SellerInfo       `gorm:"foreignKey:ProfileID;constraint:OnDelete:CASCADE"`
	Addresses         []AddressRecord   `gorm:"foreignKey:ProfileID;constraint:OnDelete:CASCADE"`
	PaymentMethods    []PaymentMethod   `gorm:"foreignKey:ProfileID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
