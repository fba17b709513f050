package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/storefront-labs/storefront-backend/pkg/enums"
)

// PaymentMethod mirrors a card vaulted with the payment provider.
type PaymentMethod struct {
	ID           uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProfileID    uuid.UUID               `gorm:"column:profile_id;type:uuid;not null;index"`
	SquareCardID string                  `gorm:"column:square_card_id;not null;unique"`
	Type         enums.PaymentMethodType `gorm:"column:type;not null;default:'card'"`
	CardBrand    *string                 `gorm:"column:card_brand"`
	CardLast4    *string                 `gorm:"column:card_last4"`
	CardExpMonth *int                    `gorm:"column:card_exp_month"`
	CardExpYear  *int                    `gorm:"column:card_exp_year"`
	IsDefault    bool                    `gorm:"column:is_default;not null;default:false"`
	CreatedAt    time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
