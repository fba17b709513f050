package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the catalog listing a cart line snapshots from.
type Product struct {
	ID             uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID       uuid.UUID        `gorm:"column:seller_id;type:uuid;not null;index"`
	Title          string           `gorm:"column:title;not null"`
	Description    *string          `gorm:"column:description"`
	Currency       string           `gorm:"column:currency;not null;default:'USD'"`
	Price          decimal.Decimal  `gorm:"column:price;type:numeric(12,2);not null"`
	AvailableStock int              `gorm:"column:available_stock;not null;default:0"`
	IsActive       bool             `gorm:"column:is_active;not null;default:true"`
	BulkMinQty     *int             `gorm:"column:bulk_min_qty"`
	BulkPercentOff *decimal.Decimal `gorm:"column:bulk_percent_off;type:numeric(5,2)"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
