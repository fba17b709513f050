package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartItem snapshots the product fields pricing needs at add time, so a
// cart stays computable even while the listing changes underneath it.
type CartItem struct {
	ID             uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID         uuid.UUID        `gorm:"column:cart_id;type:uuid;not null;index"`
	ProductID      uuid.UUID        `gorm:"column:product_id;type:uuid;not null"`
	SellerID       uuid.UUID        `gorm:"column:seller_id;type:uuid;not null"`
	Title          string           `gorm:"column:title;not null"`
	Quantity       int              `gorm:"column:quantity;not null"`
	Selected       bool             `gorm:"column:selected;not null;default:true"`
	Currency       string           `gorm:"column:currency;not null;default:'USD'"`
	UnitPrice      decimal.Decimal  `gorm:"column:unit_price;type:numeric(12,2);not null"`
	StockSnapshot  int              `gorm:"column:stock_snapshot;not null;default:0"`
	BulkMinQty     *int             `gorm:"column:bulk_min_qty"`
	BulkPercentOff *decimal.Decimal `gorm:"column:bulk_percent_off;type:numeric(5,2)"`
	VariantAttrs   *string          `gorm:"column:variant_attrs;type:jsonb"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
