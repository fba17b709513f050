package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefront-labs/storefront-backend/pkg/db/models"
	pkgerrors "github.com/storefront-labs/storefront-backend/pkg/errors"
)

// BulkDiscountRule lowers the unit price once the line quantity reaches
// the threshold.
type BulkDiscountRule struct {
	MinQty     int
	PercentOff decimal.Decimal
}

// Validate enforces threshold > 0 and percent within [0, 100].
func (r BulkDiscountRule) Validate() error {
	if r.MinQty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "bulk discount threshold must be positive")
	}
	if r.PercentOff.IsNegative() || r.PercentOff.GreaterThan(decimal.NewFromInt(100)) {
		return pkgerrors.New(pkgerrors.CodeValidation, "bulk discount percent must be between 0 and 100")
	}
	return nil
}

// Item is the in-session view of a cart line.
type Item struct {
	ID           uuid.UUID
	ProductID    uuid.UUID
	SellerID     uuid.UUID
	Title        string
	Quantity     int
	Currency     string
	UnitPrice    decimal.Decimal
	Stock        int
	Bulk         *BulkDiscountRule
	VariantAttrs *string
}

// DiscountApplies reports whether the bulk rule kicks in for the line's quantity.
func (i Item) DiscountApplies() bool {
	return i.Bulk != nil && i.Quantity >= i.Bulk.MinQty
}

// ItemFromModel maps a persisted cart item into the session view.
func ItemFromModel(m models.CartItem) Item {
	item := Item{
		ID:           m.ID,
		ProductID:    m.ProductID,
		SellerID:     m.SellerID,
		Title:        m.Title,
		Quantity:     m.Quantity,
		Currency:     m.Currency,
		UnitPrice:    m.UnitPrice,
		Stock:        m.StockSnapshot,
		VariantAttrs: m.VariantAttrs,
	}
	if m.BulkMinQty != nil && m.BulkPercentOff != nil {
		item.Bulk = &BulkDiscountRule{
			MinQty:     *m.BulkMinQty,
			PercentOff: *m.BulkPercentOff,
		}
	}
	return item
}

// ItemsFromModels maps persisted rows preserving order.
func ItemsFromModels(rows []models.CartItem) []Item {
	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, ItemFromModel(row))
	}
	return items
}
