package checkout

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefront-labs/storefront-backend/internal/cart"
	pkgerrors "github.com/storefront-labs/storefront-backend/pkg/errors"
	"github.com/storefront-labs/storefront-backend/pkg/money"
)

// PaymentItem is one purchasable line handed to the payment processor,
// fully denormalized so the processor side never reads the cart.
type PaymentItem struct {
	ItemID       uuid.UUID       `json:"item_id"`
	ProductID    uuid.UUID       `json:"product_id"`
	SellerID     uuid.UUID       `json:"seller_id"`
	Title        string          `json:"title"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	LineTotal    decimal.Decimal `json:"line_total"`
	VariantAttrs *string         `json:"variant_attrs,omitempty"`
	Discounted   bool            `json:"discounted"`
}

// Handoff is the payment-ready snapshot of a checkout: the surviving
// items joined with their authoritative pricing breakdown.
type Handoff struct {
	CartID   uuid.UUID       `json:"cart_id"`
	Currency string          `json:"currency"`
	Total    decimal.Decimal `json:"total"`
	Items    []PaymentItem   `json:"items"`
}

// AmountCents converts the handoff total to minor units for the
// payment processor. Totals are already rounded to currency precision.
func (h *Handoff) AmountCents() int64 {
	return h.Total.Mul(decimal.NewFromInt(100)).IntPart()
}

// BuildHandoff joins the selected items with the authoritative totals,
// preserving item order. Every item must have a breakdown entry and the
// total must be positive, otherwise the handoff is refused.
func BuildHandoff(cartID uuid.UUID, items []cart.Item, totals *cart.Totals) (*Handoff, error) {
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "no items to hand off for payment")
	}
	if totals == nil || !totals.Authoritative {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment requires authoritative totals")
	}
	if !money.IsPositive(totals.Total) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment total must be positive")
	}

	handoff := &Handoff{
		CartID:   cartID,
		Currency: totals.Currency,
		Total:    money.Round(totals.Total),
		Items:    make([]PaymentItem, 0, len(items)),
	}
	for _, item := range items {
		line, ok := totals.Line(item.ID)
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "missing pricing for item "+item.ID.String())
		}
		handoff.Items = append(handoff.Items, PaymentItem{
			ItemID:       item.ID,
			ProductID:    item.ProductID,
			SellerID:     item.SellerID,
			Title:        item.Title,
			Quantity:     line.Quantity,
			UnitPrice:    line.UnitPrice,
			LineTotal:    line.LineTotal,
			VariantAttrs: item.VariantAttrs,
			Discounted:   line.Discounted,
		})
	}
	return handoff, nil
}
