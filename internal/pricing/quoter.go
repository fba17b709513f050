package pricing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefront-labs/storefront-backend/internal/cart"
	pkgerrors "github.com/storefront-labs/storefront-backend/pkg/errors"
	"github.com/storefront-labs/storefront-backend/pkg/money"
)

// Quoter returns authoritative totals for a set of selected items.
type Quoter interface {
	Quote(ctx context.Context, itemIDs []uuid.UUID) (*cart.Totals, error)
}

type caller interface {
	Call(ctx context.Context, name string, payload any, out any) error
}

const quoteCallable = "getCartTotals"

type callableQuoter struct {
	client caller
}

// NewCallableQuoter builds the remote pricer boundary over the callable client.
func NewCallableQuoter(client caller) (Quoter, error) {
	if client == nil {
		return nil, fmt.Errorf("callable client required")
	}
	return &callableQuoter{client: client}, nil
}

type quoteRequest struct {
	ItemIDs []uuid.UUID `json:"item_ids"`
}

type quoteLine struct {
	ItemID     uuid.UUID       `json:"item_id"`
	Title      string          `json:"title"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	LineTotal  decimal.Decimal `json:"line_total"`
	Discounted bool            `json:"discounted"`
}

type quoteResponse struct {
	Currency string          `json:"currency"`
	Total    decimal.Decimal `json:"total"`
	Lines    []quoteLine     `json:"lines"`
}

// Quote fetches authoritative totals for the selected items. A quoted
// total that is not positive for a non-empty selection is rejected here,
// before any payment flow can consume it.
func (q *callableQuoter) Quote(ctx context.Context, itemIDs []uuid.UUID) (*cart.Totals, error) {
	if len(itemIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot quote an empty selection")
	}

	var resp quoteResponse
	if err := q.client.Call(ctx, quoteCallable, quoteRequest{ItemIDs: itemIDs}, &resp); err != nil {
		return nil, err
	}

	if !money.IsPositive(resp.Total) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "quoted total must be positive for a non-empty selection")
	}

	totals := &cart.Totals{
		Currency:      resp.Currency,
		Total:         money.Round(resp.Total),
		Lines:         make([]cart.TotalLine, 0, len(resp.Lines)),
		Authoritative: true,
	}
	for _, line := range resp.Lines {
		totals.Lines = append(totals.Lines, cart.TotalLine{
			ItemID:     line.ItemID,
			Title:      line.Title,
			Quantity:   line.Quantity,
			UnitPrice:  money.Round(line.UnitPrice),
			LineTotal:  money.Round(line.LineTotal),
			Discounted: line.Discounted,
		})
	}
	return totals, nil
}
