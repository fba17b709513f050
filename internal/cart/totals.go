package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TotalLine is a priced cart line within a totals breakdown.
type TotalLine struct {
	ItemID     uuid.UUID       `json:"item_id"`
	Title      string          `json:"title"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	LineTotal  decimal.Decimal `json:"line_total"`
	Discounted bool            `json:"discounted"`
}

// Totals is a priced view of the selected cart lines. Optimistic totals
// are computed locally; authoritative ones come back from the pricer.
type Totals struct {
	Currency      string          `json:"currency"`
	Total         decimal.Decimal `json:"total"`
	Lines         []TotalLine     `json:"lines"`
	Authoritative bool            `json:"authoritative"`
}

// Line returns the breakdown entry for the item id, if present.
func (t *Totals) Line(itemID uuid.UUID) (TotalLine, bool) {
	if t == nil {
		return TotalLine{}, false
	}
	for _, line := range t.Lines {
		if line.ItemID == itemID {
			return line, true
		}
	}
	return TotalLine{}, false
}

// IsEmpty reports whether the totals carry no priced lines.
func (t *Totals) IsEmpty() bool {
	return t == nil || len(t.Lines) == 0
}
