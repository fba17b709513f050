package cart

import (
	"github.com/shopspring/decimal"

	"github.com/storefront-labs/storefront-backend/pkg/money"
)

// ComputeOptimistic prices the selected lines locally so the client sees
// an instant total while the authoritative quote is in flight. It is a
// pure function of the item list and selection.
//
// Lines are rounded half-up to 2 decimals individually; the total is the
// sum of rounded lines. An empty selection yields a zero total with the
// fallback currency.
func ComputeOptimistic(items []Item, selection SelectionState, fallbackCurrency string) Totals {
	totals := Totals{
		Currency: fallbackCurrency,
		Total:    decimal.Zero,
		Lines:    []TotalLine{},
	}

	currencySet := false
	for _, item := range items {
		if !selection.IsSelected(item.ID) {
			continue
		}
		if !currencySet && item.Currency != "" {
			totals.Currency = item.Currency
			currencySet = true
		}

		unit := item.UnitPrice
		discounted := item.DiscountApplies()
		if discounted {
			unit = money.ApplyPercentOff(unit, item.Bulk.PercentOff)
		}

		lineTotal := money.Line(unit, item.Quantity)
		totals.Lines = append(totals.Lines, TotalLine{
			ItemID:     item.ID,
			Title:      item.Title,
			Quantity:   item.Quantity,
			UnitPrice:  money.Round(unit),
			LineTotal:  lineTotal,
			Discounted: discounted,
		})
		totals.Total = totals.Total.Add(lineTotal)
	}

	totals.Total = money.Round(totals.Total)
	return totals
}
