package cart

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func TestComputeOptimisticEmptySelection(t *testing.T) {
	item := Item{ID: uuid.New(), Title: "Mug", Quantity: 2, Currency: "EUR", UnitPrice: dec(t, "9.99")}
	sel := NewSelectionState()
	sel.SyncWithItems([]Item{item})
	sel.Toggle(item.ID)

	totals := ComputeOptimistic([]Item{item}, sel, "USD")
	if !totals.Total.IsZero() {
		t.Fatalf("expected zero total, got %s", totals.Total)
	}
	if len(totals.Lines) != 0 {
		t.Fatalf("expected empty breakdown, got %d lines", len(totals.Lines))
	}
	if totals.Currency != "USD" {
		t.Fatalf("expected fallback currency, got %s", totals.Currency)
	}
	if totals.Authoritative {
		t.Fatalf("optimistic totals must not be authoritative")
	}
}

func TestComputeOptimisticBulkDiscount(t *testing.T) {
	// 50.00 with 10% off at qty >= 6: line = 50 * 0.9 * 6 = 270.00
	item := Item{
		ID:        uuid.New(),
		Title:     "Carafe",
		Quantity:  6,
		Currency:  "USD",
		UnitPrice: dec(t, "50.00"),
		Bulk:      &BulkDiscountRule{MinQty: 6, PercentOff: dec(t, "10")},
	}
	sel := NewSelectionState()
	sel.SyncWithItems([]Item{item})

	totals := ComputeOptimistic([]Item{item}, sel, "USD")
	if got := totals.Total.StringFixed(2); got != "270.00" {
		t.Fatalf("expected 270.00, got %s", got)
	}
	if !totals.Lines[0].Discounted {
		t.Fatalf("line should be flagged discounted")
	}

	// Below the threshold the listed price applies.
	item.Quantity = 5
	sel = NewSelectionState()
	sel.SyncWithItems([]Item{item})
	totals = ComputeOptimistic([]Item{item}, sel, "USD")
	if got := totals.Total.StringFixed(2); got != "250.00" {
		t.Fatalf("expected 250.00 below threshold, got %s", got)
	}
	if totals.Lines[0].Discounted {
		t.Fatalf("line below threshold must not be discounted")
	}
}

func TestComputeOptimisticRoundsHalfUpPerLine(t *testing.T) {
	// 0.335 * 3 = 1.005, which rounds half-up to 1.01.
	a := Item{ID: uuid.New(), Title: "Washer", Quantity: 3, Currency: "USD", UnitPrice: dec(t, "0.335")}
	b := Item{ID: uuid.New(), Title: "Bolt", Quantity: 1, Currency: "USD", UnitPrice: dec(t, "2.00")}
	sel := NewSelectionState()
	sel.SyncWithItems([]Item{a, b})

	totals := ComputeOptimistic([]Item{a, b}, sel, "USD")
	line, ok := totals.Line(a.ID)
	if !ok {
		t.Fatalf("missing line for item a")
	}
	if got := line.LineTotal.StringFixed(2); got != "1.01" {
		t.Fatalf("expected line 1.01, got %s", got)
	}
	if got := totals.Total.StringFixed(2); got != "3.01" {
		t.Fatalf("total must be the sum of rounded lines, got %s", got)
	}
}

func TestComputeOptimisticCurrencyFromFirstSelected(t *testing.T) {
	a := Item{ID: uuid.New(), Quantity: 1, Currency: "EUR", UnitPrice: dec(t, "5.00")}
	b := Item{ID: uuid.New(), Quantity: 1, Currency: "GBP", UnitPrice: dec(t, "5.00")}
	sel := NewSelectionState()
	sel.SyncWithItems([]Item{a, b})
	sel.Toggle(a.ID)

	totals := ComputeOptimistic([]Item{a, b}, sel, "USD")
	if totals.Currency != "GBP" {
		t.Fatalf("expected currency of first selected item, got %s", totals.Currency)
	}
}
