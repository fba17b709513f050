package cart

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func sessionWithItems(t *testing.T, items ...Item) *Session {
	t.Helper()
	s := NewSession(uuid.New(), "USD")
	s.SetItems(items)
	return s
}

func TestSessionEpochAdvancesOnMutation(t *testing.T) {
	item := Item{ID: uuid.New(), Quantity: 1, Currency: "USD", UnitPrice: decimal.NewFromInt(10)}
	s := NewSession(uuid.New(), "USD")

	_, e1 := s.SetItems([]Item{item})
	_, e2 := s.Toggle(item.ID)
	_, e3 := s.Deselect(item.ID)

	if !(e1 < e2 && e2 < e3) {
		t.Fatalf("epochs must be strictly increasing: %d %d %d", e1, e2, e3)
	}
	if s.Epoch() != e3 {
		t.Fatalf("Epoch() out of sync")
	}
}

func TestSessionRejectsStaleAuthoritative(t *testing.T) {
	item := Item{ID: uuid.New(), Title: "Mug", Quantity: 1, Currency: "USD", UnitPrice: decimal.NewFromInt(10)}
	s := sessionWithItems(t, item)

	staleEpoch := s.Epoch()
	s.Toggle(item.ID) // selection changed while the quote was in flight

	applied := s.ApplyAuthoritative(staleEpoch, Totals{Currency: "USD", Total: decimal.NewFromInt(99)})
	if applied {
		t.Fatalf("stale response must be discarded")
	}
	if s.LastKnown().Authoritative {
		t.Fatalf("stale response must not mark totals authoritative")
	}
	if s.LastKnown().Total.Equal(decimal.NewFromInt(99)) {
		t.Fatalf("stale totals leaked into session")
	}
}

func TestSessionAppliesCurrentAuthoritative(t *testing.T) {
	item := Item{ID: uuid.New(), Title: "Mug", Quantity: 1, Currency: "USD", UnitPrice: decimal.NewFromInt(10)}
	s := sessionWithItems(t, item)

	quote := Totals{Currency: "USD", Total: decimal.RequireFromString("9.50")}
	if !s.ApplyAuthoritative(s.Epoch(), quote) {
		t.Fatalf("current-epoch response must apply")
	}
	last := s.LastKnown()
	if !last.Authoritative {
		t.Fatalf("applied quote must be authoritative")
	}
	if got := last.Total.StringFixed(2); got != "9.50" {
		t.Fatalf("expected 9.50, got %s", got)
	}
}

func TestSessionKeepsLastKnownAcrossFailures(t *testing.T) {
	item := Item{ID: uuid.New(), Title: "Mug", Quantity: 2, Currency: "USD", UnitPrice: decimal.NewFromInt(10)}
	s := sessionWithItems(t, item)

	// A quote failure applies nothing; the optimistic value stays current.
	before := s.LastKnown()
	if got := before.Total.StringFixed(2); got != "20.00" {
		t.Fatalf("expected optimistic 20.00, got %s", got)
	}
	if before.Authoritative {
		t.Fatalf("optimistic totals must not be authoritative")
	}
}

func TestSessionSelectedItemsAndHasSelection(t *testing.T) {
	a := Item{ID: uuid.New(), Quantity: 1, Currency: "USD", UnitPrice: decimal.NewFromInt(1)}
	b := Item{ID: uuid.New(), Quantity: 1, Currency: "USD", UnitPrice: decimal.NewFromInt(2)}
	s := sessionWithItems(t, a, b)

	if !s.HasSelection() {
		t.Fatalf("expected selection by default")
	}

	s.Deselect(a.ID, b.ID)
	if s.HasSelection() {
		t.Fatalf("expected empty selection after deselect")
	}
	if got := len(s.SelectedItems()); got != 0 {
		t.Fatalf("expected 0 selected items, got %d", got)
	}
	if got := len(s.SelectedIDs()); got != 0 {
		t.Fatalf("expected 0 selected ids, got %d", got)
	}
}
