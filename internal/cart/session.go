package cart

import (
	"sync"

	"github.com/google/uuid"
)

// Session holds the mutable pricing state for one shopper's cart: the
// loaded items, the selection, the last published totals, and a selection
// epoch. Every selection mutation advances the epoch; an authoritative
// quote is only applied if the epoch it was requested under is still
// current, so late responses for superseded selections are discarded.
type Session struct {
	mu               sync.Mutex
	cartID           uuid.UUID
	items            []Item
	selection        SelectionState
	epoch            uint64
	lastKnown        Totals
	fallbackCurrency string
}

// NewSession builds a session for the cart with an empty item list.
func NewSession(cartID uuid.UUID, fallbackCurrency string) *Session {
	s := &Session{
		cartID:           cartID,
		selection:        NewSelectionState(),
		fallbackCurrency: fallbackCurrency,
	}
	s.lastKnown = ComputeOptimistic(nil, s.selection, fallbackCurrency)
	return s
}

// CartID returns the cart this session tracks.
func (s *Session) CartID() uuid.UUID {
	return s.cartID
}

// SetItems replaces the item list, reconciles the selection (new items
// selected by default, removed items pruned), advances the epoch and
// republishes optimistic totals.
func (s *Session) SetItems(items []Item) (Totals, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = append([]Item(nil), items...)
	s.selection.SyncWithItems(s.items)
	return s.republishLocked()
}

// Toggle flips the selection for the item and republishes optimistic totals.
func (s *Session) Toggle(itemID uuid.UUID) (Totals, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.selection.Toggle(itemID)
	return s.republishLocked()
}

// Deselect unselects the given items (used when remediation drops errored
// lines) and republishes optimistic totals.
func (s *Session) Deselect(itemIDs ...uuid.UUID) (Totals, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range itemIDs {
		s.selection.Deselect(id)
	}
	return s.republishLocked()
}

func (s *Session) republishLocked() (Totals, uint64) {
	s.epoch++
	s.lastKnown = ComputeOptimistic(s.items, s.selection, s.fallbackCurrency)
	return s.lastKnown, s.epoch
}

// ApplyAuthoritative installs an authoritative quote if the session has
// not advanced past the epoch the quote was requested under. Returns
// false when the response is stale, in which case the last-known totals
// are untouched.
func (s *Session) ApplyAuthoritative(epoch uint64, totals Totals) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch {
		return false
	}
	totals.Authoritative = true
	s.lastKnown = totals
	return true
}

// Epoch reports the current selection epoch.
func (s *Session) Epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// LastKnown returns the most recently published totals, optimistic or
// authoritative. On quote failure callers keep serving this value.
func (s *Session) LastKnown() Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastKnown
}

// SelectedIDs returns the currently selected item ids in item order.
func (s *Session) SelectedIDs() []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection.SelectedIDs(s.items)
}

// SelectedItems returns copies of the selected items in item order.
func (s *Session) SelectedItems() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Item, 0, len(s.items))
	for _, item := range s.items {
		if s.selection.IsSelected(item.ID) {
			out = append(out, item)
		}
	}
	return out
}

// HasSelection reports whether any item is selected.
func (s *Session) HasSelection() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range s.items {
		if s.selection.IsSelected(item.ID) {
			return true
		}
	}
	return false
}
