package cart

import "github.com/google/uuid"

// SelectionState tracks which cart items participate in pricing and
// checkout. Items are selected by default when first seen.
type SelectionState map[uuid.UUID]bool

// NewSelectionState returns an empty selection.
func NewSelectionState() SelectionState {
	return SelectionState{}
}

// Toggle flips the selection flag for the item. Unknown ids toggle from
// the selected default, so a first toggle deselects.
func (s SelectionState) Toggle(itemID uuid.UUID) {
	current, ok := s[itemID]
	if !ok {
		current = true
	}
	s[itemID] = !current
}

// IsSelected reports the flag for the item, defaulting to selected.
func (s SelectionState) IsSelected(itemID uuid.UUID) bool {
	if flag, ok := s[itemID]; ok {
		return flag
	}
	return true
}

// SyncWithItems reconciles the selection against the current item list.
// Unseen ids are initialized to selected; ids no longer present are
// pruned immediately so the tracked set never outlives the cart.
func (s SelectionState) SyncWithItems(items []Item) {
	present := make(map[uuid.UUID]struct{}, len(items))
	for _, item := range items {
		present[item.ID] = struct{}{}
		if _, ok := s[item.ID]; !ok {
			s[item.ID] = true
		}
	}
	for id := range s {
		if _, ok := present[id]; !ok {
			delete(s, id)
		}
	}
}

// SelectedIDs returns the ids of selected items in the order of the item list.
func (s SelectionState) SelectedIDs(items []Item) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if s.IsSelected(item.ID) {
			ids = append(ids, item.ID)
		}
	}
	return ids
}

// Deselect marks the item unselected without toggling.
func (s SelectionState) Deselect(itemID uuid.UUID) {
	s[itemID] = false
}

// Clone copies the selection map.
func (s SelectionState) Clone() SelectionState {
	out := make(SelectionState, len(s))
	for id, flag := range s {
		out[id] = flag
	}
	return out
}
