package state

import "strings"

// Item is one selectable row.
type Item struct {
	ID    string
	Label string
	// Parent is the id of the enclosing frame row, empty at the top level.
	Parent string
	// Terms are matched by the filter alongside Label, e.g. the bound item
	// name and the displayed value.
	Terms []string
}

func (i Item) searchText() string {
	if len(i.Terms) == 0 {
		return i.Label
	}
	return i.Label + " " + strings.Join(i.Terms, " ")
}

// CloneItems produces a shallow copy of the provided items.
func CloneItems(items []Item) []Item {
	dup := make([]Item, len(items))
	copy(dup, items)
	return dup
}
