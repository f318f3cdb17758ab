package state

import (
	"slices"
	"strconv"

	"github.com/samber/lo"

	"github.com/atomicstack/openhab-popup/internal/sitemap"
)

// ChangeType is the kind of difference between two pages.
type ChangeType string

const (
	ChangeAdded   ChangeType = "added"
	ChangeRemoved ChangeType = "removed"
	ChangeChanged ChangeType = "changed"
)

// Change describes one widget that differs between two pages. Fields maps a
// changed attribute to its old and new value.
type Change struct {
	Type   ChangeType
	ID     string
	Widget *Widget
	Fields map[string][2]string
}

// Diff compares two pages widget by widget, matching on widget id. Added and
// changed widgets come first in the new page's order, removed widgets
// follow in the old page's order. When ids repeat, the widget Lookup
// returns stands for the id and later duplicates are ignored.
func Diff(prev, curr *Page) []Change {
	var changes []Change
	for _, w := range curr.owners() {
		old, existed := prev.Lookup(w.id)
		if !existed {
			changes = append(changes, Change{Type: ChangeAdded, ID: w.id, Widget: w})
			continue
		}
		if fields := diffWidget(old, w); len(fields) > 0 {
			changes = append(changes, Change{Type: ChangeChanged, ID: w.id, Widget: w, Fields: fields})
		}
	}
	for _, w := range prev.owners() {
		if _, exists := curr.Lookup(w.id); !exists {
			changes = append(changes, Change{Type: ChangeRemoved, ID: w.id, Widget: w})
		}
	}
	return changes
}

// owners returns the widgets that own their id, in depth-first order.
func (p *Page) owners() []*Widget {
	return lo.Filter(p.Flatten(), func(w *Widget, _ int) bool {
		owner, _ := p.Lookup(w.id)
		return owner == w
	})
}

func diffWidget(prev, curr *Widget) map[string][2]string {
	fields := make(map[string][2]string)
	set := func(name, a, b string) {
		if a != b {
			fields[name] = [2]string{a, b}
		}
	}
	set("type", prev.kind, curr.kind)
	set("label", prev.label, curr.label)
	set("icon", prev.icon, curr.icon)
	set("state", prev.State(), curr.State())
	var prevLink, currLink, prevName, currName string
	if prev.item != nil {
		prevLink, prevName = prev.item.Link, prev.item.Name
	}
	if curr.item != nil {
		currLink, currName = curr.item.Link, curr.item.Name
	}
	set("item", prevName, currName)
	set("link", prevLink, currLink)
	if !slices.Equal(prev.mappings, curr.mappings) {
		fields["mappings"] = [2]string{mappingString(prev), mappingString(curr)}
	}
	set("depth", strconv.Itoa(prev.depth), strconv.Itoa(curr.depth))
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func mappingString(w *Widget) string {
	return lo.Reduce(w.mappings, func(acc string, m sitemap.Mapping, i int) string {
		if i > 0 {
			acc += ","
		}
		return acc + m.Command + "=" + m.Label
	}, "")
}
