// Package state holds the observable widget model of the page on display.
package state

import (
	"strings"

	"github.com/atomicstack/openhab-popup/internal/sitemap"
)

// CommandFunc sends command for item. It is attached to a Page after every
// decode and is the only write path out of the model.
type CommandFunc func(item *sitemap.Item, command string)

// Commands accepted by binary items.
const (
	CommandOn  = "ON"
	CommandOff = "OFF"
)

// Widget is the display-side wrapper around one decoded widget.
type Widget struct {
	id       string
	kind     string
	label    string
	icon     string
	mappings []sitemap.Mapping
	item     *sitemap.Item
	children []*Widget
	parent   *Widget
	depth    int
	page     *Page
}

func (w *Widget) ID() string { return w.id }
func (w *Widget) Type() string { return w.kind }
func (w *Widget) Label() string { return w.label }
func (w *Widget) Icon() string { return w.icon }
func (w *Widget) Depth() int { return w.depth }
func (w *Widget) HasItem() bool { return w.item != nil }

// Parent returns the enclosing widget, or nil at the top level.
func (w *Widget) Parent() *Widget { return w.parent }

// Children returns the nested widgets in order.
func (w *Widget) Children() []*Widget {
	return append([]*Widget(nil), w.children...)
}

// Mappings returns the command/label pairs offered by the widget.
func (w *Widget) Mappings() []sitemap.Mapping {
	return append([]sitemap.Mapping(nil), w.mappings...)
}

// Item returns a copy of the bound item, or nil.
func (w *Widget) Item() *sitemap.Item {
	return w.item.Clone()
}

// LabelText is the label with any trailing "[value]" part removed. Widgets
// without a label fall back to the item label, then the item name.
func (w *Widget) LabelText() string {
	text, _ := splitLabel(w.label)
	if text != "" {
		return text
	}
	if w.item != nil {
		if w.item.Label != "" {
			return w.item.Label
		}
		return w.item.Name
	}
	return ""
}

// LabelValue is the bracketed value of the label, or the item state when
// the label carries none. Binary items have no label value; their state is
// shown by the toggle.
func (w *Widget) LabelValue() string {
	if _, value, ok := splitLabelValue(w.label); ok {
		return value
	}
	if w.item == nil || w.item.Binary() {
		return ""
	}
	state := strings.TrimSpace(w.item.State)
	if state == "NULL" || state == "UNDEF" {
		return ""
	}
	return state
}

// State is the last server-confirmed item state.
func (w *Widget) State() string {
	if w.item == nil {
		return ""
	}
	return w.item.State
}

// On is the boolean projection of the item state.
func (w *Widget) On() bool {
	return w.item.On()
}

// Toggleable reports whether the widget shows a two-way switch.
func (w *Widget) Toggleable() bool {
	if w.item == nil {
		return false
	}
	return w.kind == "Switch" && len(w.mappings) == 0
}

// Toggle asks the server to switch the item on or off. Local state is left
// untouched; the next confirmed page carries the new value. It reports
// whether a command was handed to the sender.
func (w *Widget) Toggle(on bool) bool {
	if !w.Toggleable() {
		return false
	}
	command := CommandOff
	if on {
		command = CommandOn
	}
	return w.Send(command)
}

// Send hands command for the bound item to the page's command function.
func (w *Widget) Send(command string) bool {
	if w.item == nil || w.page == nil || w.page.send == nil || command == "" {
		return false
	}
	w.page.send(w.item.Clone(), command)
	return true
}

func splitLabel(label string) (string, string) {
	text, value, ok := splitLabelValue(label)
	if !ok {
		return strings.TrimSpace(label), ""
	}
	return text, value
}

func splitLabelValue(label string) (string, string, bool) {
	trimmed := strings.TrimSpace(label)
	if !strings.HasSuffix(trimmed, "]") {
		return "", "", false
	}
	open := strings.LastIndex(trimmed, "[")
	if open < 0 {
		return "", "", false
	}
	return strings.TrimSpace(trimmed[:open]), strings.TrimSpace(trimmed[open+1 : len(trimmed)-1]), true
}
