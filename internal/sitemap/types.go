// Package sitemap holds the typed page and widget tree served by an openHAB
// sitemap endpoint, plus decoders for the JSON and legacy XML payloads.
package sitemap

import "strings"

// Protocol versions understood by Decode.
const (
	VersionLegacy = 1
	VersionJSON   = 2
)

// Page is the root of one sitemap view.
type Page struct {
	ID      string   `json:"id" yaml:"id"`
	Title   string   `json:"title" yaml:"title"`
	Link    string   `json:"link,omitempty" yaml:"link,omitempty"`
	Leaf    bool     `json:"leaf" yaml:"leaf"`
	Timeout bool     `json:"timeout" yaml:"timeout"`
	Widgets []Widget `json:"widgets" yaml:"widgets"`
}

// Widget is one UI element. Widgets nest through Widgets.
type Widget struct {
	ID       string    `json:"widgetId" yaml:"widgetId"`
	Type     string    `json:"type" yaml:"type"`
	Label    string    `json:"label,omitempty" yaml:"label,omitempty"`
	Icon     string    `json:"icon,omitempty" yaml:"icon,omitempty"`
	Mappings []Mapping `json:"mappings" yaml:"mappings"`
	Item     *Item     `json:"item,omitempty" yaml:"item,omitempty"`
	Widgets  []Widget  `json:"widgets" yaml:"widgets"`
}

// Mapping pairs a command with the label shown for it.
type Mapping struct {
	Command string `json:"command" yaml:"command"`
	Label   string `json:"label" yaml:"label"`
}

// Item is the server-side data point bound to a widget.
type Item struct {
	Name       string   `json:"name" yaml:"name"`
	Label      string   `json:"label,omitempty" yaml:"label,omitempty"`
	Type       string   `json:"type,omitempty" yaml:"type,omitempty"`
	State      string   `json:"state" yaml:"state"`
	Link       string   `json:"link,omitempty" yaml:"link,omitempty"`
	Editable   bool     `json:"editable,omitempty" yaml:"editable,omitempty"`
	Tags       []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	GroupNames []string `json:"groupNames,omitempty" yaml:"groupNames,omitempty"`
}

// On reports the boolean projection of the item state. Scalar states that
// have no boolean meaning report false.
func (i *Item) On() bool {
	if i == nil {
		return false
	}
	switch strings.ToUpper(strings.TrimSpace(i.State)) {
	case "ON", "TRUE", "OPEN":
		return true
	}
	return false
}

// Binary reports whether the state is one of the two-valued forms that
// On can project.
func (i *Item) Binary() bool {
	if i == nil {
		return false
	}
	switch strings.ToUpper(strings.TrimSpace(i.State)) {
	case "ON", "OFF", "TRUE", "FALSE", "OPEN", "CLOSED":
		return true
	}
	return false
}

// Clone returns a deep copy of the item.
func (i *Item) Clone() *Item {
	if i == nil {
		return nil
	}
	dup := *i
	dup.Tags = cloneStrings(i.Tags)
	dup.GroupNames = cloneStrings(i.GroupNames)
	return &dup
}

// Walk visits every widget depth-first, parents before children. Returning
// false from fn stops the walk.
func (p *Page) Walk(fn func(w *Widget, depth int) bool) {
	if p == nil {
		return
	}
	walkWidgets(p.Widgets, 0, fn)
}

func walkWidgets(widgets []Widget, depth int, fn func(w *Widget, depth int) bool) bool {
	for i := range widgets {
		if !fn(&widgets[i], depth) {
			return false
		}
		if !walkWidgets(widgets[i].Widgets, depth+1, fn) {
			return false
		}
	}
	return true
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	dup := make([]string, len(in))
	copy(dup, in)
	return dup
}
