package state

import "github.com/atomicstack/openhab-popup/internal/sitemap"

// Page is the observable form of a decoded sitemap page. A Page is built
// once per decode and never merged with its predecessor.
type Page struct {
	ID    string
	Title string
	Leaf  bool

	widgets []*Widget
	flat    []*Widget
	byID    map[string]*Widget
	send    CommandFunc
}

// NewPage wraps a decoded page. The decoded tree is deep-copied so the
// caller may keep or discard it.
func NewPage(src *sitemap.Page) *Page {
	p := &Page{byID: make(map[string]*Widget)}
	if src == nil {
		return p
	}
	p.ID = src.ID
	p.Title = src.Title
	p.Leaf = src.Leaf
	p.widgets = p.build(src.Widgets, nil, 0)
	return p
}

func (p *Page) build(src []sitemap.Widget, parent *Widget, depth int) []*Widget {
	out := make([]*Widget, 0, len(src))
	for i := range src {
		sw := &src[i]
		w := &Widget{
			id:       sw.ID,
			kind:     sw.Type,
			label:    sw.Label,
			icon:     sw.Icon,
			mappings: append([]sitemap.Mapping(nil), sw.Mappings...),
			item:     sw.Item.Clone(),
			parent:   parent,
			depth:    depth,
			page:     p,
		}
		p.flat = append(p.flat, w)
		if _, dup := p.byID[w.id]; !dup {
			p.byID[w.id] = w
		}
		w.children = p.build(sw.Widgets, w, depth+1)
		out = append(out, w)
	}
	return out
}

// SetCommandFunc points every widget's write path at fn.
func (p *Page) SetCommandFunc(fn CommandFunc) {
	if p == nil {
		return
	}
	p.send = fn
}

// Widgets returns the top-level widgets in order.
func (p *Page) Widgets() []*Widget {
	if p == nil {
		return nil
	}
	return append([]*Widget(nil), p.widgets...)
}

// Flatten returns every widget depth-first, parents before children.
func (p *Page) Flatten() []*Widget {
	if p == nil {
		return nil
	}
	return append([]*Widget(nil), p.flat...)
}

// Lookup finds a widget by id.
func (p *Page) Lookup(id string) (*Widget, bool) {
	if p == nil {
		return nil, false
	}
	w, ok := p.byID[id]
	return w, ok
}

// Len is the number of widgets at every depth.
func (p *Page) Len() int {
	if p == nil {
		return 0
	}
	return len(p.flat)
}
