package state

import "github.com/samber/lo"

// Observer is told about a widget that was added, removed or changed by a
// page replacement.
type Observer func(Change)

// PageObserver is told about every page replacement.
type PageObserver func(page *Page, changes []Change)

// WidgetStore holds the page on display. It is owned by the UI goroutine and
// is not safe for concurrent use.
type WidgetStore interface {
	Page() *Page
	Replace(*Page) []Change
	Lookup(id string) (*Widget, bool)
	Observe(id string, fn Observer) (cancel func())
	ObserveAll(fn PageObserver) (cancel func())
}

type observer[T any] struct {
	id int
	fn T
}

type widgetStore struct {
	page     *Page
	nextID   int
	byWidget map[string][]observer[Observer]
	all      []observer[PageObserver]
}

// NewWidgetStore returns an empty store.
func NewWidgetStore() WidgetStore {
	return &widgetStore{byWidget: make(map[string][]observer[Observer])}
}

func (s *widgetStore) Page() *Page {
	return s.page
}

// Replace swaps in page as a whole and notifies observers of the widgets
// that differ from the previous page.
func (s *widgetStore) Replace(page *Page) []Change {
	changes := Diff(s.page, page)
	s.page = page
	for _, change := range changes {
		for _, obs := range s.byWidget[change.ID] {
			obs.fn(change)
		}
	}
	for _, obs := range s.all {
		obs.fn(page, changes)
	}
	return changes
}

func (s *widgetStore) Lookup(id string) (*Widget, bool) {
	return s.page.Lookup(id)
}

func (s *widgetStore) Observe(id string, fn Observer) func() {
	s.nextID++
	handle := s.nextID
	s.byWidget[id] = append(s.byWidget[id], observer[Observer]{id: handle, fn: fn})
	return func() {
		s.byWidget[id] = lo.Reject(s.byWidget[id], func(o observer[Observer], _ int) bool { return o.id == handle })
		if len(s.byWidget[id]) == 0 {
			delete(s.byWidget, id)
		}
	}
}

func (s *widgetStore) ObserveAll(fn PageObserver) func() {
	s.nextID++
	handle := s.nextID
	s.all = append(s.all, observer[PageObserver]{id: handle, fn: fn})
	return func() {
		s.all = lo.Reject(s.all, func(o observer[PageObserver], _ int) bool { return o.id == handle })
	}
}
