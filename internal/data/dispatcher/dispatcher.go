package dispatcher

import (
	"github.com/atomicstack/openhab-popup/internal/backend"
	"github.com/atomicstack/openhab-popup/internal/state"
)

// Result describes what applying one backend event changed.
type Result struct {
	PageUpdated bool
	Changes     []state.Change
	Err         error
	Stale       bool
}

// GenerationSource reports the generation of the latest explicit load.
// Long-poll re-arms stay in the generation of the load that started them.
type GenerationSource interface {
	Generation() uint64
}

// Dispatcher applies backend events to the widget store. It must run on the
// goroutine that owns the store.
type Dispatcher struct {
	widgets state.WidgetStore
	current GenerationSource
}

func New(widgets state.WidgetStore, current GenerationSource) *Dispatcher {
	return &Dispatcher{widgets: widgets, current: current}
}

// Handle applies evt. Events from a load that has since been superseded are
// dropped without touching the store.
func (d *Dispatcher) Handle(evt backend.Event) Result {
	var res Result
	if d.current != nil && evt.Generation != d.current.Generation() {
		res.Stale = true
		return res
	}
	switch evt.Kind {
	case backend.KindPage:
		if evt.Page == nil {
			return res
		}
		res.Changes = d.widgets.Replace(evt.Page)
		res.PageUpdated = true
	case backend.KindError:
		res.Err = evt.Err
	}
	return res
}
