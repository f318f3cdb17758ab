package events

import "github.com/atomicstack/openhab-popup/internal/logging"

type UITracer struct{}

type FilterTracer struct{}

var (
	UI     = UITracer{}
	Filter = FilterTracer{}
)

func (UITracer) Toggle(widgetID, item string, on bool) {
	logging.Trace("ui.toggle", map[string]interface{}{"widget": widgetID, "item": item, "on": on})
}

func (UITracer) Send(widgetID, item, command string) {
	logging.Trace("ui.send", map[string]interface{}{"widget": widgetID, "item": item, "command": command})
}

func (UITracer) Cursor(cursor int) {
	logging.Trace("ui.cursor", map[string]interface{}{"cursor": cursor})
}

func (UITracer) Restart() {
	logging.Trace("ui.restart", nil)
}

func (UITracer) PageApplied(pageID string, changes int) {
	logging.Trace("ui.page", map[string]interface{}{"page": pageID, "changes": changes})
}

func (UITracer) Error(err error) {
	if err == nil {
		return
	}
	logging.Trace("ui.error", map[string]interface{}{"error": err.Error()})
}

func (FilterTracer) Cleared() {
	logging.Trace("filter.clear", nil)
}

func (FilterTracer) Append(filter string) {
	logging.Trace("filter.append", map[string]interface{}{"filter": filter})
}

func (FilterTracer) Backspace(filter string) {
	logging.Trace("filter.backspace", map[string]interface{}{"filter": filter})
}

func (FilterTracer) WordBackspace(filter string) {
	logging.Trace("filter.word_backspace", map[string]interface{}{"filter": filter})
}

func (FilterTracer) Cursor(pos int) {
	logging.Trace("filter.cursor", map[string]interface{}{"cursor": pos})
}
