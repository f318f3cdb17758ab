package events

import "github.com/atomicstack/openhab-popup/internal/logging"

type TaskTracer struct{}

var Task = TaskTracer{}

func (TaskTracer) Handle(kind string) {
	logging.Trace("task.handle", map[string]interface{}{"kind": kind})
}

func (TaskTracer) Complete(kind string, snapshot bool) {
	logging.Trace("task.complete", map[string]interface{}{"kind": kind, "snapshot": snapshot})
}
