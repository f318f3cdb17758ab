package events

import "github.com/atomicstack/openhab-popup/internal/logging"

type CommandTracer struct{}

var Command = CommandTracer{}

func (CommandTracer) Queue(id, item, command string) {
	logging.Trace("command.queue", map[string]interface{}{"id": id, "item": item, "command": command})
}

func (CommandTracer) Skip(item, command string) {
	logging.Trace("command.skip", map[string]interface{}{"item": item, "command": command})
}

func (CommandTracer) Cancel(id string) {
	logging.Trace("command.cancel", map[string]interface{}{"id": id})
}

func (CommandTracer) Superseded(id, item string) {
	logging.Trace("command.superseded", map[string]interface{}{"id": id, "item": item})
}

func (CommandTracer) Result(id, item, command string) {
	logging.Trace("command.result", map[string]interface{}{"id": id, "item": item, "command": command})
}

func (CommandTracer) Failure(id, item string, err error) {
	payload := map[string]interface{}{"id": id, "item": item}
	if err != nil {
		payload["error"] = err.Error()
	}
	logging.Trace("command.failure", payload)
}
