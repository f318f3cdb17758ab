package events

import "github.com/atomicstack/openhab-popup/internal/logging"

type AppTracer struct{}

var App = AppTracer{}

func (AppTracer) Start(payload map[string]interface{}) {
	logging.Trace("app.start", payload)
}

func (AppTracer) Stop(err error) {
	payload := map[string]interface{}{}
	if err != nil {
		payload["error"] = err.Error()
	}
	logging.Trace("app.stop", payload)
}

func (AppTracer) Dump(url string, version int) {
	logging.Trace("app.dump", map[string]interface{}{"url": url, "version": version})
}
