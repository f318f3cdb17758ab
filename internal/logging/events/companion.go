package events

import "github.com/atomicstack/openhab-popup/internal/logging"

type CompanionTracer struct{}

var Companion = CompanionTracer{}

func (CompanionTracer) Apply(source string, keys []string) {
	logging.Trace("companion.apply", map[string]interface{}{"source": source, "keys": keys})
}

func (CompanionTracer) Ignored(source string, key string) {
	logging.Trace("companion.ignored", map[string]interface{}{"source": source, "key": key})
}

func (CompanionTracer) Error(source string, err error) {
	if err == nil {
		return
	}
	logging.Trace("companion.error", map[string]interface{}{"source": source, "error": err.Error()})
}
