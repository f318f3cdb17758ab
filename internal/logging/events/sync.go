package events

import "github.com/atomicstack/openhab-popup/internal/logging"

// SyncTracer records sync loop transitions. Every entry carries the watcher
// id and the fetch sequence number so superseded fetches can be told apart.
type SyncTracer struct{}

var Sync = SyncTracer{}

func (SyncTracer) Fetch(watcher string, seq uint64, url string, longPolling bool, tracking bool) {
	logging.Trace("sync.fetch", map[string]interface{}{
		"watcher":     watcher,
		"seq":         seq,
		"url":         url,
		"longPolling": longPolling,
		"tracking":    tracking,
	})
}

func (SyncTracer) Tracking(watcher string, seq uint64, id string) {
	logging.Trace("sync.tracking", map[string]interface{}{"watcher": watcher, "seq": seq, "id": id})
}

func (SyncTracer) Page(watcher string, seq uint64, pageID string, widgets int) {
	logging.Trace("sync.page", map[string]interface{}{
		"watcher": watcher,
		"seq":     seq,
		"page":    pageID,
		"widgets": widgets,
	})
}

func (SyncTracer) Timeout(watcher string, seq uint64) {
	logging.Trace("sync.timeout", map[string]interface{}{"watcher": watcher, "seq": seq})
}

func (SyncTracer) Cancelled(watcher string, seq uint64) {
	logging.Trace("sync.cancelled", map[string]interface{}{"watcher": watcher, "seq": seq})
}

func (SyncTracer) Stale(watcher string, seq uint64) {
	logging.Trace("sync.stale", map[string]interface{}{"watcher": watcher, "seq": seq})
}

func (SyncTracer) Failure(watcher string, seq uint64, err error) {
	payload := map[string]interface{}{"watcher": watcher, "seq": seq}
	if err != nil {
		payload["error"] = err.Error()
	}
	logging.Trace("sync.failure", payload)
}

func (SyncTracer) State(watcher string, seq uint64, state string) {
	logging.Trace("sync.state", map[string]interface{}{"watcher": watcher, "seq": seq, "state": state})
}

func (SyncTracer) Stop(watcher string) {
	logging.Trace("sync.stop", map[string]interface{}{"watcher": watcher})
}
