// Package tasks models the background work the host can hand to the client.
// Every task must be completed exactly once, whatever its kind.
package tasks

import (
	"sync"

	"github.com/atomicstack/openhab-popup/internal/logging"
	"github.com/atomicstack/openhab-popup/internal/logging/events"
)

// Kind tags a background task.
type Kind int

const (
	KindAppRefresh Kind = iota
	KindSnapshot
	KindConnectivity
	KindURLSession
	KindRelevantShortcut
	KindIntentDidRun
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindAppRefresh:
		return "app-refresh"
	case KindSnapshot:
		return "snapshot"
	case KindConnectivity:
		return "connectivity"
	case KindURLSession:
		return "url-session"
	case KindRelevantShortcut:
		return "relevant-shortcut"
	case KindIntentDidRun:
		return "intent-did-run"
	case KindUnknown:
		return "unknown"
	}
	return "unknown"
}

// Completion is what a task reports when it finishes. Snapshot asks the host
// to capture the display after completion.
type Completion struct {
	Kind     Kind
	Snapshot bool
	Err      error
}

// Task is one unit of background work.
type Task struct {
	Kind Kind
	once *sync.Once
	done func(Completion)
}

// New creates a task; done, if non-nil, receives its completion.
func New(kind Kind, done func(Completion)) Task {
	return Task{Kind: kind, once: new(sync.Once), done: done}
}

func (t Task) complete(c Completion) Completion {
	if t.once == nil {
		t.once = new(sync.Once)
	}
	t.once.Do(func() {
		if c.Err != nil {
			logging.Error(c.Err)
		}
		events.Task.Complete(c.Kind.String(), c.Snapshot)
		if t.done != nil {
			t.done(c)
		}
	})
	return c
}

// Handlers are the actions the tasks drive. Nil handlers are skipped.
type Handlers struct {
	// Refresh restarts page synchronisation.
	Refresh func() error
	// Connectivity applies freshly delivered connection settings.
	Connectivity func() error
	// Snapshot records the current display.
	Snapshot func() error
}

func run(fn func() error) error {
	if fn == nil {
		return nil
	}
	return fn()
}

// Handle runs every task and returns their completions in order.
func Handle(tasks []Task, h Handlers) []Completion {
	out := make([]Completion, 0, len(tasks))
	for _, task := range tasks {
		events.Task.Handle(task.Kind.String())
		var c Completion
		switch task.Kind {
		case KindAppRefresh:
			c = task.complete(Completion{Kind: task.Kind, Err: run(h.Refresh)})
		case KindSnapshot:
			c = task.complete(Completion{Kind: task.Kind, Snapshot: true, Err: run(h.Snapshot)})
		case KindConnectivity:
			c = task.complete(Completion{Kind: task.Kind, Err: run(h.Connectivity)})
		case KindURLSession, KindRelevantShortcut, KindIntentDidRun, KindUnknown:
			c = task.complete(Completion{Kind: task.Kind})
		default:
			c = task.complete(Completion{Kind: KindUnknown})
		}
		out = append(out, c)
	}
	return out
}
