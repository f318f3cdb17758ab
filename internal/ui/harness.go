package ui

import (
	"time"

	"github.com/atomicstack/openhab-popup/internal/backend"
	tea "github.com/charmbracelet/bubbletea"
)

// Harness drives the UI model programmatically for integration tests.
// Backend events are not awaited in the background; Pump delivers them one
// at a time.
type Harness struct {
	model *Model
}

// NewHarness creates a harness for the provided model.
func NewHarness(model *Model) *Harness {
	if model != nil {
		model.awaitEvent = func(*backend.Watcher) tea.Cmd { return nil }
	}
	return &Harness{model: model}
}

// Init runs the model's Init command chain.
func (h *Harness) Init() {
	if h.model == nil {
		return
	}
	h.processCmd(h.model.Init())
}

// Send routes a message through the model and executes any returned commands.
func (h *Harness) Send(msg tea.Msg) {
	if h.model == nil {
		return
	}
	mdl, cmd := h.model.Update(msg)
	if updated, ok := mdl.(*Model); ok {
		h.model = updated
	}
	h.processCmd(cmd)
}

// Pump waits up to timeout for the next backend event and routes it through
// the model. It reports false when no event arrived or the watcher closed.
func (h *Harness) Pump(timeout time.Duration) bool {
	if h.model == nil || h.model.backend == nil {
		return false
	}
	select {
	case evt, ok := <-h.model.backend.Events():
		if !ok {
			h.Send(backendDoneMsg{})
			return false
		}
		h.Send(backendEventMsg{event: evt})
		return true
	case <-time.After(timeout):
		return false
	}
}

func (h *Harness) processCmd(cmd tea.Cmd) {
	for cmd != nil {
		msg := cmd()
		if msg == nil {
			return
		}
		mdl, next := h.model.Update(msg)
		if updated, ok := mdl.(*Model); ok {
			h.model = updated
		}
		cmd = next
	}
}

// View returns the current view string.
func (h *Harness) View() string {
	if h.model == nil {
		return ""
	}
	return h.model.View()
}

// Model exposes the underlying model.
func (h *Harness) Model() *Model {
	return h.model
}
