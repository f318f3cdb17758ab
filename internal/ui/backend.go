package ui

import (
	"github.com/atomicstack/openhab-popup/internal/backend"
	"github.com/atomicstack/openhab-popup/internal/logging/events"
	"github.com/atomicstack/openhab-popup/internal/state"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

func waitForBackendEvent(w *backend.Watcher) tea.Cmd {
	return func() tea.Msg {
		evt, ok := <-w.Events()
		if !ok {
			return backendDoneMsg{}
		}
		return backendEventMsg{event: evt}
	}
}

type backendEventMsg struct {
	event backend.Event
}

type backendDoneMsg struct{}

func (m *Model) handleBackendEventMsg(msg tea.Msg) tea.Cmd {
	eventMsg, ok := msg.(backendEventMsg)
	if !ok {
		return nil
	}
	m.applyBackendEvent(eventMsg.event)
	if m.backend != nil {
		return m.awaitEvent(m.backend)
	}
	return nil
}

func (m *Model) handleBackendDoneMsg(msg tea.Msg) tea.Cmd {
	m.backend = nil
	return nil
}

func (m *Model) applyBackendEvent(evt backend.Event) {
	res := m.dispatcher.Handle(evt)
	if res.Stale {
		return
	}
	if res.Err != nil {
		m.errMsg = res.Err.Error()
		events.UI.Error(res.Err)
		return
	}
	if !res.PageUpdated {
		return
	}
	m.errMsg = ""
	m.rebuildItems()
	if page := m.widgets.Page(); page != nil {
		events.UI.PageApplied(page.ID, len(res.Changes))
	}
}

// awaitConfirmation marks item as pending until the server reports a new
// state for the widget that sent it, or the widget leaves the page.
func (m *Model) awaitConfirmation(id, item, command string) {
	m.dropPending(item)
	m.pending[item] = command
	m.confirmations[item] = m.widgets.Observe(id, func(change state.Change) {
		if change.Type == state.ChangeChanged {
			if _, ok := change.Fields["state"]; !ok {
				return
			}
		}
		m.dropPending(item)
	})
}

func (m *Model) dropPending(item string) {
	if cancel, ok := m.confirmations[item]; ok {
		cancel()
		delete(m.confirmations, item)
	}
	delete(m.pending, item)
}

func (m *Model) handleCommandResultMsg(msg tea.Msg) tea.Cmd {
	result, ok := msg.(CommandResultMsg)
	if !ok {
		return nil
	}
	res := result.Result
	if sent, ok := m.pending[res.Item]; ok && sent == res.Command {
		m.dropPending(res.Item)
	}
	return nil
}

func (m *Model) handleRestartMsg(msg tea.Msg) tea.Cmd {
	return m.restart()
}

// restart issues a fresh short fetch. The watcher cancels whatever was in
// flight, so events from the old fetch are dropped as stale.
func (m *Model) restart() tea.Cmd {
	if m.backend == nil {
		return nil
	}
	events.UI.Restart()
	m.errMsg = ""
	m.backend.Load(false, m.refresh)
	return m.startSpinner()
}

func (m *Model) startSpinner() tea.Cmd {
	if m.spinning {
		return nil
	}
	m.spinning = true
	return m.spinner.Tick
}

func (m *Model) handleSpinnerTickMsg(msg tea.Msg) tea.Cmd {
	tick, ok := msg.(spinner.TickMsg)
	if !ok {
		return nil
	}
	if !m.busy() {
		m.spinning = false
		return nil
	}
	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(tick)
	return cmd
}
