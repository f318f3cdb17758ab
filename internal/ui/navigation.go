package ui

import (
	"fmt"
	"strings"

	"github.com/atomicstack/openhab-popup/internal/logging/events"
	"github.com/atomicstack/openhab-popup/internal/sitemap"
	"github.com/atomicstack/openhab-popup/internal/state"
	tea "github.com/charmbracelet/bubbletea"
)

func (m *Model) handleKeyMsg(msg tea.Msg) tea.Cmd {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}
	// Space toggles until the user starts typing a filter.
	if keyMsg.Type == tea.KeySpace && m.level.Filter == "" {
		return m.handleEnterKey()
	}
	if m.handleTextInput(keyMsg) {
		return nil
	}
	switch keyMsg.String() {
	case "ctrl+c":
		return tea.Quit
	case "esc":
		return m.handleEscapeKey()
	case "enter":
		return m.handleEnterKey()
	case "ctrl+r":
		return m.restart()
	case "up":
		m.moveCursorUp()
	case "down":
		m.moveCursorDown()
	case "pgup":
		m.moveCursorPageUp()
	case "pgdown":
		m.moveCursorPageDown()
	case "home":
		m.moveCursorHome()
	case "end":
		m.moveCursorEnd()
	}
	return nil
}

func (m *Model) handleEscapeKey() tea.Cmd {
	if m.level.Filter == "" {
		return tea.Quit
	}
	m.editFilter(func() bool {
		m.level.SetFilter("", 0)
		return true
	}, func(string) { events.Filter.Cleared() })
	return nil
}

// handleEnterKey sends the next command for the selected widget. Switches
// flip between ON and OFF; widgets with mappings step to the next mapping.
// The displayed state only changes once the server confirms it.
func (m *Model) handleEnterKey() tea.Cmd {
	selected, ok := m.level.Selected()
	if !ok {
		return nil
	}
	w, ok := m.widgets.Lookup(selected.ID)
	if !ok || !w.HasItem() {
		return nil
	}
	item := w.Item()
	switch {
	case w.Toggleable():
		on := !w.On()
		if !w.Toggle(on) {
			m.setInfo(fmt.Sprintf("%s is read-only here", w.LabelText()))
			return nil
		}
		events.UI.Toggle(w.ID(), item.Name, on)
		m.awaitConfirmation(w.ID(), item.Name, toggleCommand(on))
	case len(w.Mappings()) > 0:
		next := nextMapping(w.Mappings(), w.State())
		if !w.Send(next.Command) {
			m.setInfo(fmt.Sprintf("%s is read-only here", w.LabelText()))
			return nil
		}
		events.UI.Send(w.ID(), item.Name, next.Command)
		m.awaitConfirmation(w.ID(), item.Name, next.Command)
	default:
		m.setInfo(fmt.Sprintf("%s has no action", w.LabelText()))
	}
	return nil
}

func toggleCommand(on bool) string {
	if on {
		return state.CommandOn
	}
	return state.CommandOff
}

// nextMapping returns the mapping after the one matching current, wrapping
// around. An unmatched state starts at the first mapping.
func nextMapping(mappings []sitemap.Mapping, current string) sitemap.Mapping {
	for i, mapping := range mappings {
		if strings.EqualFold(mapping.Command, current) {
			return mappings[(i+1)%len(mappings)]
		}
	}
	return mappings[0]
}

func (m *Model) moveCursorUp() {
	current := m.level
	if n := len(current.Items); n > 0 {
		if current.Cursor > 0 {
			current.Cursor--
		} else {
			current.Cursor = n - 1
		}
		events.UI.Cursor(current.Cursor)
		m.syncViewport(current)
	}
}

func (m *Model) moveCursorDown() {
	current := m.level
	if n := len(current.Items); n > 0 {
		if current.Cursor < n-1 {
			current.Cursor++
		} else {
			current.Cursor = 0
		}
		events.UI.Cursor(current.Cursor)
		m.syncViewport(current)
	}
}

func (m *Model) moveCursorPageUp() {
	if moved := m.level.MoveCursorPageUp(m.maxVisibleItems()); moved {
		events.UI.Cursor(m.level.Cursor)
	}
	m.syncViewport(m.level)
}

func (m *Model) moveCursorPageDown() {
	if moved := m.level.MoveCursorPageDown(m.maxVisibleItems()); moved {
		events.UI.Cursor(m.level.Cursor)
	}
	m.syncViewport(m.level)
}

func (m *Model) moveCursorHome() {
	if moved := m.level.MoveCursorHome(); moved {
		events.UI.Cursor(m.level.Cursor)
	}
	m.syncViewport(m.level)
}

func (m *Model) moveCursorEnd() {
	if moved := m.level.MoveCursorEnd(); moved {
		events.UI.Cursor(m.level.Cursor)
	}
	m.syncViewport(m.level)
}

func (m *Model) syncViewport(l *level) {
	if l == nil {
		return
	}
	l.EnsureCursorVisible(m.maxVisibleItems())
}
