package ui

import (
	"fmt"
	"unicode"

	"github.com/atomicstack/openhab-popup/internal/logging/events"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	filterPromptText  = "» "
	filterPlaceholder = "(type to filter)"
)

func (m *Model) updateFilterCursorModel(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	m.filterCursor, cmd = m.filterCursor.Update(msg)
	return cmd
}

// handleTextInput applies filter editing keys. It reports whether the key
// was consumed.
func (m *Model) handleTextInput(msg tea.KeyMsg) bool {
	current := m.level
	switch msg.String() {
	case "ctrl+u":
		if current.Filter == "" {
			return false
		}
		return m.editFilter(func() bool {
			current.SetFilter("", 0)
			return true
		}, func(string) { events.Filter.Cleared() })
	case "ctrl+w":
		return m.editFilter(current.DeleteFilterWordBackward, events.Filter.WordBackspace)
	case "ctrl+a":
		return m.moveFilterCursor(current.MoveFilterCursorStart)
	case "ctrl+e":
		return m.moveFilterCursor(current.MoveFilterCursorEnd)
	case "alt+b":
		return m.moveFilterCursor(current.MoveFilterCursorWordBackward)
	case "alt+f":
		return m.moveFilterCursor(current.MoveFilterCursorWordForward)
	}
	switch msg.Type {
	case tea.KeyBackspace, tea.KeyCtrlH:
		return m.editFilter(current.DeleteFilterRuneBackward, events.Filter.Backspace)
	case tea.KeyRunes:
		if msg.Alt || len(msg.Runes) == 0 {
			return false
		}
		for _, r := range msg.Runes {
			if unicode.IsControl(r) {
				return false
			}
		}
		return m.appendToFilter(string(msg.Runes))
	case tea.KeySpace:
		return m.appendToFilter(" ")
	case tea.KeyLeft:
		return m.moveFilterCursor(current.MoveFilterCursorRuneBackward)
	case tea.KeyRight:
		return m.moveFilterCursor(current.MoveFilterCursorRuneForward)
	}
	return false
}

func (m *Model) appendToFilter(text string) bool {
	return m.editFilter(func() bool { return m.level.InsertFilterText(text) }, events.Filter.Append)
}

// editFilter runs edit against the filter and, when it changed anything,
// restarts the caret blink, drops any info line and keeps the selected row
// on screen. trace receives the resulting filter.
func (m *Model) editFilter(edit func() bool, trace func(string)) bool {
	before := m.level.FilterCursorPos()
	if !edit() {
		return false
	}
	m.noteFilterCursorChange(before)
	m.forceClearInfo()
	trace(m.level.Filter)
	m.syncViewport(m.level)
	return true
}

func (m *Model) moveFilterCursor(move func() bool) bool {
	before := m.level.FilterCursorPos()
	if !move() {
		return false
	}
	m.noteFilterCursorChange(before)
	events.Filter.Cursor(m.level.FilterCursor)
	return true
}

func (m *Model) noteFilterCursorChange(before int) {
	if before != m.level.FilterCursorPos() {
		m.filterCursorDirty = true
	}
}

// filterPrompt renders the filter line: prompt, query with caret, and the
// number of rows left out of the page while a filter is active.
func (m *Model) filterPrompt() string {
	current := m.level
	prompt := renderWith(styles.FilterPrompt, filterPromptText)
	m.filterCursor.TextStyle = lipgloss.Style{}
	if styles.Filter != nil {
		m.filterCursor.TextStyle = styles.Filter.Copy()
	}
	if styles.Cursor != nil {
		m.filterCursor.Style = styles.Cursor.Copy()
	}

	if current.Filter == "" {
		runes := []rune(filterPlaceholder)
		if styles.FilterPlaceholder != nil {
			m.filterCursor.TextStyle = styles.FilterPlaceholder.Copy()
		}
		return prompt + m.renderFilterCursor(string(runes[0])) + renderWith(styles.FilterPlaceholder, string(runes[1:]))
	}

	runes := []rune(current.Filter)
	pos := current.FilterCursorPos()
	caret, after := " ", ""
	if pos < len(runes) {
		caret = string(runes[pos])
		after = string(runes[pos+1:])
	}
	count := fmt.Sprintf("  %d/%d", len(current.Items), len(current.Full))
	return prompt +
		renderWith(styles.Filter, string(runes[:pos])) +
		m.renderFilterCursor(caret) +
		renderWith(styles.Filter, after) +
		renderWith(styles.FilterPlaceholder, count)
}

func renderWith(style *lipgloss.Style, value string) string {
	if style == nil || value == "" {
		return value
	}
	return style.Render(value)
}

func (m *Model) renderFilterCursor(char string) string {
	if char == "" {
		char = " "
	}
	m.filterCursor.SetChar(char)
	base := m.filterCursor.TextStyle.Copy().Inline(true)
	switch {
	case m.filterCursor.Blink:
		return base.Render(char)
	case styles.Cursor != nil:
		return base.Inherit(styles.Cursor.Copy().Inline(true)).Blink(false).Render(char)
	default:
		return base.Reverse(true).Render(char)
	}
}
