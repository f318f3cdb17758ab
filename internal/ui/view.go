package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/atomicstack/openhab-popup/internal/format/table"
	"github.com/atomicstack/openhab-popup/internal/state"
	uistate "github.com/atomicstack/openhab-popup/internal/ui/state"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
)

const footerText = "↑/↓ move  enter toggle  ctrl+r reload  esc quit"

type styledLine struct {
	text          string
	style         *lipgloss.Style
	prefixStyle   *lipgloss.Style
	highlightFrom int
}

// View implements tea.Model.
func (m *Model) View() string {
	lines := make([]styledLine, 0, 16)
	lines = append(lines, styledLine{text: m.header(), style: styles.Header})
	current := m.level
	m.syncViewport(current)
	start := 0
	displayItems := current.Items
	if maxItems := m.maxVisibleItems(); maxItems > 0 && len(displayItems) > maxItems {
		start = current.ViewportOffset
		if start < 0 {
			start = 0
		}
		if start+maxItems > len(displayItems) {
			start = len(displayItems) - maxItems
			if start < 0 {
				start = 0
			}
			current.ViewportOffset = start
		}
		displayItems = displayItems[start : start+maxItems]
	}
	switch {
	case len(current.Items) == 0 && current.Filter != "":
		lines = append(lines, styledLine{text: fmt.Sprintf("No matches for %q", current.Filter), style: styles.Info})
	case len(current.Items) == 0 && m.busy():
		lines = append(lines, styledLine{text: "Loading sitemap…", style: styles.Loading})
	case len(current.Items) == 0:
		lines = append(lines, styledLine{text: "(no widgets)", style: styles.Info})
	default:
		lines = append(lines, m.widgetLines(displayItems, start)...)
	}
	if info := m.currentInfo(); info != "" {
		lines = append(lines, styledLine{})
		lines = append(lines, styledLine{text: info, style: styles.Info})
	}
	if m.showFooter {
		lines = append(lines, styledLine{})
		lines = append(lines, styledLine{text: footerText, style: styles.Footer})
	}
	lines = limitHeight(lines, m.height-2, m.width)
	lines = applyWidth(lines, m.width)

	var statusLine styledLine
	if m.errMsg != "" {
		statusLine = styledLine{text: fmt.Sprintf("Error: %s", m.errMsg), style: styles.Error}
	}
	bottomLines := applyWidth([]styledLine{statusLine, {text: m.filterPrompt()}}, m.width)
	lines = append(lines, bottomLines...)
	return renderLines(lines)
}

func (m *Model) header() string {
	if m.busy() {
		return m.title + " " + m.spinner.View()
	}
	return m.title
}

// widgetLines renders the visible rows as aligned label, value and state
// columns. Nested widgets are indented by depth.
func (m *Model) widgetLines(items []uistate.Item, start int) []styledLine {
	rows := make([][]string, len(items))
	widgets := make([]*state.Widget, len(items))
	for i, item := range items {
		w, ok := m.widgets.Lookup(item.ID)
		if !ok {
			rows[i] = []string{item.Label, "", ""}
			continue
		}
		widgets[i] = w
		rows[i] = []string{
			strings.Repeat("  ", w.Depth()) + w.LabelText(),
			w.LabelValue(),
			m.stateCell(w),
		}
	}
	formatted := table.Format(rows, []table.Alignment{table.AlignLeft, table.AlignRight, table.AlignRight})
	lines := make([]styledLine, len(formatted))
	for i, text := range formatted {
		lines[i] = m.buildItemLine(text, widgets[i], start+i)
	}
	return lines
}

func (m *Model) stateCell(w *state.Widget) string {
	item := w.Item()
	if item == nil {
		return ""
	}
	if cmd, ok := m.pending[item.Name]; ok {
		return "→" + cmd
	}
	switch {
	case w.Toggleable():
		return toggleCommand(w.On())
	case len(w.Mappings()) > 0:
		for _, mapping := range w.Mappings() {
			if strings.EqualFold(mapping.Command, item.State) {
				return mapping.Label
			}
		}
	}
	return ""
}

func (m *Model) buildItemLine(text string, w *state.Widget, idx int) styledLine {
	indicator := "▌"
	lineStyle := styles.Item
	indicatorStyle := styles.ItemIndicator
	switch {
	case idx == m.level.Cursor:
		indicatorStyle = styles.SelectedItemIndicator
		lineStyle = styles.SelectedItem
	case w == nil:
	case !w.HasItem():
		lineStyle = styles.Frame
	case m.isPending(w):
		lineStyle = styles.Pending
	case w.Toggleable() && w.On():
		lineStyle = styles.On
	case w.Toggleable():
		lineStyle = styles.Off
	case w.LabelValue() != "":
		lineStyle = styles.Value
	}
	fullText := indicator + " " + text
	if m.width > 0 {
		if pad := m.width - lipgloss.Width(fullText); pad > 0 {
			fullText += strings.Repeat(" ", pad)
		}
	}
	return styledLine{
		text:          fullText,
		style:         lineStyle,
		prefixStyle:   indicatorStyle,
		highlightFrom: 1,
	}
}

func (m *Model) isPending(w *state.Widget) bool {
	item := w.Item()
	if item == nil {
		return false
	}
	_, ok := m.pending[item.Name]
	return ok
}

func (m *Model) handleWindowSizeMsg(msg tea.Msg) tea.Cmd {
	resize, ok := msg.(tea.WindowSizeMsg)
	if !ok {
		return nil
	}
	if !m.fixedWidth {
		m.width = resize.Width
	}
	if !m.fixedHeight {
		m.height = resize.Height
	}
	m.syncViewport(m.level)
	return nil
}

func (m *Model) maxVisibleItems() int {
	if m.height <= 0 {
		return -1
	}
	used := 3 // header, error/status, filter prompt
	if info := m.currentInfo(); info != "" {
		used += 2
	}
	if m.showFooter {
		used += 2
	}
	remain := m.height - used
	if remain < 1 {
		return 1
	}
	return remain
}

func (m *Model) setInfo(message string) {
	m.infoMsg = message
	m.infoExpire = time.Now().Add(5 * time.Second)
}

func (m *Model) forceClearInfo() {
	m.infoMsg = ""
	m.infoExpire = time.Time{}
}

func (m *Model) currentInfo() string {
	if m.infoMsg != "" && !m.infoExpire.IsZero() && time.Now().After(m.infoExpire) {
		m.infoMsg = ""
		m.infoExpire = time.Time{}
	}
	return m.infoMsg
}

func limitHeight(lines []styledLine, height, width int) []styledLine {
	if height <= 0 || len(lines) <= height {
		return lines
	}
	if height == 1 {
		return []styledLine{{text: truncateText("…", width)}}
	}
	trimmed := make([]styledLine, 0, height)
	trimmed = append(trimmed, lines[:height-1]...)
	trimmed = append(trimmed, styledLine{text: truncateText("…", width)})
	return trimmed
}

func applyWidth(lines []styledLine, width int) []styledLine {
	if width <= 0 {
		return lines
	}
	result := make([]styledLine, len(lines))
	for i, line := range lines {
		result[i] = styledLine{
			text:          truncateText(line.text, width),
			style:         line.style,
			prefixStyle:   line.prefixStyle,
			highlightFrom: line.highlightFrom,
		}
	}
	return result
}

func renderLines(lines []styledLine) string {
	out := make([]string, len(lines))
	for i, line := range lines {
		text := line.text
		runes := []rune(text)
		if line.highlightFrom > 0 && line.highlightFrom < len(runes) {
			head := string(runes[:line.highlightFrom])
			tail := string(runes[line.highlightFrom:])
			if line.prefixStyle != nil {
				head = line.prefixStyle.Render(head)
			}
			if line.style != nil {
				tail = line.style.Render(tail)
			}
			text = head + tail
		} else if line.style != nil {
			text = line.style.Render(text)
		}
		out[i] = text
	}
	return strings.Join(out, "\n")
}

// truncateText cuts text to width terminal cells, ending in an ellipsis.
func truncateText(text string, width int) string {
	if width <= 0 || lipgloss.Width(text) <= width {
		return text
	}
	if width == 1 {
		return string([]rune(text)[:1])
	}
	return truncate.StringWithTail(text, uint(width), "…")
}
