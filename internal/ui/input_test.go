package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestHandleTextInputAppendsRunes(t *testing.T) {
	m := NewModel(Options{Seed: decodePage(t, mixedPage)})
	current := m.level
	handled := m.handleTextInput(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("kit")})
	if !handled {
		t.Fatalf("expected key press to be handled")
	}
	if current.Filter != "kit" {
		t.Fatalf("expected filter 'kit', got %q", current.Filter)
	}
	if pos := current.FilterCursorPos(); pos != 3 {
		t.Fatalf("expected cursor at end, got %d", pos)
	}
	if len(current.Items) != 1 || current.Items[0].ID != "00" {
		t.Fatalf("expected only the kitchen row, got %#v", current.Items)
	}
}

func TestHandleTextInputCursorMovement(t *testing.T) {
	m := NewModel(Options{Seed: decodePage(t, mixedPage)})
	current := m.level
	current.SetFilter("abc", 3)

	if !m.handleTextInput(tea.KeyMsg{Type: tea.KeyLeft}) {
		t.Fatalf("expected left arrow to be handled")
	}
	if pos := current.FilterCursorPos(); pos != 2 {
		t.Fatalf("expected cursor at 2 after left, got %d", pos)
	}

	if !m.handleTextInput(tea.KeyMsg{Type: tea.KeyRight}) {
		t.Fatalf("expected right arrow to be handled")
	}
	if pos := current.FilterCursorPos(); pos != 3 {
		t.Fatalf("expected cursor back at 3, got %d", pos)
	}
}

func TestSpaceTogglesOnlyWithEmptyFilter(t *testing.T) {
	var out []sent
	m := NewModel(Options{Seed: recordingPage(t, mixedPage, &out)})
	h := NewHarness(m)

	h.Send(tea.KeyMsg{Type: tea.KeySpace})
	if len(out) != 1 || out[0].item != "kitchen" {
		t.Fatalf("expected space to toggle kitchen, got %#v", out)
	}

	h.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("ha")})
	h.Send(tea.KeyMsg{Type: tea.KeySpace})
	if len(out) != 1 {
		t.Fatalf("expected no further commands, got %#v", out)
	}
	if m.level.Filter != "ha " {
		t.Fatalf("expected space to extend filter, got %q", m.level.Filter)
	}
}

func TestEscapeClearsFilterBeforeQuitting(t *testing.T) {
	m := NewModel(Options{Seed: decodePage(t, mixedPage)})
	m.level.SetFilter("fan", 3)

	if cmd := m.handleKeyMsg(tea.KeyMsg{Type: tea.KeyEsc}); cmd != nil {
		t.Fatalf("expected first escape to only clear the filter")
	}
	if m.level.Filter != "" {
		t.Fatalf("expected filter cleared, got %q", m.level.Filter)
	}
	if len(m.level.Items) != 5 {
		t.Fatalf("expected all rows back, got %d", len(m.level.Items))
	}
	cmd := m.handleKeyMsg(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
}

func TestFilterPromptPlaceholder(t *testing.T) {
	m := NewModel(Options{})
	m.level.SetFilter("", 0)
	prompt := m.filterPrompt()
	if prompt == "" {
		t.Fatalf("expected non-empty prompt")
	}
	if !strings.Contains(prompt, "type to filter") {
		t.Fatalf("expected placeholder in prompt, got %q", prompt)
	}
}

func TestFilterPromptCountsMatches(t *testing.T) {
	m := NewModel(Options{Seed: decodePage(t, mixedPage)})
	h := NewHarness(m)
	h.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("hall")})

	ids := make([]string, 0, len(m.level.Items))
	for _, item := range m.level.Items {
		ids = append(ids, item.ID)
	}
	if strings.Join(ids, ",") != "03,0300" {
		t.Fatalf("expected hall with its frame, got %v", ids)
	}
	if !strings.Contains(m.filterPrompt(), "2/5") {
		t.Fatalf("expected match count in prompt, got %q", m.filterPrompt())
	}
	if selected, _ := m.level.Selected(); selected.ID != "0300" {
		t.Fatalf("expected hall selected, got %q", selected.ID)
	}
}

func TestFilterMatchesItemName(t *testing.T) {
	m := NewModel(Options{Seed: decodePage(t, mixedPage)})
	m.level.SetFilter("temp", 4)
	if len(m.level.Items) != 1 || m.level.Items[0].ID != "01" {
		t.Fatalf("expected the temperature row, got %#v", m.level.Items)
	}
}
