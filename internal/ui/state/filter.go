package state

import (
	"strings"
	"unicode"
)

// SetFilter replaces the filter query and moves its caret to cursor. Starting
// a filter remembers the selected row; clearing it returns there.
func (l *Level) SetFilter(query string, cursor int) {
	trimmed := strings.TrimSpace(query)
	wasFiltering := strings.TrimSpace(l.Filter) != ""
	l.Filter = query
	l.FilterCursor = clampInt(cursor, 0, len([]rune(query)))

	switch {
	case trimmed != "":
		if !wasFiltering {
			l.LastCursor = l.Cursor
		}
		l.Cursor = 0
		l.applyFilter()
		if idx := BestMatchIndex(l.Items, trimmed); idx >= 0 {
			l.Cursor = idx
		}
	case wasFiltering:
		restore := l.LastCursor
		l.LastCursor = -1
		l.applyFilter()
		if restore >= 0 && restore < len(l.Items) {
			l.Cursor = restore
		} else if len(l.Items) > 0 {
			l.Cursor = len(l.Items) - 1
		}
	default:
		l.applyFilter()
	}
}

func (l *Level) applyFilter() {
	l.Items = FilterItems(l.Full, l.Filter)
	if len(l.Items) == 0 {
		l.Cursor = 0
		l.ViewportOffset = 0
		return
	}
	if l.Cursor < 0 || l.Cursor >= len(l.Items) {
		l.Cursor = len(l.Items) - 1
	}
	if l.ViewportOffset > len(l.Items)-1 {
		l.ViewportOffset = 0
	}
}

// FilterCursorPos returns the rune offset of the filter caret.
func (l *Level) FilterCursorPos() int {
	return clampInt(l.FilterCursor, 0, len([]rune(l.Filter)))
}

// InsertFilterText inserts text at the caret.
func (l *Level) InsertFilterText(text string) bool {
	insert := []rune(text)
	if len(insert) == 0 {
		return false
	}
	runes := []rune(l.Filter)
	pos := l.FilterCursorPos()
	updated := make([]rune, 0, len(runes)+len(insert))
	updated = append(updated, runes[:pos]...)
	updated = append(updated, insert...)
	updated = append(updated, runes[pos:]...)
	l.SetFilter(string(updated), pos+len(insert))
	return true
}

// DeleteFilterRuneBackward deletes the rune before the caret.
func (l *Level) DeleteFilterRuneBackward() bool {
	pos := l.FilterCursorPos()
	if pos == 0 {
		return false
	}
	return l.deleteFilterRange(pos-1, pos)
}

// DeleteFilterWordBackward deletes the word before the caret.
func (l *Level) DeleteFilterWordBackward() bool {
	pos := l.FilterCursorPos()
	if pos == 0 {
		return false
	}
	return l.deleteFilterRange(wordStartBefore([]rune(l.Filter), pos), pos)
}

func (l *Level) deleteFilterRange(from, to int) bool {
	runes := []rune(l.Filter)
	if from >= to {
		return false
	}
	updated := append(append([]rune{}, runes[:from]...), runes[to:]...)
	l.SetFilter(string(updated), from)
	return true
}

// MoveFilterCursorStart moves the caret to the start of the filter.
func (l *Level) MoveFilterCursorStart() bool {
	return l.moveFilterCursorTo(0)
}

// MoveFilterCursorEnd moves the caret past the last rune.
func (l *Level) MoveFilterCursorEnd() bool {
	return l.moveFilterCursorTo(len([]rune(l.Filter)))
}

// MoveFilterCursorWordBackward moves the caret to the start of the previous word.
func (l *Level) MoveFilterCursorWordBackward() bool {
	return l.moveFilterCursorTo(wordStartBefore([]rune(l.Filter), l.FilterCursorPos()))
}

// MoveFilterCursorWordForward moves the caret past the next word.
func (l *Level) MoveFilterCursorWordForward() bool {
	return l.moveFilterCursorTo(wordEndAfter([]rune(l.Filter), l.FilterCursorPos()))
}

// MoveFilterCursorRuneBackward moves the caret one rune left.
func (l *Level) MoveFilterCursorRuneBackward() bool {
	return l.moveFilterCursorTo(l.FilterCursorPos() - 1)
}

// MoveFilterCursorRuneForward moves the caret one rune right.
func (l *Level) MoveFilterCursorRuneForward() bool {
	return l.moveFilterCursorTo(l.FilterCursorPos() + 1)
}

func (l *Level) moveFilterCursorTo(pos int) bool {
	pos = clampInt(pos, 0, len([]rune(l.Filter)))
	if pos == l.FilterCursorPos() {
		return false
	}
	l.FilterCursor = pos
	return true
}

// wordStartBefore skips spaces left of pos, then the word before them.
func wordStartBefore(runes []rune, pos int) int {
	i := pos
	for i > 0 && unicode.IsSpace(runes[i-1]) {
		i--
	}
	for i > 0 && !unicode.IsSpace(runes[i-1]) {
		i--
	}
	return i
}

// wordEndAfter skips the word right of pos, then the spaces after it.
func wordEndAfter(runes []rune, pos int) int {
	i := pos
	for i < len(runes) && !unicode.IsSpace(runes[i]) {
		i++
	}
	for i < len(runes) && unicode.IsSpace(runes[i]) {
		i++
	}
	return i
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
