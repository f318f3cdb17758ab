// Package table aligns widget rows into columns.
package table

import (
	"strings"

	"github.com/muesli/reflow/ansi"
	"github.com/samber/lo"
)

type Alignment int

const (
	AlignLeft Alignment = iota
	AlignRight
)

// gap separates adjacent columns.
const gap = "  "

// Format pads every cell to the widest printable entry of its column. Rows
// may be ragged; missing cells count as empty. Escape sequences take no
// width.
func Format(rows [][]string, alignments []Alignment) []string {
	if len(rows) == 0 {
		return nil
	}
	cols := lo.Max(lo.Map(rows, func(row []string, _ int) int { return len(row) }))
	widths := make([]int, cols)
	for _, row := range rows {
		for c, cell := range row {
			widths[c] = max(widths[c], ansi.PrintableRuneWidth(cell))
		}
	}
	out := make([]string, len(rows))
	for i, row := range rows {
		var b strings.Builder
		for c := 0; c < cols; c++ {
			cell := ""
			if c < len(row) {
				cell = row[c]
			}
			if c > 0 {
				b.WriteString(gap)
			}
			pad := strings.Repeat(" ", max(widths[c]-ansi.PrintableRuneWidth(cell), 0))
			if alignmentOf(alignments, c) == AlignRight {
				b.WriteString(pad + cell)
			} else {
				b.WriteString(cell + pad)
			}
		}
		out[i] = b.String()
	}
	return out
}

func alignmentOf(alignments []Alignment, col int) Alignment {
	if col < len(alignments) {
		return alignments[col]
	}
	return AlignLeft
}
