package ui

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"
	"github.com/rivo/uniseg"
)

// menuRows is how many hints fit in one header column.
const menuRows = 5

// Menu lays the key hints of the visible page out in columns.
type Menu struct {
	*tview.TextView
	theme *Theme
}

// NewMenu creates an empty hint menu.
func NewMenu(theme *Theme) *Menu {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false)
	tv.SetBackgroundColor(theme.Bg)
	tv.SetBorderPadding(1, 0, 2, 0)
	return &Menu{TextView: tv, theme: theme}
}

// Update replaces the hints.
func (m *Menu) Update(hints []Hint) {
	m.SetText(layoutHints(hints, menuRows, Tag(m.theme.Key), Tag(m.theme.Fg)))
}

// layoutHints fills columns top to bottom and pads each column to its widest
// cell.
func layoutHints(hints []Hint, rows int, keyColor, fgColor string) string {
	if len(hints) == 0 || rows <= 0 {
		return ""
	}
	cols := (len(hints) + rows - 1) / rows
	widths := make([]int, cols)
	for i, h := range hints {
		if w := hintWidth(h); w > widths[i/rows] {
			widths[i/rows] = w
		}
	}

	var b strings.Builder
	for r := 0; r < rows && r < len(hints); r++ {
		for c := 0; c < cols; c++ {
			i := c*rows + r
			if i >= len(hints) {
				break
			}
			h := hints[i]
			fmt.Fprintf(&b, "[%s::b]<%s>[-:-:-] [%s]%s[-]", keyColor, tview.Escape(h.Key), fgColor, tview.Escape(h.Label))
			if c < cols-1 {
				b.WriteString(strings.Repeat(" ", widths[c]-hintWidth(h)+3))
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func hintWidth(h Hint) int {
	return uniseg.StringWidth(h.Key) + uniseg.StringWidth(h.Label) + 3
}
