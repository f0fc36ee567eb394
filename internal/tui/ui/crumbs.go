package ui

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"
)

const crumbSeparator = " › "

// Crumbs shows the page trail under the header.
type Crumbs struct {
	*tview.TextView
	theme *Theme
}

// NewCrumbs creates an empty trail bar.
func NewCrumbs(theme *Theme) *Crumbs {
	tv := tview.NewTextView().SetDynamicColors(true)
	tv.SetBackgroundColor(theme.Bg)
	return &Crumbs{TextView: tv, theme: theme}
}

// Update renders titles with the last one highlighted.
func (c *Crumbs) Update(titles []string) {
	c.SetText(renderCrumbs(titles, c.theme))
}

func renderCrumbs(titles []string, theme *Theme) string {
	if len(titles) == 0 {
		return ""
	}
	parts := make([]string, len(titles))
	last := len(titles) - 1
	for i, title := range titles {
		title = tview.Escape(title)
		if i == last {
			parts[i] = fmt.Sprintf("[%s:%s:b] %s [-:-:-]", Tag(theme.Bg), Tag(theme.Accent), title)
			continue
		}
		parts[i] = fmt.Sprintf("[%s]%s[-]", Tag(theme.Muted), title)
	}
	return " " + strings.Join(parts, crumbSeparator)
}
