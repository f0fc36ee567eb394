package ui

import (
	"fmt"

	"github.com/rivo/tview"
)

var logoLines = []string{
	"╔╦╗╔═╗╔═╗╦╔═",
	" ║║║╣ ╚═╗╠╩╗",
	"═╩╝╚═╝╚═╝╩ ╩",
}

// Logo is the header wordmark. It dims while the chat is offline.
type Logo struct {
	*tview.TextView
	theme  *Theme
	online bool
}

// NewLogo creates a logo in the offline state.
func NewLogo(theme *Theme) *Logo {
	tv := tview.NewTextView().SetDynamicColors(true)
	tv.SetBackgroundColor(theme.Bg)
	tv.SetBorderPadding(1, 0, 1, 0)

	l := &Logo{TextView: tv, theme: theme}
	l.render()
	return l
}

// SetOnline recolors the wordmark when the connection state changes.
func (l *Logo) SetOnline(online bool) {
	if online == l.online {
		return
	}
	l.online = online
	l.render()
}

func (l *Logo) render() {
	mark, caption := Tag(l.theme.Offline), "offline"
	if l.online {
		mark, caption = Tag(l.theme.Title), "support"
	}
	l.Clear()
	for _, line := range logoLines {
		_, _ = fmt.Fprintf(l, "[%s::b]%s[-:-:-]\n", mark, line)
	}
	_, _ = fmt.Fprintf(l, "[%s]  %s[-]", Tag(l.theme.Fg), caption)
}
