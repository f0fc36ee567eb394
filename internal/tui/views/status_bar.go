package views

import (
	"fmt"
	"time"

	"github.com/rivo/tview"

	"github.com/matheus3301/deskchat/internal/chat"
	"github.com/matheus3301/deskchat/internal/status"
	"github.com/matheus3301/deskchat/internal/tui/ui"
)

// StatusBar is the one-line connection summary at the bottom.
type StatusBar struct {
	*tview.TextView
	theme   *ui.Theme
	profile string
	snap    chat.Snapshot
}

// NewStatusBar creates a status bar.
func NewStatusBar(theme *ui.Theme) *StatusBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(tview.Styles.MoreContrastBackgroundColor)

	return &StatusBar{TextView: tv, theme: theme}
}

// SetProfile sets the profile name shown on the left.
func (sb *StatusBar) SetProfile(name string) {
	sb.profile = name
	sb.render()
}

// SetSnapshot updates the bar from controller state.
func (sb *StatusBar) SetSnapshot(s chat.Snapshot) {
	sb.snap = s
	sb.render()
}

func (sb *StatusBar) render() {
	sb.Clear()
	_, _ = fmt.Fprint(sb, statusLine(sb.profile, sb.snap, time.Now()))
}

func statusLine(profile string, s chat.Snapshot, now time.Time) string {
	conn := "[red]offline[-]"
	switch {
	case s.Blocked:
		conn = "[red]blocked[-]"
	case s.Conn == status.Connected:
		conn = "[green]online[-]"
	case s.Conn == status.Connecting:
		conn = "[yellow]connecting[-]"
	}

	room := "no room"
	if s.Room != nil {
		room = string(s.Room.Status)
	}

	line := fmt.Sprintf(" [::b]%s[-:-:-] | %s | %s | %d msgs", tview.Escape(profile), conn, room, len(s.Messages))
	if s.AgentTyping {
		line += " | agent typing"
	}
	if s.Uploading {
		line += " | uploading"
	}
	return line + " | " + now.Format("15:04")
}
