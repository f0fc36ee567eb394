package ui

import (
	"fmt"

	"github.com/rivo/tview"
)

// ProfileData is what the header shows about the running session.
type ProfileData struct {
	Profile    string
	Merchant   string
	RoomID     string
	RoomStatus string
	Agent      string
	Connection string
	Messages   int
}

// ProfileInfo renders ProfileData in the header.
type ProfileInfo struct {
	*tview.TextView
	theme *Theme
}

// NewProfileInfo creates the header info panel.
func NewProfileInfo(theme *Theme) *ProfileInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.Bg)
	tv.SetBorderPadding(0, 0, 1, 1)

	return &ProfileInfo{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders data. A nil value clears the panel.
func (pi *ProfileInfo) Update(data *ProfileData) {
	pi.Clear()
	if data == nil {
		return
	}
	_, _ = fmt.Fprint(pi, pi.format(data))
}

func (pi *ProfileInfo) format(data *ProfileData) string {
	fg := Tag(pi.theme.Fg)
	val := Tag(pi.theme.Counter)

	row := func(label, value string) string {
		if value == "" {
			value = "-"
		}
		return fmt.Sprintf("[%s::b]%-9s[-:-:-] [%s]%s[-]\n", fg, label+":", val, tview.Escape(value))
	}
	return row("Profile", data.Profile) +
		row("Merchant", data.Merchant) +
		row("Room", shortID(data.RoomID)) +
		row("Status", data.RoomStatus) +
		row("Agent", data.Agent) +
		row("Conn", data.Connection) +
		row("Msgs", fmt.Sprint(data.Messages))
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12] + "…"
	}
	return id
}
