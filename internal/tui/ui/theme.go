package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
)

// Theme is the palette shared by every view.
type Theme struct {
	Bg          tcell.Color
	Fg          tcell.Color
	Muted       tcell.Color
	Border      tcell.Color
	BorderFocus tcell.Color
	Title       tcell.Color
	Accent      tcell.Color
	Counter     tcell.Color
	Key         tcell.Color

	HeaderFg tcell.Color
	HeaderBg tcell.Color
	CursorFg tcell.Color
	CursorBg tcell.Color

	// Conversation.
	Merchant tcell.Color
	Agent    tcell.Color
	Typing   tcell.Color
	Banner   tcell.Color

	// Flash levels.
	Info tcell.Color
	Warn tcell.Color
	Err  tcell.Color

	Online  tcell.Color
	Offline tcell.Color
}

// DefaultTheme returns the dark theme used by deskchat.
func DefaultTheme() *Theme {
	return &Theme{
		Bg:          tcell.ColorBlack,
		Fg:          tcell.ColorCadetBlue,
		Muted:       tcell.ColorGray,
		Border:      tcell.ColorDodgerBlue,
		BorderFocus: tcell.ColorLightSkyBlue,
		Title:       tcell.ColorFuchsia,
		Accent:      tcell.ColorOrange,
		Counter:     tcell.ColorPapayaWhip,
		Key:         tcell.ColorDodgerBlue,

		HeaderFg: tcell.ColorWhite,
		HeaderBg: tcell.ColorBlack,
		CursorFg: tcell.ColorBlack,
		CursorBg: tcell.ColorAqua,

		Merchant: tcell.ColorAqua,
		Agent:    tcell.ColorGreenYellow,
		Typing:   tcell.ColorGray,
		Banner:   tcell.ColorOrangeRed,

		Info: tcell.ColorNavajoWhite,
		Warn: tcell.ColorOrange,
		Err:  tcell.ColorOrangeRed,

		Online:  tcell.ColorLimeGreen,
		Offline: tcell.ColorGray,
	}
}

// Tag returns c in the form tview color tags expect.
func Tag(c tcell.Color) string {
	for name, val := range tcell.ColorNames {
		if val == c {
			return name
		}
	}
	return fmt.Sprintf("#%06x", c.Hex())
}
