package views

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"

	"github.com/matheus3301/deskchat/internal/tui/ui"
)

// HelpView is the key and command reference.
type HelpView struct {
	*tview.TextView
	theme *ui.Theme
}

// NewHelpView creates the help page.
func NewHelpView(theme *ui.Theme) *HelpView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.Border)
	tv.SetBackgroundColor(theme.Bg)
	tv.SetTextColor(theme.Fg)
	tv.SetTitle(" Help ")
	tv.SetTitleColor(theme.Title)

	hv := &HelpView{
		TextView: tv,
		theme:    theme,
	}
	_, _ = fmt.Fprint(hv, helpText(ui.Tag(theme.Key)))
	return hv
}

// Title implements ui.View.
func (hv *HelpView) Title() string { return "Help" }

// FocusTarget implements ui.View.
func (hv *HelpView) FocusTarget() tview.Primitive { return hv }

// Hints implements ui.View.
func (hv *HelpView) Hints() []ui.Hint {
	return []ui.Hint{
		{Key: "Esc", Label: "Back"},
	}
}

var helpSections = []struct {
	title string
	rows  [][2]string
}{
	{"Keys", [][2]string{
		{":", "Command mode"},
		{"?", "This help"},
		{"f", "FAQ"},
		{"s", "Search the local archive"},
		{"q", "Quit"},
		{"Esc", "Leave composer / go back"},
	}},
	{"Chat", [][2]string{
		{"i", "Focus the composer"},
		{"Enter", "Send (in composer)"},
		{"v", "Show the latest image as a QR code"},
	}},
	{"Commands", [][2]string{
		{":image <path>", "Upload and send an image"},
		{":refresh", "Re-check the support room"},
		{":search <text>", "Search the local archive"},
		{":faq", "Open the FAQ"},
		{":view", "Show the latest image"},
		{":help, :h", "This help"},
		{":quit, :q", "Quit"},
	}},
	{"Command prompt", [][2]string{
		{"Tab", "Complete the command name"},
		{"Up/Down", "Previous commands"},
	}},
}

func helpText(keyColor string) string {
	var b strings.Builder
	for _, sec := range helpSections {
		fmt.Fprintf(&b, "\n  [::b]%s[-:-:-]\n\n", sec.title)
		for _, row := range sec.rows {
			fmt.Fprintf(&b, "  [%s]%-16s[-:-:-] %s\n", keyColor, tview.Escape(row[0]), row[1])
		}
	}
	return b.String()
}
