package views

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/matheus3301/deskchat/internal/model"
	"github.com/matheus3301/deskchat/internal/tui/ui"
)

// ImageView shows an image message as a QR code of its URL, since the
// terminal cannot draw the picture itself.
type ImageView struct {
	*tview.TextView
	theme *ui.Theme
}

// NewImageView creates the image page.
func NewImageView(theme *ui.Theme) *ImageView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.Border)
	tv.SetBackgroundColor(theme.Bg)
	tv.SetTextColor(theme.Fg)
	tv.SetTitle(" Image ")
	tv.SetTitleColor(theme.Title)

	return &ImageView{
		TextView: tv,
		theme:    theme,
	}
}

// Title implements ui.View.
func (iv *ImageView) Title() string { return "Image" }

// FocusTarget implements ui.View.
func (iv *ImageView) FocusTarget() tview.Primitive { return iv }

// Hints implements ui.View.
func (iv *ImageView) Hints() []ui.Hint {
	return []ui.Hint{
		{Key: "Esc", Label: "Back"},
	}
}

// Show renders m's image URL as a QR code.
func (iv *ImageView) Show(m model.Message) {
	iv.Clear()
	sender := m.SenderName
	if sender == "" {
		sender = string(m.SenderRole)
	}
	_, _ = fmt.Fprintf(iv, "\n  Image from %s, %s\n  Scan to open on your phone:\n\n%s\n  [::d]%s[-:-:-]",
		tview.Escape(sender), formatTime(m.CreatedAt), renderQR(m.ImageURL), tview.Escape(m.ImageURL))
}

// ShowMessage displays a plain notice.
func (iv *ImageView) ShowMessage(msg string) {
	iv.Clear()
	_, _ = fmt.Fprintf(iv, "\n\n%s", tview.Escape(msg))
}

// renderQR draws content as a QR code with half-block characters, two
// module rows per terminal line.
func renderQR(content string) string {
	qr, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return "  (QR generation failed: " + err.Error() + ")"
	}

	bitmap := qr.Bitmap()
	var sb strings.Builder
	for y := 0; y < len(bitmap); y += 2 {
		sb.WriteString("  ")
		for x := range bitmap[y] {
			top := bitmap[y][x]
			bot := y+1 < len(bitmap) && bitmap[y+1][x]
			sb.WriteRune(halfBlock(top, bot))
		}
		sb.WriteRune('\n')
	}
	return sb.String()
}

func halfBlock(top, bot bool) rune {
	switch {
	case top && bot:
		return '█'
	case top:
		return '▀'
	case bot:
		return '▄'
	default:
		return ' '
	}
}
