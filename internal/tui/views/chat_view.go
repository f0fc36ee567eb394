package views

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/matheus3301/deskchat/internal/chat"
	"github.com/matheus3301/deskchat/internal/model"
	"github.com/matheus3301/deskchat/internal/tui/ui"
)

const blockedNotice = "You are blacklisted from chat. Contact support through another channel."

// ChatView shows the support conversation with a composer underneath.
// The composer owns its text; every edit is reported through onType.
type ChatView struct {
	*tview.Flex
	theme    *ui.Theme
	messages *tview.TextView
	typing   *tview.TextView
	composer *tview.InputField
	selfID   string
	title    string
	muted    bool
	onType   func(text string)
	onSend   func()
}

// NewChatView creates the chat page.
func NewChatView(theme *ui.Theme) *ChatView {
	messages := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	messages.SetBorder(true)
	messages.SetBorderColor(theme.Border)
	messages.SetBackgroundColor(theme.Bg)
	messages.SetTextColor(theme.Fg)
	messages.SetTitle(" Support ")
	messages.SetTitleColor(theme.Title)

	typing := tview.NewTextView().
		SetDynamicColors(true)
	typing.SetBackgroundColor(theme.Bg)
	typing.SetTextColor(theme.Typing)

	composer := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0).
		SetPlaceholder("Type a message...")
	composer.SetBorder(true)
	composer.SetBorderColor(theme.Border)
	composer.SetBackgroundColor(theme.Bg)
	composer.SetFieldBackgroundColor(theme.Bg)
	composer.SetFieldTextColor(theme.Fg)
	composer.SetLabelColor(theme.Key)
	composer.SetTitle(" Compose (i to focus) ")
	composer.SetTitleColor(theme.Title)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(messages, 0, 1, true).
		AddItem(typing, 1, 0, false).
		AddItem(composer, 3, 0, false)

	cv := &ChatView{
		Flex:     flex,
		theme:    theme,
		messages: messages,
		typing:   typing,
		composer: composer,
		title:    "Support",
	}

	composer.SetChangedFunc(func(text string) {
		if cv.onType != nil && !cv.muted {
			cv.onType(text)
		}
	})
	composer.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter && cv.onSend != nil && strings.TrimSpace(composer.GetText()) != "" {
			cv.onSend()
		}
	})

	return cv
}

// Title implements ui.View.
func (cv *ChatView) Title() string { return cv.title }

// FocusTarget implements ui.View.
func (cv *ChatView) FocusTarget() tview.Primitive { return cv.Messages() }

// Hints implements ui.View.
func (cv *ChatView) Hints() []ui.Hint {
	return []ui.Hint{
		{Key: "i", Label: "Compose"},
		{Key: "v", Label: "View image"},
		{Key: "f", Label: "FAQ"},
		{Key: ":", Label: "Command"},
		{Key: "?", Label: "Help"},
	}
}

// SetSelf sets the merchant id used to tell own messages apart.
func (cv *ChatView) SetSelf(userID string) {
	cv.selfID = userID
}

// SetOnType sets the callback for composer edits.
func (cv *ChatView) SetOnType(fn func(text string)) {
	cv.onType = fn
}

// SetOnSend sets the callback for Enter in the composer.
func (cv *ChatView) SetOnSend(fn func()) {
	cv.onSend = fn
}

// ClearComposer empties the composer after a send without reporting it
// as an edit.
func (cv *ChatView) ClearComposer() {
	cv.muted = true
	cv.composer.SetText("")
	cv.muted = false
}

// Update renders a controller snapshot.
func (cv *ChatView) Update(s chat.Snapshot) {
	cv.title = "Support"
	if s.Room != nil && s.Room.Status == model.RoomActive {
		cv.title = "Support (agent online)"
	} else if s.Room != nil {
		cv.title = "Support (waiting for an agent)"
	}
	cv.messages.SetTitle(" " + cv.title + " ")

	cv.messages.Clear()
	_, _ = fmt.Fprint(cv.messages, cv.body(s))
	cv.messages.ScrollToEnd()

	cv.typing.Clear()
	switch {
	case s.AgentTyping:
		_, _ = fmt.Fprint(cv.typing, " [::i]Agent is typing...[-:-:-]")
	case s.Uploading:
		_, _ = fmt.Fprint(cv.typing, " [::i]Uploading image...[-:-:-]")
	}

	cv.composer.SetDisabled(s.Blocked || !s.Mounted)
}

func (cv *ChatView) body(s chat.Snapshot) string {
	switch {
	case s.Blocked:
		return fmt.Sprintf("\n [%s::b]%s[-:-:-]\n", ui.Tag(cv.theme.Banner), blockedNotice)
	case s.Loading && len(s.Messages) == 0:
		return "\n [::d]Loading conversation...[-:-:-]\n"
	case len(s.Messages) == 0:
		return "\n [::d]No messages yet. Say hello to support.[-:-:-]\n"
	}
	return renderMessages(s.Messages, cv.selfID, cv.theme)
}

func renderMessages(msgs []model.Message, selfID string, theme *ui.Theme) string {
	var b strings.Builder
	for _, m := range msgs {
		sender, color := m.SenderName, theme.Agent
		if m.FromMerchant(selfID) {
			sender, color = "You", theme.Merchant
		}
		if sender == "" {
			sender = "Support"
		}

		body := tview.Escape(sanitizeForTerminal(m.Message))
		if m.IsImage() {
			body = "[::u][image][::-] " + tview.Escape(m.ImageURL)
			if m.Message != "" {
				body += "\n" + tview.Escape(sanitizeForTerminal(m.Message))
			}
		}

		fmt.Fprintf(&b, "[%s::b]%s[-:-:-] [::d]%s[-:-:-]\n%s\n\n",
			ui.Tag(color), tview.Escape(sanitizeForTerminal(sender)), formatTime(m.CreatedAt), body)
	}
	return b.String()
}

// Messages returns the transcript (for focus management).
func (cv *ChatView) Messages() *tview.TextView {
	return cv.messages
}

// Composer returns the composer input (for focus management).
func (cv *ChatView) Composer() *tview.InputField {
	return cv.composer
}
