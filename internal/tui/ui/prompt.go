package ui

import (
	"sort"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

const promptHistory = 32

// Prompt is the ':' command bar. Up and Down walk previous entries and Tab
// completes a command name.
type Prompt struct {
	*tview.InputField
	commands []string
	history  []string
	cursor   int
	onSubmit func(text string)
	onCancel func()
}

// NewPrompt creates a prompt that completes the given command names.
func NewPrompt(theme *Theme, commands []string) *Prompt {
	input := tview.NewInputField().SetLabel(":")
	input.SetBorder(true).SetTitle(" Command ")
	input.SetBorderColor(theme.Border)
	input.SetBackgroundColor(theme.Bg)
	input.SetFieldBackgroundColor(theme.Bg)
	input.SetFieldTextColor(theme.Fg)
	input.SetLabelColor(theme.Key)

	cmds := append([]string(nil), commands...)
	sort.Strings(cmds)
	p := &Prompt{InputField: input, commands: cmds}

	input.SetInputCapture(p.capture)
	input.SetDoneFunc(func(key tcell.Key) {
		switch key {
		case tcell.KeyEnter:
			text := strings.TrimSpace(p.GetText())
			p.SetText("")
			if text == "" {
				return
			}
			p.remember(text)
			if p.onSubmit != nil {
				p.onSubmit(text)
			}
		case tcell.KeyEscape:
			p.SetText("")
			if p.onCancel != nil {
				p.onCancel()
			}
		}
	})
	return p
}

// SetOnSubmit sets the callback for a non-empty entry.
func (p *Prompt) SetOnSubmit(fn func(text string)) {
	p.onSubmit = fn
}

// SetOnCancel sets the callback for Esc.
func (p *Prompt) SetOnCancel(fn func()) {
	p.onCancel = fn
}

// Activate clears the field and rewinds the history cursor.
func (p *Prompt) Activate() {
	p.SetText("")
	p.cursor = len(p.history)
}

func (p *Prompt) capture(ev *tcell.EventKey) *tcell.EventKey {
	switch ev.Key() {
	case tcell.KeyUp:
		p.recall(-1)
	case tcell.KeyDown:
		p.recall(1)
	case tcell.KeyTab:
		p.SetText(complete(p.GetText(), p.commands))
	default:
		return ev
	}
	return nil
}

func (p *Prompt) remember(text string) {
	if n := len(p.history); n > 0 && p.history[n-1] == text {
		p.cursor = n
		return
	}
	p.history = append(p.history, text)
	if len(p.history) > promptHistory {
		p.history = p.history[len(p.history)-promptHistory:]
	}
	p.cursor = len(p.history)
}

func (p *Prompt) recall(step int) {
	next := p.cursor + step
	if next < 0 || next > len(p.history) {
		return
	}
	p.cursor = next
	if next == len(p.history) {
		p.SetText("")
		return
	}
	p.SetText(p.history[next])
}

// complete extends the command name in text to the longest prefix shared by
// every matching command. Arguments are never completed.
func complete(text string, commands []string) string {
	if strings.Contains(text, " ") {
		return text
	}
	var matches []string
	for _, c := range commands {
		if strings.HasPrefix(c, text) {
			matches = append(matches, c)
		}
	}
	switch len(matches) {
	case 0:
		return text
	case 1:
		return matches[0] + " "
	}
	prefix := matches[0]
	for _, m := range matches[1:] {
		for !strings.HasPrefix(m, prefix) {
			prefix = prefix[:len(prefix)-1]
		}
	}
	return prefix
}
