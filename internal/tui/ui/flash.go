package ui

import (
	"fmt"
	"sync"
	"time"

	"github.com/rivo/tview"
)

// FlashLevel is the severity of a flash message.
type FlashLevel int

const (
	FlashInfo FlashLevel = iota
	FlashWarn
	FlashErr
)

var flashTTL = map[FlashLevel]time.Duration{
	FlashInfo: 5 * time.Second,
	FlashWarn: 8 * time.Second,
	FlashErr:  10 * time.Second,
}

// FlashMessage is one transient notification.
type FlashMessage struct {
	Text    string
	Level   FlashLevel
	Expires time.Time
}

// FlashModel holds the current notification. Repeating the visible message
// only extends its lifetime.
type FlashModel struct {
	mu      sync.RWMutex
	current FlashMessage
	now     func() time.Time
	watchCh chan FlashMessage
}

// NewFlashModel creates an empty model.
func NewFlashModel() *FlashModel {
	return &FlashModel{
		now:     time.Now,
		watchCh: make(chan FlashMessage, 8),
	}
}

// Info flashes an informational message.
func (f *FlashModel) Info(msg string) { f.Notify(FlashInfo, msg) }

// Warn flashes a warning.
func (f *FlashModel) Warn(msg string) { f.Notify(FlashWarn, msg) }

// Err flashes an error.
func (f *FlashModel) Err(err error) { f.Notify(FlashErr, err.Error()) }

// Notify sets the current message.
func (f *FlashModel) Notify(level FlashLevel, msg string) {
	now := f.now()
	fm := FlashMessage{Text: msg, Level: level, Expires: now.Add(flashTTL[level])}

	f.mu.Lock()
	repeat := f.current.Text == msg && f.current.Level == level && now.Before(f.current.Expires)
	f.current = fm
	f.mu.Unlock()

	if repeat {
		return
	}
	select {
	case f.watchCh <- fm:
	default:
	}
}

// Clear drops the current message.
func (f *FlashModel) Clear() {
	f.mu.Lock()
	f.current = FlashMessage{}
	f.mu.Unlock()
}

// Current returns the visible message, or nil once it expired.
func (f *FlashModel) Current() *FlashMessage {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.current.Text == "" || !f.now().Before(f.current.Expires) {
		return nil
	}
	m := f.current
	return &m
}

// Watch receives every new message as it is set.
func (f *FlashModel) Watch() <-chan FlashMessage {
	return f.watchCh
}

// FlashBar renders the current flash message.
type FlashBar struct {
	*tview.TextView
	theme *Theme
}

// NewFlashBar creates an empty bar.
func NewFlashBar(theme *Theme) *FlashBar {
	tv := tview.NewTextView().SetDynamicColors(true)
	tv.SetBackgroundColor(theme.Bg)
	return &FlashBar{TextView: tv, theme: theme}
}

// Update shows msg, or clears the bar for nil.
func (fb *FlashBar) Update(msg *FlashMessage) {
	if msg == nil {
		fb.Clear()
		return
	}
	color, icon := Tag(fb.theme.Info), "ℹ"
	switch msg.Level {
	case FlashWarn:
		color, icon = Tag(fb.theme.Warn), "⚠"
	case FlashErr:
		color, icon = Tag(fb.theme.Err), "✖"
	}
	fb.SetText(fmt.Sprintf(" [%s]%s %s[-]", color, icon, tview.Escape(msg.Text)))
}
