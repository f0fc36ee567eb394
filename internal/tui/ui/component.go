package ui

import "github.com/rivo/tview"

// Hint is one key shortcut shown in the header.
type Hint struct {
	Key   string
	Label string
}

// View is a page of the chat window.
type View interface {
	tview.Primitive
	// Title names the page in the breadcrumb trail.
	Title() string
	Hints() []Hint
	// FocusTarget is the primitive that takes focus when the page opens.
	FocusTarget() tview.Primitive
}
