package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rivo/tview"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubView struct {
	*tview.Box
	title string
}

func (s stubView) Title() string                { return s.title }
func (s stubView) Hints() []Hint                { return []Hint{{Key: "x", Label: s.title}} }
func (s stubView) FocusTarget() tview.Primitive { return s.Box }

func newStack() *Stack {
	s := NewStack()
	for _, id := range []string{"chat", "faq", "search", "help"} {
		s.Register(id, stubView{Box: tview.NewBox(), title: strings.ToUpper(id)})
	}
	return s
}

func TestStackNavigation(t *testing.T) {
	s := newStack()
	var trails []string
	s.SetOnChange(func(top View, trail []string) {
		trails = append(trails, strings.Join(trail, ">"))
	})

	s.Home("chat")
	s.Open("faq")
	s.Open("search")
	id, v := s.Top()
	assert.Equal(t, "search", id)
	assert.Equal(t, "SEARCH", v.Title())
	assert.Equal(t, []string{"CHAT", "FAQ", "SEARCH"}, s.Titles())

	require.True(t, s.Back())
	assert.Equal(t, []string{"CHAT", "FAQ"}, s.Titles())
	require.True(t, s.Back())
	assert.False(t, s.Back(), "root page must stay open")
	assert.Equal(t, 1, s.Depth())

	assert.Equal(t, []string{"CHAT", "CHAT>FAQ", "CHAT>FAQ>SEARCH", "CHAT>FAQ", "CHAT"}, trails)
}

func TestStackOpenCutsBackToExistingPage(t *testing.T) {
	s := newStack()
	s.Home("chat")
	s.Open("faq")
	s.Open("search")
	s.Open("help")

	s.Open("faq")
	assert.Equal(t, []string{"CHAT", "FAQ"}, s.Titles())

	s.Open("unknown")
	assert.Equal(t, 2, s.Depth())

	s.Home("search")
	assert.Equal(t, []string{"SEARCH"}, s.Titles())
}

func TestCrumbsHighlightLast(t *testing.T) {
	theme := DefaultTheme()
	out := renderCrumbs([]string{"Support", "FAQ"}, theme)
	assert.Contains(t, out, "Support")
	assert.Contains(t, out, crumbSeparator)
	assert.Contains(t, out, ":b] FAQ ")
	assert.Empty(t, renderCrumbs(nil, theme))
}

func TestLayoutHintsColumns(t *testing.T) {
	hints := []Hint{
		{Key: "i", Label: "Compose"},
		{Key: "v", Label: "View image"},
		{Key: "f", Label: "FAQ"},
	}
	out := layoutHints(hints, 2, "blue", "white")
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "<i>")
	assert.Contains(t, lines[0], "<f>")
	assert.Contains(t, lines[1], "<v>")
	assert.NotContains(t, lines[1], "<f>")

	assert.Empty(t, layoutHints(nil, 5, "blue", "white"))
}

func TestComplete(t *testing.T) {
	cmds := []string{"faq", "help", "image", "quit", "refresh", "search"}
	assert.Equal(t, "help ", complete("he", cmds))
	assert.Equal(t, "zz", complete("zz", cmds))
	assert.Equal(t, "image foo", complete("image foo", cmds))
	assert.Equal(t, "re", complete("re", []string{"refresh", "reload"}))
	assert.Equal(t, "rel", complete("r", []string{"reload", "release"}))
}

func TestPromptHistory(t *testing.T) {
	p := NewPrompt(DefaultTheme(), nil)
	var got []string
	p.SetOnSubmit(func(text string) { got = append(got, text) })

	p.remember("faq")
	p.remember("search refund")
	p.remember("search refund")
	assert.Len(t, p.history, 2)

	p.Activate()
	p.recall(-1)
	assert.Equal(t, "search refund", p.GetText())
	p.recall(-1)
	assert.Equal(t, "faq", p.GetText())
	p.recall(-1)
	assert.Equal(t, "faq", p.GetText())
	p.recall(1)
	p.recall(1)
	assert.Equal(t, "", p.GetText())
	assert.Empty(t, got)
}

func TestFlashModel(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f := NewFlashModel()
	f.now = func() time.Time { return now }
	require.Nil(t, f.Current())

	f.Err(errors.New("Image upload failed"))
	msg := f.Current()
	require.NotNil(t, msg)
	assert.Equal(t, FlashErr, msg.Level)
	assert.Equal(t, "Image upload failed", (<-f.Watch()).Text)

	now = now.Add(5 * time.Second)
	f.Err(errors.New("Image upload failed"))
	select {
	case <-f.Watch():
		t.Fatal("a repeated message should not be re-announced")
	default:
	}
	now = now.Add(9 * time.Second)
	assert.NotNil(t, f.Current(), "repeat should extend the lifetime")

	now = now.Add(2 * time.Second)
	assert.Nil(t, f.Current())

	f.Info("Image sent")
	f.Clear()
	assert.Nil(t, f.Current())
}

func TestLogoTracksConnection(t *testing.T) {
	l := NewLogo(DefaultTheme())
	assert.Contains(t, l.GetText(true), "offline")
	l.SetOnline(true)
	assert.Contains(t, l.GetText(true), "support")
}

func TestProfileInfoFormat(t *testing.T) {
	pi := NewProfileInfo(DefaultTheme())
	out := pi.format(&ProfileData{Profile: "main", RoomID: "room-0123456789abcdef", Messages: 3})

	for _, want := range []string{"main", "room-0123456…", "3"} {
		assert.Contains(t, out, want)
	}
	assert.Contains(t, out, "Agent")
	assert.Contains(t, out, "-", "empty fields render as '-'")
}
