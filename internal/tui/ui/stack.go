package ui

import "github.com/rivo/tview"

// Stack shows one registered View at a time and remembers the trail of pages
// that led to it.
type Stack struct {
	*tview.Pages
	views    map[string]View
	trail    []string
	onChange func(top View, trail []string)
}

// NewStack creates an empty Stack.
func NewStack() *Stack {
	return &Stack{
		Pages: tview.NewPages(),
		views: make(map[string]View),
	}
}

// Register adds a hidden page.
func (s *Stack) Register(id string, v View) {
	s.views[id] = v
	s.AddPage(id, v, true, false)
}

// SetOnChange sets a callback fired with the new top view and the titles of
// the trail after every navigation.
func (s *Stack) SetOnChange(fn func(top View, trail []string)) {
	s.onChange = fn
}

// Home clears the trail and shows id as its only page.
func (s *Stack) Home(id string) {
	for _, name := range s.trail {
		s.HidePage(name)
	}
	s.trail = s.trail[:0]
	s.show(id)
}

// Open shows id on top of the trail. A page already in the trail is not
// pushed twice: the trail is cut back to it instead.
func (s *Stack) Open(id string) {
	if _, ok := s.views[id]; !ok {
		return
	}
	for i, name := range s.trail {
		if name == id {
			for _, above := range s.trail[i+1:] {
				s.HidePage(above)
			}
			s.trail = s.trail[:i]
			break
		}
	}
	if n := len(s.trail); n > 0 {
		s.HidePage(s.trail[n-1])
	}
	s.show(id)
}

// Back closes the top page. The root page is never closed.
func (s *Stack) Back() bool {
	if len(s.trail) < 2 {
		return false
	}
	s.HidePage(s.trail[len(s.trail)-1])
	s.trail = s.trail[:len(s.trail)-1]
	top := s.trail[len(s.trail)-1]
	s.ShowPage(top)
	s.SendToFront(top)
	s.notify()
	return true
}

// Top returns the id and view of the visible page.
func (s *Stack) Top() (string, View) {
	if len(s.trail) == 0 {
		return "", nil
	}
	id := s.trail[len(s.trail)-1]
	return id, s.views[id]
}

// Titles returns the titles along the trail, root first.
func (s *Stack) Titles() []string {
	out := make([]string, 0, len(s.trail))
	for _, id := range s.trail {
		out = append(out, s.views[id].Title())
	}
	return out
}

// Depth returns the trail length.
func (s *Stack) Depth() int {
	return len(s.trail)
}

func (s *Stack) show(id string) {
	s.trail = append(s.trail, id)
	s.ShowPage(id)
	s.SendToFront(id)
	s.notify()
}

func (s *Stack) notify() {
	if s.onChange == nil {
		return
	}
	_, top := s.Top()
	s.onChange(top, s.Titles())
}
