// Package keys maps key events to actions, globally or per page.
package keys

import "github.com/gdamore/tcell/v2"

// Action is one key binding.
type Action struct {
	Key         tcell.Key
	Rune        rune
	Description string
	Handler     func()
	Visible     bool
}

// Matches reports whether ev triggers the action.
func (a *Action) Matches(ev *tcell.EventKey) bool {
	if a.Key != tcell.KeyRune {
		return ev.Key() == a.Key
	}
	return ev.Key() == tcell.KeyRune && ev.Rune() == a.Rune
}

type binding struct {
	name   string
	action *Action
}

// Registry holds bindings in registration order. Page bindings shadow
// global ones with the same key.
type Registry struct {
	global []binding
	views  map[string][]binding
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{views: make(map[string][]binding)}
}

// AddGlobal registers a binding active on every page. Re-adding a name
// replaces the earlier binding.
func (r *Registry) AddGlobal(name string, action *Action) {
	r.global = upsert(r.global, name, action)
}

// AddView registers a binding for one page.
func (r *Registry) AddView(view, name string, action *Action) {
	r.views[view] = upsert(r.views[view], name, action)
}

func upsert(list []binding, name string, action *Action) []binding {
	for i := range list {
		if list[i].name == name {
			list[i].action = action
			return list
		}
	}
	return append(list, binding{name: name, action: action})
}

// Hints returns the visible descriptions for a page: page bindings first,
// then globals, each in registration order.
func (r *Registry) Hints(view string) []string {
	var hints []string
	for _, b := range r.views[view] {
		if b.action.Visible {
			hints = append(hints, b.action.Description)
		}
	}
	for _, b := range r.global {
		if b.action.Visible {
			hints = append(hints, b.action.Description)
		}
	}
	return hints
}

// HandleEvent runs the first binding matching ev and reports whether one did.
func (r *Registry) HandleEvent(view string, ev *tcell.EventKey) bool {
	for _, b := range r.views[view] {
		if b.action.Matches(ev) {
			b.action.Handler()
			return true
		}
	}
	for _, b := range r.global {
		if b.action.Matches(ev) {
			b.action.Handler()
			return true
		}
	}
	return false
}
