package navigation

import "strings"

type View int

const (
	ViewHistory View = iota
	ViewRuntime
)

func (v View) String() string {
	if v == ViewRuntime {
		return "runtime"
	}
	return "history"
}

// ToggleButton switches between the history and the runtime view of an
// instance. Switching always leaves the current page: the host mounts a
// different plugin for each view.
type ToggleButton struct {
	view View
}

func NewToggleButton(initial View) *ToggleButton {
	return &ToggleButton{view: initial}
}

func (b *ToggleButton) View() View {
	return b.view
}

// Toggle flips the view and returns the href to navigate to. href may be a bare
// fragment ("#/history/process-instance/42") or a full url with a fragment. An
// href without a fragment leaves the view unchanged.
func (b *ToggleButton) Toggle(href string) (string, bool) {
	target, ok := locate(b.view.other(), href)
	if !ok {
		return "", false
	}
	b.view = b.view.other()
	return target, true
}

// Target returns the href a toggle would navigate to, leaving the view as is.
func (b *ToggleButton) Target(href string) (string, bool) {
	return locate(b.view.other(), href)
}

func (v View) other() View {
	if v == ViewHistory {
		return ViewRuntime
	}
	return ViewHistory
}

func locate(view View, href string) (string, bool) {
	base, fragment, ok := strings.Cut(href, "#")
	if !ok {
		return "", false
	}
	fragment = "#" + fragment
	if view == ViewRuntime {
		return base + ToRuntime(fragment), true
	}
	return base + ToHistory(fragment), true
}
