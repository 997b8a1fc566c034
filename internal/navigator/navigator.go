// Package navigator tracks the lightbox position within the filtered view.
package navigator

import (
	"sync"

	"fygallery/internal/catalog"
)

// Toggler flips favorite membership.
type Toggler interface {
	Toggle(id string) bool
}

// Navigator is the lightbox state: an index into the current view and
// whether the lightbox is open. The index is always in [0, len(view)) while open.
type Navigator struct {
	mu      sync.Mutex
	view    []catalog.ImageRecord
	index   int
	open    bool
	onClose []func()
}

// New creates a closed Navigator over an empty view.
func New() *Navigator {
	return &Navigator{}
}

// OnClose registers fn to run every time the lightbox closes. Hooks run
// after the navigator's lock is released.
func (n *Navigator) OnClose(fn func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onClose = append(n.onClose, fn)
}

// SetView replaces the view. An open lightbox keeps its index, clamped to
// the new length; an empty view closes it.
func (n *Navigator) SetView(view []catalog.ImageRecord) {
	n.mu.Lock()
	n.view = view
	closed := false
	if n.open {
		if len(view) == 0 {
			n.open = false
			n.index = 0
			closed = true
		} else if n.index >= len(view) {
			n.index = len(view) - 1
		}
	}
	hooks := n.onClose
	n.mu.Unlock()

	if closed {
		runHooks(hooks)
	}
}

// Open shows the record at index, clamped into range. It refuses an empty view.
func (n *Navigator) Open(index int) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.view) == 0 {
		return false
	}
	n.index = clamp(index, len(n.view))
	n.open = true
	return true
}

// Close hides the lightbox and runs the close hooks. Closing a closed
// lightbox does nothing.
func (n *Navigator) Close() {
	n.mu.Lock()
	if !n.open {
		n.mu.Unlock()
		return
	}
	n.open = false
	hooks := n.onClose
	n.mu.Unlock()

	runHooks(hooks)
}

// Navigate moves by dir with wraparound and returns the new index. It is a
// no-op on an empty view or a closed lightbox.
func (n *Navigator) Navigate(dir int) (int, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.open || len(n.view) == 0 {
		return n.index, false
	}
	l := len(n.view)
	n.index = ((n.index+dir)%l + l) % l
	return n.index, true
}

// Current returns the record on display.
func (n *Navigator) Current() (catalog.ImageRecord, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.open || n.index >= len(n.view) {
		return catalog.ImageRecord{}, false
	}
	return n.view[n.index], true
}

// Index returns the current position.
func (n *Navigator) Index() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.index
}

// Len returns the length of the current view.
func (n *Navigator) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.view)
}

// IsOpen reports whether the lightbox is showing.
func (n *Navigator) IsOpen() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.open
}

// ToggleFavorite flips the favorite state of the displayed record. The
// position is unchanged. ok is false when nothing is displayed.
func (n *Navigator) ToggleFavorite(favs Toggler) (favorited bool, ok bool) {
	rec, ok := n.Current()
	if !ok || favs == nil {
		return false, false
	}
	return favs.Toggle(rec.ID), true
}

func clamp(i, l int) int {
	if i < 0 {
		return 0
	}
	if i >= l {
		return l - 1
	}
	return i
}

func runHooks(hooks []func()) {
	for _, fn := range hooks {
		fn()
	}
}
