// Package pager reveals a filtered view in fixed-size pages.
package pager

import "sync"

// DefaultPageSize is used when a non-positive page size is given.
const DefaultPageSize = 50

// Trigger names what asked for the next page.
type Trigger int

const (
	// Manual is an explicit "load more" request.
	Manual Trigger = iota
	// Proximity is the sentinel after the last revealed page coming into view.
	Proximity
)

func (t Trigger) String() string {
	if t == Proximity {
		return "proximity"
	}
	return "manual"
}

// Pager tracks how much of a view has been revealed. Each Reset starts a new
// generation; sentinel signals carry the generation they were created in so
// a signal from an older view is ignored.
type Pager[T any] struct {
	mu       sync.Mutex
	pageSize int
	page     int
	revealed int
	gen      uint64
	reveals  map[Trigger]int
}

// New creates a Pager.
func New[T any](pageSize int) *Pager[T] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Pager[T]{pageSize: pageSize, reveals: make(map[Trigger]int)}
}

// PageSize returns the fixed page size.
func (p *Pager[T]) PageSize() int { return p.pageSize }

// Reset zeroes the cursor and starts a new generation, which it returns.
func (p *Pager[T]) Reset() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.page = 0
	p.revealed = 0
	p.gen++
	return p.gen
}

// NextPage returns the next slice of view and whether more remains after it.
// When the cursor is already past the end nothing is returned and the cursor
// stays put.
func (p *Pager[T]) NextPage(view []T) ([]T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nextLocked(view)
}

func (p *Pager[T]) nextLocked(view []T) ([]T, bool) {
	start := p.page * p.pageSize
	if start >= len(view) {
		return nil, false
	}
	end := min(start+p.pageSize, len(view))
	p.page++
	p.revealed = end
	return view[start:end], end < len(view)
}

// Reveal calls NextPage on behalf of trigger. Both triggers lead to the same state.
func (p *Pager[T]) Reveal(trigger Trigger, view []T) ([]T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	items, more := p.nextLocked(view)
	if len(items) > 0 {
		p.reveals[trigger]++
	}
	return items, more
}

// SentinelVisible handles a proximity signal created in generation gen.
// A stale signal is ignored and reports accepted=false.
func (p *Pager[T]) SentinelVisible(gen uint64, view []T) (items []T, more bool, accepted bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen {
		return nil, false, false
	}
	items, more = p.nextLocked(view)
	if len(items) > 0 {
		p.reveals[Proximity]++
	}
	return items, more, true
}

// Revealed returns how many records of the current view are shown.
func (p *Pager[T]) Revealed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.revealed
}

// HasMore reports whether view holds records not revealed yet.
func (p *Pager[T]) HasMore(view []T) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.revealed < len(view)
}

// Page returns the number of pages revealed in this generation.
func (p *Pager[T]) Page() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.page
}

// Generation returns the current generation.
func (p *Pager[T]) Generation() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gen
}

// Reveals returns how many pages trigger has revealed since the pager was created.
func (p *Pager[T]) Reveals(trigger Trigger) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reveals[trigger]
}
