// Package slideshow manages the automatic cycling of the lightbox.
package slideshow

import (
	"sync"
	"time"
)

// DefaultInterval is the time between automatic transitions.
const DefaultInterval = 3 * time.Second

// MinInterval is the shortest accepted interval.
const MinInterval = 100 * time.Millisecond

// Navigator is the lightbox the slideshow drives.
type Navigator interface {
	Open(index int) bool
	IsOpen() bool
	Navigate(dir int) (int, bool)
	Index() int
	OnClose(fn func())
}

// Controller runs a periodic task that advances the navigator. Every
// (re)start of the timer gets a new generation; a tick from an older
// generation is dropped, so a restart discards the wait already in flight.
type Controller struct {
	mu                 sync.Mutex
	nav                Navigator
	interval           time.Duration
	running            bool
	isPaused           bool
	wasPlayingBeforeOp bool // Tracks if slideshow was playing before a temp pause
	timerGen           uint64
	cancel             chan struct{}
	onAdvance          []func(index int)
	onState            []func()
}

// NewController creates a stopped Controller. Closing nav stops the slideshow.
func NewController(nav Navigator, interval time.Duration) *Controller {
	c := &Controller{nav: nav, interval: validInterval(interval)}
	nav.OnClose(c.Stop)
	return c
}

func validInterval(d time.Duration) time.Duration {
	if d < MinInterval {
		return DefaultInterval
	}
	return d
}

// OnAdvance registers fn for every automatic advance. It runs outside the controller's lock.
func (c *Controller) OnAdvance(fn func(index int)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onAdvance = append(c.onAdvance, fn)
}

// OnStateChange registers fn for start, stop, pause and resume.
func (c *Controller) OnStateChange(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onState = append(c.onState, fn)
}

// Start opens the navigator at from unless it is already open, then starts
// the timer. It returns false when there is nothing to show.
func (c *Controller) Start(from int) bool {
	if !c.nav.IsOpen() && !c.nav.Open(from) {
		return false
	}
	c.mu.Lock()
	c.running = true
	c.isPaused = false
	c.wasPlayingBeforeOp = false
	c.startTimerLocked()
	hooks := c.onState
	c.mu.Unlock()

	notify(hooks)
	return true
}

// Stop cancels the timer and leaves slideshow mode. Stopping a stopped slideshow does nothing.
func (c *Controller) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.cancelTimerLocked()
	c.running = false
	c.isPaused = false
	c.wasPlayingBeforeOp = false
	hooks := c.onState
	c.mu.Unlock()

	notify(hooks)
}

// TogglePlayPause pauses or resumes the timer without leaving slideshow
// mode. The position is kept. It returns the new paused state.
func (c *Controller) TogglePlayPause() bool {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return false
	}
	c.isPaused = !c.isPaused
	c.wasPlayingBeforeOp = false // User toggle overrides any operation-specific state
	if c.isPaused {
		c.cancelTimerLocked()
	} else {
		c.startTimerLocked()
	}
	paused := c.isPaused
	hooks := c.onState
	c.mu.Unlock()

	notify(hooks)
	return paused
}

// Pause forces the slideshow to pause.
// If forOperation is true, it remembers if the slideshow was playing.
func (c *Controller) Pause(forOperation bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	if forOperation {
		c.wasPlayingBeforeOp = !c.isPaused
	}
	c.isPaused = true
	c.cancelTimerLocked()
}

// ResumeAfterOperation resumes the slideshow only if it was playing before Pause(true) was called.
func (c *Controller) ResumeAfterOperation() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running && c.wasPlayingBeforeOp {
		c.isPaused = false
		c.startTimerLocked()
	}
	c.wasPlayingBeforeOp = false
}

// SetInterval changes the period. A running timer restarts with the new
// period. Intervals below MinInterval fall back to DefaultInterval.
func (c *Controller) SetInterval(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.interval = validInterval(d)
	if c.running && !c.isPaused {
		c.startTimerLocked()
	}
}

// Interval returns the configured slideshow interval.
func (c *Controller) Interval() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interval
}

// IsRunning reports whether slideshow mode is on.
func (c *Controller) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// IsPaused returns true if the slideshow is running but paused.
func (c *Controller) IsPaused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running && c.isPaused
}

// ActiveIndex returns the index shown by the slideshow, if one is running.
func (c *Controller) ActiveIndex() (int, bool) {
	c.mu.Lock()
	running := c.running
	c.mu.Unlock()
	if !running {
		return 0, false
	}
	return c.nav.Index(), true
}

func (c *Controller) startTimerLocked() {
	c.cancelTimerLocked()
	c.timerGen++
	cancel := make(chan struct{})
	c.cancel = cancel
	go c.pauser(c.timerGen, c.interval, cancel)
}

func (c *Controller) cancelTimerLocked() {
	if c.cancel != nil {
		close(c.cancel)
		c.cancel = nil
	}
}

// pauser ticks until its generation is cancelled.
func (c *Controller) pauser(gen uint64, interval time.Duration, cancel <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-cancel:
			return
		case <-ticker.C:
			c.advance(gen)
		}
	}
}

func (c *Controller) advance(gen uint64) {
	c.mu.Lock()
	if gen != c.timerGen || !c.running || c.isPaused {
		c.mu.Unlock()
		return
	}
	// Navigate under the lock so no advance lands after Stop returns.
	idx, ok := c.nav.Navigate(+1)
	hooks := c.onAdvance
	c.mu.Unlock()

	if !ok {
		return
	}
	for _, fn := range hooks {
		fn(idx)
	}
}

func notify(hooks []func()) {
	for _, fn := range hooks {
		fn()
	}
}
