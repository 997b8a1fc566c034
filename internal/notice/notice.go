// Package notice keeps the status-bar message history and the transient
// notification shown for batch-level failures.
package notice

import (
	"fmt"
	"sync"
	"time"
)

const (
	DefaultMaxMessages = 100
	DefaultDismiss     = 4 * time.Second
)

// View is what the status bar renders.
type View struct {
	Text    string
	CanPrev bool
	CanNext bool
}

// Log is a bounded message history with a cursor.
type Log struct {
	mu           sync.Mutex
	messages     []string
	currentIndex int
	maxMessages  int
	onChange     func(View)
}

// NewLog creates an empty Log holding at most maxMessages.
func NewLog(maxMessages int) *Log {
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}
	return &Log{
		messages:     make([]string, 0, maxMessages),
		currentIndex: -1,
		maxMessages:  maxMessages,
	}
}

// OnChange sets the function called with the new view after every change.
func (l *Log) OnChange(fn func(View)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = fn
}

// Add appends message, drops the oldest past the cap and moves the cursor to it.
func (l *Log) Add(message string) {
	l.mu.Lock()
	l.messages = append(l.messages, message)
	if len(l.messages) > l.maxMessages {
		l.messages = l.messages[len(l.messages)-l.maxMessages:]
	}
	l.currentIndex = len(l.messages) - 1
	l.publishLocked()
}

// Previous moves the cursor to the older message.
func (l *Log) Previous() {
	l.mu.Lock()
	if len(l.messages) == 0 || l.currentIndex <= 0 {
		l.mu.Unlock()
		return
	}
	l.currentIndex--
	l.publishLocked()
}

// Next moves the cursor to the newer message.
func (l *Log) Next() {
	l.mu.Lock()
	if len(l.messages) == 0 || l.currentIndex >= len(l.messages)-1 {
		l.mu.Unlock()
		return
	}
	l.currentIndex++
	l.publishLocked()
}

// Current returns the view at the cursor.
func (l *Log) Current() View {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.viewLocked()
}

// Len returns the number of retained messages.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.messages)
}

func (l *Log) viewLocked() View {
	if len(l.messages) == 0 {
		return View{}
	}
	return View{
		Text:    fmt.Sprintf("[%d/%d] %s", l.currentIndex+1, len(l.messages), l.messages[l.currentIndex]),
		CanPrev: l.currentIndex > 0,
		CanNext: l.currentIndex < len(l.messages)-1,
	}
}

// publishLocked unlocks l before calling the change hook.
func (l *Log) publishLocked() {
	v := l.viewLocked()
	fn := l.onChange
	l.mu.Unlock()
	if fn != nil {
		fn(v)
	}
}

// Transient shows one notification at a time and hides it after a delay.
type Transient struct {
	mu       sync.Mutex
	delay    time.Duration
	text     string
	seq      uint64
	timer    *time.Timer
	onChange func(text string)
}

// NewTransient creates a Transient that dismisses after delay.
func NewTransient(delay time.Duration) *Transient {
	if delay <= 0 {
		delay = DefaultDismiss
	}
	return &Transient{delay: delay}
}

// OnChange sets the function called with the shown text, or "" on dismissal.
func (t *Transient) OnChange(fn func(text string)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onChange = fn
}

// Post shows text, replacing any notification still visible.
func (t *Transient) Post(text string) {
	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
	}
	t.seq++
	seq := t.seq
	t.text = text
	t.timer = time.AfterFunc(t.delay, func() { t.dismiss(seq) })
	fn := t.onChange
	t.mu.Unlock()

	if fn != nil {
		fn(text)
	}
}

// Dismiss hides the current notification now.
func (t *Transient) Dismiss() {
	t.mu.Lock()
	seq := t.seq
	t.mu.Unlock()
	t.dismiss(seq)
}

func (t *Transient) dismiss(seq uint64) {
	t.mu.Lock()
	if seq != t.seq || t.text == "" {
		t.mu.Unlock()
		return
	}
	t.text = ""
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	fn := t.onChange
	t.mu.Unlock()

	if fn != nil {
		fn("")
	}
}

// Text returns the visible notification, or "".
func (t *Transient) Text() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.text
}
