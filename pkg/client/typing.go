package client

import (
	"sync"
	"time"
)

// typingDebouncer turns a stream of keystrokes into at most one "started"
// signal per burst and one "stopped" signal after the quiet period.
type typingDebouncer struct {
	quiet time.Duration
	emit  func(isTyping bool)

	mu     sync.Mutex
	active bool
	timer  *time.Timer
}

func newTypingDebouncer(quiet time.Duration, emit func(bool)) *typingDebouncer {
	return &typingDebouncer{quiet: quiet, emit: emit}
}

func (d *typingDebouncer) started() {
	d.mu.Lock()

	if !d.active {
		d.active = true
		d.mu.Unlock()

		d.emit(true)

		d.mu.Lock()
	}

	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = time.AfterFunc(d.quiet, d.quietElapsed)
	d.mu.Unlock()
}

func (d *typingDebouncer) quietElapsed() {
	d.mu.Lock()

	if !d.active {
		d.mu.Unlock()
		return
	}

	d.active = false
	d.mu.Unlock()

	d.emit(false)
}

func (d *typingDebouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}

	d.active = false
}
