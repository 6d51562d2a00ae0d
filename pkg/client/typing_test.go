package client

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type typingRecorder struct {
	mu      sync.Mutex
	signals []bool
}

func (r *typingRecorder) emit(isTyping bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.signals = append(r.signals, isTyping)
}

func (r *typingRecorder) snapshot() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]bool(nil), r.signals...)
}

func TestTypingBurstCollapsesToOneSignal(t *testing.T) {
	rec := &typingRecorder{}
	d := newTypingDebouncer(30*time.Millisecond, rec.emit)

	for i := 0; i < 5; i++ {
		d.started()
		time.Sleep(2 * time.Millisecond)
	}

	assert.Equal(t, []bool{true}, rec.snapshot())

	// quiet period elapses, "stopped" goes out exactly once
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, []bool{true, false}, rec.snapshot())

	// a new burst starts a fresh cycle
	d.started()
	assert.Equal(t, []bool{true, false, true}, rec.snapshot())
}

func TestTypingStopSuppressesPendingSignal(t *testing.T) {
	rec := &typingRecorder{}
	d := newTypingDebouncer(20*time.Millisecond, rec.emit)

	d.started()
	d.stop()

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, []bool{true}, rec.snapshot())
}
