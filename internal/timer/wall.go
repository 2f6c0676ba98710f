// Package timer provides one-shot alarms armed for absolute wall-clock
// instants. Unlike time.Timer, which counts monotonic time and drifts
// across suspend/resume and clock adjustments, these alarms fire when
// the wall clock reaches the target.
package timer

import (
	"sync"
	"time"
)

// maxSlice bounds how long a wall timer sleeps between wall-clock
// checks. After a suspend/resume or a clock jump the timer notices
// within one slice.
const maxSlice = time.Minute

// WallTimer is the portable alarm implementation. It sleeps in capped
// slices on the monotonic clock and re-checks the wall clock on every
// wake, so a forward jump is detected at most one slice late and a
// backward jump simply extends the wait.
type WallTimer struct {
	mu     sync.Mutex
	ch     chan time.Time
	stop   chan struct{}
	armed  bool
	closed bool

	// test hooks
	now   func() time.Time
	slice time.Duration
}

// NewWall returns an unarmed wall-clock timer.
func NewWall() *WallTimer {
	return &WallTimer{
		ch:    make(chan time.Time, 1),
		now:   time.Now,
		slice: maxSlice,
	}
}

// Arm schedules a fire for the given wall-clock instant, replacing any
// previously armed instant. An instant not in the future fires
// immediately.
func (w *WallTimer) Arm(at time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.armed {
		close(w.stop)
	}
	w.stop = make(chan struct{})
	w.armed = true
	go w.watch(w.stop, at)
}

// Cancel discards the armed instant, if any.
func (w *WallTimer) Cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.armed {
		close(w.stop)
		w.armed = false
	}
}

// C delivers one value per fire. A fire that arrives before the
// previous one was drained is coalesced, like time.Timer.
func (w *WallTimer) C() <-chan time.Time {
	return w.ch
}

// Close discards any armed instant and stops the timer. No fires are
// delivered after Close returns.
func (w *WallTimer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if w.armed {
		close(w.stop)
		w.armed = false
	}
	return nil
}

// watch sleeps toward at in capped slices, re-reading the wall clock
// on every wake. stop belongs to this arm; a newer Arm or a Cancel
// closes it.
func (w *WallTimer) watch(stop chan struct{}, at time.Time) {
	t := time.NewTimer(0)
	if !t.Stop() {
		<-t.C
	}
	for {
		now := w.now()
		if !now.Before(at) {
			w.deliver(stop, now)
			return
		}
		wait := at.Sub(now)
		if wait > w.slice {
			wait = w.slice
		}
		t.Reset(wait)
		select {
		case <-t.C:
		case <-stop:
			t.Stop()
			return
		}
	}
}

func (w *WallTimer) deliver(stop chan struct{}, firedAt time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	select {
	case <-stop:
		// Superseded between the wall-clock check and here.
		return
	default:
	}
	w.armed = false
	select {
	case w.ch <- firedAt:
	default:
	}
}
