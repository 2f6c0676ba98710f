//go:build linux

package timer

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/pygillier/nightswitch/internal/application/port"
)

// FDTimer is a timerfd-backed alarm on CLOCK_REALTIME. TFD_TIMER_ABSTIME
// makes the kernel track clock adjustments natively, and
// TFD_TIMER_CANCEL_ON_SET wakes the reader with ECANCELED on a
// discontinuous clock change so the target is re-armed against the new
// clock.
type FDTimer struct {
	mu     sync.Mutex
	fd     int
	wakeR  int
	wakeW  int
	ch     chan time.Time
	target time.Time
	armed  bool
	closed bool
	wg     sync.WaitGroup
}

// NewFD returns an unarmed timerfd-backed alarm.
func NewFD() (*FDTimer, error) {
	fd, err := unix.TimerfdCreate(unix.CLOCK_REALTIME, unix.TFD_CLOEXEC|unix.TFD_NONBLOCK)
	if err != nil {
		return nil, fmt.Errorf("timerfd_create: %w", err)
	}
	var p [2]int
	if err := unix.Pipe2(p[:], unix.O_CLOEXEC|unix.O_NONBLOCK); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("pipe2: %w", err)
	}
	t := &FDTimer{
		fd:    fd,
		wakeR: p[0],
		wakeW: p[1],
		ch:    make(chan time.Time, 1),
	}
	t.wg.Add(1)
	go t.loop()
	return t, nil
}

// New returns the preferred alarm for this platform: timerfd, or the
// portable wall-clock timer when the fd cannot be created (containers
// with a restrictive seccomp profile).
func New() port.AlarmTimer {
	if t, err := NewFD(); err == nil {
		return t
	}
	return NewWall()
}

// Arm schedules a fire for the given wall-clock instant, replacing any
// previously armed instant. An instant not in the future fires
// immediately.
func (t *FDTimer) Arm(at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.target = at
	t.armed = true
	t.settime(at)
}

// Cancel discards the armed instant, if any.
func (t *FDTimer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || !t.armed {
		return
	}
	t.armed = false
	// A zero it_value disarms the fd.
	_ = unix.TimerfdSettime(t.fd, 0, &unix.ItimerSpec{}, nil)
}

// C delivers one value per fire. A fire that arrives before the
// previous one was drained is coalesced, like time.Timer.
func (t *FDTimer) C() <-chan time.Time {
	return t.ch
}

// Close stops the reader and releases both file descriptors. No fires
// are delivered after Close returns.
func (t *FDTimer) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.armed = false
	t.mu.Unlock()

	_, err := unix.Write(t.wakeW, []byte{0})
	t.wg.Wait()

	_ = unix.Close(t.fd)
	_ = unix.Close(t.wakeR)
	_ = unix.Close(t.wakeW)
	if err != nil {
		return fmt.Errorf("wake timer loop: %w", err)
	}
	return nil
}

// settime arms the fd for an absolute CLOCK_REALTIME instant. Callers
// hold t.mu.
func (t *FDTimer) settime(at time.Time) {
	ts := unix.NsecToTimespec(at.UnixNano())
	if ts.Sec <= 0 && ts.Nsec <= 0 {
		// Zero disarms; clamp to the earliest representable instant,
		// which is in the past and fires immediately.
		ts = unix.Timespec{Nsec: 1}
	}
	spec := unix.ItimerSpec{Value: ts}
	_ = unix.TimerfdSettime(t.fd, unix.TFD_TIMER_ABSTIME|unix.TFD_TIMER_CANCEL_ON_SET, &spec, nil)
}

// loop blocks on the timerfd and the wake pipe. A successful read is a
// fire; ECANCELED means the realtime clock was set, so the same
// absolute target is re-armed against the new clock.
func (t *FDTimer) loop() {
	defer t.wg.Done()

	fds := []unix.PollFd{
		{Fd: int32(t.fd), Events: unix.POLLIN},
		{Fd: int32(t.wakeR), Events: unix.POLLIN},
	}
	buf := make([]byte, 8)
	for {
		fds[0].Revents = 0
		fds[1].Revents = 0
		if _, err := unix.Poll(fds, -1); err != nil {
			if err == unix.EINTR {
				continue
			}
			return
		}
		if fds[1].Revents != 0 {
			return
		}
		if fds[0].Revents == 0 {
			continue
		}
		_, err := unix.Read(t.fd, buf)
		switch err {
		case nil:
			t.fire()
		case unix.ECANCELED:
			t.rearm()
		case unix.EAGAIN:
			// Spurious wakeup.
		default:
			return
		}
	}
}

func (t *FDTimer) fire() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.armed {
		return
	}
	t.armed = false
	select {
	case t.ch <- time.Now():
	default:
	}
}

func (t *FDTimer) rearm() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.armed {
		return
	}
	t.settime(t.target)
}
