//go:build !linux

package timer

import "github.com/pygillier/nightswitch/internal/application/port"

// New returns the portable wall-clock timer on platforms without
// timerfd.
func New() port.AlarmTimer {
	return NewWall()
}
