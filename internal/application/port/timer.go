package port

import "time"

// AlarmTimer is a single one-shot wake-up armed for an absolute
// wall-clock instant.
//
// Contract: at most one armed instant at a time (Arm replaces any
// previous one); the fire is delivered on C at or after the instant,
// never before; a backward clock jump past an armed instant still
// yields exactly one fire once the instant is reached again going
// forward; Cancel is idempotent and discards any armed instant
// without delivering it.
type AlarmTimer interface {
	// Arm schedules a fire for the given wall-clock instant. An
	// instant not in the future fires immediately.
	Arm(at time.Time)

	// Cancel discards the armed instant, if any.
	Cancel()

	// C delivers one value per fire. The channel is never closed
	// while the timer is open.
	C() <-chan time.Time

	// Close releases timer resources. No fires are delivered after
	// Close returns.
	Close() error
}
