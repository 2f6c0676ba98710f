// Package policy computes the next pending theme transition for the
// automatic modes. Each policy answers "what flips next, and when"
// for a given wall-clock instant; arming timers and applying themes
// stay with the mode controller.
package policy

import (
	"time"

	"github.com/pygillier/nightswitch/internal/domain/entity"
)

// NextScheduleTransition returns the earliest boundary strictly after
// now among today's and tomorrow's dark/light times, paired with the
// variant that boundary switches to. Times are projected onto dates
// in now's location at call time, so timezone and DST changes are
// honored on the next recomputation.
func NextScheduleTransition(now time.Time, cfg entity.ScheduleConfig) entity.PendingTransition {
	nextDark := cfg.DarkAt.NextAfter(now)
	nextLight := cfg.LightAt.NextAfter(now)

	if !nextDark.After(nextLight) {
		return entity.PendingTransition{Target: entity.VariantDark, FiresAt: nextDark}
	}
	return entity.PendingTransition{Target: entity.VariantLight, FiresAt: nextLight}
}
