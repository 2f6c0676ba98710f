package entity

import "time"

// PendingTransition is the single outstanding armed theme change for
// an active automatic mode. Owned exclusively by the mode controller:
// created by the active policy, destroyed or replaced when it fires,
// when the mode changes, or when configuration changes.
type PendingTransition struct {
	Target  Variant   `json:"target"`
	FiresAt time.Time `json:"fires_at"`
}

// Zero reports whether no transition is set.
func (p PendingTransition) Zero() bool {
	return p.FiresAt.IsZero()
}
