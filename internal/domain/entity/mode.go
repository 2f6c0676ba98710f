// Package entity defines domain entities for nightswitch.
package entity

import "fmt"

// Mode identifies which control policy owns theme transitions.
// Exactly one mode is active at any time; inactive modes retain
// their last configuration so re-enabling them needs no re-entry.
type Mode string

const (
	// ModeManual applies a theme once on user command, no timer.
	ModeManual Mode = "manual"
	// ModeSchedule flips at a fixed wall-clock HH:MM pair every day.
	ModeSchedule Mode = "schedule"
	// ModeLocation flips at sunrise/sunset for a coordinate.
	ModeLocation Mode = "location"
)

// ParseMode converts a string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeManual, ModeSchedule, ModeLocation:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, s)
	}
}

// IsAutomatic reports whether the mode arms a timer.
func (m Mode) IsAutomatic() bool {
	return m == ModeSchedule || m == ModeLocation
}

// String returns the wire form of the mode.
func (m Mode) String() string { return string(m) }

// Variant is the dark/light theme state. It is the single source of
// truth for what is currently applied, tracked independently of mode.
type Variant string

const (
	// VariantDark is the dark theme.
	VariantDark Variant = "dark"
	// VariantLight is the light theme.
	VariantLight Variant = "light"
)

// ParseVariant converts a string into a Variant.
func ParseVariant(s string) (Variant, error) {
	switch Variant(s) {
	case VariantDark, VariantLight:
		return Variant(s), nil
	default:
		return "", fmt.Errorf("%w: unknown theme %q", ErrInvalidConfig, s)
	}
}

// Opposite returns the other variant.
func (v Variant) Opposite() Variant {
	if v == VariantDark {
		return VariantLight
	}
	return VariantDark
}

// Valid reports whether the variant is one of the two known values.
func (v Variant) Valid() bool {
	return v == VariantDark || v == VariantLight
}

// String returns the wire form of the variant.
func (v Variant) String() string { return string(v) }
