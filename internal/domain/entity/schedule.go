package entity

import "fmt"

// ScheduleConfig is the recurring daily dark/light boundary pair for
// schedule mode. Both times are required and must differ.
type ScheduleConfig struct {
	DarkAt  TimeOfDay `json:"dark_at"`
	LightAt TimeOfDay `json:"light_at"`
}

// DefaultScheduleConfig returns the out-of-the-box boundaries:
// dark at 19:00, light at 07:00.
func DefaultScheduleConfig() ScheduleConfig {
	return ScheduleConfig{
		DarkAt:  TimeOfDay{Hour: 19},
		LightAt: TimeOfDay{Hour: 7},
	}
}

// Validate rejects an equal dark/light pair. Range errors are caught
// at parse time, so equality is the only config-level failure.
func (c ScheduleConfig) Validate() error {
	if c.DarkAt.Equal(c.LightAt) {
		return fmt.Errorf("%w: dark and light times are both %s", ErrInvalidConfig, c.DarkAt)
	}
	return nil
}
