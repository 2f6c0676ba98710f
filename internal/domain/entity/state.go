package entity

import "time"

// AppStateVersion is the current schema version for the persisted
// state blob. Increment on breaking serialization changes.
const AppStateVersion = 1

// AppState is the single persisted record describing which mode is
// authoritative and what the controller knows. It is created with
// defaults on first run, mutated only by the mode controller, and
// written synchronously after every mutation.
type AppState struct {
	Version      int     `json:"version"`
	Mode         Mode    `json:"mode"`
	CurrentTheme Variant `json:"current_theme"`

	Schedule        ScheduleConfig `json:"schedule"`
	ScheduleEnabled bool           `json:"schedule_enabled"`
	Location        LocationConfig `json:"location"`
	LocationEnabled bool           `json:"location_enabled"`

	// LastCoordinate is the most recent auto-detected fix, kept so a
	// later location activation can fall back to it offline.
	LastCoordinate *ResolvedCoordinate `json:"last_coordinate,omitempty"`
	// LastSunTimes is the most recent sun-times answer, date-stamped.
	LastSunTimes *SunTimes `json:"last_sun_times,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// DefaultAppState returns first-run state: manual mode, light theme,
// stock schedule boundaries, auto-detected location.
func DefaultAppState() *AppState {
	return &AppState{
		Version:      AppStateVersion,
		Mode:         ModeManual,
		CurrentTheme: VariantLight,
		Schedule:     DefaultScheduleConfig(),
		Location:     DefaultLocationConfig(),
	}
}

// Normalize forces the state into a valid, non-contradictory shape,
// degrading to manual mode with the last known theme when a loaded
// combination cannot stand. It returns a description of every
// adjustment made, empty when the state was already consistent.
func (s *AppState) Normalize() []string {
	var fixes []string

	if s.Version == 0 {
		s.Version = AppStateVersion
	}
	if !s.CurrentTheme.Valid() {
		s.CurrentTheme = VariantLight
		fixes = append(fixes, "unknown current theme reset to light")
	}
	switch s.Mode {
	case ModeManual, ModeSchedule, ModeLocation:
	default:
		s.Mode = ModeManual
		fixes = append(fixes, "unknown mode reset to manual")
	}
	if s.Mode == ModeSchedule && s.Schedule.Validate() != nil {
		s.Mode = ModeManual
		fixes = append(fixes, "schedule mode dropped: invalid boundary times")
	}
	if s.Mode == ModeLocation && s.Location.Validate() != nil {
		s.Mode = ModeManual
		fixes = append(fixes, "location mode dropped: invalid coordinate")
	}
	if s.Schedule.Validate() != nil {
		s.Schedule = DefaultScheduleConfig()
		fixes = append(fixes, "schedule times reset to defaults")
	}
	if s.Location.Validate() != nil {
		s.Location = DefaultLocationConfig()
		fixes = append(fixes, "location settings reset to defaults")
	}

	// Enabled flags mirror the active mode.
	if se := s.Mode == ModeSchedule; s.ScheduleEnabled != se {
		s.ScheduleEnabled = se
		fixes = append(fixes, "schedule enabled flag realigned with mode")
	}
	if le := s.Mode == ModeLocation; s.LocationEnabled != le {
		s.LocationEnabled = le
		fixes = append(fixes, "location enabled flag realigned with mode")
	}
	return fixes
}

// SetMode switches the active mode and realigns the enabled flags.
func (s *AppState) SetMode(m Mode) {
	s.Mode = m
	s.ScheduleEnabled = m == ModeSchedule
	s.LocationEnabled = m == ModeLocation
}
