package entity

import "time"

// EventCode classifies entries on the notification stream.
type EventCode string

const (
	// EventThemeApplied reports a successful theme application.
	EventThemeApplied EventCode = "theme_applied"
	// EventModeChanged reports a mode switch.
	EventModeChanged EventCode = "mode_changed"
	// EventTransitionArmed reports a newly armed pending transition.
	EventTransitionArmed EventCode = "transition_armed"
	// EventApplyFailed reports a theme applier failure.
	EventApplyFailed EventCode = "apply_failed"
	// EventLocationUnavailable reports a coordinate resolution failure.
	EventLocationUnavailable EventCode = "location_unavailable"
	// EventAstronomyError reports a sun-times lookup failure.
	EventAstronomyError EventCode = "astronomy_error"
	// EventPersistenceError reports a state read/write failure.
	EventPersistenceError EventCode = "persistence_error"
	// EventStateRecovered reports corrupted state replaced by defaults.
	EventStateRecovered EventCode = "state_recovered"
)

// EventLevel grades an event for display and log mapping.
type EventLevel string

const (
	// EventInfo is a routine notification.
	EventInfo EventLevel = "info"
	// EventWarn is a recovered or retried failure.
	EventWarn EventLevel = "warn"
	// EventError is a failure surfaced to the user.
	EventError EventLevel = "error"
)

// Event is one entry on the asynchronous notification stream exposed
// to UI/CLI subscribers alongside the synchronous call results.
type Event struct {
	ID      string            `json:"id"`
	Time    time.Time         `json:"time"`
	Level   EventLevel        `json:"level"`
	Code    EventCode         `json:"code"`
	Message string            `json:"message"`
	Detail  map[string]string `json:"detail,omitempty"`
}
