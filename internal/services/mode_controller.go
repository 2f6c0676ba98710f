// Package services contains application services that orchestrate business logic.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pygillier/nightswitch/internal/application/policy"
	"github.com/pygillier/nightswitch/internal/application/port"
	"github.com/pygillier/nightswitch/internal/domain/entity"
	"github.com/pygillier/nightswitch/internal/domain/repository"
	"github.com/pygillier/nightswitch/internal/events"
	"github.com/pygillier/nightswitch/internal/logging"
)

// locationRetryDelays is the backoff ladder for location recomputation
// failures while location mode stays active. The last step repeats.
var locationRetryDelays = []time.Duration{time.Minute, 5 * time.Minute, 30 * time.Minute}

// ModeController owns the mode state machine. It is the only writer of
// the persisted application state and the only owner of the pending
// transition: policies compute what flips next, the controller arms the
// timer, applies themes, and persists every mutation synchronously.
type ModeController struct {
	states   repository.StateRepository
	alarm    port.AlarmTimer
	applier  port.ThemeApplier
	resolver port.LocationResolver
	location *policy.Location
	bus      port.EventBus
	now      func() time.Time

	// mu serializes every mutation; slow provider calls run outside it
	// and commit through a generation check.
	mu            sync.Mutex
	state         *entity.AppState
	defaults      *entity.AppState
	pending       entity.PendingTransition
	retryAttempt  int
	transitioning bool
	lastErr       error
	gen           uint64

	// statusMu guards the read-side snapshot so Status never waits on
	// an in-flight apply.
	statusMu sync.RWMutex
	status   Status
}

// Status is a point-in-time snapshot of the controller, safe to read
// while a transition is in flight.
type Status struct {
	Mode           entity.Mode                `json:"mode"`
	CurrentTheme   entity.Variant             `json:"current_theme"`
	NextTransition *entity.PendingTransition  `json:"next_transition,omitempty"`
	Transitioning  bool                       `json:"transitioning"`
	LastError      string                     `json:"last_error,omitempty"`
	Schedule       entity.ScheduleConfig      `json:"schedule"`
	Location       *entity.ResolvedCoordinate `json:"location,omitempty"`
	SunTimes       *entity.SunTimes           `json:"sun_times,omitempty"`
	Backend        string                     `json:"backend"`
}

// NewModeController creates a mode controller. Call Start to restore
// persisted state, then Run to service timer fires.
func NewModeController(
	states repository.StateRepository,
	alarm port.AlarmTimer,
	applier port.ThemeApplier,
	resolver port.LocationResolver,
	location *policy.Location,
	bus port.EventBus,
) *ModeController {
	c := &ModeController{
		states:   states,
		alarm:    alarm,
		applier:  applier,
		resolver: resolver,
		location: location,
		bus:      bus,
		now:      time.Now,
		state:    entity.DefaultAppState(),
		defaults: entity.DefaultAppState(),
	}
	c.refreshStatusLocked()
	return c
}

// ConfigureDefaults overrides the schedule and location settings used
// when no persisted state exists or the stored record is unreadable.
// Call before Start; invalid values keep the stock defaults.
func (c *ModeController) ConfigureDefaults(schedule entity.ScheduleConfig, location entity.LocationConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if schedule.Validate() == nil {
		c.defaults.Schedule = schedule
	}
	if location.Validate() == nil {
		c.defaults.Location = location
	}
}

// defaultStateLocked returns a fresh first-run state from the
// configured defaults.
func (c *ModeController) defaultStateLocked() *entity.AppState {
	state := *c.defaults
	return &state
}

// ServiceName identifies the controller in logs and service wiring.
func (c *ModeController) ServiceName() string {
	return "ModeController"
}

// Start restores persisted state and re-arms the active mode from the
// current wall clock. Corrupted state falls back to defaults, the
// persisted theme is re-applied once best-effort, and missed flips are
// never caught up: the persisted theme is authoritative. A provider
// failure while restoring location mode does not demote the mode; the
// normal retry path takes over. The returned error only reports a
// failed state write and does not prevent operation.
func (c *ModeController) Start(ctx context.Context) error {
	log := logging.FromContext(ctx)
	c.mu.Lock()
	defer c.mu.Unlock()

	loaded, err := c.states.LoadState(ctx)
	switch {
	case err != nil:
		log.Error().Err(err).Msg("persisted state unreadable, starting from defaults")
		c.state = c.defaultStateLocked()
		c.bus.Publish(events.Warnf(entity.EventStateRecovered,
			"persisted state unreadable, reset to defaults: %v", err))
	case loaded == nil:
		log.Info().Msg("no persisted state, starting from defaults")
		c.state = c.defaultStateLocked()
	default:
		c.state = loaded
		if fixes := c.state.Normalize(); len(fixes) > 0 {
			log.Warn().Strs("fixes", fixes).Msg("persisted state adjusted")
			c.bus.Publish(events.Warnf(entity.EventStateRecovered,
				"persisted state adjusted: %s", strings.Join(fixes, "; ")))
		}
	}

	log.Info().
		Str("mode", c.state.Mode.String()).
		Str("theme", c.state.CurrentTheme.String()).
		Str("backend", c.applier.Name()).
		Msg("restoring state")
	_ = c.applyLocked(ctx, c.state.CurrentTheme)

	switch c.state.Mode {
	case entity.ModeSchedule:
		c.armLocked(ctx, policy.NextScheduleTransition(c.now(), c.state.Schedule))
	case entity.ModeLocation:
		c.restoreLocationLocked(ctx)
	}
	return c.saveStateLocked(ctx)
}

// Run routes timer fires to HandleAlarm until ctx is canceled. It is
// the only reader of the timer channel.
func (c *ModeController) Run(ctx context.Context) {
	log := logging.FromContext(ctx)
	log.Debug().Msg("mode controller loop started")
	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("mode controller loop stopped")
			return
		case firedAt, ok := <-c.alarm.C():
			if !ok {
				return
			}
			log.Debug().Time("fired_at", firedAt).Msg("timer fired")
			c.HandleAlarm(ctx)
		}
	}
}

// SetManualMode cancels any pending transition and applies the theme
// once. On applier failure the mode is still manual, the current theme
// keeps its last successfully applied value, and the error is
// returned; there is no retry.
func (c *ModeController) SetManualMode(ctx context.Context, variant entity.Variant) error {
	if !variant.Valid() {
		return fmt.Errorf("%w: unknown theme %q", entity.ErrInvalidConfig, variant)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++

	c.disarmLocked()
	c.setModeLocked(ctx, entity.ModeManual)
	applyErr := c.applyLocked(ctx, variant)
	saveErr := c.saveStateLocked(ctx)
	if applyErr != nil {
		return applyErr
	}
	return saveErr
}

// Toggle switches to manual mode on the opposite of the current theme
// and returns the variant it applied.
func (c *ModeController) Toggle(ctx context.Context) (entity.Variant, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++

	target := c.state.CurrentTheme.Opposite()
	c.disarmLocked()
	c.setModeLocked(ctx, entity.ModeManual)
	applyErr := c.applyLocked(ctx, target)
	saveErr := c.saveStateLocked(ctx)
	if applyErr != nil {
		return target, applyErr
	}
	return target, saveErr
}

// SetScheduleMode activates schedule mode with the given boundaries.
// Nothing is applied immediately: the theme flips at the next boundary.
func (c *ModeController) SetScheduleMode(ctx context.Context, cfg entity.ScheduleConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++

	c.disarmLocked()
	c.state.Schedule = cfg
	c.setModeLocked(ctx, entity.ModeSchedule)
	c.armLocked(ctx, policy.NextScheduleTransition(c.now(), cfg))
	return c.saveStateLocked(ctx)
}

// SetLocationMode activates location mode. The coordinate is resolved
// in order: override, pinned coordinate, last auto-detected fix, fresh
// resolver lookup. Resolution and the first sun-times lookup fail
// synchronously with no state change; the previous mode and any armed
// transition stay untouched. A non-nil override is pinned for later
// activations.
func (c *ModeController) SetLocationMode(ctx context.Context, override *entity.Coordinate) error {
	log := logging.FromContext(ctx)
	if override != nil {
		if err := override.Validate(); err != nil {
			return err
		}
	}

	c.mu.Lock()
	start := c.gen
	coord, haveCoord := c.coordinateLocked()
	autoDetect := c.state.Location.AutoDetect
	c.mu.Unlock()
	if override != nil {
		coord, haveCoord = *override, true
	}

	// Slow path: provider calls run unlocked and commit below only if
	// no other mode change landed in the meantime.
	var resolved *entity.ResolvedCoordinate
	if !haveCoord {
		if !autoDetect {
			return fmt.Errorf("%w: auto-detection disabled and no coordinate configured",
				entity.ErrLocationUnavailable)
		}
		fix, err := c.resolver.Resolve(ctx)
		if err != nil {
			c.bus.Publish(events.Warnf(entity.EventLocationUnavailable,
				"location mode not activated: %v", err))
			return err
		}
		resolved = &fix
		coord = fix.Coordinate
	}

	next, times, err := c.location.NextTransition(ctx, c.now(), coord)
	if err != nil {
		c.bus.Publish(events.Warnf(entity.EventAstronomyError,
			"location mode not activated: %v", err))
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != start {
		log.Debug().Msg("location activation superseded by a newer mode change")
		return nil
	}
	c.gen++

	c.disarmLocked()
	if override != nil {
		pinned := *override
		c.state.Location.Coordinate = &pinned
	}
	if resolved != nil {
		c.state.LastCoordinate = resolved
	}
	c.state.LastSunTimes = &times
	c.setModeLocked(ctx, entity.ModeLocation)
	c.armLocked(ctx, next)
	return c.saveStateLocked(ctx)
}

// DisableAutomaticMode cancels the armed transition and returns to
// manual mode. The current theme is kept; nothing is applied.
func (c *ModeController) DisableAutomaticMode(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++

	c.disarmLocked()
	c.setModeLocked(ctx, entity.ModeManual)
	return c.saveStateLocked(ctx)
}

// HandleAlarm reacts to a timer fire: apply the pending target, then
// recompute and re-arm the next transition regardless of the apply
// outcome. An apply failure goes to the notification stream and is not
// retried on its own; the next boundary is the natural retry.
func (c *ModeController) HandleAlarm(ctx context.Context) {
	log := logging.FromContext(ctx)

	c.mu.Lock()
	if !c.state.Mode.IsAutomatic() {
		c.mu.Unlock()
		log.Debug().Msg("ignoring timer fire: no automatic mode active")
		return
	}
	if c.pending.Zero() {
		retrying := c.retryAttempt > 0
		c.mu.Unlock()
		if retrying {
			c.recomputeLocation(ctx)
			return
		}
		log.Debug().Msg("ignoring timer fire: no pending transition")
		return
	}
	if c.now().Before(c.pending.FiresAt) {
		// The timer never fires early, so this fire belongs to a
		// superseded arm. The armed instant is still scheduled.
		c.mu.Unlock()
		log.Debug().Msg("ignoring stale timer fire")
		return
	}

	target := c.pending.Target
	c.pending = entity.PendingTransition{}
	if err := c.applyLocked(ctx, target); err != nil {
		log.Warn().Msg("keeping previous theme until the next boundary")
	}

	switch c.state.Mode {
	case entity.ModeSchedule:
		c.armLocked(ctx, policy.NextScheduleTransition(c.now(), c.state.Schedule))
		_ = c.saveStateLocked(ctx)
		c.mu.Unlock()
	case entity.ModeLocation:
		_ = c.saveStateLocked(ctx)
		c.mu.Unlock()
		c.recomputeLocation(ctx)
	default:
		c.mu.Unlock()
	}
}

// Status returns the current snapshot. It never blocks on an in-flight
// apply or provider call.
func (c *ModeController) Status() Status {
	c.statusMu.RLock()
	defer c.statusMu.RUnlock()
	return c.status
}

// Subscribe exposes the notification stream.
func (c *ModeController) Subscribe() (<-chan entity.Event, func()) {
	return c.bus.Subscribe()
}

// recomputeLocation computes and arms the next sun transition for the
// active location mode, keeping provider calls outside the lock. The
// result is discarded when a mode change lands first. Failures arm a
// bounded backoff retry instead of a transition.
func (c *ModeController) recomputeLocation(ctx context.Context) {
	c.mu.Lock()
	start := c.gen
	coord, haveCoord := c.coordinateLocked()
	autoDetect := c.state.Location.AutoDetect
	c.mu.Unlock()

	var resolved *entity.ResolvedCoordinate
	var next entity.PendingTransition
	var times entity.SunTimes
	var err error
	switch {
	case !haveCoord && !autoDetect:
		err = fmt.Errorf("%w: auto-detection disabled and no coordinate configured",
			entity.ErrLocationUnavailable)
	case !haveCoord:
		var fix entity.ResolvedCoordinate
		if fix, err = c.resolver.Resolve(ctx); err == nil {
			resolved = &fix
			coord = fix.Coordinate
		}
	}
	if err == nil {
		next, times, err = c.location.NextTransition(ctx, c.now(), coord)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != start || c.state.Mode != entity.ModeLocation {
		return
	}
	if err != nil {
		c.scheduleRetryLocked(ctx, err)
		return
	}
	if resolved != nil {
		c.state.LastCoordinate = resolved
	}
	c.state.LastSunTimes = &times
	c.armLocked(ctx, next)
	_ = c.saveStateLocked(ctx)
}

// restoreLocationLocked re-arms location mode during Start. Unlike
// activation, failures here never demote the mode: this is an
// already-active-mode failure, so the backoff retry path applies.
func (c *ModeController) restoreLocationLocked(ctx context.Context) {
	coord, haveCoord := c.coordinateLocked()
	if !haveCoord {
		if !c.state.Location.AutoDetect {
			c.scheduleRetryLocked(ctx, fmt.Errorf(
				"%w: auto-detection disabled and no coordinate configured",
				entity.ErrLocationUnavailable))
			return
		}
		fix, err := c.resolver.Resolve(ctx)
		if err != nil {
			c.scheduleRetryLocked(ctx, err)
			return
		}
		c.state.LastCoordinate = &fix
		coord = fix.Coordinate
	}
	next, times, err := c.location.NextTransition(ctx, c.now(), coord)
	if err != nil {
		c.scheduleRetryLocked(ctx, err)
		return
	}
	c.state.LastSunTimes = &times
	c.armLocked(ctx, next)
}

// applyLocked pushes a theme through the applier and records the
// outcome. The transitioning flag is visible to Status while the
// backend call is in flight.
func (c *ModeController) applyLocked(ctx context.Context, variant entity.Variant) error {
	log := logging.FromContext(ctx)

	c.transitioning = true
	c.refreshStatusLocked()
	err := c.applier.Apply(ctx, variant)
	c.transitioning = false
	if err != nil {
		log.Error().Err(err).Str("theme", variant.String()).Msg("theme apply failed")
		c.lastErr = err
		ev := events.Errorf(entity.EventApplyFailed, "applying %s theme failed: %v", variant, err)
		ev.Detail = map[string]string{"theme": variant.String()}
		c.bus.Publish(ev)
		c.refreshStatusLocked()
		return err
	}

	c.state.CurrentTheme = variant
	c.lastErr = nil
	log.Info().Str("theme", variant.String()).Str("backend", c.applier.Name()).Msg("theme applied")
	ev := events.Infof(entity.EventThemeApplied, "%s theme applied", variant)
	ev.Detail = map[string]string{"theme": variant.String(), "backend": c.applier.Name()}
	c.bus.Publish(ev)
	c.refreshStatusLocked()
	return nil
}

// armLocked installs a pending transition and arms the timer for it.
func (c *ModeController) armLocked(ctx context.Context, next entity.PendingTransition) {
	if c.retryAttempt > 0 {
		// Recovered from the retry loop.
		c.retryAttempt = 0
		c.lastErr = nil
	}
	c.pending = next
	c.alarm.Arm(next.FiresAt)

	logging.FromContext(ctx).Info().
		Str("target", next.Target.String()).
		Time("fires_at", next.FiresAt).
		Msg("transition armed")
	ev := events.Infof(entity.EventTransitionArmed, "next transition: %s at %s",
		next.Target, next.FiresAt.Format(time.RFC3339))
	ev.Detail = map[string]string{
		"target":   next.Target.String(),
		"fires_at": next.FiresAt.Format(time.RFC3339),
	}
	c.bus.Publish(ev)
	c.refreshStatusLocked()
}

// disarmLocked cancels the timer and clears the pending transition and
// any retry state. Called on every mode activation.
func (c *ModeController) disarmLocked() {
	c.alarm.Cancel()
	c.pending = entity.PendingTransition{}
	c.retryAttempt = 0
	c.lastErr = nil
	c.refreshStatusLocked()
}

// scheduleRetryLocked arms the backoff timer after a location
// recomputation failure: 1 min, 5 min, then 30 min repeating.
func (c *ModeController) scheduleRetryLocked(ctx context.Context, cause error) {
	if c.retryAttempt < len(locationRetryDelays) {
		c.retryAttempt++
	}
	delay := locationRetryDelays[c.retryAttempt-1]
	c.pending = entity.PendingTransition{}
	c.lastErr = cause
	c.alarm.Arm(c.now().Add(delay))

	code := entity.EventAstronomyError
	msg := "sun times lookup failed"
	if errors.Is(cause, entity.ErrLocationUnavailable) {
		code = entity.EventLocationUnavailable
		msg = "location resolution failed"
	}
	logging.FromContext(ctx).Warn().Err(cause).Dur("retry_in", delay).Msg(msg)
	ev := events.Warnf(code, "%s, retrying in %s: %v", msg, delay, cause)
	ev.Detail = map[string]string{"retry_in": delay.String()}
	c.bus.Publish(ev)
	c.refreshStatusLocked()
}

// setModeLocked switches the mode, realigns the enabled flags, and
// announces actual changes.
func (c *ModeController) setModeLocked(ctx context.Context, mode entity.Mode) {
	previous := c.state.Mode
	c.state.SetMode(mode)
	c.refreshStatusLocked()
	if previous == mode {
		return
	}
	logging.FromContext(ctx).Info().
		Str("previous", previous.String()).
		Str("mode", mode.String()).
		Msg("mode changed")
	ev := events.Infof(entity.EventModeChanged, "mode changed to %s", mode)
	ev.Detail = map[string]string{"previous": previous.String(), "mode": mode.String()}
	c.bus.Publish(ev)
}

// saveStateLocked writes the state synchronously. A write failure is
// reported on the stream and returned; the in-memory mutation stands.
func (c *ModeController) saveStateLocked(ctx context.Context) error {
	c.state.UpdatedAt = c.now()
	if err := c.states.SaveState(ctx, c.state); err != nil {
		logging.FromContext(ctx).Error().Err(err).Msg("state not saved")
		c.bus.Publish(events.Errorf(entity.EventPersistenceError, "state not saved: %v", err))
		return err
	}
	return nil
}

// coordinateLocked returns the coordinate for location mode without
// touching the network: the pinned coordinate first, then the last
// auto-detected fix.
func (c *ModeController) coordinateLocked() (entity.Coordinate, bool) {
	if c.state.Location.Coordinate != nil {
		return *c.state.Location.Coordinate, true
	}
	if c.state.LastCoordinate != nil {
		return c.state.LastCoordinate.Coordinate, true
	}
	return entity.Coordinate{}, false
}

// refreshStatusLocked rebuilds the read-side snapshot from the
// mutation-side fields. Must be called with mu held.
func (c *ModeController) refreshStatusLocked() {
	st := Status{
		Mode:          c.state.Mode,
		CurrentTheme:  c.state.CurrentTheme,
		Transitioning: c.transitioning,
		Schedule:      c.state.Schedule,
		Backend:       c.applier.Name(),
	}
	if !c.pending.Zero() {
		next := c.pending
		st.NextTransition = &next
	}
	if c.lastErr != nil {
		st.LastError = c.lastErr.Error()
	}
	switch {
	case c.state.Location.Coordinate != nil:
		st.Location = &entity.ResolvedCoordinate{
			Coordinate: *c.state.Location.Coordinate,
			Source:     "config",
		}
	case c.state.LastCoordinate != nil:
		fix := *c.state.LastCoordinate
		st.Location = &fix
	}
	if c.state.LastSunTimes != nil {
		sun := *c.state.LastSunTimes
		st.SunTimes = &sun
	}

	c.statusMu.Lock()
	c.status = st
	c.statusMu.Unlock()
}
