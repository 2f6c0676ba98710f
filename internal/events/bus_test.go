package events_test

import (
	"testing"

	"github.com/pygillier/nightswitch/internal/application/port"
	"github.com/pygillier/nightswitch/internal/domain/entity"
	"github.com/pygillier/nightswitch/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ port.EventBus = (*events.Bus)(nil)

func TestBusPublishSubscribe(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()

	ch, cancel := bus.Subscribe()
	defer cancel()

	bus.Publish(events.Infof(entity.EventModeChanged, "mode set to %s", entity.ModeSchedule))

	ev := <-ch
	assert.NotEmpty(t, ev.ID)
	assert.False(t, ev.Time.IsZero())
	assert.Equal(t, entity.EventModeChanged, ev.Code)
	assert.Equal(t, entity.EventInfo, ev.Level)
	assert.Equal(t, "mode set to schedule", ev.Message)
}

func TestBusPublishNeverBlocks(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()

	ch, cancel := bus.Subscribe()
	defer cancel()

	// Overfill the subscriber buffer; oldest events are shed.
	for i := 0; i < events.DefaultBuffer*3; i++ {
		bus.Publish(events.Infof(entity.EventThemeApplied, "event %d", i))
	}

	received := 0
	for {
		select {
		case <-ch:
			received++
		default:
			assert.Equal(t, events.DefaultBuffer, received)
			return
		}
	}
}

func TestBusUnsubscribeClosesChannel(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()

	ch, cancel := bus.Subscribe()
	cancel()
	cancel() // idempotent

	_, open := <-ch
	assert.False(t, open)

	// Publishing after unsubscribe must not panic.
	bus.Publish(events.Warnf(entity.EventApplyFailed, "late"))
}

func TestBusCloseRejectsLatePublishes(t *testing.T) {
	bus := events.NewBus()
	ch, _ := bus.Subscribe()

	bus.Close()
	bus.Publish(events.Errorf(entity.EventPersistenceError, "after close"))

	_, open := <-ch
	require.False(t, open)
}
