package port

import "github.com/pygillier/nightswitch/internal/domain/entity"

// EventPublisher receives asynchronous notifications (apply failures,
// provider errors, transitions) surfaced outside the call that
// triggered them. Publish never blocks the caller.
type EventPublisher interface {
	Publish(event entity.Event)
}

// EventBus is an EventPublisher whose stream can also be subscribed
// to. Subscribe returns a receive channel and a cancel function that
// releases the subscription.
type EventBus interface {
	EventPublisher
	Subscribe() (<-chan entity.Event, func())
}
