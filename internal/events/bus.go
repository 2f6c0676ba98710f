// Package events carries the in-process notification stream between
// the mode controller and its subscribers (log sink, event socket).
package events

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pygillier/nightswitch/internal/domain/entity"
)

// DefaultBuffer is the per-subscriber channel depth.
const DefaultBuffer = 32

// Bus fans events out to subscribers. Publish never blocks: when a
// subscriber's buffer is full its oldest event is dropped first.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]chan entity.Event
	nextID int
	closed bool
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan entity.Event)}
}

// Publish stamps the event with an ID and timestamp when missing and
// delivers it to every subscriber.
func (b *Bus) Publish(event entity.Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Time.IsZero() {
		event.Time = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
			// Full subscriber: drop its oldest event, then retry once.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- event:
			default:
			}
		}
	}
}

// Subscribe registers a new subscriber and returns its channel plus
// an unsubscribe func. Unsubscribing closes the channel.
func (b *Bus) Subscribe() (<-chan entity.Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan entity.Event, DefaultBuffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(ch)
			}
		})
	}
	return ch, cancel
}

// Close unsubscribes everyone and rejects further publishes.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}

// Errorf builds an error-level event.
func Errorf(code entity.EventCode, format string, args ...any) entity.Event {
	return entity.Event{Level: entity.EventError, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Warnf builds a warn-level event.
func Warnf(code entity.EventCode, format string, args ...any) entity.Event {
	return entity.Event{Level: entity.EventWarn, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Infof builds an info-level event.
func Infof(code entity.EventCode, format string, args ...any) entity.Event {
	return entity.Event{Level: entity.EventInfo, Code: code, Message: fmt.Sprintf(format, args...)}
}
