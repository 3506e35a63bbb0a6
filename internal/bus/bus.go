// Package bus implements Flighthook's single process-wide broadcast
// channel: every actor publishes Envelope values through a Sender and
// observes every other actor's traffic through a Receiver.
package bus

import (
	"sync"
	"sync/atomic"

	"github.com/flighthook/flighthook/internal/log"
	"github.com/flighthook/flighthook/internal/metrics"
)

// Capacity is the fixed size of each subscriber's buffered channel.
const Capacity = 1024

// Bus is a multi-producer, multi-consumer broadcast channel of
// Envelope values. Every subscription receives every envelope
// published after it was created. Publish never blocks: a subscriber
// that falls behind loses its oldest queued envelope rather than
// stalling the publisher.
type Bus struct {
	mu   sync.RWMutex
	subs map[*subscription]struct{}
}

type subscription struct {
	ch       chan Envelope
	shutdown *atomic.Bool
}

// New constructs an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[*subscription]struct{})}
}

// NewSender returns a Sender that stamps every published Envelope with
// ownerID as its Source.
func (b *Bus) NewSender(ownerID string) *Sender {
	return &Sender{bus: b, ownerID: ownerID}
}

func (b *Bus) subscribe(shutdown *atomic.Bool) *subscription {
	sub := &subscription{ch: make(chan Envelope, Capacity), shutdown: shutdown}
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

func (b *Bus) unsubscribe(sub *subscription) {
	b.mu.Lock()
	delete(b.subs, sub)
	b.mu.Unlock()
	close(sub.ch)
}

func (b *Bus) publish(env Envelope) {
	b.mu.RLock()
	subs := make([]*subscription, 0, len(b.subs))
	for s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.RUnlock()

	for _, sub := range subs {
		select {
		case sub.ch <- env:
		default:
			// Subscriber's queue is full: drop its oldest queued
			// envelope to make room rather than blocking the
			// publisher. This never fully evacuates the channel, so a
			// concurrent drain by the subscriber itself only shrinks
			// the race window, it cannot corrupt state.
			select {
			case <-sub.ch:
				metrics.IncBusDropReason("bus", "lag")
				busLogger := log.WithComponent("bus")
				busLogger.Warn().
					Str(log.FieldEvent, string(env.Event.Kind())).
					Msg("subscriber lagging, dropped oldest queued envelope")
			default:
			}
			select {
			case sub.ch <- env:
			default:
			}
		}
	}
}
