package bus

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Sender is a per-actor handle onto a Bus. It stamps every published
// Envelope's Source with the owner ID it was constructed with; a
// caller can never override that field.
type Sender struct {
	bus     *Bus
	ownerID string
}

// Send publishes event (with an optional raw payload) as a new
// Envelope, stamping Source and Timestamp.
func (s *Sender) Send(event Event, raw *RawPayload) error {
	if event == nil {
		return fmt.Errorf("bus: send: event is nil")
	}
	s.bus.publish(Envelope{
		Source:     s.ownerID,
		Timestamp:  time.Now().UTC(),
		RawPayload: raw,
		Event:      event,
	})
	return nil
}

// Subscribe registers a new Receiver on the sender's bus. shutdown is
// the shared flag the caller's actor registry uses to signal shutdown
// out-of-band; a nil shutdown flag means the receiver only stops when
// the bus itself closes its channel.
func (s *Sender) Subscribe(shutdown *atomic.Bool) *Receiver {
	return &Receiver{sub: s.bus.subscribe(shutdown), bus: s.bus}
}
