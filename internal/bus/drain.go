package bus

// StartDrainSubscriber registers a permanently-running subscription
// that discards every envelope it receives, and returns a function to
// stop it. A real bus always has at least one subscriber so the fixed
// per-subscriber buffering inside Bus.publish never has to make room
// on a channel nobody will ever empty again (e.g. the window between a
// WebSocket client disconnecting and a new one connecting).
func StartDrainSubscriber(b *Bus) (stop func()) {
	sub := b.subscribe(nil)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range sub.ch {
		}
	}()
	return func() {
		b.unsubscribe(sub)
		<-done
	}
}
