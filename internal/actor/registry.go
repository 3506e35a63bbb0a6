package actor

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/flighthook/flighthook/internal/bus"
	"github.com/flighthook/flighthook/internal/gamestate"
	"github.com/flighthook/flighthook/internal/log"
)

// Handle is the registry's record of one running actor: its own
// cancellation, its shared shutdown flag (observable by both the
// actor's Receiver and anything that calls Stop), and a completion
// signal for the goroutine running Start.
type Handle struct {
	GlobalID string
	Type     string

	actor    Actor
	cancel   context.CancelFunc
	shutdown *atomic.Bool
	done     chan struct{}
}

// Stop idempotently tears down the actor: it flips the shared shutdown
// flag (so the actor's own Poll loop observes ErrShutdown), calls the
// actor's Stop, and cancels its context. It does not wait for Start to
// return; callers that need that use Wait.
func (h *Handle) Stop() {
	if h.shutdown.CompareAndSwap(false, true) {
		h.actor.Stop()
		h.cancel()
	}
}

// Wait blocks until the actor's Start goroutine has returned.
func (h *Handle) Wait() {
	<-h.done
}

// Reconfigure forwards to the underlying actor's Reconfigure, giving
// the reconciler a way to apply an in-place config change without
// reaching into the actor field directly.
func (h *Handle) Reconfigure(section any) (Verdict, error) {
	return h.actor.Reconfigure(section)
}

// Registry holds every actor currently supervised, guarded by a single
// reader/writer lock. That includes the "system" supervisor, which
// cmd/flighthookd starts through Start like any other actor.
type Registry struct {
	bus   *bus.Bus
	state *gamestate.Reader

	mu      sync.RWMutex
	handles map[string]*Handle
}

// NewRegistry constructs an empty registry wired to the process bus
// and the shared game-state reader every actor receives.
func NewRegistry(b *bus.Bus, state *gamestate.Reader) *Registry {
	return &Registry{bus: b, state: state, handles: make(map[string]*Handle)}
}

// Start constructs a Sender/Receiver pair for globalID, launches a in
// a goroutine, and registers its Handle. The caller (the reconciler)
// is responsible for ensuring globalID is not already present.
func (r *Registry) Start(parent context.Context, globalID, actorType string, a Actor) *Handle {
	ctx, cancel := context.WithCancel(parent)
	var shutdown atomic.Bool
	sender := r.bus.NewSender(globalID)
	receiver := sender.Subscribe(&shutdown)

	h := &Handle{
		GlobalID: globalID,
		Type:     actorType,
		actor:    a,
		cancel:   cancel,
		shutdown: &shutdown,
		done:     make(chan struct{}),
	}

	go func() {
		defer close(h.done)
		defer receiver.Close()
		if err := a.Start(ctx, r.state, sender, receiver); err != nil {
			registryLogger := log.WithComponent("actor.registry")
			registryLogger.Error().
				Err(err).
				Str(log.FieldGlobalID, globalID).
				Str(log.FieldActorType, actorType).
				Msg("actor exited with error")
		}
	}()

	r.mu.Lock()
	r.handles[globalID] = h
	r.mu.Unlock()
	return h
}

// Get returns the handle for globalID, if present.
func (r *Registry) Get(globalID string) (*Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[globalID]
	return h, ok
}

// All returns a snapshot of every currently registered handle.
func (r *Registry) All() []*Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Handle, 0, len(r.handles))
	for _, h := range r.handles {
		out = append(out, h)
	}
	return out
}

// Remove deletes globalID from the registry without stopping it; the
// caller (the reconciler, via Handle.Stop) is responsible for shutdown.
func (r *Registry) Remove(globalID string) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[globalID]
	if ok {
		delete(r.handles, globalID)
	}
	return h, ok
}

// Add registers an already-constructed handle, used by WebSocket peer
// connections whose lifecycle is driven by the connection itself
// rather than by Registry.Start.
func (r *Registry) Add(h *Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handles[h.GlobalID] = h
}
