// Package httpapi implements Flighthook's REST surface: status,
// shots, mode, and settings, plus the bus request/reply pattern that
// backs configuration mutation.
package httpapi

import (
	"context"
	"sync"
	"time"

	"github.com/flighthook/flighthook/internal/bus"
	"github.com/flighthook/flighthook/internal/config"
	"github.com/flighthook/flighthook/internal/gamestate"
)

// settingsTimeout bounds how long POST /api/settings waits for the
// matching config_outcome before returning 504.
const settingsTimeout = 10 * time.Second

const pollInterval = 20 * time.Millisecond

// actorStatus is the cached view of one actor's latest actor_status
// event, keyed by global ID.
type actorStatus struct {
	Name      string            `json:"name,omitempty"`
	Status    string            `json:"status"`
	Telemetry map[string]string `json:"telemetry,omitempty"`
}

// Snapshotter exposes the current configuration and its resolved actor
// list; SystemActor satisfies it.
type Snapshotter interface {
	Snapshot() (*config.FlighthookConfig, config.Resolved)
}

// Server holds every dependency the REST handlers need: a sender
// stamped with the webserver actor's own global ID (each settings
// request subscribes through it to correlate its config_outcome reply),
// the actor status cache and the shot ring, both fed by Run's own bus
// subscription.
type Server struct {
	globalID string
	bus      *bus.Bus
	state    *gamestate.Reader
	system   Snapshotter
	sender   *bus.Sender

	ring *shotRing

	mu       sync.RWMutex
	statuses map[string]actorStatus
}

// New constructs a Server. globalID is this webserver actor's own
// identity, used to stamp published commands.
func New(globalID string, b *bus.Bus, state *gamestate.Reader, system Snapshotter) *Server {
	return &Server{
		globalID: globalID,
		bus:      b,
		state:    state,
		system:   system,
		sender:   b.NewSender(globalID),
		ring:     newShotRing(),
		statuses: make(map[string]actorStatus),
	}
}

// Run drains the bus for actor_status and launch_monitor events until
// ctx is cancelled, keeping the status cache and shot ring current. It
// must run for the lifetime of the server; the webserver actor starts
// it alongside the HTTP listener.
func (s *Server) Run(ctx context.Context) {
	receiver := s.sender.Subscribe(nil)
	defer receiver.Close()

	poll := time.NewTicker(pollInterval)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-poll.C:
			env, err := receiver.Poll()
			if err != nil {
				continue
			}
			switch ev := env.Event.(type) {
			case bus.ActorStatusEvent:
				s.mu.Lock()
				s.statuses[env.Source] = actorStatus{Status: string(ev.Status), Telemetry: ev.Telemetry}
				s.mu.Unlock()
			case bus.LaunchMonitorEvent:
				if ev.ShotData != nil {
					s.ring.push(*ev.ShotData)
				}
			}
		}
	}
}
