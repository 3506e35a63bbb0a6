// Package randomclub implements the random_club actor: a synthetic
// simulator integration that reports itself always connected and
// cycles through a random club and handedness after every shot, for
// exercising the UI and club->mode derivation without a real simulator
// attached.
package randomclub

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/flighthook/flighthook/internal/actor"
	"github.com/flighthook/flighthook/internal/bus"
	"github.com/flighthook/flighthook/internal/config"
	"github.com/flighthook/flighthook/internal/gamestate"
)

const pollInterval = 20 * time.Millisecond

var clubs = []string{
	"Driver", "3W", "5W", "3i", "4i", "5i", "6i", "7i", "8i", "9i", "PW", "SW", "LW", "PT",
}

var handedness = []string{"RH", "LH"}

// Generator is the Actor implementation for one `[random_club.N]`
// section.
type Generator struct {
	globalID string
	name     string

	mu   sync.Mutex
	rng  *rand.Rand

	stopOnce sync.Once
	cancel   context.CancelFunc
}

// New constructs a Generator actor.
func New(globalID, name string) *Generator {
	return &Generator{
		globalID: globalID,
		name:     name,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (g *Generator) pick(options []string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return options[g.rng.Intn(len(options))]
}

// Start reports connected immediately with an initial random club and
// handedness, then cycles to a new one after every observed shot until
// ctx is cancelled or Stop is called.
func (g *Generator) Start(ctx context.Context, state *gamestate.Reader, sender *bus.Sender, receiver *bus.Receiver) error {
	ctx, cancel := context.WithCancel(ctx)
	g.cancel = cancel
	defer cancel()

	g.cycle(sender)

	poll := time.NewTicker(pollInterval)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-poll.C:
			env, err := receiver.Poll()
			if err != nil {
				continue
			}
			lm, ok := env.Event.(bus.LaunchMonitorEvent)
			if !ok || lm.ShotData == nil {
				continue
			}
			g.cycle(sender)
		}
	}
}

// cycle picks a new random club and handedness, reports actor_status
// with both as telemetry, and drives game state through them.
func (g *Generator) cycle(sender *bus.Sender) {
	club := g.pick(clubs)
	handed := g.pick(handedness)

	_ = sender.Send(bus.ActorStatusEvent{
		Status:    bus.StatusConnected,
		Telemetry: map[string]string{"club": club, "handed": handed},
	}, nil)
	_ = sender.Send(bus.GameStateCommandEvent{CommandKind: bus.CommandSetPlayerInfo, PlayerHand: handed}, nil)
	_ = sender.Send(bus.GameStateCommandEvent{CommandKind: bus.CommandSetClubInfo, Club: club}, nil)
}

// Stop is idempotent; it cancels the run loop.
func (g *Generator) Stop() {
	g.stopOnce.Do(func() {
		if g.cancel != nil {
			g.cancel()
		}
	})
}

// Reconfigure accepts a renamed RandomClubSection in place: there is no
// address or connection to invalidate, so nothing ever requires a
// restart.
func (g *Generator) Reconfigure(section any) (actor.Verdict, error) {
	sect, ok := section.(config.RandomClubSection)
	if !ok {
		return actor.NoChange, nil
	}
	g.name = sect.Name
	return actor.Applied, nil
}
