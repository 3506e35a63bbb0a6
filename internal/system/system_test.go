package system

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/flighthook/flighthook/internal/actor"
	"github.com/flighthook/flighthook/internal/bus"
	"github.com/flighthook/flighthook/internal/config"
	"github.com/flighthook/flighthook/internal/gamestate"
	"github.com/flighthook/flighthook/internal/reconcile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFixture(t *testing.T, initial *config.FlighthookConfig) (*System, *bus.Sender, *bus.Receiver, *actor.Registry) {
	t.Helper()
	b := bus.New()
	reader, writer := gamestate.New()
	registry := actor.NewRegistry(b, &reader)

	factory := func(spec config.ActorSpec) (actor.Actor, error) {
		return &noopActor{}, nil
	}
	rc := reconcile.New(registry, context.Background(), factory)

	loader := config.NewLoader(filepath.Join(t.TempDir(), "flighthook.toml"))
	sys, err := New(writer, loader, rc, initial)
	require.NoError(t, err)

	clientSender := b.NewSender("test-client")
	receiver := clientSender.Subscribe(nil)
	return sys, clientSender, receiver, registry
}

type noopActor struct{}

func (*noopActor) Start(ctx context.Context, state *gamestate.Reader, sender *bus.Sender, receiver *bus.Receiver) error {
	<-ctx.Done()
	return nil
}
func (*noopActor) Stop()                                     {}
func (*noopActor) Reconfigure(section any) (actor.Verdict, error) { return actor.Applied, nil }

func waitForEvent(t *testing.T, receiver *bus.Receiver, match func(bus.Event) bool) bus.Envelope {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for expected event")
		default:
		}
		env, err := receiver.Poll()
		if err != nil {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		if match(env.Event) {
			return env
		}
	}
}

func TestSetClubInfoDerivesMode(t *testing.T) {
	cfg := &config.FlighthookConfig{ChippingClubs: []string{"56 Wedge"}}
	sys, sender, receiver, registry := newFixture(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	registry.Start(ctx, actor.SystemID, actor.TypeSystem, sys)

	_ = sender.Send(bus.GameStateCommandEvent{CommandKind: bus.CommandSetClubInfo, Club: "56 Wedge"}, nil)

	snap := waitForEvent(t, receiver, func(e bus.Event) bool {
		s, ok := e.(bus.GameStateSnapshotEvent)
		return ok && s.Club == "56 Wedge"
	})
	assert.Equal(t, "56 Wedge", snap.Event.(bus.GameStateSnapshotEvent).Club)

	modeCmd := waitForEvent(t, receiver, func(e bus.Event) bool {
		c, ok := e.(bus.GameStateCommandEvent)
		return ok && c.CommandKind == bus.CommandSetMode
	})
	assert.Equal(t, "chipping", modeCmd.Event.(bus.GameStateCommandEvent).Mode)
}

func TestConfigCommandUpsertStartsActorAndPublishesOutcome(t *testing.T) {
	sys, sender, receiver, registry := newFixture(t, &config.FlighthookConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	registry.Start(ctx, actor.SystemID, actor.TypeSystem, sys)

	action := config.Action{
		Kind:      config.ActionUpsertMevo,
		RequestID: "req-1",
		Index:     "0",
		Mevo:      &config.MevoSection{Name: "bay-1", Address: "10.0.0.5:1900"},
	}
	_ = sender.Send(bus.ConfigCommandEvent{RequestID: "req-1", Action: action}, nil)

	outcome := waitForEvent(t, receiver, func(e bus.Event) bool {
		o, ok := e.(bus.ConfigOutcomeEvent)
		return ok && o.RequestID == "req-1"
	}).Event.(bus.ConfigOutcomeEvent)

	assert.Empty(t, outcome.Error)
	assert.Equal(t, []string{"mevo.0"}, outcome.Started)

	_, ok := registry.Get("mevo.0")
	assert.True(t, ok)

	_, resolved := sys.Snapshot()
	_, found := resolved.Spec("mevo.0")
	assert.True(t, found)
}

func TestConfigCommandRemoveMalformedIDReportsError(t *testing.T) {
	sys, sender, receiver, registry := newFixture(t, &config.FlighthookConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	registry.Start(ctx, actor.SystemID, actor.TypeSystem, sys)

	action := config.Action{Kind: config.ActionRemove, RequestID: "req-2", RemoveID: "not-a-valid-id"}
	_ = sender.Send(bus.ConfigCommandEvent{RequestID: "req-2", Action: action}, nil)

	outcome := waitForEvent(t, receiver, func(e bus.Event) bool {
		o, ok := e.(bus.ConfigOutcomeEvent)
		return ok && o.RequestID == "req-2"
	}).Event.(bus.ConfigOutcomeEvent)

	assert.NotEmpty(t, outcome.Error)
}
