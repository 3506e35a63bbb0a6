package randomclub

import (
	"context"
	"testing"
	"time"

	"github.com/flighthook/flighthook/internal/bus"
	"github.com/flighthook/flighthook/internal/gamestate"
	"github.com/flighthook/flighthook/internal/shot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratorReportsConnectedOnStart(t *testing.T) {
	b := bus.New()
	reader, _ := gamestate.New()
	g := New("random_club.0", "sim")

	sender := b.NewSender("random_club.0")
	receiver := sender.Subscribe(nil)
	defer receiver.Close()

	watcher := b.NewSender("watcher").Subscribe(nil)
	defer watcher.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = g.Start(ctx, &reader, sender, receiver) }()

	status := pollForStatus(t, watcher)
	assert.Equal(t, bus.StatusConnected, status.Status)
	assert.NotEmpty(t, status.Telemetry["club"])
	assert.NotEmpty(t, status.Telemetry["handed"])
}

func TestGeneratorCyclesClubAfterEachShot(t *testing.T) {
	b := bus.New()
	reader, _ := gamestate.New()
	g := New("random_club.0", "sim")

	sender := b.NewSender("random_club.0")
	receiver := sender.Subscribe(nil)
	defer receiver.Close()

	mevoSender := b.NewSender("mevo.0")
	watcher := b.NewSender("watcher").Subscribe(nil)
	defer watcher.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = g.Start(ctx, &reader, sender, receiver) }()

	_ = pollForStatus(t, watcher)

	require.NoError(t, mevoSender.Send(bus.LaunchMonitorEvent{ShotData: &shot.Data{Source: "mevo.0", ShotNumber: 1}}, nil))

	cycled := pollForStatus(t, watcher)
	assert.Contains(t, clubs, cycled.Telemetry["club"])
	assert.Contains(t, handedness, cycled.Telemetry["handed"])
}

func pollForStatus(t *testing.T, receiver *bus.Receiver) bus.ActorStatusEvent {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for an actor_status event")
		default:
		}
		env, err := receiver.Poll()
		if err != nil {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		if ev, ok := env.Event.(bus.ActorStatusEvent); ok {
			return ev
		}
	}
}
