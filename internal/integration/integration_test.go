package integration

import (
	"context"
	"testing"
	"time"

	"github.com/flighthook/flighthook/internal/bus"
	"github.com/flighthook/flighthook/internal/gamestate"
	"github.com/flighthook/flighthook/internal/integration/lineproto"
	"github.com/flighthook/flighthook/internal/shot"
	"github.com/flighthook/flighthook/internal/units"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	shots  chan lineproto.ShotMessage
	clubs  chan lineproto.ClubMessage
	closed chan struct{}
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		shots:  make(chan lineproto.ShotMessage, 8),
		clubs:  make(chan lineproto.ClubMessage, 8),
		closed: make(chan struct{}),
	}
}

func (c *fakeClient) WriteShot(msg lineproto.ShotMessage) error {
	c.shots <- msg
	return nil
}

func (c *fakeClient) ReadClub(ctx context.Context) (lineproto.ClubMessage, error) {
	select {
	case msg := <-c.clubs:
		return msg, nil
	case <-ctx.Done():
		return lineproto.ClubMessage{}, ctx.Err()
	case <-c.closed:
		return lineproto.ClubMessage{}, context.Canceled
	}
}

func (c *fakeClient) Close() error {
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}
	return nil
}

func TestIntegrationForwardsRoutedShotsOnly(t *testing.T) {
	client := newFakeClient()
	connector := func(ctx context.Context, address string) (Client, error) { return client, nil }

	b := bus.New()
	reader, _ := gamestate.New()
	in := New("gspro.0", "sim", "1.2.3.4:900", connector, "mevo.0", "", "")

	integrationSender := b.NewSender("gspro.0")
	integrationReceiver := integrationSender.Subscribe(nil)
	defer integrationReceiver.Close()

	mevo0Sender := b.NewSender("mevo.0")
	mevo1Sender := b.NewSender("mevo.1")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = in.Start(ctx, &reader, integrationSender, integrationReceiver) }()

	carry, _ := units.DistanceFromMeters(150, units.Meter)
	matching := &shot.Data{Source: "mevo.0", ShotNumber: 1, Ball: shot.Ball{Carry: carry}}
	other := &shot.Data{Source: "mevo.1", ShotNumber: 1, Ball: shot.Ball{Carry: carry}}

	_ = mevo0Sender.Send(bus.LaunchMonitorEvent{ShotData: matching}, nil)
	_ = mevo1Sender.Send(bus.LaunchMonitorEvent{ShotData: other}, nil)

	select {
	case got := <-client.shots:
		assert.Equal(t, "mevo.0", got.Source)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for routed shot")
	}

	select {
	case got := <-client.shots:
		t.Fatalf("unexpected second shot forwarded from unrouted source: %+v", got)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestIntegrationTranslatesClubSelection(t *testing.T) {
	client := newFakeClient()
	connector := func(ctx context.Context, address string) (Client, error) { return client, nil }

	b := bus.New()
	reader, _ := gamestate.New()
	in := New("gspro.0", "sim", "1.2.3.4:900", connector, "", "", "")

	sender := b.NewSender("gspro.0")
	receiver := sender.Subscribe(nil)
	defer receiver.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = in.Start(ctx, &reader, sender, receiver) }()

	client.clubs <- lineproto.ClubMessage{Club: "7 Iron", Handed: "right"}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for set_club_info command")
		default:
		}
		env, err := receiver.Poll()
		if err != nil {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		if cmd, ok := env.Event.(bus.GameStateCommandEvent); ok && cmd.CommandKind == bus.CommandSetClubInfo {
			require.Equal(t, "7 Iron", cmd.Club)
			return
		}
	}
}
