package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/flighthook/flighthook/internal/bus"
	"github.com/flighthook/flighthook/internal/config"
	"github.com/flighthook/flighthook/internal/gamestate"
	"github.com/flighthook/flighthook/internal/shot"
	"github.com/flighthook/flighthook/internal/units"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffDoublesAndCaps(t *testing.T) {
	var b backoff
	assert.Equal(t, backoffBase, b.next())
	assert.Equal(t, 2*backoffBase, b.next())
	assert.Equal(t, 4*backoffBase, b.next())

	b.delay = backoffCap
	assert.Equal(t, backoffCap, b.next(), "must not exceed the cap")

	b.reset()
	assert.Equal(t, backoffBase, b.next(), "reset must restart from base")
}

func TestAccumulatorFinalWinsOverPartial(t *testing.T) {
	acc := newAccumulator("mevo.0")
	d, _ := units.DistanceFromMeters(100, units.Meter)
	f, _ := units.DistanceFromMeters(150, units.Meter)

	acc.Feed(Frame{Kind: FrameE8, Ball: &shot.Ball{Carry: d}}, config.UsePartialAlways, gamestate.ModeFull)
	acc.Feed(Frame{Kind: FrameD4, Ball: &shot.Ball{Carry: f}}, config.UsePartialAlways, gamestate.ModeFull)
	data, ok := acc.Feed(Frame{Kind: FrameProcessed}, config.UsePartialAlways, gamestate.ModeFull)

	require.True(t, ok)
	assert.False(t, data.Estimated)
	meters, err := data.Ball.Carry.Meters()
	require.NoError(t, err)
	assert.Equal(t, 150.0, meters)
	assert.Equal(t, 1, data.ShotNumber)
}

func TestAccumulatorPartialDiscardedWhenPolicyNever(t *testing.T) {
	acc := newAccumulator("mevo.0")
	d, _ := units.DistanceFromMeters(100, units.Meter)
	acc.Feed(Frame{Kind: FrameE8, Ball: &shot.Ball{Carry: d}}, config.UsePartialNever, gamestate.ModeFull)

	_, ok := acc.Feed(Frame{Kind: FrameProcessed}, config.UsePartialNever, gamestate.ModeFull)
	assert.False(t, ok, "a burst with no D4 and use_partial=never must be discarded")
}

func TestAccumulatorPartialAllowedChippingOnly(t *testing.T) {
	d, _ := units.DistanceFromMeters(20, units.Meter)

	acc := newAccumulator("mevo.0")
	acc.Feed(Frame{Kind: FrameE8, Ball: &shot.Ball{Carry: d}}, config.UsePartialChippingOnly, gamestate.ModeFull)
	_, ok := acc.Feed(Frame{Kind: FrameProcessed}, config.UsePartialChippingOnly, gamestate.ModeFull)
	assert.False(t, ok, "chipping_only must reject partials outside chipping mode")

	acc2 := newAccumulator("mevo.0")
	acc2.Feed(Frame{Kind: FrameE8, Ball: &shot.Ball{Carry: d}}, config.UsePartialChippingOnly, gamestate.ModeChipping)
	data, ok := acc2.Feed(Frame{Kind: FrameProcessed}, config.UsePartialChippingOnly, gamestate.ModeChipping)
	require.True(t, ok)
	assert.True(t, data.Estimated)
}

func TestAccumulatorShotNumberIncrementsOnlyOnEmission(t *testing.T) {
	acc := newAccumulator("mevo.0")
	// A burst that never emits (no D4, partials disallowed) must not
	// consume a shot number.
	_, ok := acc.Feed(Frame{Kind: FrameProcessed}, config.UsePartialNever, gamestate.ModeFull)
	assert.False(t, ok)

	f, _ := units.DistanceFromMeters(150, units.Meter)
	acc.Feed(Frame{Kind: FrameD4, Ball: &shot.Ball{Carry: f}}, config.UsePartialNever, gamestate.ModeFull)
	data, ok := acc.Feed(Frame{Kind: FrameProcessed}, config.UsePartialNever, gamestate.ModeFull)
	require.True(t, ok)
	assert.Equal(t, 1, data.ShotNumber, "shot_number must start at 1 regardless of prior empty bursts")
}

// --- fake device wiring for an end-to-end connect/arm/shoot cycle ---

type fakeConn struct {
	mu       sync.Mutex
	armCount int
	frames   chan Frame
}

func (c *fakeConn) Decode(ctx context.Context) (Frame, error) {
	select {
	case f, ok := <-c.frames:
		if !ok {
			return Frame{}, errors.New("closed")
		}
		return f, nil
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}

func (c *fakeConn) Configure(ctx context.Context, settings Settings) error { return nil }

func (c *fakeConn) Arm(ctx context.Context, mode gamestate.Mode) error {
	c.mu.Lock()
	c.armCount++
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) Close() error { return nil }

func TestSessionEmitsShotAndPublishesStatus(t *testing.T) {
	conn := &fakeConn{frames: make(chan Frame, 4)}
	connector := func(ctx context.Context, address string) (Connection, error) {
		return Connection{Decoder: conn, Encoder: conn, Closer: conn}, nil
	}

	b := bus.New()
	reader, _ := gamestate.New()
	sess := New("mevo.0", "mevo", "1.2.3.4:1900", connector, Settings{}, config.UsePartialNever, gamestate.ModeFull)

	sender := b.NewSender("mevo.0")
	receiver := sender.Subscribe(nil)
	defer receiver.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		_ = sess.Start(ctx, &reader, sender, receiver)
		close(done)
	}()

	f, _ := units.DistanceFromMeters(180, units.Meter)
	conn.frames <- Frame{Kind: FrameD4, Ball: &shot.Ball{Carry: f}}
	conn.frames <- Frame{Kind: FrameProcessed}

	var sawShot bool
	deadline := time.After(2 * time.Second)
	for !sawShot {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for launch_monitor event")
		default:
		}
		env, err := receiver.Poll()
		if err != nil {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		if lm, ok := env.Event.(bus.LaunchMonitorEvent); ok {
			sawShot = true
			require.NotNil(t, lm.ShotData)
			assert.Equal(t, 1, lm.ShotData.ShotNumber)
		}
	}

	sess.Stop()
	<-done
}
