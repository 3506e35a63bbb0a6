package bus

import (
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendStampsSourceAndTimestamp(t *testing.T) {
	b := New()
	sender := b.NewSender("mevo.0")
	recv := sender.Subscribe(nil)
	defer recv.Close()

	require.NoError(t, sender.Send(AlertEvent{Severity: AlertWarn, Message: "low battery"}, nil))

	env, err := recv.Poll()
	require.NoError(t, err)
	assert.Equal(t, "mevo.0", env.Source)
	assert.WithinDuration(t, time.Now().UTC(), env.Timestamp, 2*time.Second)
	assert.Equal(t, KindAlert, env.Event.Kind())
}

func TestPollReturnsErrNoMessageWhenEmpty(t *testing.T) {
	b := New()
	sender := b.NewSender("system")
	recv := sender.Subscribe(nil)
	defer recv.Close()

	_, err := recv.Poll()
	assert.ErrorIs(t, err, ErrNoMessage)
}

func TestEveryActiveSubscriberReceivesEveryMessage(t *testing.T) {
	b := New()
	sender := b.NewSender("system")
	r1 := sender.Subscribe(nil)
	r2 := sender.Subscribe(nil)
	defer r1.Close()
	defer r2.Close()

	require.NoError(t, sender.Send(AlertEvent{Severity: AlertWarn, Message: "hi"}, nil))

	_, err1 := r1.Poll()
	_, err2 := r2.Poll()
	require.NoError(t, err1)
	require.NoError(t, err2)
}

func TestShutdownFlagStopsPoll(t *testing.T) {
	b := New()
	sender := b.NewSender("system")
	var shutdown atomic.Bool
	recv := sender.Subscribe(&shutdown)
	defer recv.Close()

	require.False(t, recv.IsShutdown())
	shutdown.Store(true)
	require.True(t, recv.IsShutdown())

	_, err := recv.Poll()
	assert.ErrorIs(t, err, ErrShutdown)
}

func TestClosedSubscriptionReturnsErrShutdown(t *testing.T) {
	b := New()
	sender := b.NewSender("system")
	recv := sender.Subscribe(nil)
	recv.Close()

	_, err := recv.Poll()
	assert.ErrorIs(t, err, ErrShutdown)
}

func TestLagPolicyDropsOldestRatherThanBlocking(t *testing.T) {
	b := New()
	sender := b.NewSender("system")
	recv := sender.Subscribe(nil)
	defer recv.Close()

	for i := 0; i < Capacity+10; i++ {
		require.NoError(t, sender.Send(AlertEvent{Severity: AlertWarn, Message: strconv.Itoa(i)}, nil))
	}

	env, err := recv.Poll()
	require.NoError(t, err)
	assert.Equal(t, "system", env.Source)
	assert.Equal(t, "10", env.Event.(AlertEvent).Message, "the 10 oldest envelopes were dropped")
}

func TestSendRejectsNilEvent(t *testing.T) {
	b := New()
	sender := b.NewSender("system")
	err := sender.Send(nil, nil)
	assert.Error(t, err)
}

func TestDrainSubscriberNeverBlocksPublish(t *testing.T) {
	b := New()
	stop := StartDrainSubscriber(b)
	defer stop()

	sender := b.NewSender("system")
	done := make(chan struct{})
	go func() {
		for i := 0; i < Capacity*2; i++ {
			_ = sender.Send(AlertEvent{Severity: AlertWarn, Message: "drain"}, nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked with only a drain subscriber attached")
	}
}

func TestRawPayloadString(t *testing.T) {
	assert.Equal(t, "deadbeef", NewBinaryPayload([]byte{0xde, 0xad, 0xbe, 0xef}).String())
	assert.Equal(t, "hello", NewTextPayload("hello").String())
	var nilPayload *RawPayload
	assert.Equal(t, "", nilPayload.String())
}
