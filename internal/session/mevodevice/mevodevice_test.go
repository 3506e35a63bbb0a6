package mevodevice

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/flighthook/flighthook/internal/gamestate"
	"github.com/flighthook/flighthook/internal/session"
	"github.com/flighthook/flighthook/internal/units"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConn(c net.Conn) *wireConn {
	return &wireConn{conn: c, reader: bufio.NewReader(c)}
}

func TestConfigureWritesExpectedFields(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	conn := newTestConn(client)
	teeHeight, _ := units.DistanceFromMeters(0.05, units.Meter)
	done := make(chan error, 1)
	go func() {
		done <- conn.Configure(context.Background(), session.Settings{BallType: "premium", TeeHeight: &teeHeight})
	}()

	buf := make([]byte, 256)
	_ = server.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := server.Read(buf)
	require.NoError(t, err)
	require.NoError(t, <-done)

	line := string(buf[:n])
	assert.Contains(t, line, "CONFIGURE")
	assert.Contains(t, line, "ball_type=premium")
	assert.Contains(t, line, "tee_height_m=0.0500")
}

func TestArmWritesMode(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	conn := newTestConn(client)
	done := make(chan error, 1)
	go func() { done <- conn.Arm(context.Background(), gamestate.ModeChipping) }()

	buf := make([]byte, 256)
	_ = server.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := server.Read(buf)
	require.NoError(t, err)
	require.NoError(t, <-done)
	assert.Equal(t, "ARM mode=chipping\n", string(buf[:n]))
}

func TestDecodeParsesBallFrame(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	conn := newTestConn(client)
	go func() {
		_, _ = server.Write([]byte("D4 speed_mps=65.500 carry_m=180.000 total_m=185.000 max_height_m=30.000 azimuth=1.000 elevation=14.000 backspin=2500.000 sidespin=300.000\n"))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	frame, err := conn.Decode(ctx)
	require.NoError(t, err)
	require.Equal(t, session.FrameD4, frame.Kind)
	require.NotNil(t, frame.Ball)
	assert.InDelta(t, 65.5, mustMPS(t, frame.Ball.LaunchSpeed), 0.01)
	assert.InDelta(t, 180.0, mustMeters(t, frame.Ball.Carry), 0.01)
}

func TestDecodeParsesProcessedMarker(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	conn := newTestConn(client)
	go func() { _, _ = server.Write([]byte("PROCESSED\n")) }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	frame, err := conn.Decode(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.FrameProcessed, frame.Kind)
}

func TestDecodeRespectsCancellation(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	conn := newTestConn(client)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := conn.Decode(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func mustMPS(t *testing.T, v units.Velocity) float64 {
	t.Helper()
	mps, err := v.MetersPerSecond()
	require.NoError(t, err)
	return mps
}

func mustMeters(t *testing.T, d units.Distance) float64 {
	t.Helper()
	meters, err := d.Meters()
	require.NoError(t, err)
	return meters
}
