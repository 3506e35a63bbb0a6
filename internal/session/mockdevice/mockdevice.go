// Package mockdevice implements a synthetic launch-monitor connection:
// Configure/Arm always succeed, and once armed it emits a plausible
// E8/D4/ED/EF/PROCESSED frame sequence on a fixed cadence. It backs the
// `mock_monitor` actor type and exercises the full session state
// machine and shot accumulator without a real device attached.
package mockdevice

import (
	"context"
	"math/rand"
	"time"

	"github.com/flighthook/flighthook/internal/gamestate"
	"github.com/flighthook/flighthook/internal/session"
	"github.com/flighthook/flighthook/internal/shot"
	"github.com/flighthook/flighthook/internal/units"
)

// ShotInterval is the fixed cadence between synthetic shots once armed.
const ShotInterval = 4 * time.Second

// Connect implements session.Connector, ignoring address.
func Connect(ctx context.Context, address string) (session.Connection, error) {
	d := &decoder{frames: make(chan session.Frame, 8), stop: make(chan struct{})}
	return session.Connection{Decoder: d, Encoder: &encoder{}, Closer: d}, nil
}

type encoder struct{}

func (*encoder) Configure(ctx context.Context, settings session.Settings) error { return nil }

func (*encoder) Arm(ctx context.Context, mode gamestate.Mode) error { return nil }

type decoder struct {
	frames  chan session.Frame
	stop    chan struct{}
	started bool
}

func (d *decoder) Decode(ctx context.Context) (session.Frame, error) {
	if !d.started {
		d.started = true
		go d.generate()
	}
	select {
	case f := <-d.frames:
		return f, nil
	case <-ctx.Done():
		return session.Frame{}, ctx.Err()
	case <-d.stop:
		return session.Frame{}, context.Canceled
	}
}

func (d *decoder) Close() error {
	select {
	case <-d.stop:
	default:
		close(d.stop)
	}
	return nil
}

func (d *decoder) generate() {
	ticker := time.NewTicker(ShotInterval)
	defer ticker.Stop()
	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
			for _, f := range syntheticBurst() {
				select {
				case d.frames <- f:
				case <-d.stop:
					return
				}
			}
		}
	}
}

func syntheticBurst() []session.Frame {
	speed := 60 + rand.Float64()*30
	carry := 150 + rand.Float64()*100

	mps := func(v float64) units.Velocity {
		vel, _ := units.VelocityFromMPS(v, units.MPS)
		return vel
	}
	meters := func(v float64) units.Distance {
		d, _ := units.DistanceFromMeters(v, units.Meter)
		return d
	}

	ball := shot.Ball{
		LaunchSpeed:     mps(speed),
		LaunchAzimuth:   rand.Float64()*6 - 3,
		LaunchElevation: 10 + rand.Float64()*8,
		Carry:           meters(carry),
		Total:           meters(carry + rand.Float64()*10),
		MaxHeight:       meters(15 + rand.Float64()*10),
		BackspinRPM:     2000 + rand.Float64()*2000,
		SidespinRPM:     rand.Float64()*800 - 400,
	}
	club := shot.Club{
		ClubSpeed:           mps(speed * 0.75),
		Path:                rand.Float64()*4 - 2,
		AttackAngle:         rand.Float64()*6 - 3,
		FaceAngle:           rand.Float64()*4 - 2,
		DynamicLoft:         10 + rand.Float64()*10,
		SmashFactor:         1.3 + rand.Float64()*0.2,
		PostImpactClubSpeed: mps(speed * 0.7),
		ClubOffset:          meters(0),
		ClubHeight:          meters(0),
	}
	spin := shot.Spin{
		TotalRPM: ball.BackspinRPM + ball.SidespinRPM,
		AxisDeg:  rand.Float64()*10 - 5,
	}

	return []session.Frame{
		{Kind: session.FrameE8, Ball: &shot.Ball{LaunchSpeed: ball.LaunchSpeed, Carry: meters(carry * 0.9)}},
		{Kind: session.FrameD4, Ball: &ball},
		{Kind: session.FrameED, Club: &club},
		{Kind: session.FrameEF, Spin: &spin},
		{Kind: session.FrameProcessed},
	}
}
