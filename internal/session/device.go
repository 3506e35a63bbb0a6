package session

import (
	"context"
	"io"

	"github.com/flighthook/flighthook/internal/gamestate"
	"github.com/flighthook/flighthook/internal/shot"
	"github.com/flighthook/flighthook/internal/units"
)

// FrameKind discriminates the raw frame kinds a launch monitor emits
// mid-burst, per the component design's frame table.
type FrameKind string

const (
	FrameE8        FrameKind = "E8"        // partial/early distance estimate
	FrameD4        FrameKind = "D4"        // final ball flight
	FrameED        FrameKind = "ED"        // club data
	FrameEF        FrameKind = "EF"        // spin data
	FrameProcessed FrameKind = "PROCESSED" // burst-end marker
)

// Frame is one decoded device frame. Exactly the field matching Kind
// is populated.
type Frame struct {
	Kind FrameKind
	Ball *shot.Ball // E8, D4
	Club *shot.Club // ED
	Spin *shot.Spin // EF
}

// Settings is the device-facing subset of a launch monitor's
// configuration: the part that must be (re)applied to the physical
// session rather than merely consulted.
type Settings struct {
	BallType      string
	TeeHeight     *units.Distance
	Range         *units.Distance
	SurfaceHeight *units.Distance
	TrackPct      *float64
}

// Decoder reads the next frame from a connected device. Decode blocks
// until a frame is available, ctx is cancelled, or the connection is
// lost.
type Decoder interface {
	Decode(ctx context.Context) (Frame, error)
}

// Encoder applies outbound commands to a connected device: settings
// changes and arm requests for a given detection mode.
type Encoder interface {
	Configure(ctx context.Context, settings Settings) error
	Arm(ctx context.Context, mode gamestate.Mode) error
}

// Connection bundles a live device's Decoder/Encoder with its
// lifecycle. mockdevice.Connect and any future real-device driver both
// produce one of these.
type Connection struct {
	Decoder Decoder
	Encoder Encoder
	Closer  io.Closer
}

// Connector opens a new Connection to a launch monitor at address. For
// the mock_monitor actor type, address is ignored.
type Connector func(ctx context.Context, address string) (Connection, error)
