// Package mevodevice implements session.Connector against Flighthook's
// reference launch-monitor wire protocol: newline-terminated,
// space-separated key=value frames, mirroring the reference protocol
// internal/integration/lineproto speaks on the simulator side. The
// concrete byte-level protocol a real Mevo/Mevo+ device speaks is out
// of scope (it is a vendor binary format this project has no license
// to reproduce); this reference implementation lets the `mevo` actor
// type's connect/handshake/configure/arm/shoot state machine and frame
// accumulator be exercised end-to-end against anything that speaks the
// same text frames, including a hardware bridge translating the real
// protocol into this one.
package mevodevice

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/flighthook/flighthook/internal/gamestate"
	"github.com/flighthook/flighthook/internal/session"
	"github.com/flighthook/flighthook/internal/shot"
	"github.com/flighthook/flighthook/internal/units"
)

// readPoll bounds how long a blocked Decode can take to notice ctx
// cancellation, matching lineproto.Conn's read cadence.
const readPoll = 250 * time.Millisecond

// Connect implements session.Connector by dialing address and wrapping
// the connection in the reference frame protocol.
func Connect(ctx context.Context, address string) (session.Connection, error) {
	var d net.Dialer
	c, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return session.Connection{}, err
	}
	conn := &wireConn{conn: c, reader: bufio.NewReader(c)}
	return session.Connection{Decoder: conn, Encoder: conn, Closer: conn}, nil
}

type wireConn struct {
	conn    net.Conn
	reader  *bufio.Reader
	writeMu sync.Mutex
}

// Configure sends a CONFIGURE frame; the device is expected to apply it
// before the next ARM.
func (c *wireConn) Configure(ctx context.Context, settings session.Settings) error {
	fields := []string{"CONFIGURE"}
	if settings.BallType != "" {
		fields = append(fields, "ball_type="+settings.BallType)
	}
	if settings.TeeHeight != nil {
		fields = append(fields, "tee_height_m="+formatDistance(*settings.TeeHeight))
	}
	if settings.Range != nil {
		fields = append(fields, "range_m="+formatDistance(*settings.Range))
	}
	if settings.SurfaceHeight != nil {
		fields = append(fields, "surface_height_m="+formatDistance(*settings.SurfaceHeight))
	}
	if settings.TrackPct != nil {
		fields = append(fields, "track_pct="+strconv.FormatFloat(*settings.TrackPct, 'f', 2, 64))
	}
	return c.writeLine(strings.Join(fields, " "))
}

// Arm sends an ARM frame for the given detection mode.
func (c *wireConn) Arm(ctx context.Context, mode gamestate.Mode) error {
	return c.writeLine(fmt.Sprintf("ARM mode=%s", mode))
}

func (c *wireConn) writeLine(line string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err := io.WriteString(c.conn, line+"\n")
	return err
}

// Decode blocks until one device frame line arrives, ctx is cancelled,
// or the connection errors.
func (c *wireConn) Decode(ctx context.Context) (session.Frame, error) {
	for {
		if err := ctx.Err(); err != nil {
			return session.Frame{}, err
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(readPoll))
		line, err := c.reader.ReadString('\n')
		if err != nil {
			if isTimeout(err) {
				continue
			}
			return session.Frame{}, err
		}
		frame, ok, err := parseFrame(strings.TrimSpace(line))
		if err != nil {
			return session.Frame{}, err
		}
		if !ok {
			continue
		}
		return frame, nil
	}
}

func (c *wireConn) Close() error { return c.conn.Close() }

func parseFrame(line string) (session.Frame, bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return session.Frame{}, false, nil
	}
	kv := make(map[string]string, len(fields)-1)
	for _, f := range fields[1:] {
		k, v, ok := strings.Cut(f, "=")
		if ok {
			kv[k] = v
		}
	}

	switch session.FrameKind(fields[0]) {
	case session.FrameProcessed:
		return session.Frame{Kind: session.FrameProcessed}, true, nil

	case session.FrameE8, session.FrameD4:
		ball, err := parseBall(kv)
		if err != nil {
			return session.Frame{}, false, fmt.Errorf("mevodevice: %s: %w", fields[0], err)
		}
		return session.Frame{Kind: session.FrameKind(fields[0]), Ball: &ball}, true, nil

	case session.FrameED:
		club, err := parseClub(kv)
		if err != nil {
			return session.Frame{}, false, fmt.Errorf("mevodevice: ED: %w", err)
		}
		return session.Frame{Kind: session.FrameED, Club: &club}, true, nil

	case session.FrameEF:
		spin, err := parseSpin(kv)
		if err != nil {
			return session.Frame{}, false, fmt.Errorf("mevodevice: EF: %w", err)
		}
		return session.Frame{Kind: session.FrameEF, Spin: &spin}, true, nil

	default:
		return session.Frame{}, false, nil
	}
}

func parseBall(kv map[string]string) (shot.Ball, error) {
	speed, err := floatField(kv, "speed_mps")
	if err != nil {
		return shot.Ball{}, err
	}
	carry, err := floatField(kv, "carry_m")
	if err != nil {
		return shot.Ball{}, err
	}
	total, err := floatField(kv, "total_m")
	if err != nil {
		return shot.Ball{}, err
	}
	maxHeight, err := floatField(kv, "max_height_m")
	if err != nil {
		return shot.Ball{}, err
	}
	azimuth, err := floatField(kv, "azimuth")
	if err != nil {
		return shot.Ball{}, err
	}
	elevation, err := floatField(kv, "elevation")
	if err != nil {
		return shot.Ball{}, err
	}
	backspin, err := floatField(kv, "backspin")
	if err != nil {
		return shot.Ball{}, err
	}
	sidespin, err := floatField(kv, "sidespin")
	if err != nil {
		return shot.Ball{}, err
	}

	launchSpeed, err := units.VelocityFromMPS(speed, units.MPS)
	if err != nil {
		return shot.Ball{}, err
	}
	carryDist, err := units.DistanceFromMeters(carry, units.Meter)
	if err != nil {
		return shot.Ball{}, err
	}
	totalDist, err := units.DistanceFromMeters(total, units.Meter)
	if err != nil {
		return shot.Ball{}, err
	}
	maxHeightDist, err := units.DistanceFromMeters(maxHeight, units.Meter)
	if err != nil {
		return shot.Ball{}, err
	}

	return shot.Ball{
		LaunchSpeed:     launchSpeed,
		LaunchAzimuth:   azimuth,
		LaunchElevation: elevation,
		Carry:           carryDist,
		Total:           totalDist,
		MaxHeight:       maxHeightDist,
		BackspinRPM:     backspin,
		SidespinRPM:     sidespin,
	}, nil
}

func parseClub(kv map[string]string) (shot.Club, error) {
	clubSpeed, err := floatField(kv, "club_speed_mps")
	if err != nil {
		return shot.Club{}, err
	}
	path, err := floatField(kv, "path")
	if err != nil {
		return shot.Club{}, err
	}
	attackAngle, err := floatField(kv, "attack_angle")
	if err != nil {
		return shot.Club{}, err
	}
	faceAngle, err := floatField(kv, "face_angle")
	if err != nil {
		return shot.Club{}, err
	}
	dynamicLoft, err := floatField(kv, "dynamic_loft")
	if err != nil {
		return shot.Club{}, err
	}
	smashFactor, err := floatField(kv, "smash_factor")
	if err != nil {
		return shot.Club{}, err
	}
	postImpactSpeed, err := floatField(kv, "post_impact_speed_mps")
	if err != nil {
		return shot.Club{}, err
	}
	clubOffset, err := floatField(kv, "club_offset_m")
	if err != nil {
		return shot.Club{}, err
	}

	speed, err := units.VelocityFromMPS(clubSpeed, units.MPS)
	if err != nil {
		return shot.Club{}, err
	}
	postImpact, err := units.VelocityFromMPS(postImpactSpeed, units.MPS)
	if err != nil {
		return shot.Club{}, err
	}
	offset, err := units.DistanceFromMeters(clubOffset, units.Meter)
	if err != nil {
		return shot.Club{}, err
	}

	return shot.Club{
		ClubSpeed:           speed,
		Path:                path,
		AttackAngle:         attackAngle,
		FaceAngle:           faceAngle,
		DynamicLoft:         dynamicLoft,
		SmashFactor:         smashFactor,
		PostImpactClubSpeed: postImpact,
		ClubOffset:          offset,
	}, nil
}

func parseSpin(kv map[string]string) (shot.Spin, error) {
	totalRPM, err := floatField(kv, "total_rpm")
	if err != nil {
		return shot.Spin{}, err
	}
	axisDeg, err := floatField(kv, "axis_deg")
	if err != nil {
		return shot.Spin{}, err
	}
	return shot.Spin{TotalRPM: totalRPM, AxisDeg: axisDeg}, nil
}

func floatField(kv map[string]string, key string) (float64, error) {
	v, ok := kv[key]
	if !ok {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("field %s: %w", key, err)
	}
	return f, nil
}

func formatDistance(d units.Distance) string {
	meters, err := d.Meters()
	if err != nil {
		return "0"
	}
	return strconv.FormatFloat(meters, 'f', 4, 64)
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}
