// Package lineproto implements Flighthook's reference simulator wire
// protocol: newline-terminated, space-separated key=value frames. The
// concrete protocol any real simulator speaks is out of scope; this is
// the one reference implementation the integration bridge ships so its
// connection lifecycle and routing logic can be exercised end-to-end
// without a third-party simulator attached.
package lineproto

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

	"github.com/flighthook/flighthook/internal/shot"
)

// readPoll bounds how long a blocked ReadClub can take to notice ctx
// cancellation, mirroring every other device connection's shutdown
// latency target in this system.
const readPoll = 250 * time.Millisecond

// ShotMessage is the outbound wire shape of one shot. The reference
// protocol always speaks metric regardless of the originating launch
// monitor's configured units.
type ShotMessage struct {
	Source     string
	ShotNumber int
	Data       shot.Data
}

// ClubMessage is the inbound wire shape of a simulator-selected club.
type ClubMessage struct {
	Club   string
	Handed string
}

// Conn wraps a stream connection in the line protocol. Reads roll a
// deadline forward so ReadClub can be cancelled promptly even though
// the underlying transport has no native context support.
type Conn struct {
	conn    net.Conn
	reader  *bufio.Reader
	writeMu sync.Mutex
}

// Dial opens a TCP connection to address and wraps it.
func Dial(ctx context.Context, address string) (*Conn, error) {
	var d net.Dialer
	c, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, err
	}
	return New(c), nil
}

// New wraps an already-open connection (a real net.Conn, or a
// net.Pipe/bytes-backed stand-in in tests).
func New(c net.Conn) *Conn {
	return &Conn{conn: c, reader: bufio.NewReader(c)}
}

// WriteShot serializes and sends a SHOT frame.
func (c *Conn) WriteShot(msg ShotMessage) error {
	carry, err := msg.Data.Ball.Carry.Meters()
	if err != nil {
		return fmt.Errorf("lineproto: carry: %w", err)
	}
	total, err := msg.Data.Ball.Total.Meters()
	if err != nil {
		return fmt.Errorf("lineproto: total: %w", err)
	}
	speed, err := msg.Data.Ball.LaunchSpeed.MetersPerSecond()
	if err != nil {
		return fmt.Errorf("lineproto: launch speed: %w", err)
	}

	line := fmt.Sprintf(
		"SHOT source=%s shot_number=%d speed_mps=%s azimuth=%s elevation=%s carry_m=%s total_m=%s backspin=%s sidespin=%s estimated=%t\n",
		msg.Source, msg.ShotNumber,
		formatFloat(speed), formatFloat(msg.Data.Ball.LaunchAzimuth), formatFloat(msg.Data.Ball.LaunchElevation),
		formatFloat(carry), formatFloat(total),
		formatFloat(msg.Data.Ball.BackspinRPM), formatFloat(msg.Data.Ball.SidespinRPM),
		msg.Data.Estimated,
	)

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err = io.WriteString(c.conn, line)
	return err
}

// ReadClub blocks until a CLUB frame arrives, ctx is cancelled, or the
// connection errors. Any other line is skipped.
func (c *Conn) ReadClub(ctx context.Context) (ClubMessage, error) {
	for {
		if err := ctx.Err(); err != nil {
			return ClubMessage{}, err
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(readPoll))
		line, err := c.reader.ReadString('\n')
		if err != nil {
			if isTimeout(err) {
				continue
			}
			return ClubMessage{}, err
		}
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "CLUB ") {
			continue
		}
		return parseClub(line)
	}
}

// Close closes the underlying connection.
func (c *Conn) Close() error { return c.conn.Close() }

func parseClub(line string) (ClubMessage, error) {
	msg := ClubMessage{}
	for _, field := range strings.Fields(line)[1:] {
		k, v, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		switch k {
		case "club":
			msg.Club = v
		case "handed":
			msg.Handed = v
		}
	}
	if msg.Club == "" {
		return ClubMessage{}, fmt.Errorf("lineproto: CLUB frame missing club field: %q", line)
	}
	return msg, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}
