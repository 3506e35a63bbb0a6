// Package wsbridge implements the WebSocket bridge: a per-connection
// lifecycle that mirrors bus traffic out to a third-party client as
// JSON text frames and translates its mode selections back onto the
// bus.
package wsbridge

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/flighthook/flighthook/internal/bus"
	"github.com/flighthook/flighthook/internal/gamestate"
	"github.com/flighthook/flighthook/internal/log"
)

const (
	pollInterval = 20 * time.Millisecond
	writeTimeout = 3 * time.Second
	startTimeout = 30 * time.Second
	readTimeout  = 30 * time.Second
)

type startFrame struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

type initFrame struct {
	Type        string          `json:"type"`
	SourceID    string          `json:"source_id"`
	GlobalState gamestate.State `json:"global_state"`
}

type clientFrame struct {
	Cmd  string `json:"cmd"`
	Mode string `json:"mode"`
}

// Handler returns the GET /api/ws handler for one bus/game-state pair.
// Each accepted connection gets its own source ID, subscription, and
// pair of reader/writer goroutines; the handler blocks until the
// connection closes.
func Handler(b *bus.Bus, state *gamestate.Reader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusInternalError, "closing")

		sourceID, err := newSourceID()
		if err != nil {
			conn.Close(websocket.StatusInternalError, "source id generation failed")
			return
		}
		logger := log.WithComponent("wsbridge").With().Str(log.FieldGlobalID, sourceID).Logger()

		if !awaitStart(r.Context(), conn) {
			conn.Close(websocket.StatusNormalClosure, "no start frame")
			return
		}

		sender := b.NewSender(sourceID)
		receiver := sender.Subscribe(nil)
		defer receiver.Close()

		if err := writeInit(r.Context(), conn, sourceID, state); err != nil {
			logger.Warn().Err(err).Msg("failed to write init frame")
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		done := make(chan struct{})
		go func() {
			defer close(done)
			writeLoop(ctx, conn, receiver)
		}()

		readLoop(ctx, conn, sender, logger)
		cancel()
		<-done
	}
}

// newSourceID draws an 8-hex-digit ID from a CSPRNG, prefixed per the
// bridge's `ws.{8-hex}` global ID scheme.
func newSourceID() (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("wsbridge: source id: %w", err)
	}
	return "ws." + hex.EncodeToString(buf), nil
}

// awaitStart discards every frame until a {"type":"start"} frame
// arrives, `close` arrives, or the connection errors.
func awaitStart(ctx context.Context, conn *websocket.Conn) bool {
	for {
		readCtx, cancel := context.WithTimeout(ctx, startTimeout)
		_, data, err := conn.Read(readCtx)
		cancel()
		if err != nil {
			return false
		}
		var frame startFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		switch frame.Type {
		case "start":
			return true
		case "close":
			return false
		default:
			continue
		}
	}
}

func writeInit(ctx context.Context, conn *websocket.Conn, sourceID string, state *gamestate.Reader) error {
	payload, err := json.Marshal(initFrame{
		Type:        "init",
		SourceID:    sourceID,
		GlobalState: state.Snapshot(),
	})
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, payload)
}

// writeLoop forwards every envelope this connection observes as one
// JSON text frame, in the order the bus delivered it.
func writeLoop(ctx context.Context, conn *websocket.Conn, receiver *bus.Receiver) {
	poll := time.NewTicker(pollInterval)
	defer poll.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-poll.C:
			env, err := receiver.Poll()
			if err != nil {
				continue
			}
			payload, err := json.Marshal(env)
			if err != nil {
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			werr := conn.Write(writeCtx, websocket.MessageText, payload)
			cancel()
			if werr != nil {
				return
			}
		}
	}
}

// readLoop translates inbound client command frames onto the bus until
// the connection closes or ctx is cancelled.
func readLoop(ctx context.Context, conn *websocket.Conn, sender *bus.Sender, logger zerolog.Logger) {
	for {
		readCtx, cancel := context.WithTimeout(ctx, readTimeout)
		_, data, err := conn.Read(readCtx)
		cancel()
		if err != nil {
			return
		}
		var frame clientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			logger.Debug().Err(err).Msg("discarding malformed client frame")
			continue
		}
		if frame.Cmd != "mode" {
			continue
		}
		_ = sender.Send(bus.GameStateCommandEvent{
			CommandKind: bus.CommandSetMode,
			Mode:        frame.Mode,
		}, nil)
	}
}
