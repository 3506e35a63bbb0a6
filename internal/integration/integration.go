// Package integration implements the simulator integration bridge
// actor: an outbound TCP client that forwards routed shots to a
// simulator and translates its club selections back onto the bus.
package integration

import (
	"context"
	"sync"
	"time"

	"github.com/flighthook/flighthook/internal/actor"
	"github.com/flighthook/flighthook/internal/bus"
	"github.com/flighthook/flighthook/internal/config"
	"github.com/flighthook/flighthook/internal/ferrors"
	"github.com/flighthook/flighthook/internal/gamestate"
	"github.com/flighthook/flighthook/internal/integration/lineproto"
	"github.com/flighthook/flighthook/internal/log"
)

const (
	pollInterval = 20 * time.Millisecond
	backoffBase  = 500 * time.Millisecond
	backoffCap   = 30 * time.Second
)

// Client is the simulator-facing half of one integration connection.
// lineproto.Conn satisfies it directly.
type Client interface {
	WriteShot(msg lineproto.ShotMessage) error
	ReadClub(ctx context.Context) (lineproto.ClubMessage, error)
	Close() error
}

// Connector opens a new Client connection to address.
type Connector func(ctx context.Context, address string) (Client, error)

// DialConnector is the default Connector, speaking lineproto over TCP.
func DialConnector(ctx context.Context, address string) (Client, error) {
	return lineproto.Dial(ctx, address)
}

// Integration is the Actor implementation for one `[gspro.N]` section.
type Integration struct {
	globalID string
	name     string
	address  string
	connect  Connector

	mu              sync.Mutex // guards the routing fields and sender below
	fullMonitor     string
	chippingMonitor string
	puttingMonitor  string
	sender          *bus.Sender // set once Start has been entered; used by Reconfigure to broadcast config_changed

	stopOnce sync.Once
	cancel   context.CancelFunc
}

// New constructs an Integration actor.
func New(globalID, name, address string, connect Connector, full, chipping, putting string) *Integration {
	return &Integration{
		globalID:        globalID,
		name:            name,
		address:         address,
		connect:         connect,
		fullMonitor:     full,
		chippingMonitor: chipping,
		puttingMonitor:  putting,
	}
}

func (i *Integration) routing() (full, chipping, putting string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.fullMonitor, i.chippingMonitor, i.puttingMonitor
}

// Start connects to the simulator, reconnecting with exponential
// backoff on any failure, forwarding routed shots and translating
// inbound club selections until ctx is cancelled or Stop is called.
func (i *Integration) Start(ctx context.Context, state *gamestate.Reader, sender *bus.Sender, receiver *bus.Receiver) error {
	ctx, cancel := context.WithCancel(ctx)
	i.cancel = cancel
	defer cancel()

	i.mu.Lock()
	i.sender = sender
	i.mu.Unlock()

	logger := log.WithComponent("integration").With().Str(log.FieldGlobalID, i.globalID).Logger()
	var delay time.Duration

	publishStatus := func(status bus.ActorStatus, telemetry map[string]string) {
		_ = sender.Send(bus.ActorStatusEvent{Status: status, Telemetry: telemetry}, nil)
	}
	publishAlert := func(kind ferrors.Kind, err error) {
		_ = sender.Send(ferrors.Alert(kind, err), nil)
	}

	sleepBackoff := func() bool {
		if delay <= 0 {
			delay = backoffBase
		} else {
			delay *= 2
			if delay > backoffCap {
				delay = backoffCap
			}
		}
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		client, err := i.connect(ctx, i.address)
		if err != nil {
			logger.Warn().Err(err).Msg("connect failed")
			publishStatus(bus.StatusDisconnected, map[string]string{"error": err.Error()})
			publishAlert(ferrors.Transport, err)
			if !sleepBackoff() {
				return nil
			}
			continue
		}
		delay = 0
		publishStatus(bus.StatusConnected, nil)

		if err := i.runConnected(ctx, client, state, sender, receiver); err != nil {
			_ = client.Close()
			logger.Warn().Err(err).Msg("integration connection lost, reconnecting")
			publishStatus(bus.StatusDisconnected, map[string]string{"error": err.Error()})
			publishAlert(ferrors.Transport, err)
			if !sleepBackoff() {
				return nil
			}
			continue
		}
		_ = client.Close()
	}
}

func (i *Integration) runConnected(ctx context.Context, client Client, state *gamestate.Reader, sender *bus.Sender, receiver *bus.Receiver) error {
	clubs := make(chan lineproto.ClubMessage, 4)
	errs := make(chan error, 1)
	go func() {
		for {
			msg, err := client.ReadClub(ctx)
			if err != nil {
				select {
				case errs <- err:
				default:
				}
				return
			}
			select {
			case clubs <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	poll := time.NewTicker(pollInterval)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errs:
			return err
		case msg := <-clubs:
			_ = sender.Send(bus.GameStateCommandEvent{CommandKind: bus.CommandSetClubInfo, Club: msg.Club}, nil)
			_ = sender.Send(bus.ActorStatusEvent{
				Status:    bus.StatusConnected,
				Telemetry: map[string]string{"club": msg.Club, "handed": msg.Handed},
			}, nil)

		case <-poll.C:
			env, err := receiver.Poll()
			if err != nil {
				continue
			}
			lm, ok := env.Event.(bus.LaunchMonitorEvent)
			if !ok || lm.ShotData == nil {
				continue
			}
			if !i.routes(env.Source, state.CurrentMode()) {
				continue
			}
			if err := client.WriteShot(lineproto.ShotMessage{
				Source:     lm.ShotData.Source,
				ShotNumber: lm.ShotData.ShotNumber,
				Data:       *lm.ShotData,
			}); err != nil {
				return err
			}
		}
	}
}

// routes implements the §4.6 filter rule: deliver iff the integration
// has a {mode}_monitor equal to src, or has none set at all (wildcard).
func (i *Integration) routes(src string, mode gamestate.Mode) bool {
	full, chipping, putting := i.routing()
	var monitor string
	switch mode {
	case gamestate.ModeChipping:
		monitor = chipping
	case gamestate.ModePutting:
		monitor = putting
	default:
		monitor = full
	}
	return monitor == "" || monitor == src
}

// Stop is idempotent; it cancels the run loop.
func (i *Integration) Stop() {
	i.stopOnce.Do(func() {
		if i.cancel != nil {
			i.cancel()
		}
	})
}

// Reconfigure applies an updated GsProSection in place: routing fields
// can change without a restart, but a changed address requires
// reconnecting to a different simulator entirely.
func (i *Integration) Reconfigure(section any) (actor.Verdict, error) {
	sect, ok := section.(config.GsProSection)
	if !ok {
		return actor.NoChange, nil
	}
	if sect.Address != i.address {
		return actor.RestartRequired, nil
	}
	i.mu.Lock()
	i.fullMonitor = sect.FullMonitor
	i.chippingMonitor = sect.ChippingMonitor
	i.puttingMonitor = sect.PuttingMonitor
	sender := i.sender
	settings := map[string]string{
		"full_monitor":     i.fullMonitor,
		"chipping_monitor": i.chippingMonitor,
		"putting_monitor":  i.puttingMonitor,
	}
	i.mu.Unlock()

	if sender != nil {
		_ = sender.Send(bus.ConfigChangedEvent{Settings: settings}, nil)
	}
	return actor.Applied, nil
}
