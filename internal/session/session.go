// Package session implements the launch-monitor actor: the
// connect/handshake/configure/arm/shoot state machine, its exponential
// reconnect backoff, and the per-shot frame accumulator.
package session

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/flighthook/flighthook/internal/actor"
	"github.com/flighthook/flighthook/internal/bus"
	"github.com/flighthook/flighthook/internal/config"
	"github.com/flighthook/flighthook/internal/ferrors"
	"github.com/flighthook/flighthook/internal/fsm"
	"github.com/flighthook/flighthook/internal/gamestate"
	"github.com/flighthook/flighthook/internal/log"
	"github.com/flighthook/flighthook/internal/metrics"
)

type state string

const (
	stateConnecting   state = "connecting"
	stateHandshaking  state = "handshaking"
	stateConfiguring  state = "configuring"
	stateArming       state = "arming"
	stateArmed        state = "armed"
	stateShooting     state = "shooting"
	stateReconnecting state = "reconnecting"
	stateDisconnected state = "disconnected"
)

type event string

const (
	evConnectOK     event = "connect_ok"
	evHandshakeOK   event = "handshake_ok"
	evConfigureOK   event = "configure_ok"
	evArmOK         event = "arm_ok"
	evShotDetected  event = "shot_detected"
	evShotDone      event = "shot_done"
	evModeChange    event = "mode_change"
	evConnError     event = "conn_error"
	evReconnectTick event = "reconnect_tick"
)

func transitions() []fsm.Transition[state, event] {
	retryable := []state{stateConnecting, stateHandshaking, stateConfiguring, stateArming, stateArmed, stateShooting}
	ts := []fsm.Transition[state, event]{
		{From: stateConnecting, Event: evConnectOK, To: stateHandshaking},
		{From: stateHandshaking, Event: evHandshakeOK, To: stateConfiguring},
		{From: stateConfiguring, Event: evConfigureOK, To: stateArming},
		{From: stateArming, Event: evArmOK, To: stateArmed},
		{From: stateArmed, Event: evShotDetected, To: stateShooting},
		{From: stateShooting, Event: evShotDone, To: stateArmed},
		{From: stateArmed, Event: evModeChange, To: stateArming},
		{From: stateDisconnected, Event: evReconnectTick, To: stateReconnecting},
		{From: stateReconnecting, Event: evConnectOK, To: stateHandshaking},
		{From: stateReconnecting, Event: evConnError, To: stateDisconnected},
	}
	for _, s := range retryable {
		ts = append(ts, fsm.Transition[state, event]{From: s, Event: evConnError, To: stateDisconnected})
	}
	return ts
}

// externalStatus maps an internal state to the spec's ActorStatus.
func externalStatus(s state) (bus.ActorStatus, map[string]string) {
	switch s {
	case stateConnecting, stateHandshaking, stateConfiguring, stateArming:
		return bus.StatusStarting, nil
	case stateArmed:
		return bus.StatusConnected, map[string]string{"armed": "true"}
	case stateShooting:
		return bus.StatusConnected, map[string]string{"shooting": "true"}
	case stateReconnecting:
		return bus.StatusReconnecting, nil
	default:
		return bus.StatusDisconnected, nil
	}
}

// Session is the Actor implementation for a single configured launch
// monitor (e.g. one `[mevo.N]` or `[mock_monitor.N]` section).
type Session struct {
	globalID string
	name     string
	address  string
	connect  Connector

	mu       sync.Mutex // guards settings/policy/mode/sender: read by the run loop, written by Reconfigure
	settings Settings
	policy   config.UsePartialPolicy
	mode     gamestate.Mode
	sender   *bus.Sender // set once Start has been entered; used by Reconfigure to broadcast config_changed

	stopOnce sync.Once
	cancel   context.CancelFunc
}

// New constructs a Session actor. connect opens the underlying device
// connection (mockdevice.Connect for mock_monitor, a real driver
// otherwise); address is passed through to it unchanged.
func New(globalID, name, address string, connect Connector, settings Settings, policy config.UsePartialPolicy, initialMode gamestate.Mode) *Session {
	return &Session{
		globalID: globalID,
		name:     name,
		address:  address,
		connect:  connect,
		settings: settings,
		policy:   policy,
		mode:     initialMode,
	}
}

func (s *Session) currentMode() gamestate.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *Session) setMode(m gamestate.Mode) {
	s.mu.Lock()
	s.mode = m
	s.mu.Unlock()
}

func (s *Session) currentSettings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

func (s *Session) currentPolicy() config.UsePartialPolicy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.policy
}

// Start runs the session's full lifecycle: connect, handshake,
// configure, arm, then read frames until ctx is cancelled or Stop is
// called, reconnecting with exponential backoff on any connection
// error.
func (s *Session) Start(ctx context.Context, _ *gamestate.Reader, sender *bus.Sender, receiver *bus.Receiver) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	defer cancel()

	s.mu.Lock()
	s.sender = sender
	s.mu.Unlock()

	logger := log.WithComponent("session").With().Str(log.FieldGlobalID, s.globalID).Logger()
	machine, err := fsm.New(stateConnecting, transitions())
	if err != nil {
		return err
	}
	acc := newAccumulator(s.globalID)
	var bo backoff

	publishStatus := func(st state) {
		status, telemetry := externalStatus(st)
		metrics.SetActorStatus(s.globalID, string(status))
		_ = sender.Send(bus.ActorStatusEvent{Status: status, Telemetry: telemetry}, nil)
	}
	publishAlert := func(kind ferrors.Kind, err error) {
		_ = sender.Send(ferrors.Alert(kind, err), nil)
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		conn, err := s.connect(ctx, s.address)
		if err != nil {
			logger.Warn().Err(err).Msg("connect failed")
			_, _ = machine.Fire(ctx, evConnError)
			publishStatus(stateDisconnected)
			publishAlert(ferrors.Transport, err)
			if !s.sleepBackoff(ctx, &bo) {
				return nil
			}
			_, _ = machine.Fire(ctx, evReconnectTick)
			continue
		}
		bo.reset()

		if _, err := machine.Fire(ctx, evConnectOK); err != nil {
			_ = conn.Closer.Close()
			continue
		}
		publishStatus(stateHandshaking)

		if _, err := machine.Fire(ctx, evHandshakeOK); err != nil {
			_ = conn.Closer.Close()
			continue
		}
		publishStatus(stateConfiguring)

		if err := conn.Encoder.Configure(ctx, s.currentSettings()); err != nil {
			logger.Warn().Err(err).Msg("configure failed")
			_, _ = machine.Fire(ctx, evConnError)
			_ = conn.Closer.Close()
			publishStatus(stateDisconnected)
			publishAlert(ferrors.Protocol, err)
			if !s.sleepBackoff(ctx, &bo) {
				return nil
			}
			_, _ = machine.Fire(ctx, evReconnectTick)
			continue
		}
		if _, err := machine.Fire(ctx, evConfigureOK); err != nil {
			_ = conn.Closer.Close()
			continue
		}
		publishStatus(stateArming)

		if err := conn.Encoder.Arm(ctx, s.currentMode()); err != nil {
			logger.Warn().Err(err).Msg("arm failed")
			_, _ = machine.Fire(ctx, evConnError)
			_ = conn.Closer.Close()
			publishStatus(stateDisconnected)
			publishAlert(ferrors.Protocol, err)
			if !s.sleepBackoff(ctx, &bo) {
				return nil
			}
			_, _ = machine.Fire(ctx, evReconnectTick)
			continue
		}
		if _, err := machine.Fire(ctx, evArmOK); err != nil {
			_ = conn.Closer.Close()
			continue
		}
		publishStatus(stateArmed)

		if err := s.runArmed(ctx, machine, acc, conn, sender, receiver, publishStatus); err != nil {
			_ = conn.Closer.Close()
			_, _ = machine.Fire(ctx, evConnError)
			logger.Warn().Err(err).Msg("session error while armed, reconnecting")
			publishStatus(stateDisconnected)
			publishAlert(ferrors.WireProtocol, err)
			if !s.sleepBackoff(ctx, &bo) {
				return nil
			}
			_, _ = machine.Fire(ctx, evReconnectTick)
			continue
		}
		_ = conn.Closer.Close()
	}
}

// runArmed reads frames and bus commands until a connection error
// occurs or ctx is cancelled (a nil return).
func (s *Session) runArmed(ctx context.Context, machine *fsm.Machine[state, event], acc *accumulator, conn Connection, sender *bus.Sender, receiver *bus.Receiver, publishStatus func(state)) error {
	frames := make(chan Frame, 16)
	errs := make(chan error, 1)
	go func() {
		for {
			f, err := conn.Decoder.Decode(ctx)
			if err != nil {
				select {
				case errs <- err:
				default:
				}
				return
			}
			select {
			case frames <- f:
			case <-ctx.Done():
				return
			}
		}
	}()

	poll := time.NewTicker(20 * time.Millisecond)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errs:
			return err
		case f := <-frames:
			if f.Kind == FrameProcessed {
				if data, ok := acc.Feed(f, s.currentPolicy(), s.currentMode()); ok {
					_, _ = machine.Fire(ctx, evShotDetected)
					publishStatus(stateShooting)
					metrics.IncShot(data.Source, data.Estimated)
					_ = sender.Send(bus.LaunchMonitorEvent{ShotData: &data}, nil)
					_, _ = machine.Fire(ctx, evShotDone)
					publishStatus(stateArmed)
				}
				continue
			}
			acc.Feed(f, s.currentPolicy(), s.currentMode())
		case <-poll.C:
			env, err := receiver.Poll()
			if err != nil {
				continue
			}
			if cmd, ok := env.Event.(bus.GameStateCommandEvent); ok && cmd.CommandKind == bus.CommandSetMode {
				s.setMode(gamestate.Mode(cmd.Mode))
				if _, err := machine.Fire(ctx, evModeChange); err == nil {
					publishStatus(stateArming)
					if err := conn.Encoder.Arm(ctx, s.currentMode()); err != nil {
						return err
					}
					if _, err := machine.Fire(ctx, evArmOK); err != nil {
						return err
					}
					publishStatus(stateArmed)
				}
			}
		}
	}
}

// sleepBackoff waits the next backoff interval, returning false if ctx
// is cancelled first.
func (s *Session) sleepBackoff(ctx context.Context, bo *backoff) bool {
	timer := time.NewTimer(bo.next())
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// Stop is idempotent; it cancels the session's run loop.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
}

// Reconfigure applies an updated MevoSection in place: device settings
// and use_partial policy can change without a restart, but a changed
// address requires reconnecting to a different device entirely.
func (s *Session) Reconfigure(section any) (actor.Verdict, error) {
	sect, ok := section.(config.MevoSection)
	if !ok {
		return actor.NoChange, nil
	}
	if sect.Address != s.address {
		return actor.RestartRequired, nil
	}
	s.mu.Lock()
	s.settings = Settings{
		BallType:      sect.BallType,
		TeeHeight:     sect.TeeHeight,
		Range:         sect.Range,
		SurfaceHeight: sect.SurfaceHeight,
		TrackPct:      sect.TrackPct,
	}
	s.policy = sect.UsePartial
	sender := s.sender
	settings := s.settingsMapLocked()
	s.mu.Unlock()

	if sender != nil {
		_ = sender.Send(bus.ConfigChangedEvent{Settings: settings}, nil)
	}
	return actor.Applied, nil
}

// settingsMapLocked renders the live device settings and use_partial
// policy as a flat string map for ConfigChangedEvent. Callers must hold
// s.mu.
func (s *Session) settingsMapLocked() map[string]string {
	m := map[string]string{"use_partial": string(s.policy)}
	if s.settings.BallType != "" {
		m["ball_type"] = s.settings.BallType
	}
	if s.settings.TeeHeight != nil {
		if meters, err := s.settings.TeeHeight.Meters(); err == nil {
			m["tee_height_m"] = strconv.FormatFloat(meters, 'f', 4, 64)
		}
	}
	if s.settings.Range != nil {
		if meters, err := s.settings.Range.Meters(); err == nil {
			m["range_m"] = strconv.FormatFloat(meters, 'f', 4, 64)
		}
	}
	if s.settings.SurfaceHeight != nil {
		if meters, err := s.settings.SurfaceHeight.Meters(); err == nil {
			m["surface_height_m"] = strconv.FormatFloat(meters, 'f', 4, 64)
		}
	}
	if s.settings.TrackPct != nil {
		m["track_pct"] = strconv.FormatFloat(*s.settings.TrackPct, 'f', 2, 64)
	}
	return m
}
