// Package system implements SystemActor: the always-on supervisor that
// holds the sole write handle onto authoritative game state and the
// cached configuration, and serially processes game_state_command and
// config_command bus events.
package system

import (
	"context"
	"sync"
	"time"

	"github.com/flighthook/flighthook/internal/actor"
	"github.com/flighthook/flighthook/internal/bus"
	"github.com/flighthook/flighthook/internal/config"
	"github.com/flighthook/flighthook/internal/ferrors"
	"github.com/flighthook/flighthook/internal/gamestate"
	"github.com/flighthook/flighthook/internal/log"
	"github.com/flighthook/flighthook/internal/reconcile"
	"github.com/rs/zerolog"
)

// pollInterval is how often System checks the bus for new commands. It
// mirrors the session package's poll cadence rather than blocking on
// Receiver.Poll, since Poll is non-blocking by design.
const pollInterval = 20 * time.Millisecond

// System is the SystemActor. It is constructed once per process,
// before any config-driven actor, and registered under actor.SystemID
// where the reconciler never touches it.
type System struct {
	writer     gamestate.Writer
	loader     *config.Loader
	reconciler *reconcile.Reconciler

	cfgMu    sync.RWMutex
	cfg      *config.FlighthookConfig
	resolved config.Resolved

	watcher  *config.Watcher
	cancel   context.CancelFunc
	stopOnce sync.Once
}

// New constructs a SystemActor. initial is the already-loaded (or
// zero-value, for a fresh install) configuration. Its resolved form is
// cached immediately so Start's initial reconcile brings up
// config-driven actors without waiting for a first edit.
func New(writer gamestate.Writer, loader *config.Loader, reconciler *reconcile.Reconciler, initial *config.FlighthookConfig) (*System, error) {
	if initial == nil {
		initial = &config.FlighthookConfig{}
	}
	resolved, err := config.Resolve(initial)
	if err != nil {
		return nil, err
	}
	return &System{
		writer:     writer,
		loader:     loader,
		reconciler: reconciler,
		cfg:        initial,
		resolved:   resolved,
	}, nil
}

// Start runs SystemActor's event loop until ctx is cancelled or Stop is
// called. The state parameter is unused: System already holds the sole
// Writer and never needs to read back through a Reader.
func (s *System) Start(ctx context.Context, _ *gamestate.Reader, sender *bus.Sender, receiver *bus.Receiver) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	defer cancel()

	logger := log.WithComponent("system")

	if s.loader != nil && s.loader.Path != "" {
		s.watcher = config.NewWatcher(s.loader.Path, s.loader, func(a config.Action) {
			_ = sender.Send(bus.ConfigCommandEvent{Action: a}, nil)
		})
		if err := s.watcher.Start(ctx); err != nil {
			logger.Warn().Err(err).Msg("config watcher failed to start")
		}
	}

	if _, err := s.reconciler.Reconcile(ctx, s.resolved); err != nil {
		logger.Error().Err(err).Msg("initial reconcile failed")
	}

	poll := time.NewTicker(pollInterval)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-poll.C:
			env, err := receiver.Poll()
			if err != nil {
				continue
			}
			switch ev := env.Event.(type) {
			case bus.GameStateCommandEvent:
				s.handleGameStateCommand(ev, sender, logger)
			case bus.ConfigCommandEvent:
				s.handleConfigCommand(ctx, ev, sender, logger)
			}
		}
	}
}

func (s *System) handleGameStateCommand(ev bus.GameStateCommandEvent, sender *bus.Sender, logger zerolog.Logger) {
	switch ev.CommandKind {
	case bus.CommandSetPlayerInfo:
		snap := s.writer.SetPlayerInfo(gamestate.PlayerInfo{Name: ev.PlayerName, Handed: ev.PlayerHand})
		publishSnapshot(snap, sender)

	case bus.CommandSetClubInfo:
		snap := s.writer.SetClubInfo(gamestate.ClubInfo{Club: ev.Club})
		publishSnapshot(snap, sender)

		// Mode is always a consequence of club selection, never set
		// directly by an integration.
		mode := s.currentConfig().DetectMode(ev.Club)
		_ = sender.Send(bus.GameStateCommandEvent{CommandKind: bus.CommandSetMode, Mode: mode}, nil)

	case bus.CommandSetMode:
		snap := s.writer.SetMode(gamestate.Mode(ev.Mode))
		publishSnapshot(snap, sender)

	default:
		logger.Warn().Str("command_kind", string(ev.CommandKind)).Msg("unknown game_state_command kind")
	}
}

func publishSnapshot(snap gamestate.State, sender *bus.Sender) {
	out := bus.GameStateSnapshotEvent{}
	if snap.PlayerInfo != nil {
		out.PlayerName = snap.PlayerInfo.Name
		out.PlayerHand = snap.PlayerInfo.Handed
	}
	if snap.ClubInfo != nil {
		out.Club = snap.ClubInfo.Club
	}
	if snap.Mode != nil {
		out.Mode = string(*snap.Mode)
	}
	_ = sender.Send(out, nil)
}

// handleConfigCommand applies ev's action to a cloned config, persists
// it, reconciles the running actor set, and (if a request was
// correlated) publishes the matching config_outcome. Every failure path
// still reports a config_outcome when RequestID is set, so an HTTP
// caller blocked on the reply never simply times out for a reason it
// could have been told about directly.
func (s *System) handleConfigCommand(ctx context.Context, ev bus.ConfigCommandEvent, sender *bus.Sender, logger zerolog.Logger) {
	fail := func(err error) {
		logger.Warn().Err(err).Str(log.FieldRequestID, ev.RequestID).Msg("config_command failed")
		_ = sender.Send(ferrors.Alert(ferrors.Config, err), nil)
		if ev.RequestID != "" {
			_ = sender.Send(bus.ConfigOutcomeEvent{RequestID: ev.RequestID, Error: err.Error()}, nil)
		}
	}

	newCfg := s.currentConfig().Clone()
	if err := config.Apply(newCfg, ev.Action); err != nil {
		fail(err)
		return
	}

	newResolved, err := config.Resolve(newCfg)
	if err != nil {
		fail(err)
		return
	}

	if s.loader != nil && s.loader.Path != "" {
		if err := s.loader.Persist(newCfg); err != nil {
			fail(err)
			return
		}
	}

	restartRequired := config.WebserverBindDiff(s.resolved, newResolved)

	result, err := s.reconciler.Reconcile(ctx, newResolved)
	if err != nil {
		fail(err)
		return
	}

	s.cfgMu.Lock()
	s.cfg = newCfg
	s.resolved = newResolved
	s.cfgMu.Unlock()

	_ = sender.Send(bus.ConfigChangedEvent{}, nil)

	if ev.RequestID != "" {
		_ = sender.Send(bus.ConfigOutcomeEvent{
			RequestID:       ev.RequestID,
			Started:         result.Started,
			Stopped:         result.Stopped,
			Restarted:       result.Restarted,
			RestartRequired: restartRequired,
		}, nil)
	}
}

// Stop is idempotent; it stops the config watcher and cancels the run
// loop.
func (s *System) Stop() {
	s.stopOnce.Do(func() {
		if s.watcher != nil {
			s.watcher.Stop()
		}
		if s.cancel != nil {
			s.cancel()
		}
	})
}

// Reconfigure is never called: actor.SystemID is excluded from the
// reconciler's retained-actor set by construction.
func (s *System) Reconfigure(section any) (actor.Verdict, error) {
	return actor.NoChange, nil
}

// Snapshot exposes the cached resolved config for callers outside the
// bus loop (e.g. the HTTP status/settings handlers), which read the
// config the same way gamestate.Reader reads game state: consistently,
// without participating in the serial command path.
func (s *System) Snapshot() (*config.FlighthookConfig, config.Resolved) {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg.Clone(), s.resolved
}

func (s *System) currentConfig() *config.FlighthookConfig {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg
}
