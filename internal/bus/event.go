package bus

import (
	"github.com/flighthook/flighthook/internal/config"
	"github.com/flighthook/flighthook/internal/shot"
)

// Kind discriminates the Event tagged union carried by every Envelope.
type Kind string

const (
	KindLaunchMonitor    Kind = "launch_monitor"
	KindActorStatus      Kind = "actor_status"
	KindConfigChanged    Kind = "config_changed"
	KindGameStateCommand Kind = "game_state_command"
	KindGameStateSnapshot Kind = "game_state_snapshot"
	KindUserData         Kind = "user_data"
	KindConfigCommand    Kind = "config_command"
	KindConfigOutcome    Kind = "config_outcome"
	KindAlert            Kind = "alert"
)

// Event is implemented by every concrete FlighthookEvent variant.
type Event interface {
	Kind() Kind
}

// LaunchMonitorEvent carries either a completed shot or a ready-state
// transition from a launch-monitor session. Exactly one of ShotData or
// ReadyState is populated.
type LaunchMonitorEvent struct {
	ShotData   *shot.Data        `json:"shot_data,omitempty"`
	ReadyState *shot.ReadyState  `json:"ready_state,omitempty"`
}

func (LaunchMonitorEvent) Kind() Kind { return KindLaunchMonitor }

// ActorStatus enumerates the lifecycle states a supervised actor
// reports about its external connection (device, simulator, etc).
type ActorStatus string

const (
	StatusStarting     ActorStatus = "starting"
	StatusDisconnected ActorStatus = "disconnected"
	StatusConnected    ActorStatus = "connected"
	StatusReconnecting ActorStatus = "reconnecting"
)

// ActorStatusEvent reports a status transition plus free-form telemetry
// (e.g. firmware version, reconnect attempt count).
type ActorStatusEvent struct {
	Status    ActorStatus       `json:"status"`
	Telemetry map[string]string `json:"telemetry,omitempty"`
}

func (ActorStatusEvent) Kind() Kind { return KindActorStatus }

// ConfigChangedEvent announces that a device-facing session's settings
// were (re)applied, carrying the settings snapshot that is now live.
type ConfigChangedEvent struct {
	Settings map[string]string `json:"settings,omitempty"`
}

func (ConfigChangedEvent) Kind() Kind { return KindConfigChanged }

// GameStateCommandKind discriminates the game_state_command sub-variants.
type GameStateCommandKind string

const (
	CommandSetPlayerInfo GameStateCommandKind = "set_player_info"
	CommandSetClubInfo   GameStateCommandKind = "set_club_info"
	CommandSetMode       GameStateCommandKind = "set_mode"
)

// GameStateCommandEvent requests a mutation of the authoritative game
// state. Only the field matching CommandKind is populated.
type GameStateCommandEvent struct {
	CommandKind GameStateCommandKind `json:"type"`
	PlayerName  string               `json:"player_name,omitempty"`
	PlayerHand  string               `json:"player_hand,omitempty"`
	Club        string               `json:"club,omitempty"`
	Mode        string               `json:"mode,omitempty"`
}

func (GameStateCommandEvent) Kind() Kind { return KindGameStateCommand }

// GameStateSnapshotEvent is published after every accepted game-state
// mutation, carrying the full resulting state.
type GameStateSnapshotEvent struct {
	PlayerName string `json:"player_name,omitempty"`
	PlayerHand string `json:"player_hand,omitempty"`
	Club       string `json:"club,omitempty"`
	Mode       string `json:"mode,omitempty"`
}

func (GameStateSnapshotEvent) Kind() Kind { return KindGameStateSnapshot }

// UserDataEvent carries an opaque payload relayed from a third-party
// WebSocket client, addressed to no particular actor.
type UserDataEvent struct {
	Payload []byte `json:"payload"`
}

func (UserDataEvent) Kind() Kind { return KindUserData }

// ConfigCommandEvent carries a configuration mutation request. RequestID
// is optional; when set, a matching ConfigOutcomeEvent is published once
// the mutation and any resulting reconciliation completes.
type ConfigCommandEvent struct {
	RequestID string        `json:"request_id,omitempty"`
	Action    config.Action `json:"action"`
}

func (ConfigCommandEvent) Kind() Kind { return KindConfigCommand }

// ConfigOutcomeEvent acknowledges a ConfigCommandEvent by RequestID.
type ConfigOutcomeEvent struct {
	RequestID       string   `json:"request_id,omitempty"`
	Started         []string `json:"started,omitempty"`
	Stopped         []string `json:"stopped,omitempty"`
	Restarted       []string `json:"restarted,omitempty"`
	RestartRequired bool     `json:"restart_required"`
	Error           string   `json:"error,omitempty"`
}

func (ConfigOutcomeEvent) Kind() Kind { return KindConfigOutcome }

// AlertSeverity discriminates AlertEvent severities.
type AlertSeverity string

const (
	AlertWarn  AlertSeverity = "warn"
	AlertError AlertSeverity = "error"
)

// AlertEvent is a user-visible, free-text notification.
type AlertEvent struct {
	Severity AlertSeverity `json:"severity"`
	Message  string        `json:"message"`
}

func (AlertEvent) Kind() Kind { return KindAlert }
