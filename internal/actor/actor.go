// Package actor defines the supervised-actor contract shared by every
// launch-monitor session, integration bridge, WebSocket connection, and
// the webserver itself, plus the registry that tracks their lifecycles.
package actor

import (
	"context"

	"github.com/flighthook/flighthook/internal/bus"
	"github.com/flighthook/flighthook/internal/gamestate"
)

// Verdict is the result of a Reconfigure call: whether the actor
// absorbed the new configuration in place, needed no change at all, or
// requires a full stop/start cycle to apply it.
type Verdict int

const (
	NoChange Verdict = iota
	Applied
	RestartRequired
)

func (v Verdict) String() string {
	switch v {
	case NoChange:
		return "no_change"
	case Applied:
		return "applied"
	case RestartRequired:
		return "restart_required"
	default:
		return "unknown"
	}
}

// Actor is implemented by every unit the reconciler supervises: launch
// monitor sessions, simulator integrations, the webserver, and
// synthetic generators.
//
// Start is called once per lifecycle and is expected to run until ctx
// is cancelled or Stop is called; it owns its own event loop, reading
// from receiver and writing to sender. Stop must be safe to call more
// than once and must not block on Start having returned. Reconfigure
// is called by the reconciler for an actor whose spec changed but
// whose global ID did not; it reports whether the change could be
// absorbed without a restart.
type Actor interface {
	Start(ctx context.Context, state *gamestate.Reader, sender *bus.Sender, receiver *bus.Receiver) error
	Stop()
	Reconfigure(section any) (Verdict, error)
}

// Type prefixes for global actor IDs, "{type}.{index}".
const (
	TypeWebserver   = "webserver"
	TypeMevo        = "mevo"
	TypeMockMonitor = "mock_monitor"
	TypeGsPro       = "gspro"
	TypeRandomClub  = "random_club"
	TypeWebSocket   = "ws"
	TypeSystem      = "system"
)

// SystemID is the reserved global ID of the supervisor actor. It is
// never subject to reconciliation.
const SystemID = "system"
