// Package ferrors defines Flighthook's error kinds and the propagation
// policy around them: which kinds drive a session into Reconnecting,
// which are surfaced as alert events, and which are purely logged.
package ferrors

import (
	"errors"
	"fmt"

	"github.com/flighthook/flighthook/internal/bus"
)

// Kind discriminates the abstract error categories from the error
// handling design.
type Kind string

const (
	// WireProtocol covers bad frames or checksum mismatches from a device.
	WireProtocol Kind = "wire_protocol"
	// Transport covers connect/read/write failures.
	Transport Kind = "transport"
	// Protocol covers handshake or state-machine violations.
	Protocol Kind = "protocol"
	// Config covers parse or semantic configuration failures.
	Config Kind = "config"
	// BusLag covers a subscriber falling behind and skipping messages.
	BusLag Kind = "bus_lag"
)

// Error wraps an underlying error with a Kind so callers can branch on
// category via errors.As without string matching.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a Kind-tagged error wrapping err.
func New(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Newf builds a Kind-tagged error from a format string.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind == kind
	}
	return false
}

// Recoverable reports whether a session should drive itself into
// Reconnecting rather than propagate err out of the actor, per the
// error handling design: WireProtocol, Transport, and most Protocol
// errors are recoverable in-session.
func Recoverable(err error) bool {
	var fe *Error
	if !errors.As(err, &fe) {
		return false
	}
	return recoverable(fe.Kind)
}

func recoverable(kind Kind) bool {
	switch kind {
	case WireProtocol, Transport, Protocol:
		return true
	default:
		return false
	}
}

// Alert builds the bus alert event an error of this Kind surfaces as:
// the three recoverable session kinds (the ones a session reconnects
// on) are warnings. Everything else, notably Config, which rejects the
// reload rather than retrying, is an error.
func Alert(kind Kind, err error) bus.AlertEvent {
	severity := bus.AlertError
	if recoverable(kind) {
		severity = bus.AlertWarn
	}
	return bus.AlertEvent{Severity: severity, Message: New(kind, err).Error()}
}
