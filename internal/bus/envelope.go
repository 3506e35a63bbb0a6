package bus

import (
	"encoding/hex"
	"time"
)

// RawPayload carries an optional out-of-band blob alongside an Event —
// e.g. the exact bytes of a launch-monitor frame, or simulator wire
// text — kept separate from the parsed Event so a subscriber that only
// cares about the parsed form never pays for it. Exactly one of Bytes
// or Text is meaningful, selected by Binary.
type RawPayload struct {
	Binary bool
	Bytes  []byte
	Text   string
}

// NewBinaryPayload wraps raw bytes, serialized as lowercase hex.
func NewBinaryPayload(b []byte) *RawPayload {
	return &RawPayload{Binary: true, Bytes: b}
}

// NewTextPayload wraps a textual payload.
func NewTextPayload(s string) *RawPayload {
	return &RawPayload{Text: s}
}

// String renders the payload the way it appears in JSON: lowercase hex
// for binary, verbatim for text.
func (p *RawPayload) String() string {
	if p == nil {
		return ""
	}
	if p.Binary {
		return hex.EncodeToString(p.Bytes)
	}
	return p.Text
}

// Envelope is the single, immutable value type carried by the bus.
// Every field is set once at construction; Source and Timestamp are
// stamped by Sender.Send and can never be supplied by the publisher.
type Envelope struct {
	Source     string
	Timestamp  time.Time
	RawPayload *RawPayload
	Event      Event
}
