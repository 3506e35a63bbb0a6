package bus

import (
	"encoding/json"
	"fmt"
	"time"
)

// wireEnvelope is the JSON wire shape of an Envelope: the event's own
// fields are flattened into "event" alongside its "kind" discriminant,
// the same wrap-then-inject shape the WebSocket bridge forwards to
// every connected client unchanged.
type wireEnvelope struct {
	Source     string          `json:"source"`
	Timestamp  time.Time       `json:"timestamp"`
	RawPayload string          `json:"raw_payload,omitempty"`
	Event      json.RawMessage `json:"event"`
}

// MarshalJSON implements json.Marshaler for Envelope.
func (e Envelope) MarshalJSON() ([]byte, error) {
	eventJSON, err := marshalEvent(e.Event)
	if err != nil {
		return nil, fmt.Errorf("bus: marshal envelope: %w", err)
	}
	return json.Marshal(wireEnvelope{
		Source:     e.Source,
		Timestamp:  e.Timestamp,
		RawPayload: e.RawPayload.String(),
		Event:      eventJSON,
	})
}

// UnmarshalJSON implements json.Unmarshaler for Envelope.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var wire wireEnvelope
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("bus: unmarshal envelope: %w", err)
	}
	event, err := unmarshalEvent(wire.Event)
	if err != nil {
		return fmt.Errorf("bus: unmarshal envelope: %w", err)
	}
	e.Source = wire.Source
	e.Timestamp = wire.Timestamp
	if wire.RawPayload != "" {
		e.RawPayload = NewTextPayload(wire.RawPayload)
	}
	e.Event = event
	return nil
}

// marshalEvent renders ev's own JSON tags and injects its Kind as the
// "kind" discriminant field, so every variant's wire shape matches §3
// without each of the nine event types needing its own MarshalJSON.
func marshalEvent(ev Event) (json.RawMessage, error) {
	if ev == nil {
		return nil, fmt.Errorf("event is nil")
	}
	fields, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(fields, &m); err != nil {
		return nil, err
	}
	kindJSON, err := json.Marshal(ev.Kind())
	if err != nil {
		return nil, err
	}
	m["kind"] = kindJSON
	return json.Marshal(m)
}

// eventFactories is the closed dispatch table from Kind to a fresh,
// zero-valued Event of the matching concrete type. Flighthook's event
// set is fixed at compile time, so a static map serves where an open
// system would need a registration API.
var eventFactories = map[Kind]func() Event{
	KindLaunchMonitor:     func() Event { return LaunchMonitorEvent{} },
	KindActorStatus:       func() Event { return ActorStatusEvent{} },
	KindConfigChanged:     func() Event { return ConfigChangedEvent{} },
	KindGameStateCommand:  func() Event { return GameStateCommandEvent{} },
	KindGameStateSnapshot: func() Event { return GameStateSnapshotEvent{} },
	KindUserData:          func() Event { return UserDataEvent{} },
	KindConfigCommand:     func() Event { return ConfigCommandEvent{} },
	KindConfigOutcome:     func() Event { return ConfigOutcomeEvent{} },
	KindAlert:             func() Event { return AlertEvent{} },
}

func unmarshalEvent(data json.RawMessage) (Event, error) {
	var discriminant struct {
		Kind Kind `json:"kind"`
	}
	if err := json.Unmarshal(data, &discriminant); err != nil {
		return nil, err
	}
	factory, ok := eventFactories[discriminant.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown event kind %q", discriminant.Kind)
	}
	ev := factory()

	// Unmarshal into a pointer to the concrete type so its own fields
	// populate, then re-assert it back to the Event interface.
	switch typed := ev.(type) {
	case LaunchMonitorEvent:
		var v LaunchMonitorEvent
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	case ActorStatusEvent:
		var v ActorStatusEvent
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	case ConfigChangedEvent:
		var v ConfigChangedEvent
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	case GameStateCommandEvent:
		var v GameStateCommandEvent
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	case GameStateSnapshotEvent:
		var v GameStateSnapshotEvent
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	case UserDataEvent:
		var v UserDataEvent
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	case ConfigCommandEvent:
		var v ConfigCommandEvent
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	case ConfigOutcomeEvent:
		var v ConfigOutcomeEvent
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	case AlertEvent:
		var v AlertEvent
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	default:
		return typed, fmt.Errorf("unmarshalEvent: unhandled type %T", typed)
	}
}
