package fsm

import (
	"context"
	"errors"
	"testing"
)

type state string
type event string

const (
	stateIdle      state = "idle"
	stateConnected state = "connected"
	stateArmed     state = "armed"
)

const (
	eventConnect event = "connect"
	eventArm     event = "arm"
	eventDrop    event = "drop"
)

func TestFireAppliesValidTransition(t *testing.T) {
	m, err := New(stateIdle, []Transition[state, event]{
		{From: stateIdle, Event: eventConnect, To: stateConnected},
		{From: stateConnected, Event: eventArm, To: stateArmed},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := m.Fire(context.Background(), eventConnect)
	if err != nil {
		t.Fatalf("Fire: %v", err)
	}
	if got != stateConnected {
		t.Errorf("state = %s, want %s", got, stateConnected)
	}
	if m.State() != stateConnected {
		t.Errorf("State() = %s, want %s", m.State(), stateConnected)
	}
}

func TestFireRejectsUnknownTransition(t *testing.T) {
	m, err := New(stateIdle, []Transition[state, event]{
		{From: stateIdle, Event: eventConnect, To: stateConnected},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = m.Fire(context.Background(), eventArm)
	if err == nil {
		t.Fatal("expected error for invalid transition, got nil")
	}
	if m.State() != stateIdle {
		t.Errorf("state should not have moved, got %s", m.State())
	}
}

func TestNewRejectsDuplicateTransitions(t *testing.T) {
	_, err := New(stateIdle, []Transition[state, event]{
		{From: stateIdle, Event: eventConnect, To: stateConnected},
		{From: stateIdle, Event: eventConnect, To: stateArmed},
	})
	if err == nil {
		t.Fatal("expected error for duplicate transition, got nil")
	}
}

func TestGuardRejectionLeavesStateUnchanged(t *testing.T) {
	guardErr := errors.New("not allowed yet")
	m, err := New(stateIdle, []Transition[state, event]{
		{
			From:  stateIdle,
			Event: eventConnect,
			To:    stateConnected,
			Guard: func(ctx context.Context, from state, ev event) error { return guardErr },
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = m.Fire(context.Background(), eventConnect)
	if !errors.Is(err, guardErr) {
		t.Errorf("Fire error = %v, want %v", err, guardErr)
	}
	if m.State() != stateIdle {
		t.Errorf("state should not have moved on guard rejection, got %s", m.State())
	}
}

func TestActionRunsBeforeStateCommits(t *testing.T) {
	var seenFrom, seenTo state
	m, err := New(stateIdle, []Transition[state, event]{
		{
			From:  stateIdle,
			Event: eventConnect,
			To:    stateConnected,
			Action: func(ctx context.Context, from, to state, ev event) error {
				seenFrom, seenTo = from, to
				return nil
			},
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := m.Fire(context.Background(), eventConnect); err != nil {
		t.Fatalf("Fire: %v", err)
	}
	if seenFrom != stateIdle || seenTo != stateConnected {
		t.Errorf("action saw from=%s to=%s, want from=%s to=%s", seenFrom, seenTo, stateIdle, stateConnected)
	}
}

func TestActionErrorAbortsTransition(t *testing.T) {
	actionErr := errors.New("side effect failed")
	m, err := New(stateIdle, []Transition[state, event]{
		{
			From:  stateIdle,
			Event: eventConnect,
			To:    stateConnected,
			Action: func(ctx context.Context, from, to state, ev event) error {
				return actionErr
			},
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = m.Fire(context.Background(), eventConnect)
	if !errors.Is(err, actionErr) {
		t.Errorf("Fire error = %v, want %v", err, actionErr)
	}
	if m.State() != stateIdle {
		t.Errorf("state should not have moved when action errors, got %s", m.State())
	}
}
